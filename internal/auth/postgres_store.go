package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists accounts and API keys in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed auth store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, handle, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.Handle, a.DisplayName, a.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrHandleTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, created_at FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Handle, &a.DisplayName, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) GetAccountByHandle(ctx context.Context, handle string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, created_at FROM accounts WHERE handle = $1
	`, handle).Scan(&a.ID, &a.Handle, &a.DisplayName, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("get account by handle: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateKey(ctx context.Context, key *APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, hash, user_id, name, created_at, last_used, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, key.ID, key.Hash, key.UserID, key.Name, key.CreatedAt, key.LastUsed, key.ExpiresAt, key.Revoked)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	key, err := s.scanKey(s.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, name, created_at, last_used, expires_at, revoked
		FROM api_keys WHERE hash = $1
	`, hash))
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) GetKeysByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash, user_id, name, created_at, last_used, expires_at, revoked
		FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*APIKey
	for rows.Next() {
		key, err := s.scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		result = append(result, key)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateKey(ctx context.Context, key *APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used = $2, expires_at = $3, revoked = $4 WHERE id = $1
	`, key.ID, key.LastUsed, key.ExpiresAt, key.Revoked)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanKey(row rowScanner) (*APIKey, error) {
	var (
		key      APIKey
		lastUsed sql.NullTime
		expires  sql.NullTime
	)
	err := row.Scan(&key.ID, &key.Hash, &key.UserID, &key.Name, &key.CreatedAt, &lastUsed, &expires, &key.Revoked)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		key.LastUsed = lastUsed.Time
	}
	if expires.Valid {
		t := expires.Time
		key.ExpiresAt = &t
	}
	return &key, nil
}
