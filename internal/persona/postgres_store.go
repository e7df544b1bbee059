package persona

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists personas in PostgreSQL. Schema is managed by the
// goose migrations under migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed persona store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const personaColumns = `
	id, user_id, display_name, stealth_addr,
	mixing, fingerprint, security, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *Persona) error {
	mixing, fingerprint, security, err := marshalConfigs(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personas (`+personaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		p.ID, p.UserID, p.DisplayName, p.StealthAddr,
		mixing, fingerprint, security, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert persona: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Persona, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+personaColumns+` FROM personas WHERE id = $1
	`, id)

	p, err := scanPersona(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+personaColumns+`
		FROM personas
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, p *Persona) error {
	mixing, fingerprint, security, err := marshalConfigs(p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE personas
		SET display_name = $2, stealth_addr = $3,
		    mixing = $4, fingerprint = $5, security = $6, updated_at = $7
		WHERE id = $1
	`,
		p.ID, p.DisplayName, p.StealthAddr,
		mixing, fingerprint, security, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update persona: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update persona: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalConfigs(p *Persona) (mixing, fingerprint, security []byte, err error) {
	if mixing, err = json.Marshal(p.Mixing); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal mixing config: %w", err)
	}
	if fingerprint, err = json.Marshal(p.Fingerprint); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal fingerprint config: %w", err)
	}
	if security, err = json.Marshal(p.Security); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal security config: %w", err)
	}
	return mixing, fingerprint, security, nil
}

func scanPersona(row rowScanner) (*Persona, error) {
	var (
		p           Persona
		mixing      []byte
		fingerprint []byte
		security    []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.DisplayName, &p.StealthAddr,
		&mixing, &fingerprint, &security, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(mixing, &p.Mixing); err != nil {
		return nil, fmt.Errorf("decode mixing config: %w", err)
	}
	if err := json.Unmarshal(fingerprint, &p.Fingerprint); err != nil {
		return nil, fmt.Errorf("decode fingerprint config: %w", err)
	}
	if err := json.Unmarshal(security, &p.Security); err != nil {
		return nil, fmt.Errorf("decode security config: %w", err)
	}
	return &p, nil
}
