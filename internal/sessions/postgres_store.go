package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists sessions in PostgreSQL. Schema is managed by the
// goose migrations under migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
	id, user_id, ip, user_agent, device, browser, os, is_mobile,
	location, is_anonymous, status, risk_score, is_anomalous,
	anomaly_reasons, last_activity_at, expires_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	locJSON, err := json.Marshal(sess.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		sess.ID, sess.UserID, sess.IP, sess.UserAgent,
		sess.Device, sess.Browser, sess.OS, sess.IsMobile,
		locJSON, sess.IsAnonymous, string(sess.Status),
		sess.RiskScore, sess.IsAnomalous, pq.Array(reasonStrings(sess.AnomalyReasons)),
		sess.LastActivityAt, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) RecentActive(ctx context.Context, userID string, since time.Time, limit int) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND status = 'active' AND created_at > $2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSessions(rows)
}

func (s *PostgresStore) ActiveByUser(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSessions(rows)
}

func (s *PostgresStore) Update(ctx context.Context, sess *Session) error {
	locJSON, err := json.Marshal(sess.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $2, risk_score = $3, is_anomalous = $4, anomaly_reasons = $5,
		    last_activity_at = $6, expires_at = $7, location = $8
		WHERE id = $1
	`,
		sess.ID, string(sess.Status), sess.RiskScore, sess.IsAnomalous,
		pq.Array(reasonStrings(sess.AnomalyReasons)),
		sess.LastActivityAt, sess.ExpiresAt, locJSON,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess    Session
		locJSON []byte
		status  string
		reasons pq.StringArray
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.IP, &sess.UserAgent,
		&sess.Device, &sess.Browser, &sess.OS, &sess.IsMobile,
		&locJSON, &sess.IsAnonymous, &status,
		&sess.RiskScore, &sess.IsAnomalous, &reasons,
		&sess.LastActivityAt, &sess.ExpiresAt, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Status = Status(status)
	if len(locJSON) > 0 {
		_ = json.Unmarshal(locJSON, &sess.Location)
	}
	for _, r := range reasons {
		sess.AnomalyReasons = append(sess.AnomalyReasons, AnomalyReason(r))
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]*Session, error) {
	var result []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func reasonStrings(reasons []AnomalyReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
