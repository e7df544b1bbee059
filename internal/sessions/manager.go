package sessions

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/thatamjad/LinkedHer-sub004/internal/idgen"
	"github.com/thatamjad/LinkedHer-sub004/internal/logging"
	"github.com/thatamjad/LinkedHer-sub004/internal/metrics"
	"github.com/thatamjad/LinkedHer-sub004/internal/pagination"
	"github.com/thatamjad/LinkedHer-sub004/internal/syncutil"
	"github.com/thatamjad/LinkedHer-sub004/internal/traces"
)

// ClientContext carries the request data a new session is built from.
// The HTTP layer resolves IP, user agent, and geolocation before calling
// Manager.Create.
type ClientContext struct {
	IP          string
	UserAgent   string
	Location    Location
	IsAnonymous bool
}

// EventSink receives security events for downstream notification.
// Implementations must not block.
type EventSink interface {
	SessionFlagged(userID string, s *Session)
	SessionRevoked(userID string, s *Session)
}

// Manager owns the session lifecycle: creation with risk assessment,
// listing, activity refresh, and revocation.
type Manager struct {
	store     Store
	engine    *Engine
	ttl       time.Duration
	threshold int // scores strictly greater are flagged suspicious
	events    EventSink
	now       func() time.Time

	// userLocks serializes history-read-then-write sequences per user so
	// concurrent creates score against a consistent history.
	userLocks *syncutil.ContextShardedMutex
}

// NewManager creates a session manager. The engine shares the manager's
// store so risk history and persisted sessions stay in one place.
func NewManager(store Store, ttl time.Duration, threshold int) *Manager {
	return &Manager{
		store:     store,
		engine:    NewEngine(store),
		ttl:       ttl,
		threshold: threshold,
		now:       time.Now,
		userLocks: syncutil.NewContextShardedMutex(),
	}
}

// WithEvents attaches a security-event sink.
func (m *Manager) WithEvents(sink EventSink) *Manager {
	m.events = sink
	return m
}

// WithClock overrides the manager's (and its engine's) clock for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	m.engine.WithClock(now)
	return m
}

// Create builds, risk-assesses, and persists a new session for userID.
//
// A failed history query aborts the whole operation: sessions are never
// persisted with a silently defaulted score. Scores strictly above the
// threshold mark the session suspicious at creation.
func (m *Manager) Create(ctx context.Context, userID string, client ClientContext) (*Session, error) {
	ctx, span := traces.StartSpan(ctx, "sessions.Create", traces.UserID(userID))
	defer span.End()

	unlock, err := m.userLocks.LockContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := m.now()
	info := ParseUserAgent(client.UserAgent)

	s := &Session{
		ID:             idgen.WithPrefix("ses_"),
		UserID:         userID,
		IP:             client.IP,
		UserAgent:      client.UserAgent,
		Device:         info.Device,
		Browser:        info.Browser,
		OS:             info.OS,
		IsMobile:       info.IsMobile,
		Location:       client.Location,
		IsAnonymous:    client.IsAnonymous,
		Status:         StatusActive,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.ttl),
		CreatedAt:      now,
	}

	score, reasons, err := m.engine.Assess(ctx, userID, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "risk assessment failed")
		return nil, err
	}
	span.SetAttributes(traces.RiskScore(score))

	if score > m.threshold {
		s.Status = StatusSuspicious
		logging.L(ctx).Warn("suspicious session detected",
			"session_id", s.ID,
			"user_id", userID,
			"risk_score", score,
			"reasons", reasons,
		)
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	metrics.SessionsCreatedTotal.WithLabelValues(string(s.Status)).Inc()
	metrics.SessionRiskScore.Observe(float64(score))

	if s.Status == StatusSuspicious {
		metrics.SuspiciousSessionsTotal.WithLabelValues("risk_engine").Inc()
		if m.events != nil {
			m.events.SessionFlagged(userID, s)
		}
	}

	return s, nil
}

// List returns the caller's active, non-expired sessions newest first,
// paginated by an opaque cursor. Sessions that lapsed past their expiry are
// transitioned to expired on observation and excluded.
func (m *Manager) List(ctx context.Context, userID string, cursor string, limit int) ([]*Session, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}

	all, err := m.store.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	now := m.now()
	live := make([]*Session, 0, len(all))
	for _, s := range all {
		if m.lazyExpire(ctx, s, now) {
			continue
		}
		if cur != nil && !s.CreatedAt.Before(cur.CreatedAt) {
			continue
		}
		live = append(live, s)
		if len(live) > limit {
			break
		}
	}

	page, next, _ := pagination.ComputePage(live, limit, func(s *Session) (time.Time, string) {
		return s.CreatedAt, s.ID
	})
	return page, next, nil
}

// Get returns one of the caller's sessions by ID, applying lazy expiry.
// Sessions belonging to other users are reported as not found.
func (m *Manager) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrNotFound
	}
	m.lazyExpire(ctx, s, m.now())
	return s, nil
}

// Revoke revokes one of the caller's sessions. Absent, foreign, expired, and
// already-revoked sessions all surface as not found.
func (m *Manager) Revoke(ctx context.Context, userID, sessionID string) error {
	ctx, span := traces.StartSpan(ctx, "sessions.Revoke", traces.UserID(userID), traces.SessionID(sessionID))
	defer span.End()

	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !s.Grantable(m.now()) {
		return ErrNotFound
	}

	s.Status = StatusRevoked
	if err := m.store.Update(ctx, s); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.Inc()
	if m.events != nil {
		m.events.SessionRevoked(userID, s)
	}
	return nil
}

// RevokeOthers revokes all of the caller's active sessions except keepID.
// Returns the number of sessions revoked.
func (m *Manager) RevokeOthers(ctx context.Context, userID, keepID string) (int, error) {
	unlock, err := m.userLocks.LockContext(ctx, userID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	all, err := m.store.ActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := m.now()
	revoked := 0
	for _, s := range all {
		if s.ID == keepID || m.lazyExpire(ctx, s, now) {
			continue
		}
		s.Status = StatusRevoked
		if err := m.store.Update(ctx, s); err != nil {
			return revoked, err
		}
		revoked++
		metrics.SessionsRevokedTotal.Inc()
		if m.events != nil {
			m.events.SessionRevoked(userID, s)
		}
	}
	return revoked, nil
}

// Touch refreshes the last-activity timestamp of the caller's session.
func (m *Manager) Touch(ctx context.Context, userID, sessionID string) (*Session, error) {
	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Grantable(m.now()) {
		return nil, ErrInactive
	}

	s.LastActivityAt = m.now()
	if err := m.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkSuspicious flags the caller's session with an optional reason code.
// The session stays usable; revocation is a separate, explicit action.
func (m *Manager) MarkSuspicious(ctx context.Context, userID, sessionID string, reason AnomalyReason) (*Session, error) {
	if reason != "" && !ValidReason(reason) {
		return nil, errors.New("unknown anomaly reason")
	}

	s, err := m.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Grantable(m.now()) {
		return nil, ErrInactive
	}

	s.Status = StatusSuspicious
	if reason != "" {
		s.AddReason(reason)
	}
	if err := m.store.Update(ctx, s); err != nil {
		return nil, err
	}

	logging.L(ctx).Warn("session reported suspicious",
		"session_id", s.ID,
		"user_id", userID,
		"reason", reason,
	)
	metrics.SuspiciousSessionsTotal.WithLabelValues("report").Inc()
	if m.events != nil {
		m.events.SessionFlagged(userID, s)
	}
	return s, nil
}

// lazyExpire transitions a session past its expiry to StatusExpired,
// persisting best-effort. Reports whether the session is now expired.
func (m *Manager) lazyExpire(ctx context.Context, s *Session, now time.Time) bool {
	if !s.Expired(now) {
		return false
	}
	if s.Status == StatusActive || s.Status == StatusSuspicious {
		s.Status = StatusExpired
		if err := m.store.Update(ctx, s); err != nil {
			logging.L(ctx).Warn("failed to persist session expiry", "session_id", s.ID, "error", err)
		}
	}
	return true
}
