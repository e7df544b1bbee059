package alerts

import (
	"time"

	"github.com/thatamjad/LinkedHer-sub004/internal/sessions"
)

// SessionSink feeds session lifecycle events into the hub. It satisfies
// the session manager's event sink and never blocks.
type SessionSink struct {
	hub *Hub
}

// NewSessionSink creates a sink publishing to hub.
func NewSessionSink(hub *Hub) *SessionSink {
	return &SessionSink{hub: hub}
}

func (s *SessionSink) SessionFlagged(userID string, sess *sessions.Session) {
	s.hub.Publish(&Event{
		Type:      EventSessionSuspicious,
		Timestamp: time.Now(),
		UserID:    userID,
		Data:      sessionPayload(sess),
	})
}

func (s *SessionSink) SessionRevoked(userID string, sess *sessions.Session) {
	s.hub.Publish(&Event{
		Type:      EventSessionRevoked,
		Timestamp: time.Now(),
		UserID:    userID,
		Data:      sessionPayload(sess),
	})
}

func sessionPayload(sess *sessions.Session) map[string]interface{} {
	return map[string]interface{}{
		"sessionId":      sess.ID,
		"status":         sess.Status,
		"riskScore":      sess.RiskScore,
		"anomalyReasons": sess.AnomalyReasons,
		"device":         sess.Device,
		"country":        sess.Location.Country,
	}
}
