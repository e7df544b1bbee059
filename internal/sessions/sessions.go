// Package sessions implements login-session tracking and risk assessment.
//
// Every authenticated login produces a session record carrying the resolved
// client context (IP, device, geolocation). New sessions are scored against
// the owner's recent history by the risk engine: an additive 0-100 heuristic
// over location, device, and timing signals. Sessions scoring above the
// suspicious threshold are flagged at creation so a human or automated
// follow-up can revoke them.
//
// Session records are never physically deleted; revocation and expiry are
// soft status transitions kept for audit.
package sessions

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusRevoked    Status = "revoked"
	StatusSuspicious Status = "suspicious"
)

// AnomalyReason explains why a session was flagged.
type AnomalyReason string

const (
	ReasonUnusualLocation        AnomalyReason = "unusual_location"
	ReasonUnusualDevice          AnomalyReason = "unusual_device"
	ReasonRapidLocationChange    AnomalyReason = "rapid_location_change"
	ReasonUnusualActivityPattern AnomalyReason = "unusual_activity_pattern"
	ReasonMultipleFailedAttempts AnomalyReason = "multiple_failed_attempts"
	ReasonUnusualTime            AnomalyReason = "unusual_time"
	ReasonSensitiveDataAccess    AnomalyReason = "sensitive_data_access"
)

// ValidReason reports whether r is a known anomaly reason code.
func ValidReason(r AnomalyReason) bool {
	switch r {
	case ReasonUnusualLocation, ReasonUnusualDevice, ReasonRapidLocationChange,
		ReasonUnusualActivityPattern, ReasonMultipleFailedAttempts,
		ReasonUnusualTime, ReasonSensitiveDataAccess:
		return true
	}
	return false
}

// Errors
var (
	ErrNotFound = errors.New("session not found")
	ErrNotOwner = errors.New("session does not belong to caller")
	ErrInactive = errors.New("session is not active")
)

// Location is the resolved geolocation of a session's source IP.
type Location struct {
	Country   string  `json:"country,omitempty"`
	Region    string  `json:"region,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Session represents one authenticated login instance.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Client context resolved at creation
	IP        string   `json:"ip"`
	UserAgent string   `json:"userAgent"`
	Device    string   `json:"device,omitempty"`  // "desktop", "mobile", "tablet"
	Browser   string   `json:"browser,omitempty"` // "chrome", "firefox", ...
	OS        string   `json:"os,omitempty"`
	Location  Location `json:"location"`
	IsMobile  bool     `json:"isMobile"`

	// Anonymous-mode flag: the session was opened while acting as a persona.
	IsAnonymous bool `json:"isAnonymous"`

	Status Status `json:"status"`

	// Risk assessment (computed once at creation, reasons may grow later
	// via explicit suspicious reports)
	RiskScore      int             `json:"riskScore"`
	IsAnomalous    bool            `json:"isAnomalous"`
	AnomalyReasons []AnomalyReason `json:"anomalyReasons,omitempty"`

	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Expired reports whether the session's expiry has passed at time now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Grantable reports whether the session can still authenticate requests.
// Suspicious sessions remain usable (flagged, not terminal); expired and
// revoked sessions do not.
func (s *Session) Grantable(now time.Time) bool {
	if s.Expired(now) {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusSuspicious
}

// AddReason appends a reason code if not already present and sets the
// anomaly flag. The flag is true iff the reason set is non-empty.
func (s *Session) AddReason(r AnomalyReason) {
	for _, existing := range s.AnomalyReasons {
		if existing == r {
			s.IsAnomalous = true
			return
		}
	}
	s.AnomalyReasons = append(s.AnomalyReasons, r)
	s.IsAnomalous = true
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// RecentActive returns up to limit sessions for the user with status
	// "active" created after since, newest first.
	RecentActive(ctx context.Context, userID string, since time.Time, limit int) ([]*Session, error)
	// ActiveByUser returns every session for the user with status "active",
	// newest first.
	ActiveByUser(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, s *Session) error
}
