package sessions

import (
	"context"
	"fmt"
	"time"
)

// Scoring increments. Additive, order-independent, each check fires at most
// once; the final score is clamped to [0, 100].
const (
	scoreUnusualLocation     = 30
	scoreUnusualDevice       = 20
	scoreRapidLocationChange = 40
	scoreUnusualTime         = 10

	maxScore = 100

	// historyLimit and historyWindow bound the comparison history: up to 5
	// most-recent active sessions within a 30-day trailing window.
	historyLimit  = 5
	historyWindow = 30 * 24 * time.Hour

	// rapidChangeWindow is the strict upper bound for the rapid-location
	// check: a country change against the most recent prior session fires
	// only when strictly less than 12 hours elapsed.
	rapidChangeWindow = 12 * time.Hour

	// Server-local hours considered unusual for a login, inclusive.
	unusualHourStart = 1
	unusualHourEnd   = 5
)

// Engine assigns risk scores to candidate sessions by comparing them against
// the owner's recent session history.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates a risk engine backed by the given session store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock overrides the engine's clock (for tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Assess scores the not-yet-persisted candidate session for userID.
//
// The candidate must already carry its resolved location and device labels.
// Fired checks append their reason codes to the candidate's anomaly set and
// the final score is written to candidate.RiskScore. A history-query failure
// is propagated: the caller must not fall back to a default score.
func (e *Engine) Assess(ctx context.Context, userID string, candidate *Session) (int, []AnomalyReason, error) {
	now := e.now()

	history, err := e.store.RecentActive(ctx, userID, now.Add(-historyWindow), historyLimit)
	if err != nil {
		return 0, nil, fmt.Errorf("load session history: %w", err)
	}

	score := 0

	if unusualLocation(history, candidate) {
		score += scoreUnusualLocation
		candidate.AddReason(ReasonUnusualLocation)
	}

	if unusualDevice(history, candidate) {
		score += scoreUnusualDevice
		candidate.AddReason(ReasonUnusualDevice)
	}

	if rapidLocationChange(history, candidate, now) {
		score += scoreRapidLocationChange
		candidate.AddReason(ReasonRapidLocationChange)
	}

	if h := now.Hour(); h >= unusualHourStart && h <= unusualHourEnd {
		score += scoreUnusualTime
		candidate.AddReason(ReasonUnusualTime)
	}

	if score > maxScore {
		score = maxScore
	}
	candidate.RiskScore = score

	return score, candidate.AnomalyReasons, nil
}

// unusualLocation: the candidate's country is non-empty, history is
// non-empty, and the country has not been seen in the history.
func unusualLocation(history []*Session, candidate *Session) bool {
	if candidate.Location.Country == "" || len(history) == 0 {
		return false
	}
	for _, prior := range history {
		if prior.Location.Country == candidate.Location.Country {
			return false
		}
	}
	return true
}

// unusualDevice: the candidate's device label is non-empty, at least one
// prior session has a device label, and the candidate's label has not been
// seen in the history.
func unusualDevice(history []*Session, candidate *Session) bool {
	if candidate.Device == "" {
		return false
	}
	seen := false
	for _, prior := range history {
		if prior.Device == "" {
			continue
		}
		seen = true
		if prior.Device == candidate.Device {
			return false
		}
	}
	return seen
}

// rapidLocationChange: the single most recent prior session has a different
// (non-empty) country and was created strictly less than 12 hours before the
// candidate. Older sessions never trigger this check.
func rapidLocationChange(history []*Session, candidate *Session, now time.Time) bool {
	if len(history) == 0 {
		return false
	}
	latest := history[0]
	if latest.Location.Country == "" || candidate.Location.Country == "" {
		return false
	}
	if latest.Location.Country == candidate.Location.Country {
		return false
	}
	return now.Sub(latest.CreatedAt) < rapidChangeWindow
}
