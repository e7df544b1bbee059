// Package persona implements anonymous-identity configuration and the
// request-obfuscation parameters derived from it.
//
// A persona is a user's alternate, anonymized identity: a display name and
// stealth address plus the mixing, fingerprint, and security settings that
// drive per-request obfuscation (routing-path stubs, artificial delay
// bounds, randomized headers). These are configuration plumbing, not a mix
// network: descriptors are opaque labels with no relay selection and no
// unlinkability guarantees.
package persona

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound = errors.New("persona not found")
	ErrNotOwner = errors.New("persona does not belong to caller")
)

// Proxy-hop bounds. Hop counts are clamped into this range on every write.
const (
	MinProxyHops = 1
	MaxProxyHops = 5
)

// Default artificial-delay bounds in milliseconds.
const (
	DefaultMinDelayMs = 50
	DefaultMaxDelayMs = 500
)

// MixingConfig governs timing noise and multi-hop routing.
type MixingConfig struct {
	TimingNoise      bool `json:"timingNoise"`
	MultiPathRouting bool `json:"multiPathRouting"`
	MinDelayMs       int  `json:"minDelayMs"`
	MaxDelayMs       int  `json:"maxDelayMs"`
	ProxyHops        int  `json:"proxyHops"`
}

// FingerprintConfig governs header randomization and browser mimicry.
type FingerprintConfig struct {
	RandomizeHeaders bool `json:"randomizeHeaders"`
	MimicBrowser     bool `json:"mimicBrowser"`
}

// SecurityConfig holds the persona's safety settings.
type SecurityConfig struct {
	AutoSwitchMinutes  int  `json:"autoSwitchMinutes"` // auto-switch back to the verified identity after this idle time
	PurgeOnLogout      bool `json:"purgeOnLogout"`
	NotifyOnSuspicious bool `json:"notifyOnSuspicious"`
}

// Persona is a user's anonymized identity configuration.
type Persona struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	StealthAddr string `json:"stealthAddr"`

	Mixing      MixingConfig      `json:"mixing"`
	Fingerprint FingerprintConfig `json:"fingerprint"`
	Security    SecurityConfig    `json:"security"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultMixing returns the mixing configuration for a new persona.
func DefaultMixing() MixingConfig {
	return MixingConfig{
		TimingNoise:      true,
		MultiPathRouting: false,
		MinDelayMs:       DefaultMinDelayMs,
		MaxDelayMs:       DefaultMaxDelayMs,
		ProxyHops:        3,
	}
}

// DefaultFingerprint returns the fingerprint configuration for a new persona.
func DefaultFingerprint() FingerprintConfig {
	return FingerprintConfig{
		RandomizeHeaders: true,
		MimicBrowser:     true,
	}
}

// DefaultSecurity returns the security configuration for a new persona.
func DefaultSecurity() SecurityConfig {
	return SecurityConfig{
		AutoSwitchMinutes:  30,
		PurgeOnLogout:      true,
		NotifyOnSuspicious: true,
	}
}

// ClampHops forces a hop count into [MinProxyHops, MaxProxyHops].
func ClampHops(hops int) int {
	if hops < MinProxyHops {
		return MinProxyHops
	}
	if hops > MaxProxyHops {
		return MaxProxyHops
	}
	return hops
}

// Store persists personas.
type Store interface {
	Create(ctx context.Context, p *Persona) error
	Get(ctx context.Context, id string) (*Persona, error)
	ListByUser(ctx context.Context, userID string) ([]*Persona, error)
	Update(ctx context.Context, p *Persona) error
}
