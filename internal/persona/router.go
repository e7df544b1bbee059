package persona

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"strconv"
	"sync"
)

// Browser user agents used when mimicking a common browser. Fixed catalog:
// the choice is uniform, the strings never vary.
var mimicUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// RouteDescriptor describes an opaque multi-hop path. Hop labels are
// random identifiers, not real relays.
type RouteDescriptor struct {
	Hops int      `json:"hops"`
	Path []string `json:"path"`
}

// DelayBounds are the artificial-delay bounds applied to outbound requests.
type DelayBounds struct {
	MinDelayMs int `json:"minDelay"`
	MaxDelayMs int `json:"maxDelay"`
}

// Router derives per-request obfuscation parameters from a persona's
// configuration. Stateless apart from its randomness source.
type Router struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRouter creates a router seeded from crypto/rand.
func NewRouter() *Router {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return NewRouterWithSource(rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:])))))
}

// NewRouterWithSource creates a router with a caller-supplied randomness
// source (for deterministic tests).
func NewRouterWithSource(rnd *rand.Rand) *Router {
	return &Router{rnd: rnd}
}

// RoutingPath returns an opaque routing descriptor, or nil when the persona
// has multi-path routing disabled. A nil result means "feature disabled",
// not an error. The hop count is clamped into [1,5] regardless of what the
// stored configuration says.
func (r *Router) RoutingPath(p *Persona) *RouteDescriptor {
	if !p.Mixing.MultiPathRouting {
		return nil
	}

	hops := ClampHops(p.Mixing.ProxyHops)
	path := make([]string, hops)
	r.mu.Lock()
	for i := range path {
		path[i] = "hop-" + r.hexToken(4)
	}
	r.mu.Unlock()

	return &RouteDescriptor{Hops: hops, Path: path}
}

// DelayBounds returns the persona's artificial-delay bounds, or nil when
// timing noise is disabled. Unset bounds fall back to 50/500 ms.
func (r *Router) DelayBounds(p *Persona) *DelayBounds {
	if !p.Mixing.TimingNoise {
		return nil
	}

	b := &DelayBounds{MinDelayMs: p.Mixing.MinDelayMs, MaxDelayMs: p.Mixing.MaxDelayMs}
	if b.MinDelayMs <= 0 {
		b.MinDelayMs = DefaultMinDelayMs
	}
	if b.MaxDelayMs <= 0 {
		b.MaxDelayMs = DefaultMaxDelayMs
	}
	return b
}

// ObfuscationHeaders builds the header set attached to requests made as a
// persona. It depends only on the mimic flag and randomness, never on
// ownership or history.
//
// With mimicry on: one user agent drawn uniformly from the fixed catalog
// plus a static set of plausible browser headers, with DNT presence and the
// Cache-Control value each toggled independently at 50%.
//
// With mimicry off: exactly three random identifier headers with no relation
// to any browser fingerprint.
func (r *Router) ObfuscationHeaders(mimic bool) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !mimic {
		return map[string]string{
			"X-Request-Token":  r.hexToken(16),                // 32 hex chars
			"X-Trace-Fragment": r.hexToken(8),                 // 16 hex chars
			"X-Route-Bucket":   strconv.Itoa(r.rnd.Intn(100)), // [0,100)
		}
	}

	headers := map[string]string{
		"User-Agent":                mimicUserAgents[r.rnd.Intn(len(mimicUserAgents))],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
	if r.rnd.Intn(2) == 0 {
		headers["DNT"] = "1"
	}
	if r.rnd.Intn(2) == 0 {
		headers["Cache-Control"] = "no-cache"
	} else {
		headers["Cache-Control"] = "max-age=0"
	}
	return headers
}

// hexToken returns numBytes random bytes hex-encoded. Caller holds r.mu.
func (r *Router) hexToken(numBytes int) string {
	b := make([]byte, numBytes)
	r.rnd.Read(b)
	return hex.EncodeToString(b)
}
