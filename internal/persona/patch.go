package persona

import "encoding/json"

// Partial updates are decoded field by field: a field that is absent from
// the body, or present with a value of the wrong JSON type, leaves the
// stored value unchanged. There are no implicit defaults and no
// whole-object replacement.

// MixingPatch is a partial update of MixingConfig.
type MixingPatch struct {
	TimingNoise      *bool
	MultiPathRouting *bool
	MinDelayMs       *int
	MaxDelayMs       *int
	ProxyHops        *int
}

// SecurityPatch is a partial update of SecurityConfig.
type SecurityPatch struct {
	AutoSwitchMinutes  *int
	PurgeOnLogout      *bool
	NotifyOnSuspicious *bool
}

// MetadataPatch is a partial update of a persona's display metadata and
// fingerprint settings.
type MetadataPatch struct {
	DisplayName      *string
	StealthAddr      *string
	RandomizeHeaders *bool
	MimicBrowser     *bool
}

// DecodeMixingPatch parses a request body into a MixingPatch.
// Returns an error only when the body is not a JSON object at all.
func DecodeMixingPatch(body []byte) (MixingPatch, error) {
	fields, err := rawFields(body)
	if err != nil {
		return MixingPatch{}, err
	}
	return MixingPatch{
		TimingNoise:      field[bool](fields, "timingNoise"),
		MultiPathRouting: field[bool](fields, "multiPathRouting"),
		MinDelayMs:       field[int](fields, "minDelayMs"),
		MaxDelayMs:       field[int](fields, "maxDelayMs"),
		ProxyHops:        field[int](fields, "proxyHops"),
	}, nil
}

// DecodeSecurityPatch parses a request body into a SecurityPatch.
func DecodeSecurityPatch(body []byte) (SecurityPatch, error) {
	fields, err := rawFields(body)
	if err != nil {
		return SecurityPatch{}, err
	}
	return SecurityPatch{
		AutoSwitchMinutes:  field[int](fields, "autoSwitchMinutes"),
		PurgeOnLogout:      field[bool](fields, "purgeOnLogout"),
		NotifyOnSuspicious: field[bool](fields, "notifyOnSuspicious"),
	}, nil
}

// DecodeMetadataPatch parses a request body into a MetadataPatch.
func DecodeMetadataPatch(body []byte) (MetadataPatch, error) {
	fields, err := rawFields(body)
	if err != nil {
		return MetadataPatch{}, err
	}
	return MetadataPatch{
		DisplayName:      field[string](fields, "displayName"),
		StealthAddr:      field[string](fields, "stealthAddr"),
		RandomizeHeaders: field[bool](fields, "randomizeHeaders"),
		MimicBrowser:     field[bool](fields, "mimicBrowser"),
	}, nil
}

// Apply merges the patch onto the config. Proxy hops are clamped on write.
func (p MixingPatch) Apply(c *MixingConfig) {
	if p.TimingNoise != nil {
		c.TimingNoise = *p.TimingNoise
	}
	if p.MultiPathRouting != nil {
		c.MultiPathRouting = *p.MultiPathRouting
	}
	if p.MinDelayMs != nil {
		c.MinDelayMs = *p.MinDelayMs
	}
	if p.MaxDelayMs != nil {
		c.MaxDelayMs = *p.MaxDelayMs
	}
	if p.ProxyHops != nil {
		c.ProxyHops = ClampHops(*p.ProxyHops)
	}
}

// Apply merges the patch onto the config.
func (p SecurityPatch) Apply(c *SecurityConfig) {
	if p.AutoSwitchMinutes != nil {
		c.AutoSwitchMinutes = *p.AutoSwitchMinutes
	}
	if p.PurgeOnLogout != nil {
		c.PurgeOnLogout = *p.PurgeOnLogout
	}
	if p.NotifyOnSuspicious != nil {
		c.NotifyOnSuspicious = *p.NotifyOnSuspicious
	}
}

// Apply merges the patch onto the persona's metadata and fingerprint.
func (p MetadataPatch) Apply(target *Persona) {
	if p.DisplayName != nil {
		target.DisplayName = *p.DisplayName
	}
	if p.StealthAddr != nil {
		target.StealthAddr = *p.StealthAddr
	}
	if p.RandomizeHeaders != nil {
		target.Fingerprint.RandomizeHeaders = *p.RandomizeHeaders
	}
	if p.MimicBrowser != nil {
		target.Fingerprint.MimicBrowser = *p.MimicBrowser
	}
}

func rawFields(body []byte) (map[string]json.RawMessage, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// field decodes one named field into T. Missing fields, explicit nulls, and
// wrong-typed values all come back nil, so the caller's merge skips them.
func field[T any](fields map[string]json.RawMessage, key string) *T {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
