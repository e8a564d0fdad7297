package models

// ===========================================
// RAW EVENT
// ===========================================

// RawEvent is the opaque document shape returned by both the funnel store
// and the click-event store. Field layout is not uniform across sources:
// identifiers and IPs may live at the top level or nested one level down,
// and four different timestamp encodings occur in the wild.
type RawEvent map[string]any

// String returns the string value at key, or "" when absent or not a string.
func (e RawEvent) String(key string) string {
	v, ok := e[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Nested returns the string value at outer.inner, or "" when either level
// is absent.
func (e RawEvent) Nested(outer, inner string) string {
	v, ok := e[outer]
	if !ok {
		return ""
	}
	switch m := v.(type) {
	case map[string]any:
		s, _ := m[inner].(string)
		return s
	case RawEvent:
		return m.String(inner)
	}
	return ""
}

// Number returns the numeric value at key as int64. JSON decoding yields
// float64 for numbers; stores may also hand back int64 directly or a
// numeric string.
func (e RawEvent) Number(key string) (int64, bool) {
	v, ok := e[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// Slice returns the value at key as a []any, or nil.
func (e RawEvent) Slice(key string) []any {
	v, ok := e[key]
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

// Has reports whether key is present with a non-empty value.
func (e RawEvent) Has(key string) bool {
	v, ok := e[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

// HasNested reports whether outer.inner is present with a non-empty value.
func (e RawEvent) HasNested(outer, inner string) bool {
	v, ok := e[outer]
	if !ok {
		return false
	}
	var iv any
	switch m := v.(type) {
	case map[string]any:
		iv, ok = m[inner]
	case RawEvent:
		iv, ok = m[inner]
	default:
		return false
	}
	if !ok || iv == nil {
		return false
	}
	if s, isStr := iv.(string); isStr {
		return s != ""
	}
	return true
}

// ===========================================
// NORMALIZED EVENT
// ===========================================

// NormalizedEvent is the canonical shape extracted from a RawEvent. It is
// derived per pipeline pass and never persisted.
type NormalizedEvent struct {
	AdID      string `json:"ad_id,omitempty"`
	IPv4      string `json:"ipv4,omitempty"`
	IPv6      string `json:"ipv6,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ===========================================
// ATTRIBUTION CANDIDATE
// ===========================================

// AdCandidate is a proposed (ad identifier, timestamp, originating IPs)
// tuple produced by one waterfall tier.
type AdCandidate struct {
	AdID      string   `json:"ad_id"`
	Timestamp int64    `json:"timestamp"`
	IPs       []string `json:"ip,omitempty"`
}
