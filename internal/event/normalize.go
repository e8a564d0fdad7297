// Package event normalizes heterogeneous raw funnel and click events into
// the canonical shapes consumed by the attribution waterfall.
package event

import (
	"time"

	"github.com/radiusdt/roas-attribution/internal/models"
)

// Placeholder identifiers appear when an ad-platform macro failed to
// expand. They must never be attributed.
const (
	PlaceholderAdID        = "{{ad.id}}"
	PlaceholderAdIDEncoded = "%7B%7Bad.id%7D%7D"
)

// IsPlaceholder reports whether id is an unexpanded template token.
func IsPlaceholder(id string) bool {
	return id == PlaceholderAdID || id == PlaceholderAdIDEncoded
}

// adIDFields are the identifier keys checked by HasAdID, both top level
// and nested under additional_info.
var adIDFields = []string{"fb_ad_id", "h_ad_id", "fb_id", "ad_id"}

// field reads key from the top level of e, falling back to
// additional_info.key.
func field(e models.RawEvent, key string) string {
	if v := e.String(key); v != "" {
		return v
	}
	return e.Nested("additional_info", key)
}

// AdID resolves the advertising identifier for an event. Precedence:
// explicit fb_id, explicit ad_id, then the fb_ad_id/h_ad_id pair where a
// disagreement prefers h_ad_id (the hosted redirect writes it after the
// platform macro ran, so it is the more trustworthy of the two).
func AdID(e models.RawEvent) string {
	fbAdID := field(e, "fb_ad_id")
	hAdID := field(e, "h_ad_id")

	if fbID := field(e, "fb_id"); fbID != "" {
		return fbID
	}
	if adID := field(e, "ad_id"); adID != "" {
		return adID
	}
	if fbAdID != "" && hAdID != "" {
		if fbAdID == hAdID {
			return fbAdID
		}
		return hAdID
	}
	if fbAdID != "" {
		return fbAdID
	}
	return hAdID
}

// HasAdID reports whether the event carries any attribution identifier,
// top level or nested one level under additional_info.
func HasAdID(e models.RawEvent) bool {
	for _, key := range adIDFields {
		if e.Has(key) || e.HasNested("additional_info", key) {
			return true
		}
	}
	return false
}

// FunnelAdID extracts the attribution identifier from a funnel-platform
// event: first non-placeholder value along the funnel field paths.
func FunnelAdID(e models.RawEvent) string {
	return firstAdID(e, []string{"fb_ad_id", "h_ad_id", "fb_id"}, true)
}

// ClickAdID extracts the attribution identifier from a click-store event:
// first non-placeholder value along the click field paths.
func ClickAdID(e models.RawEvent) string {
	return firstAdID(e, []string{"fb_ad_id", "h_ad_id", "fb_id", "ad_id"}, false)
}

func firstAdID(e models.RawEvent, keys []string, nested bool) string {
	for _, key := range keys {
		if v := e.String(key); v != "" && !IsPlaceholder(v) {
			return v
		}
		if nested {
			if v := e.Nested("additional_info", key); v != "" && !IsPlaceholder(v) {
				return v
			}
		}
	}
	return ""
}

// IPv4 returns the event's IPv4 address, if any.
func IPv4(e models.RawEvent) string { return e.String("ipv4") }

// IPv6 returns the event's IPv6 address, if any.
func IPv6(e models.RawEvent) string { return e.String("ipv6") }

// FunnelIPs collects the distinct non-empty IPs a funnel event carries,
// both the top-level ip field and the nested contact.ip.
func FunnelIPs(e models.RawEvent) []string {
	var out []string
	seen := make(map[string]struct{}, 2)
	for _, ip := range []string{e.String("ip"), e.Nested("contact", "ip")} {
		if ip == "" {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out
}

// UserAgent returns the event's user-agent string, if any.
func UserAgent(e models.RawEvent) string {
	if ua := e.String("userAgent"); ua != "" {
		return ua
	}
	return e.String("user_agent")
}

// isoLayouts are accepted encodings for utc_iso_datetime.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp resolves the authoritative epoch-second timestamp of an event.
// Exactly one timestamp field is authoritative; when several are present
// the precedence is fixed: created_at_unix_timestamp, utc_unix_time,
// utc_iso_datetime, unix_datetime. ok is false when none resolve.
func Timestamp(e models.RawEvent) (int64, bool) {
	if ts, ok := e.Number("created_at_unix_timestamp"); ok {
		return ts, true
	}
	if ts, ok := e.Number("utc_unix_time"); ok {
		return ts, true
	}
	if iso := e.String("utc_iso_datetime"); iso != "" {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, iso); err == nil {
				return t.Unix(), true
			}
		}
	}
	if ts, ok := e.Number("unix_datetime"); ok {
		return ts, true
	}
	return 0, false
}

// Normalize extracts the canonical shape from a raw event. ok is false
// when no timestamp field resolves; callers drop such events after
// logging a diagnostic.
func Normalize(e models.RawEvent) (models.NormalizedEvent, bool) {
	ts, ok := Timestamp(e)
	if !ok {
		return models.NormalizedEvent{}, false
	}
	return models.NormalizedEvent{
		AdID:      AdID(e),
		IPv4:      IPv4(e),
		IPv6:      IPv6(e),
		UserAgent: UserAgent(e),
		Timestamp: ts,
	}, true
}
