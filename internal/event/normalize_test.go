package event

import (
	"testing"

	"github.com/radiusdt/roas-attribution/internal/models"
)

func TestAdIDPrecedence(t *testing.T) {
	cases := []struct {
		name string
		e    models.RawEvent
		want string
	}{
		{
			name: "fb_id wins over everything",
			e:    models.RawEvent{"fb_id": "F", "ad_id": "A", "fb_ad_id": "B", "h_ad_id": "C"},
			want: "F",
		},
		{
			name: "ad_id wins over pair",
			e:    models.RawEvent{"ad_id": "A", "fb_ad_id": "B", "h_ad_id": "C"},
			want: "A",
		},
		{
			name: "equal pair uses either",
			e:    models.RawEvent{"fb_ad_id": "123", "h_ad_id": "123"},
			want: "123",
		},
		{
			name: "differing pair prefers h_ad_id",
			e:    models.RawEvent{"fb_ad_id": "123", "h_ad_id": "456"},
			want: "456",
		},
		{
			name: "fb_ad_id alone",
			e:    models.RawEvent{"fb_ad_id": "123"},
			want: "123",
		},
		{
			name: "h_ad_id alone",
			e:    models.RawEvent{"h_ad_id": "456"},
			want: "456",
		},
		{
			name: "nested under additional_info",
			e:    models.RawEvent{"additional_info": map[string]any{"fb_id": "N"}},
			want: "N",
		},
		{
			name: "no identifier",
			e:    models.RawEvent{"ip": "1.2.3.4"},
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AdID(tc.e); got != tc.want {
				t.Fatalf("AdID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTimestampPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		e      models.RawEvent
		want   int64
		wantOK bool
	}{
		{
			name:   "created_at wins over all others regardless of key order",
			e:      models.RawEvent{"unix_datetime": float64(4), "utc_iso_datetime": "2022-06-01T00:00:00Z", "utc_unix_time": float64(2), "created_at_unix_timestamp": float64(1)},
			want:   1,
			wantOK: true,
		},
		{
			name:   "utc_unix_time second",
			e:      models.RawEvent{"utc_unix_time": float64(2), "unix_datetime": float64(4)},
			want:   2,
			wantOK: true,
		},
		{
			name:   "iso datetime parsed to epoch seconds",
			e:      models.RawEvent{"utc_iso_datetime": "2022-06-01T00:00:00Z", "unix_datetime": float64(4)},
			want:   1654041600,
			wantOK: true,
		},
		{
			name:   "unix_datetime last",
			e:      models.RawEvent{"unix_datetime": float64(4)},
			want:   4,
			wantOK: true,
		},
		{
			name:   "none resolvable",
			e:      models.RawEvent{"ip": "1.2.3.4"},
			wantOK: false,
		},
		{
			name:   "unparsable iso falls through to unix_datetime",
			e:      models.RawEvent{"utc_iso_datetime": "not-a-date", "unix_datetime": float64(9)},
			want:   9,
			wantOK: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Timestamp(tc.e)
			if ok != tc.wantOK {
				t.Fatalf("Timestamp() ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("Timestamp() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNormalizeDropsEventsWithoutTimestamp(t *testing.T) {
	if _, ok := Normalize(models.RawEvent{"fb_ad_id": "123"}); ok {
		t.Fatal("expected event without timestamp to be dropped")
	}

	n, ok := Normalize(models.RawEvent{
		"fb_ad_id":      "123",
		"h_ad_id":       "123",
		"utc_unix_time": float64(1000),
		"ipv4":          "1.2.3.4",
		"ipv6":          "::1",
		"userAgent":     "Mozilla/5.0",
	})
	if !ok {
		t.Fatal("expected event to normalize")
	}
	if n.AdID != "123" || n.Timestamp != 1000 {
		t.Fatalf("unexpected normalized event: %+v", n)
	}
	if n.IPv4 != "1.2.3.4" || n.IPv6 != "::1" {
		t.Fatalf("both address families should propagate: %+v", n)
	}
}

func TestHasAdID(t *testing.T) {
	cases := []struct {
		name string
		e    models.RawEvent
		want bool
	}{
		{"top level fb_ad_id", models.RawEvent{"fb_ad_id": "1"}, true},
		{"top level ad_id", models.RawEvent{"ad_id": "1"}, true},
		{"nested h_ad_id", models.RawEvent{"additional_info": map[string]any{"h_ad_id": "1"}}, true},
		{"nested fb_id", models.RawEvent{"additional_info": map[string]any{"fb_id": "1"}}, true},
		{"empty string does not count", models.RawEvent{"fb_ad_id": ""}, false},
		{"no identifier", models.RawEvent{"ipv4": "1.2.3.4"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasAdID(tc.e); got != tc.want {
				t.Fatalf("HasAdID() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlaceholderRejection(t *testing.T) {
	e := models.RawEvent{"fb_ad_id": PlaceholderAdID, "h_ad_id": "real"}
	if got := FunnelAdID(e); got != "real" {
		t.Fatalf("FunnelAdID() = %q, want placeholder skipped", got)
	}

	e = models.RawEvent{"fb_ad_id": PlaceholderAdIDEncoded}
	if got := ClickAdID(e); got != "" {
		t.Fatalf("ClickAdID() = %q, want empty for encoded placeholder", got)
	}
}

func TestFunnelIPs(t *testing.T) {
	e := models.RawEvent{
		"ip":      "1.1.1.1",
		"contact": map[string]any{"ip": "2.2.2.2"},
	}
	ips := FunnelIPs(e)
	if len(ips) != 2 || ips[0] != "1.1.1.1" || ips[1] != "2.2.2.2" {
		t.Fatalf("FunnelIPs() = %v", ips)
	}

	dup := models.RawEvent{"ip": "1.1.1.1", "contact": map[string]any{"ip": "1.1.1.1"}}
	if got := FunnelIPs(dup); len(got) != 1 {
		t.Fatalf("duplicate IPs should collapse, got %v", got)
	}
}
