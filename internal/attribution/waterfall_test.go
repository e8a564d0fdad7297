package attribution

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/radiusdt/roas-attribution/internal/dates"
	"github.com/radiusdt/roas-attribution/internal/models"
	"github.com/radiusdt/roas-attribution/internal/storage"
	"go.uber.org/zap"
)

// fakeFunnel is a scriptable FunnelStore with call counters.
type fakeFunnel struct {
	byEmail    []models.RawEvent
	byEmailErr error
	byIP       map[string][]models.RawEvent // "version|ip"
	byIPErr    error

	emailCalls int32
	ipCalls    int32
}

func (f *fakeFunnel) EventsByUserInWindow(ctx context.Context, userID string, w dates.Window) ([]models.RawEvent, error) {
	return nil, nil
}

func (f *fakeFunnel) EventsByEmail(ctx context.Context, email string) ([]models.RawEvent, error) {
	atomic.AddInt32(&f.emailCalls, 1)
	return f.byEmail, f.byEmailErr
}

func (f *fakeFunnel) EventsByIP(ctx context.Context, version storage.IPVersion, ip, userID string) ([]models.RawEvent, error) {
	atomic.AddInt32(&f.ipCalls, 1)
	if f.byIPErr != nil {
		return nil, f.byIPErr
	}
	return f.byIP[string(version)+"|"+ip], nil
}

// fakeClicks is a scriptable ClickEventStore with call counters.
type fakeClicks struct {
	byIP     map[string][]models.RawEvent
	withAdID map[string][]models.RawEvent
	byIPErr  error

	byIPCalls     int32
	withAdIDCalls int32
}

func (f *fakeClicks) EventsByIP(ctx context.Context, version storage.IPVersion, ip, userID string) ([]models.RawEvent, error) {
	atomic.AddInt32(&f.byIPCalls, 1)
	if f.byIPErr != nil {
		return nil, f.byIPErr
	}
	return f.byIP[string(version)+"|"+ip], nil
}

func (f *fakeClicks) EventsWithAdIDByIP(ctx context.Context, version storage.IPVersion, ip, userID string) ([]models.RawEvent, error) {
	atomic.AddInt32(&f.withAdIDCalls, 1)
	return f.withAdID[string(version)+"|"+ip], nil
}

func newTestWaterfall(funnel storage.FunnelStore, clicks storage.ClickEventStore) *Waterfall {
	return NewWaterfall(funnel, clicks, nil, zap.NewNop(), nil)
}

func customer(email string) *models.Customer {
	return &models.Customer{
		Email:          email,
		LowerCaseEmail: email,
		LineItems:      []models.LineItem{{Price: 10, Name: "widget"}},
	}
}

func TestDirectTierResolvesWithoutIPLookups(t *testing.T) {
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{
				"fb_ad_id":                  "123",
				"h_ad_id":                   "123",
				"updated_at_unix_timestamp": float64(1000),
				"ip":                        "9.9.9.9",
			},
		},
	}
	clicks := &fakeClicks{}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("a@x.com"), "u1")

	if len(got) != 1 || got[0].AdID != "123" || got[0].Timestamp != 1000 {
		t.Fatalf("direct tier candidates = %+v", got)
	}
	if funnel.ipCalls != 0 {
		t.Fatalf("tier 2 ran despite direct resolution: %d funnel IP calls", funnel.ipCalls)
	}
	if clicks.byIPCalls != 0 || clicks.withAdIDCalls != 0 {
		t.Fatal("click store queried despite direct resolution")
	}
}

func TestDirectTierTimestampFallback(t *testing.T) {
	// Funnel events without updated_at_unix_timestamp fall back to the
	// shared timestamp precedence rather than yielding timestamp 0.
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"fb_ad_id": "123", "h_ad_id": "123", "utc_unix_time": float64(1000)},
		},
	}
	clicks := &fakeClicks{}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("ts@x.com"), "u1")

	if len(got) != 1 || got[0].AdID != "123" || got[0].Timestamp != 1000 {
		t.Fatalf("fallback candidates = %+v, want ad 123 at 1000", got)
	}
}

func TestDirectTierPrefersUpdatedAtTimestamp(t *testing.T) {
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{
				"fb_ad_id":                  "123",
				"h_ad_id":                   "123",
				"updated_at_unix_timestamp": float64(500),
				"utc_unix_time":             float64(1000),
			},
		},
	}
	clicks := &fakeClicks{}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("ts2@x.com"), "u1")

	if len(got) != 1 || got[0].Timestamp != 500 {
		t.Fatalf("candidates = %+v, want updated_at timestamp 500", got)
	}
}

func TestTierTwoExpandsDualStack(t *testing.T) {
	// The customer's funnel history carries only an IPv4. A related
	// session under that IPv4 reveals an IPv6, and the click event with
	// the identifier sits under the IPv6.
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"ip": "1.1.1.1", "updated_at_unix_timestamp": float64(500)},
		},
		byIP: map[string][]models.RawEvent{
			"ipv4|1.1.1.1": {{"ipv4": "1.1.1.1", "ipv6": "::abcd"}},
		},
	}
	clicks := &fakeClicks{
		byIP: map[string][]models.RawEvent{
			"ipv6|::abcd": {{"ad_id": "A9", "utc_unix_time": float64(900)}},
		},
	}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("b@x.com"), "u1")

	if len(got) != 1 || got[0].AdID != "A9" || got[0].Timestamp != 900 {
		t.Fatalf("tier 2 candidates = %+v", got)
	}
	if clicks.withAdIDCalls != 0 {
		t.Fatal("tier 3 ran despite tier 2 resolution")
	}
}

func TestTierThreeRunsOnlyWhenTierTwoEmpty(t *testing.T) {
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"ip": "2.2.2.2", "updated_at_unix_timestamp": float64(500)},
		},
	}
	clicks := &fakeClicks{
		withAdID: map[string][]models.RawEvent{
			"ipv4|2.2.2.2": {{"fb_ad_id": "T3", "created_at_unix_timestamp": float64(700)}},
		},
	}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("c@x.com"), "u1")

	if len(got) != 1 || got[0].AdID != "T3" {
		t.Fatalf("tier 3 candidates = %+v", got)
	}
	if clicks.byIPCalls == 0 {
		t.Fatal("tier 2 click lookups should have run before tier 3")
	}
}

func TestPlaceholderNeverSurfaces(t *testing.T) {
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"fb_ad_id": "{{ad.id}}", "updated_at_unix_timestamp": float64(100), "ip": "3.3.3.3"},
		},
	}
	clicks := &fakeClicks{
		byIP: map[string][]models.RawEvent{
			"ipv4|3.3.3.3": {{"ad_id": "%7B%7Bad.id%7D%7D", "utc_unix_time": float64(200)}},
		},
		withAdID: map[string][]models.RawEvent{
			"ipv4|3.3.3.3": {{"fb_ad_id": "{{ad.id}}", "utc_unix_time": float64(300)}},
		},
	}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("d@x.com"), "u1")

	for _, c := range got {
		if c.AdID == "{{ad.id}}" || c.AdID == "%7B%7Bad.id%7D%7D" {
			t.Fatalf("placeholder identifier surfaced: %+v", c)
		}
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates from placeholder-only input, got %+v", got)
	}
}

func TestFunnelHistoryFailureDegradesToEmpty(t *testing.T) {
	funnel := &fakeFunnel{byEmailErr: errors.New("store down")}
	clicks := &fakeClicks{}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("e@x.com"), "u1")
	if len(got) != 0 {
		t.Fatalf("expected empty candidates on store failure, got %+v", got)
	}
}

func TestTierTwoLookupFailureFallsThroughToTierThree(t *testing.T) {
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"ip": "4.4.4.4", "updated_at_unix_timestamp": float64(500)},
		},
		byIPErr: errors.New("index unavailable"),
	}
	clicks := &fakeClicks{
		byIPErr: errors.New("scan failed"),
		withAdID: map[string][]models.RawEvent{
			"ipv4|4.4.4.4": {{"ad_id": "FALLBACK", "utc_unix_time": float64(800)}},
		},
	}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("f@x.com"), "u1")
	if len(got) != 1 || got[0].AdID != "FALLBACK" {
		t.Fatalf("expected tier 3 fallback candidate, got %+v", got)
	}
}

func TestGlobalDedupAcrossIPs(t *testing.T) {
	// The same ad id shows up under two different IPs; dedup is per
	// customer, not per IP.
	funnel := &fakeFunnel{
		byEmail: []models.RawEvent{
			{"ip": "5.5.5.5", "updated_at_unix_timestamp": float64(500)},
			{"contact": map[string]any{"ip": "6.6.6.6"}, "updated_at_unix_timestamp": float64(501)},
		},
	}
	clicks := &fakeClicks{
		byIP: map[string][]models.RawEvent{
			"ipv4|5.5.5.5": {{"ad_id": "X", "utc_unix_time": float64(100)}},
			"ipv4|6.6.6.6": {{"ad_id": "X", "utc_unix_time": float64(300)}},
		},
	}

	got := newTestWaterfall(funnel, clicks).Resolve(context.Background(), customer("g@x.com"), "u1")
	if len(got) != 1 {
		t.Fatalf("expected global dedup to one candidate, got %+v", got)
	}
	if got[0].Timestamp != 300 {
		t.Fatalf("expected most recent instance kept, got %+v", got[0])
	}
}
