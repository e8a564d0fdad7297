package report

import (
	"testing"

	"github.com/radiusdt/roas-attribution/internal/models"
	"go.uber.org/zap"
)

func resolvedDetail(adID string) models.AdDetail {
	return models.AdDetail{AdID: adID, AssetID: adID, AssetName: "asset " + adID, Name: "ad " + adID}
}

func TestJoinAdsAttachesCandidateTimestamps(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	candidates := []models.AdCandidate{
		{AdID: "A", Timestamp: 300},
		{AdID: "B", Timestamp: 200},
	}
	details := []models.AdDetail{resolvedDetail("A"), resolvedDetail("B")}

	ads := a.JoinAds("x@y.com", candidates, details)

	if len(ads) != 2 {
		t.Fatalf("expected 2 ads, got %+v", ads)
	}
	if ads[0].Timestamp != 300 || ads[1].Timestamp != 200 {
		t.Fatalf("timestamps not joined: %+v", ads)
	}
	if ads[0].Email != "x@y.com" {
		t.Fatalf("email not attached: %+v", ads[0])
	}
}

func TestJoinAdsDropsSentinelsAndUnresolved(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	candidates := []models.AdCandidate{
		{AdID: "A", Timestamp: 100},
		{AdID: "B", Timestamp: 200},
	}
	details := []models.AdDetail{
		resolvedDetail("A"),
		{AdID: "B", Err: true},
		{}, // unresolved
	}

	ads := a.JoinAds("x@y.com", candidates, details)

	if len(ads) != 1 || ads[0].AdID != "A" {
		t.Fatalf("expected only the resolved ad, got %+v", ads)
	}
}

func TestAssembleDropsCustomersWithoutAds(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	entries := []Entry{
		{
			Customer: models.Customer{Email: "no-ads@y.com", LowerCaseEmail: "no-ads@y.com",
				LineItems: []models.LineItem{{Price: 10, Name: "w"}}},
		},
		{
			Customer: models.Customer{Email: "With@Y.com", LowerCaseEmail: "with@y.com",
				LineItems: []models.LineItem{{Price: 19.99, Name: "w"}, {Price: 5, Name: "g"}}},
			Ads: []models.ReportedAd{{AdDetail: resolvedDetail("A"), Timestamp: 100}},
		},
	}

	rep := a.Assemble("2022-06-01", "u1", entries)

	if len(rep.Customers) != 1 {
		t.Fatalf("expected 1 customer, got %+v", rep.Customers)
	}
	c, ok := rep.Customers["with@y.com"]
	if !ok {
		t.Fatalf("customer not keyed by lower-cased email: %+v", rep.Customers)
	}
	if c.Stats.Sales != 2 || c.Stats.Revenue != 24.99 {
		t.Fatalf("unexpected stats: %+v", c.Stats)
	}
	if rep.Date != "2022-06-01" || rep.UserID != "u1" {
		t.Fatalf("report header wrong: %+v", rep)
	}
}

func TestAssembleLaterDuplicateWins(t *testing.T) {
	a := NewAssembler(zap.NewNop())

	entries := []Entry{
		{
			Customer: models.Customer{Email: "dup@y.com", LowerCaseEmail: "dup@y.com",
				LineItems: []models.LineItem{{Price: 1, Name: "old"}}},
			Ads: []models.ReportedAd{{AdDetail: resolvedDetail("A")}},
		},
		{
			Customer: models.Customer{Email: "Dup@Y.com", LowerCaseEmail: "dup@y.com",
				LineItems: []models.LineItem{{Price: 2, Name: "new"}}},
			Ads: []models.ReportedAd{{AdDetail: resolvedDetail("B")}},
		},
	}

	rep := a.Assemble("2022-06-01", "u1", entries)

	c := rep.Customers["dup@y.com"]
	if c == nil {
		t.Fatal("merged customer missing")
	}
	if c.Email != "Dup@Y.com" || c.Cart[0].Name != "new" || c.Ads[0].AdID != "B" {
		t.Fatalf("later entry should win, got %+v", c)
	}
}

func TestEmptyReportShape(t *testing.T) {
	rep := Empty("2022-06-01", "u1")
	if rep.Customers == nil || len(rep.Customers) != 0 {
		t.Fatalf("expected empty non-nil customer map, got %+v", rep.Customers)
	}
}
