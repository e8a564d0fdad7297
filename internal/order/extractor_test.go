package order

import (
	"testing"

	"github.com/radiusdt/roas-attribution/internal/models"
	"go.uber.org/zap"
)

func TestExtractFirstProfileWins(t *testing.T) {
	x := NewExtractor(zap.NewNop())

	events := []models.RawEvent{
		{"updated_at_unix_timestamp": float64(1)},
		{
			"contact_profile": map[string]any{
				"first_name": "Ada",
				"email":      "Ada@Example.com",
			},
		},
		{
			"contact_profile": map[string]any{
				"first_name": "Grace",
				"last_name":  "Hopper",
				"email":      "grace@example.com",
			},
		},
	}

	c := x.Extract(events)

	if c.FirstName != "Ada" || c.Email != "Ada@Example.com" {
		t.Fatalf("expected first profile to win, got %+v", c)
	}
	// The first profile had no last name; the later, fuller profile must
	// not fill it in.
	if c.LastName != "" {
		t.Fatalf("profiles were merged: last name = %q", c.LastName)
	}
	if c.LowerCaseEmail != "ada@example.com" {
		t.Fatalf("LowerCaseEmail = %q", c.LowerCaseEmail)
	}
}

func TestExtractLineItems(t *testing.T) {
	x := NewExtractor(zap.NewNop())

	events := []models.RawEvent{
		{
			"products": []any{
				map[string]any{
					"id":     "p1",
					"name":   "Widget",
					"amount": map[string]any{"cents": float64(1999)},
				},
			},
		},
		{
			"products": []any{
				map[string]any{
					"id":     "p1",
					"name":   "Widget",
					"amount": map[string]any{"cents": float64(1999)},
				},
				map[string]any{
					"id":     "p2",
					"name":   "Gadget",
					"amount": map[string]any{"cents": float64(500)},
				},
			},
		},
	}

	c := x.Extract(events)

	if len(c.LineItems) != 2 {
		t.Fatalf("expected products deduplicated by id, got %+v", c.LineItems)
	}
	if c.LineItems[0].Price != 19.99 || c.LineItems[0].Name != "Widget" {
		t.Fatalf("unexpected first item: %+v", c.LineItems[0])
	}
	if c.LineItems[1].Price != 5 || c.LineItems[1].Name != "Gadget" {
		t.Fatalf("unexpected second item: %+v", c.LineItems[1])
	}
}

func TestExtractProductsWithoutIDAllKept(t *testing.T) {
	x := NewExtractor(zap.NewNop())

	events := []models.RawEvent{
		{
			"products": []any{
				map[string]any{"name": "A", "amount": map[string]any{"cents": float64(100)}},
				map[string]any{"name": "B", "amount": map[string]any{"cents": float64(200)}},
			},
		},
	}

	c := x.Extract(events)
	if len(c.LineItems) != 2 {
		t.Fatalf("id-less products should not collapse, got %+v", c.LineItems)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	x := NewExtractor(zap.NewNop())

	c := x.Extract(nil)
	if c.Email != "" || len(c.LineItems) != 0 {
		t.Fatalf("expected empty customer, got %+v", c)
	}
	if c.HasItems() {
		t.Fatal("empty customer reports items")
	}
}
