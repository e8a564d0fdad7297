// Package order turns raw funnel-platform contact events into canonical
// customer/cart records.
package order

import (
	"strings"

	"github.com/radiusdt/roas-attribution/internal/models"
	"go.uber.org/zap"
)

// Extractor builds Customer records from funnel events.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new order extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract produces a Customer from the customer's funnel events for one
// date window. Contact fields are taken from the first non-empty profile
// encountered; repeated profiles are never merged, so a later correction
// does not rewrite the identity the order was placed under. Line items are
// the union of all product arrays, deduplicated by product id. An empty
// input yields an empty Customer, never an error.
func (x *Extractor) Extract(events []models.RawEvent) models.Customer {
	var customer models.Customer

	for _, e := range events {
		profile, ok := e["contact_profile"].(map[string]any)
		if !ok || len(profile) == 0 {
			continue
		}
		customer.FirstName, _ = profile["first_name"].(string)
		customer.LastName, _ = profile["last_name"].(string)
		customer.Email, _ = profile["email"].(string)
		break
	}
	customer.LowerCaseEmail = strings.ToLower(customer.Email)

	customer.LineItems = x.lineItems(events)

	if len(events) == 0 {
		x.logger.Debug("order extraction over empty event set")
	}
	return customer
}

// lineItems unions the products arrays across events, deduplicated by
// product id, mapping amounts from cents to currency units.
func (x *Extractor) lineItems(events []models.RawEvent) []models.LineItem {
	seen := make(map[string]struct{})
	var items []models.LineItem

	for _, e := range events {
		for _, raw := range e.Slice("products") {
			product, ok := raw.(map[string]any)
			if !ok || product == nil {
				continue
			}
			id, _ := product["id"].(string)
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}

			name, _ := product["name"].(string)
			var cents float64
			if amount, ok := product["amount"].(map[string]any); ok {
				switch c := amount["cents"].(type) {
				case float64:
					cents = c
				case int64:
					cents = float64(c)
				case int:
					cents = float64(c)
				}
			}
			items = append(items, models.LineItem{Price: cents / 100, Name: name})
		}
	}
	return items
}
