package models

// ===========================================
// CUSTOMER / ORDER
// ===========================================

// LineItem is one purchasable product on a customer's cart.
type LineItem struct {
	Price float64 `json:"price"`
	Name  string  `json:"name"`
}

// Customer is the canonical order record extracted from a customer's
// funnel events for one date window. LowerCaseEmail is derived once at
// extraction and is the join key for every later merge.
type Customer struct {
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Email          string        `json:"email"`
	LowerCaseEmail string        `json:"lower_case_email"`
	LineItems      []LineItem    `json:"line_items"`
	Ads            []AdCandidate `json:"ads,omitempty"`
}

// HasItems reports whether the customer bought anything in the window.
func (c *Customer) HasItems() bool {
	return len(c.LineItems) > 0
}

// OrderStats aggregates a customer's cart.
type OrderStats struct {
	Sales   int     `json:"roassales"`
	Revenue float64 `json:"roasrevenue"`
}

// StatsFor computes order stats over a cart.
func StatsFor(cart []LineItem) OrderStats {
	var revenue float64
	for _, item := range cart {
		revenue += item.Price
	}
	return OrderStats{Sales: len(cart), Revenue: revenue}
}
