// Package report assembles per-customer attribution results into the
// terminal report artifact.
package report

import (
	"github.com/radiusdt/roas-attribution/internal/models"
	"go.uber.org/zap"
)

// Assembler merges cart, attribution and ad metadata per customer.
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates a report assembler.
func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// JoinAds enriches resolved ad details with the timestamp of the
// candidate that proposed them. Unresolved and error sentinels are
// discarded here, at the final stage, so earlier tiers still observed
// them for diagnostics. Candidate IPs and user agents do not survive the
// join.
func (a *Assembler) JoinAds(email string, candidates []models.AdCandidate, details []models.AdDetail) []models.ReportedAd {
	byAdID := make(map[string]models.AdCandidate, len(candidates))
	for _, c := range candidates {
		if _, dup := byAdID[c.AdID]; !dup {
			byAdID[c.AdID] = c
		}
	}

	var ads []models.ReportedAd
	for _, d := range details {
		if !d.Resolved() {
			if d.Err {
				a.logger.Debug("dropping failed ad lookup from report",
					zap.String("ad_id", d.AdID),
					zap.String("email", email),
				)
			}
			continue
		}
		ads = append(ads, models.ReportedAd{
			AdDetail:  d,
			Email:     email,
			Timestamp: byAdID[d.AdID].Timestamp,
		})
	}
	return ads
}

// Entry is one attributed customer ready for final grouping.
type Entry struct {
	Customer models.Customer
	Ads      []models.ReportedAd
}

// Assemble groups entries by lower-cased email and merges duplicates.
// When the same email appears twice the later entry's fields win, which
// matches merging the records in sequence order. Customers whose ads list
// ends up empty are dropped from the report entirely.
func (a *Assembler) Assemble(date, userID string, entries []Entry) *models.Report {
	customers := make(map[string]*models.ReportCustomer)
	for _, e := range entries {
		if len(e.Ads) == 0 {
			continue
		}
		customers[e.Customer.LowerCaseEmail] = &models.ReportCustomer{
			Email:          e.Customer.Email,
			LowerCaseEmail: e.Customer.LowerCaseEmail,
			Cart:           e.Customer.LineItems,
			Stats:          models.StatsFor(e.Customer.LineItems),
			Ads:            e.Ads,
		}
	}

	return &models.Report{
		Date:      date,
		UserID:    userID,
		Customers: customers,
	}
}

// Empty returns the terminal report used when a run fails before any
// customer is assembled. The caller always receives a report value.
func Empty(date, userID string) *models.Report {
	return &models.Report{
		Date:      date,
		UserID:    userID,
		Customers: map[string]*models.ReportCustomer{},
	}
}
