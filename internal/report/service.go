package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/roas-attribution/internal/attribution"
	"github.com/radiusdt/roas-attribution/internal/dates"
	"github.com/radiusdt/roas-attribution/internal/facebook"
	"github.com/radiusdt/roas-attribution/internal/metrics"
	"github.com/radiusdt/roas-attribution/internal/models"
	"github.com/radiusdt/roas-attribution/internal/order"
	"github.com/radiusdt/roas-attribution/internal/storage"
	"go.uber.org/zap"
)

// Request identifies one report run.
type Request struct {
	UserID      string
	Date        string
	AdAccountID string
}

// Validate checks the required arguments.
func (r Request) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("report: no user_id")
	}
	if r.Date == "" {
		return fmt.Errorf("report: no date")
	}
	if r.AdAccountID == "" {
		return fmt.Errorf("report: no ad_account_id")
	}
	return nil
}

// RangeRequest identifies a multi-day report run over an inclusive
// [since, until] date span.
type RangeRequest struct {
	UserID      string
	Since       string
	Until       string
	AdAccountID string
}

// Validate checks the required arguments.
func (r RangeRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("report: no user_id")
	}
	if r.Since == "" || r.Until == "" {
		return fmt.Errorf("report: no since/until")
	}
	if r.AdAccountID == "" {
		return fmt.Errorf("report: no ad_account_id")
	}
	return nil
}

// Service runs the full attribution pipeline: extract orders, resolve ad
// identifiers through the waterfall, enrich with ad metadata, assemble.
type Service struct {
	funnel    storage.FunnelStore
	extractor *order.Extractor
	waterfall *attribution.Waterfall
	resolver  *facebook.Resolver
	assembler *Assembler
	timezone  string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewService creates a report service.
func NewService(
	funnel storage.FunnelStore,
	extractor *order.Extractor,
	waterfall *attribution.Waterfall,
	resolver *facebook.Resolver,
	assembler *Assembler,
	timezone string,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		funnel:    funnel,
		extractor: extractor,
		waterfall: waterfall,
		resolver:  resolver,
		assembler: assembler,
		timezone:  timezone,
		logger:    logger,
		metrics:   m,
	}
}

// GetReport resolves the attribution report for one user and date. It
// returns an error only for an invalid request; every internal failure
// degrades to a terminal report, at worst one with no customers.
func (s *Service) GetReport(ctx context.Context, req Request) (report *models.Report, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("user_id", req.UserID),
		zap.String("date", req.Date),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("report run panicked, returning empty report", zap.Any("panic", r))
			report = Empty(req.Date, req.UserID)
			err = nil
			s.finish("panic", start)
		}
	}()

	window, werr := dates.DayWindow(req.Date, s.timezone)
	if werr != nil {
		return nil, fmt.Errorf("report: %w", werr)
	}

	log.Info("report run started",
		zap.Int64("window_start", window.Start),
		zap.Int64("window_end", window.End),
	)

	customers := s.extractCustomers(ctx, req.UserID, window, log)
	entries := s.attribute(ctx, customers, req, log)
	report = s.assembler.Assemble(req.Date, req.UserID, entries)

	if s.metrics != nil {
		s.metrics.CustomersAttributed.Add(float64(len(report.Customers)))
	}
	log.Info("report run finished",
		zap.Int("customers_extracted", len(customers)),
		zap.Int("customers_reported", len(report.Customers)),
		zap.Duration("took", time.Since(start)),
	)
	s.finish("ok", start)
	return report, nil
}

// GetRangeReport runs one report per day of the span, sequentially to
// keep the load on the stores bounded, and keys the results by date.
func (s *Service) GetRangeReport(ctx context.Context, req RangeRequest) (map[string]*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	days, err := dates.Range(req.Since, req.Until)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	out := make(map[string]*models.Report, len(days))
	for _, day := range days {
		rep, err := s.GetReport(ctx, Request{
			UserID:      req.UserID,
			Date:        day,
			AdAccountID: req.AdAccountID,
		})
		if err != nil {
			return nil, err
		}
		out[day] = rep
	}
	return out, nil
}

func (s *Service) finish(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ReportRuns.WithLabelValues(outcome).Inc()
	s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
}

// extractCustomers pulls the window's funnel events, groups them by email
// and extracts one customer per group, keeping only customers who bought
// something. A store failure degrades to an empty customer set.
func (s *Service) extractCustomers(ctx context.Context, userID string, window dates.Window, log *zap.Logger) []models.Customer {
	start := time.Now()
	events, err := s.funnel.EventsByUserInWindow(ctx, userID, window)
	if s.metrics != nil {
		s.metrics.ObserveStoreQuery("funnel", "events_by_window", start, err)
	}
	if err != nil {
		log.Warn("window query failed, no customers this run", zap.Error(err))
		return nil
	}

	byEmail := make(map[string][]models.RawEvent)
	for _, e := range events {
		email := e.String("email")
		if email == "" {
			if s.metrics != nil {
				s.metrics.EventsDropped.WithLabelValues("no_email").Inc()
			}
			continue
		}
		byEmail[email] = append(byEmail[email], e)
	}

	emails := make([]string, 0, len(byEmail))
	for email := range byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	var customers []models.Customer
	for _, email := range emails {
		customer := s.extractor.Extract(byEmail[email])
		if !customer.HasItems() {
			log.Debug("customer without purchasable items skipped", zap.String("email", email))
			continue
		}
		customers = append(customers, customer)
		if s.metrics != nil {
			s.metrics.CustomersExtracted.Inc()
		}
	}
	return customers
}

// attribute runs the waterfall and metadata resolution for every
// customer. Customers are processed concurrently; results join
// positionally so the output order matches the input order.
func (s *Service) attribute(ctx context.Context, customers []models.Customer, req Request, log *zap.Logger) []Entry {
	entries := make([]Entry, len(customers))
	var wg sync.WaitGroup
	for i := range customers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customer := customers[i]

			candidates := s.waterfall.Resolve(ctx, &customer, req.UserID)
			customer.Ads = candidates

			adIDs := make([]string, 0, len(candidates))
			for _, c := range candidates {
				adIDs = append(adIDs, c.AdID)
			}

			details := s.resolver.Resolve(ctx, facebook.ResolveRequest{
				AdIDs:       adIDs,
				UserID:      req.UserID,
				AdAccountID: req.AdAccountID,
			})

			entries[i] = Entry{
				Customer: customer,
				Ads:      s.assembler.JoinAds(customer.LowerCaseEmail, candidates, details),
			}
		}(i)
	}
	wg.Wait()
	return entries
}
