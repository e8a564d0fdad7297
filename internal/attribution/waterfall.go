package attribution

import (
	"context"
	"sync"
	"time"

	"github.com/radiusdt/roas-attribution/internal/event"
	"github.com/radiusdt/roas-attribution/internal/geo"
	"github.com/radiusdt/roas-attribution/internal/metrics"
	"github.com/radiusdt/roas-attribution/internal/models"
	"github.com/radiusdt/roas-attribution/internal/storage"
	"go.uber.org/zap"
)

// Tier names used in logs and metrics.
const (
	TierDirect   = "direct"
	TierFunnelIP = "funnel_ip"
	TierClickIP  = "click_ip"
)

// Waterfall resolves advertising identifiers for a customer through a
// strict fallback sequence of lookup tiers. A tier runs only when every
// earlier tier produced nothing; any lookup failure degrades its tier to
// empty rather than failing the customer.
type Waterfall struct {
	funnel  storage.FunnelStore
	clicks  storage.ClickEventStore
	geo     *geo.Resolver
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewWaterfall creates an attribution waterfall. geoResolver may be nil.
func NewWaterfall(
	funnel storage.FunnelStore,
	clicks storage.ClickEventStore,
	geoResolver *geo.Resolver,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Waterfall {
	return &Waterfall{
		funnel:  funnel,
		clicks:  clicks,
		geo:     geoResolver,
		logger:  logger,
		metrics: m,
	}
}

// Resolve returns the customer's attribution candidates, possibly empty.
// The customer record is not mutated.
func (w *Waterfall) Resolve(ctx context.Context, customer *models.Customer, userID string) []models.AdCandidate {
	log := w.logger.With(zap.String("email", customer.LowerCaseEmail))

	funnelEvents, err := w.funnel.EventsByEmail(ctx, customer.LowerCaseEmail)
	if err != nil {
		log.Warn("funnel history lookup failed, customer unattributable via funnel tiers", zap.Error(err))
		funnelEvents = nil
	}

	if candidates := w.direct(funnelEvents, log); len(candidates) > 0 {
		w.resolved(TierDirect, candidates, log)
		return candidates
	}

	ips := w.funnelIPs(funnelEvents)
	if len(ips) == 0 {
		log.Debug("no IPs on funnel history, waterfall exhausted")
		w.observeCandidates(nil)
		return nil
	}

	if candidates := w.viaFunnelIPIndex(ctx, ips, userID, log); len(candidates) > 0 {
		w.resolved(TierFunnelIP, candidates, log)
		return candidates
	}

	if candidates := w.viaClickStore(ctx, ips, userID, log); len(candidates) > 0 {
		w.resolved(TierClickIP, candidates, log)
		return candidates
	}

	log.Debug("waterfall exhausted without candidates")
	w.observeCandidates(nil)
	return nil
}

func (w *Waterfall) resolved(tier string, candidates []models.AdCandidate, log *zap.Logger) {
	if w.metrics != nil {
		w.metrics.TierResolutions.WithLabelValues(tier).Inc()
	}
	w.observeCandidates(candidates)
	log.Debug("attribution resolved",
		zap.String("tier", tier),
		zap.Int("candidates", len(candidates)),
	)
	w.logGeo(candidates, log)
}

func (w *Waterfall) observeCandidates(candidates []models.AdCandidate) {
	if w.metrics != nil {
		w.metrics.CandidatesFound.Observe(float64(len(candidates)))
	}
}

// logGeo emits country diagnostics for candidate IPs when a geo database
// is configured.
func (w *Waterfall) logGeo(candidates []models.AdCandidate, log *zap.Logger) {
	if w.geo == nil {
		return
	}
	for _, c := range candidates {
		for _, ip := range c.IPs {
			if info := w.geo.Lookup(ip); info != nil {
				log.Debug("candidate origin",
					zap.String("ad_id", c.AdID),
					zap.String("ip", ip),
					zap.String("country", info.CountryCode),
				)
			}
		}
	}
}

// =============================================
// Tier 1: direct funnel identifiers
// =============================================

// direct extracts ad identifiers present directly on the customer's own
// funnel events, without any IP lookup. Funnel events normally carry
// updated_at_unix_timestamp; when it is missing the shared timestamp
// precedence decides.
func (w *Waterfall) direct(funnelEvents []models.RawEvent, log *zap.Logger) []models.AdCandidate {
	w.attempt(TierDirect)

	candidates := make([]models.AdCandidate, 0, len(funnelEvents))
	for _, e := range funnelEvents {
		ts, ok := e.Number("updated_at_unix_timestamp")
		if !ok {
			ts, _ = event.Timestamp(e)
		}
		candidates = append(candidates, models.AdCandidate{
			AdID:      event.FunnelAdID(e),
			Timestamp: ts,
			IPs:       event.FunnelIPs(e),
		})
	}
	return Finalize(candidates)
}

// funnelIPs unions the distinct IPs seen anywhere on the customer's
// funnel history.
func (w *Waterfall) funnelIPs(funnelEvents []models.RawEvent) []string {
	var ips []string
	for _, e := range funnelEvents {
		ips = append(ips, event.FunnelIPs(e)...)
	}
	return uniqStrings(ips)
}

// =============================================
// Tier 2: funnel-store IP index with one-hop expansion
// =============================================

// viaFunnelIPIndex discovers other sessions sharing the customer's IPs
// through the funnel store's IP index, widens the IP set one hop to catch
// dual-stack and reassigned addresses, then mines the click store over
// the widened set.
func (w *Waterfall) viaFunnelIPIndex(ctx context.Context, ips []string, userID string, log *zap.Logger) []models.AdCandidate {
	w.attempt(TierFunnelIP)

	expanded := w.expandIPs(ctx, ips, userID, log)

	perIP := fanOut(expanded, func(ip string) []models.AdCandidate {
		events := w.clickEventsBothStacks(ctx, ip, userID, false, log)
		return w.clickCandidates(events, ip, log)
	})

	var all []models.AdCandidate
	for _, batch := range perIP {
		all = append(all, batch...)
	}
	return Finalize(all)
}

// expandIPs performs the one-hop dual-stack expansion: every funnel event
// sharing one of the seed IPs contributes its own ipv4/ipv6 addresses.
// Seeds are kept in the result.
func (w *Waterfall) expandIPs(ctx context.Context, seeds []string, userID string, log *zap.Logger) []string {
	perSeed := fanOut(seeds, func(ip string) []string {
		related := w.funnelEventsBothStacks(ctx, ip, userID, log)
		out := []string{ip}
		for _, e := range related {
			out = append(out, event.IPv4(e), event.IPv6(e))
		}
		return out
	})

	var all []string
	for _, batch := range perSeed {
		all = append(all, batch...)
	}
	return uniqStrings(all)
}

// =============================================
// Tier 3: click store direct
// =============================================

// viaClickStore queries the click store directly for identifier-bearing
// events on the customer's own IPs.
func (w *Waterfall) viaClickStore(ctx context.Context, ips []string, userID string, log *zap.Logger) []models.AdCandidate {
	w.attempt(TierClickIP)

	perIP := fanOut(ips, func(ip string) []models.AdCandidate {
		events := w.clickEventsBothStacks(ctx, ip, userID, true, log)
		return w.clickCandidates(events, ip, log)
	})

	var all []models.AdCandidate
	for _, batch := range perIP {
		all = append(all, batch...)
	}
	return Finalize(all)
}

func (w *Waterfall) attempt(tier string) {
	if w.metrics != nil {
		w.metrics.TierAttempts.WithLabelValues(tier).Inc()
	}
}

// clickCandidates maps click events to candidates for the IP they were
// found under. Events with no resolvable timestamp are dropped with a
// diagnostic.
func (w *Waterfall) clickCandidates(events []models.RawEvent, ip string, log *zap.Logger) []models.AdCandidate {
	candidates := make([]models.AdCandidate, 0, len(events))
	for _, e := range events {
		ts, ok := event.Timestamp(e)
		if !ok {
			log.Debug("click event without timestamp dropped", zap.String("ip", ip))
			if w.metrics != nil {
				w.metrics.EventsDropped.WithLabelValues("no_timestamp").Inc()
			}
			continue
		}
		candidates = append(candidates, models.AdCandidate{
			AdID:      event.ClickAdID(e),
			Timestamp: ts,
			IPs:       []string{ip},
		})
	}
	return candidates
}

// =============================================
// Dual-stack and fan-out plumbing
// =============================================

// funnelEventsBothStacks queries the funnel IP index for both address
// families concurrently and concatenates the results. IPv4 and IPv6 are
// independent sources merged by later dedup, never preferred one over the
// other. A failed family degrades to empty.
func (w *Waterfall) funnelEventsBothStacks(ctx context.Context, ip, userID string, log *zap.Logger) []models.RawEvent {
	return w.bothStacks(ip, func(version storage.IPVersion) ([]models.RawEvent, error) {
		start := time.Now()
		events, err := w.funnel.EventsByIP(ctx, version, ip, userID)
		if w.metrics != nil {
			w.metrics.ObserveStoreQuery("funnel", "events_by_ip", start, err)
		}
		return events, err
	}, log)
}

// clickEventsBothStacks queries the click store for both address families
// concurrently, optionally restricted to identifier-bearing events.
func (w *Waterfall) clickEventsBothStacks(ctx context.Context, ip, userID string, adIDOnly bool, log *zap.Logger) []models.RawEvent {
	return w.bothStacks(ip, func(version storage.IPVersion) ([]models.RawEvent, error) {
		start := time.Now()
		var (
			events []models.RawEvent
			err    error
		)
		if adIDOnly {
			events, err = w.clicks.EventsWithAdIDByIP(ctx, version, ip, userID)
		} else {
			events, err = w.clicks.EventsByIP(ctx, version, ip, userID)
		}
		if w.metrics != nil {
			w.metrics.ObserveStoreQuery("clicks", "events_by_ip", start, err)
		}
		return events, err
	}, log)
}

func (w *Waterfall) bothStacks(ip string, query func(storage.IPVersion) ([]models.RawEvent, error), log *zap.Logger) []models.RawEvent {
	versions := []storage.IPVersion{storage.IPv4, storage.IPv6}
	perVersion := fanOut(versions, func(version storage.IPVersion) []models.RawEvent {
		events, err := query(version)
		if err != nil {
			log.Warn("ip lookup failed, treating as empty",
				zap.String("ip", ip),
				zap.String("version", string(version)),
				zap.Error(err),
			)
			return nil
		}
		return events
	})

	merged := perVersion[0]
	return append(merged, perVersion[1]...)
}

// fanOut runs fn over every input concurrently and joins the results
// positionally. Branches never fail; degradation happens inside fn.
func fanOut[In any, Out any](inputs []In, fn func(In) Out) []Out {
	results := make([]Out, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in In) {
			defer wg.Done()
			results[i] = fn(in)
		}(i, in)
	}
	wg.Wait()
	return results
}
