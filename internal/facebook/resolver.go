package facebook

import (
	"context"
	"time"

	"github.com/radiusdt/roas-attribution/internal/metrics"
	"github.com/radiusdt/roas-attribution/internal/models"
	"github.com/radiusdt/roas-attribution/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver turns ad identifiers into enriched AdDetail records. Each
// identifier first tries the ingested-ad cache; on a miss the stored
// integration credentials gate a remote API lookup. Failures never abort
// the batch: a failing identifier yields an error sentinel, missing
// credentials yield nothing.
type Resolver struct {
	cache   storage.AdCache
	creds   storage.CredentialStore
	client  Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResolver creates an ad metadata resolver.
func NewResolver(
	cache storage.AdCache,
	creds storage.CredentialStore,
	client Client,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Resolver {
	return &Resolver{
		cache:   cache,
		creds:   creds,
		client:  client,
		logger:  logger,
		metrics: m,
	}
}

// ResolveRequest identifies the batch and account context of a lookup.
type ResolveRequest struct {
	AdIDs       []string
	UserID      string
	AdAccountID string
}

// Resolve returns enriched details for the requested identifiers. The
// output may be shorter than the input: unresolvable identifiers are
// omitted, failed ones appear as Err sentinels. An empty identifier set
// returns immediately without touching the cache or the API.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) []models.AdDetail {
	if len(req.AdIDs) == 0 {
		return nil
	}

	details := make([]models.AdDetail, 0, len(req.AdIDs))
	for _, adID := range req.AdIDs {
		if adID == "" {
			continue
		}
		if detail, ok := r.resolveOne(ctx, adID, req); ok {
			details = append(details, detail)
		}
	}
	return details
}

func (r *Resolver) resolveOne(ctx context.Context, adID string, req ResolveRequest) (models.AdDetail, bool) {
	log := r.logger.With(zap.String("ad_id", adID), zap.String("user_id", req.UserID))

	start := time.Now()
	cached, err := r.cache.IngestedAd(ctx, req.UserID, adID)
	if r.metrics != nil {
		r.metrics.ObserveStoreQuery("ad_cache", "get", start, err)
	}
	if err != nil {
		log.Warn("ad cache lookup failed", zap.Error(err))
		r.countLookup("error")
		return models.AdDetail{AdID: adID, Err: true}, true
	}
	if cached != nil && cached.Details != nil {
		r.countLookup("cache")
		return detailFromCache(cached), true
	}

	detail, ok := r.fromAPI(ctx, adID, req, log)
	return detail, ok
}

// fromAPI fetches the ad from the remote platform, then its parent adset
// and campaign concurrently for their names.
func (r *Resolver) fromAPI(ctx context.Context, adID string, req ResolveRequest, log *zap.Logger) (models.AdDetail, bool) {
	creds, err := r.creds.IntegrationCredentials(ctx, req.UserID, AccountName)
	if err != nil {
		log.Warn("credential lookup failed", zap.Error(err))
		r.countLookup("error")
		return models.AdDetail{AdID: adID, Err: true}, true
	}
	if creds == nil || creds.AccessToken == "" {
		log.Debug("no ad platform credentials, identifier unresolved")
		r.countLookup("unresolved")
		return models.AdDetail{}, false
	}

	ad, err := r.client.Ad(ctx, adID, req.AdAccountID, creds.AccessToken)
	r.countPlatformCall("ad", err)
	if err != nil {
		log.Warn("ad API lookup failed", zap.Error(err))
		r.countLookup("error")
		return models.AdDetail{AdID: adID, Err: true}, true
	}
	if ad == nil || ad.ID == "" {
		r.countLookup("unresolved")
		return models.AdDetail{}, false
	}

	var (
		adsetName    string
		campaignName string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		adset, err := r.client.Adset(gctx, ad.AdsetID, req.AdAccountID, creds.AccessToken)
		r.countPlatformCall("adset", err)
		if err != nil {
			return err
		}
		adsetName = adset.Name
		return nil
	})
	g.Go(func() error {
		campaign, err := r.client.Campaign(gctx, ad.CampaignID, req.AdAccountID, creds.AccessToken)
		r.countPlatformCall("campaign", err)
		if err != nil {
			return err
		}
		campaignName = campaign.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warn("adset/campaign enrichment failed", zap.Error(err))
		r.countLookup("error")
		return models.AdDetail{AdID: adID, Err: true}, true
	}

	r.countLookup("api")
	return detailFromAPI(ad, adsetName, campaignName), true
}

func (r *Resolver) countLookup(source string) {
	if r.metrics != nil {
		r.metrics.AdLookups.WithLabelValues(source).Inc()
	}
}

func (r *Resolver) countPlatformCall(object string, err error) {
	if r.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.AdPlatformCalls.WithLabelValues(object, status).Inc()
}

// detailFromCache normalizes the ingested-ad shape. Callers cannot tell a
// cache-sourced detail from an API-sourced one.
func detailFromCache(ad *models.IngestedAd) models.AdDetail {
	d := ad.Details
	return models.AdDetail{
		AccountID:    ad.AccountID,
		AdID:         d.AdID,
		AdName:       d.AdName,
		AdsetID:      d.AdsetID,
		AdsetName:    d.AdsetName,
		CampaignID:   d.CampaignID,
		CampaignName: d.CampaignName,
		AssetID:      d.AdID,
		AssetName:    d.AdName,
		Name:         d.AdName,
	}
}

// detailFromAPI normalizes the remote platform shape.
func detailFromAPI(ad *Ad, adsetName, campaignName string) models.AdDetail {
	return models.AdDetail{
		AccountID:    ad.AccountID,
		AdID:         ad.ID,
		AdName:       ad.Name,
		AdsetID:      ad.AdsetID,
		AdsetName:    adsetName,
		CampaignID:   ad.CampaignID,
		CampaignName: campaignName,
		AssetID:      ad.ID,
		AssetName:    ad.Name,
		Name:         ad.Name,
	}
}
