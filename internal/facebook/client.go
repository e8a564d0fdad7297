// Package facebook resolves ad metadata against the remote ad platform
// and the local ingested-ad cache.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// AccountName is the provider key integrations are stored under.
const AccountName = "facebook"

// Ad is the remote platform's ad object.
type Ad struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AccountID  string `json:"account_id"`
	AdsetID    string `json:"adset_id"`
	CampaignID string `json:"campaign_id"`
}

// Adset is the remote platform's adset object.
type Adset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Campaign is the remote platform's campaign object.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the remote ad-platform surface the resolver consumes. Every
// call may fail with a network or auth error.
type Client interface {
	Ad(ctx context.Context, adID, adAccountID, accessToken string) (*Ad, error)
	Adset(ctx context.Context, adsetID, adAccountID, accessToken string) (*Adset, error)
	Campaign(ctx context.Context, campaignID, adAccountID, accessToken string) (*Campaign, error)
}

// GraphClient is an HTTP client for the platform's Graph-style API.
type GraphClient struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGraphClient creates a Graph API client.
func NewGraphClient(baseURL, apiVersion string, timeout time.Duration, logger *zap.Logger) *GraphClient {
	return &GraphClient{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *GraphClient) Ad(ctx context.Context, adID, adAccountID, accessToken string) (*Ad, error) {
	if adID == "" {
		return nil, fmt.Errorf("ad get: no ad_id")
	}
	var ad Ad
	err := c.get(ctx, adID, accessToken, url.Values{
		"fields": {"id,name,account_id,adset_id,campaign_id"},
	}, &ad)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

func (c *GraphClient) Adset(ctx context.Context, adsetID, adAccountID, accessToken string) (*Adset, error) {
	if adsetID == "" {
		return nil, fmt.Errorf("adset get: no adset_id")
	}
	var adset Adset
	err := c.get(ctx, adsetID, accessToken, url.Values{
		"fields": {"id,name"},
	}, &adset)
	if err != nil {
		return nil, err
	}
	return &adset, nil
}

func (c *GraphClient) Campaign(ctx context.Context, campaignID, adAccountID, accessToken string) (*Campaign, error) {
	if campaignID == "" {
		return nil, fmt.Errorf("campaign get: no campaign_id")
	}
	var campaign Campaign
	err := c.get(ctx, campaignID, accessToken, url.Values{
		"fields": {"id,name"},
	}, &campaign)
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (c *GraphClient) get(ctx context.Context, objectID, accessToken string, params url.Values, out any) error {
	params.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.apiVersion, objectID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request %s: %w", objectID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read graph response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("graph API error response",
			zap.String("object_id", objectID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("graph request %s: status %d", objectID, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode graph response %s: %w", objectID, err)
	}
	return nil
}
