package models

// ===========================================
// AD METADATA
// ===========================================

// AdDetail is the single enriched ad shape handed to the report,
// regardless of whether it was sourced from the local cache or the remote
// ad platform. Err marks a per-identifier lookup failure sentinel; such
// records survive until the assembler so earlier stages can log them.
type AdDetail struct {
	AccountID    string `json:"account_id,omitempty"`
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name,omitempty"`
	AdsetID      string `json:"adset_id,omitempty"`
	AdsetName    string `json:"adset_name,omitempty"`
	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	AssetID      string `json:"asset_id,omitempty"`
	AssetName    string `json:"asset_name,omitempty"`
	Name         string `json:"name,omitempty"`

	Err bool `json:"error,omitempty"`
}

// Resolved reports whether the lookup produced a real platform asset.
func (d AdDetail) Resolved() bool {
	return !d.Err && d.AssetID != ""
}

// IngestedAd is the cache-side shape of a previously ingested ad. The
// ingestion path (out of scope here) stores the platform record under
// Details alongside the owning account.
type IngestedAd struct {
	AccountID string           `json:"account_id"`
	Details   *IngestedDetails `json:"details,omitempty"`
}

// IngestedDetails carries the platform fields of an ingested ad.
type IngestedDetails struct {
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
}

// Credentials are stored ad-platform integration credentials for a user.
type Credentials struct {
	UserID      string `json:"user_id"`
	AccountName string `json:"account_name"`
	AccessToken string `json:"access_token"`
}
