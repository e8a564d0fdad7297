package storage

import (
	"context"

	"github.com/radiusdt/roas-attribution/internal/dates"
	"github.com/radiusdt/roas-attribution/internal/models"
)

// IPVersion selects which indexed address field a store query matches on.
type IPVersion string

const (
	IPv4 IPVersion = "ipv4"
	IPv6 IPVersion = "ipv6"
)

// =============================================
// FUNNEL STORE
// =============================================

// FunnelStore defines read operations over the funnel-platform contact
// events. This pipeline never writes to it.
type FunnelStore interface {
	// EventsByUserInWindow returns a user's funnel events whose
	// updated_at_unix_timestamp falls strictly inside the window.
	EventsByUserInWindow(ctx context.Context, userID string, w dates.Window) ([]models.RawEvent, error)
	// EventsByEmail returns the full funnel event history for an email.
	EventsByEmail(ctx context.Context, email string) ([]models.RawEvent, error)
	// EventsByIP returns funnel events whose indexed address of the given
	// version equals ip, scoped to the user.
	EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error)
}

// =============================================
// CLICK EVENT STORE
// =============================================

// ClickEventStore defines read operations over the raw ad click events.
type ClickEventStore interface {
	// EventsByIP returns click events whose indexed address of the given
	// version equals ip, scoped to the user.
	EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error)
	// EventsWithAdIDByIP is EventsByIP restricted to events carrying an
	// explicit attribution identifier.
	EventsWithAdIDByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error)
}

// =============================================
// CREDENTIALS
// =============================================

// CredentialStore looks up stored ad-platform integration credentials.
type CredentialStore interface {
	// IntegrationCredentials returns the stored credentials for a user
	// and provider, or nil when none exist.
	IntegrationCredentials(ctx context.Context, userID, accountName string) (*models.Credentials, error)
}

// =============================================
// AD CACHE
// =============================================

// AdCache reads previously ingested ad metadata. It is populated by a
// separate ingestion path and is read-only from this pipeline.
type AdCache interface {
	// IngestedAd returns the cached ad for (user, ad id), or nil on miss.
	IngestedAd(ctx context.Context, userID, adID string) (*models.IngestedAd, error)
}
