package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/radiusdt/roas-attribution/internal/dates"
	"github.com/radiusdt/roas-attribution/internal/event"
	"github.com/radiusdt/roas-attribution/internal/models"
)

// InMemoryFunnelStore is a map-backed FunnelStore for tests and local
// runs. Events are matched on the same payload fields the Postgres
// implementation indexes.
type InMemoryFunnelStore struct {
	mu     sync.RWMutex
	events []models.RawEvent
}

// NewInMemoryFunnelStore creates an empty in-memory funnel store.
func NewInMemoryFunnelStore() *InMemoryFunnelStore {
	return &InMemoryFunnelStore{}
}

// Add appends events to the store.
func (s *InMemoryFunnelStore) Add(events ...models.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *InMemoryFunnelStore) EventsByUserInWindow(ctx context.Context, userID string, w dates.Window) ([]models.RawEvent, error) {
	return s.filter(func(e models.RawEvent) bool {
		if e.String("roas_user_id") != userID {
			return false
		}
		ts, ok := e.Number("updated_at_unix_timestamp")
		return ok && ts > w.Start && ts < w.End
	}), nil
}

func (s *InMemoryFunnelStore) EventsByEmail(ctx context.Context, email string) ([]models.RawEvent, error) {
	return s.filter(func(e models.RawEvent) bool {
		return strings.EqualFold(e.String("email"), email)
	}), nil
}

func (s *InMemoryFunnelStore) EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	return s.filter(func(e models.RawEvent) bool {
		return e.String(string(version)) == ip && e.String("roas_user_id") == userID
	}), nil
}

func (s *InMemoryFunnelStore) filter(keep func(models.RawEvent) bool) []models.RawEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RawEvent
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// InMemoryClickEventStore is a map-backed ClickEventStore.
type InMemoryClickEventStore struct {
	mu     sync.RWMutex
	events []models.RawEvent
}

// NewInMemoryClickEventStore creates an empty in-memory click store.
func NewInMemoryClickEventStore() *InMemoryClickEventStore {
	return &InMemoryClickEventStore{}
}

// Add appends events to the store.
func (s *InMemoryClickEventStore) Add(events ...models.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *InMemoryClickEventStore) EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	return s.filter(version, ip, userID, false), nil
}

func (s *InMemoryClickEventStore) EventsWithAdIDByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	return s.filter(version, ip, userID, true), nil
}

func (s *InMemoryClickEventStore) filter(version IPVersion, ip, userID string, adIDOnly bool) []models.RawEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RawEvent
	for _, e := range s.events {
		if e.String(string(version)) != ip || e.String("roas_user_id") != userID {
			continue
		}
		if adIDOnly && !event.HasAdID(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// InMemoryCredentialStore is a map-backed CredentialStore.
type InMemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]*models.Credentials // user_id|account_name
}

// NewInMemoryCredentialStore creates an empty in-memory credential store.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{creds: make(map[string]*models.Credentials)}
}

// Put stores credentials for lookup.
func (s *InMemoryCredentialStore) Put(c *models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[c.UserID+"|"+c.AccountName] = c
}

func (s *InMemoryCredentialStore) IntegrationCredentials(ctx context.Context, userID, accountName string) (*models.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.creds[userID+"|"+accountName]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// InMemoryAdCache is a map-backed AdCache.
type InMemoryAdCache struct {
	mu  sync.RWMutex
	ads map[string]*models.IngestedAd // user_id|ad_id
}

// NewInMemoryAdCache creates an empty in-memory ad cache.
func NewInMemoryAdCache() *InMemoryAdCache {
	return &InMemoryAdCache{ads: make(map[string]*models.IngestedAd)}
}

// Put caches an ingested ad.
func (s *InMemoryAdCache) Put(userID, adID string, ad *models.IngestedAd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads[userID+"|"+adID] = ad
}

func (s *InMemoryAdCache) IngestedAd(ctx context.Context, userID, adID string) (*models.IngestedAd, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ad, ok := s.ads[userID+"|"+adID]; ok {
		cp := *ad
		return &cp, nil
	}
	return nil, nil
}
