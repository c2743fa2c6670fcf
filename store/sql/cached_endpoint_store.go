package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

const endpointCacheKeyPrefix = "go-webhooks::endpoints::v1"

// CachedEndpointStore caches fan-out resolution, the hot read on every
// emit. Single-endpoint reads pass through; status writes invalidate the
// owner's cached resolutions. Entries also age out on the cache TTL, so a
// write that bypasses this store converges within one TTL window.
type CachedEndpointStore struct {
	base  core.EndpointStore
	cache repositorycache.CacheService

	mu        sync.Mutex
	ownerKeys map[string]map[string]struct{}
}

func NewCachedEndpointStore(base core.EndpointStore, cacheService repositorycache.CacheService) (*CachedEndpointStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base endpoint store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: endpoint cache service is required")
	}
	return &CachedEndpointStore{
		base:      base,
		cache:     cacheService,
		ownerKeys: map[string]map[string]struct{}{},
	}, nil
}

// EndpointResolutionCacheKey returns the deterministic cache key contract
// for fan-out reads: go-webhooks::endpoints::v1::<owner>::<event_type>
// with each segment URL-path escaped after trimming.
func EndpointResolutionCacheKey(ownerID string, eventType string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	eventType = strings.TrimSpace(eventType)
	if ownerID == "" || eventType == "" {
		return "", fmt.Errorf("sqlstore: owner id and event type are required")
	}
	return strings.Join([]string{
		endpointCacheKeyPrefix,
		url.PathEscape(ownerID),
		url.PathEscape(eventType),
	}, "::"), nil
}

func (s *CachedEndpointStore) Get(ctx context.Context, id string) (core.Endpoint, error) {
	if s == nil || s.base == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	return s.base.Get(ctx, id)
}

func (s *CachedEndpointStore) FindActiveForEvent(ctx context.Context, ownerID string, eventType string) ([]core.Endpoint, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	cacheKey, err := EndpointResolutionCacheKey(ownerID, eventType)
	if err != nil {
		return nil, err
	}
	s.rememberKey(strings.TrimSpace(ownerID), cacheKey)

	endpoints, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.Endpoint, error) {
		fetched, fetchErr := s.base.FindActiveForEvent(ctx, ownerID, eventType)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneEndpoints(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneEndpoints(endpoints), nil
}

func (s *CachedEndpointStore) UpdateStatus(ctx context.Context, id string, status string, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	if err := s.base.UpdateStatus(ctx, id, status, reason); err != nil {
		return err
	}
	return s.invalidateOwner(ctx, id)
}

func (s *CachedEndpointStore) UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	return s.base.UpdateLastTriggered(ctx, id, triggeredAt)
}

func (s *CachedEndpointStore) rememberKey(ownerID string, cacheKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.ownerKeys[ownerID]
	if !ok {
		keys = map[string]struct{}{}
		s.ownerKeys[ownerID] = keys
	}
	keys[cacheKey] = struct{}{}
}

// invalidateOwner drops every resolution this store has populated for the
// endpoint's owner. Status flips are rare relative to emits.
func (s *CachedEndpointStore) invalidateOwner(ctx context.Context, endpointID string) error {
	endpoint, err := s.base.Get(ctx, endpointID)
	if err != nil {
		return err
	}
	ownerID := strings.TrimSpace(endpoint.OwnerID)

	s.mu.Lock()
	keys := make([]string, 0, len(s.ownerKeys[ownerID]))
	for key := range s.ownerKeys[ownerID] {
		keys = append(keys, key)
	}
	delete(s.ownerKeys, ownerID)
	s.mu.Unlock()

	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func cloneEndpoints(endpoints []core.Endpoint) []core.Endpoint {
	if endpoints == nil {
		return nil
	}
	out := make([]core.Endpoint, len(endpoints))
	for i, endpoint := range endpoints {
		cloned := endpoint
		if endpoint.LastTriggeredAt != nil {
			value := endpoint.LastTriggeredAt.UTC()
			cloned.LastTriggeredAt = &value
		}
		out[i] = cloned
	}
	return out
}

var _ core.EndpointStore = (*CachedEndpointStore)(nil)
