package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"
)

func newTestService(t *testing.T, stores *memoryStores, options ...Option) *Service {
	t.Helper()
	base := []Option{
		WithEventStore(stores.events),
		WithEndpointStore(stores.endpoints),
		WithSubscriptionStore(stores.subscriptions),
		WithDeliveryStore(stores.deliveries),
	}
	service, err := NewService(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

type memoryStores struct {
	events        *memoryEventStore
	endpoints     *memoryEndpointStore
	subscriptions *memorySubscriptionStore
	deliveries    *memoryDeliveryStore
}

func newMemoryStores() *memoryStores {
	subscriptions := newMemorySubscriptionStore()
	return &memoryStores{
		events:        newMemoryEventStore(),
		endpoints:     newMemoryEndpointStore(subscriptions),
		subscriptions: subscriptions,
		deliveries:    newMemoryDeliveryStore(),
	}
}

func (m *memoryStores) addEndpoint(endpoint Endpoint, eventTypes ...string) {
	m.endpoints.put(endpoint)
	for _, eventType := range eventTypes {
		_, _ = m.subscriptions.Upsert(context.Background(), UpsertSubscriptionInput{
			EndpointID: endpoint.ID,
			EventType:  eventType,
			Enabled:    true,
		})
	}
}

func (m *memoryStores) deliveriesForEndpoint(endpointID string) []Delivery {
	return m.deliveries.byEndpoint(endpointID)
}

type memoryEventStore struct {
	mu     sync.Mutex
	events map[string]Event
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{events: map[string]Event{}}
}

func (s *memoryEventStore) Insert(_ context.Context, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return Event{}, fmt.Errorf("event %q already exists", event.ID)
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *memoryEventStore) Get(_ context.Context, id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return Event{}, fmt.Errorf("event %q not found", id)
	}
	return event, nil
}

func (s *memoryEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type memoryEndpointStore struct {
	mu            sync.Mutex
	endpoints     map[string]Endpoint
	subscriptions *memorySubscriptionStore
}

func newMemoryEndpointStore(subscriptions *memorySubscriptionStore) *memoryEndpointStore {
	return &memoryEndpointStore{
		endpoints:     map[string]Endpoint{},
		subscriptions: subscriptions,
	}
}

func (s *memoryEndpointStore) put(endpoint Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[endpoint.ID] = endpoint
}

func (s *memoryEndpointStore) Get(_ context.Context, id string) (Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return Endpoint{}, fmt.Errorf("endpoint %q: %w", id, ErrEndpointNotFound)
	}
	return endpoint, nil
}

func (s *memoryEndpointStore) FindActiveForEvent(ctx context.Context, ownerID string, eventType string) ([]Endpoint, error) {
	s.mu.Lock()
	candidates := make([]Endpoint, 0, len(s.endpoints))
	for _, endpoint := range s.endpoints {
		if endpoint.OwnerID == ownerID && endpoint.Active() {
			candidates = append(candidates, endpoint)
		}
	}
	s.mu.Unlock()

	matched := make([]Endpoint, 0, len(candidates))
	for _, endpoint := range candidates {
		subs, err := s.subscriptions.ListForEndpoint(ctx, endpoint.ID)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			if sub.Enabled && sub.EventType == eventType {
				matched = append(matched, endpoint)
				break
			}
		}
	}
	return matched, nil
}

func (s *memoryEndpointStore) UpdateStatus(_ context.Context, id string, status string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, ErrEndpointNotFound)
	}
	endpoint.Status = status
	s.endpoints[id] = endpoint
	return nil
}

func (s *memoryEndpointStore) UpdateLastTriggered(_ context.Context, id string, triggeredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, ErrEndpointNotFound)
	}
	value := triggeredAt.UTC()
	endpoint.LastTriggeredAt = &value
	s.endpoints[id] = endpoint
	return nil
}

type memorySubscriptionStore struct {
	mu            sync.Mutex
	subscriptions map[string]Subscription
}

func newMemorySubscriptionStore() *memorySubscriptionStore {
	return &memorySubscriptionStore{subscriptions: map[string]Subscription{}}
}

func (s *memorySubscriptionStore) Upsert(_ context.Context, in UpsertSubscriptionInput) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := in.EndpointID + ":" + in.EventType
	existing, ok := s.subscriptions[key]
	if ok {
		existing.Enabled = in.Enabled
		existing.UpdatedAt = time.Now().UTC()
		s.subscriptions[key] = existing
		return existing, nil
	}
	subscription := Subscription{
		ID:         key,
		EndpointID: in.EndpointID,
		EventType:  in.EventType,
		Enabled:    in.Enabled,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	s.subscriptions[key] = subscription
	return subscription, nil
}

func (s *memorySubscriptionStore) ListForEndpoint(_ context.Context, endpointID string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subscription, 0, len(s.subscriptions))
	for _, subscription := range s.subscriptions {
		if subscription.EndpointID == endpointID {
			out = append(out, subscription)
		}
	}
	return out, nil
}

type memoryDeliveryStore struct {
	mu         sync.Mutex
	deliveries map[string]Delivery
}

func newMemoryDeliveryStore() *memoryDeliveryStore {
	return &memoryDeliveryStore{deliveries: map[string]Delivery{}}
}

func (s *memoryDeliveryStore) Insert(_ context.Context, delivery Delivery) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deliveries[delivery.ID]; exists {
		return Delivery{}, fmt.Errorf("delivery %q already exists", delivery.ID)
	}
	s.deliveries[delivery.ID] = delivery
	return delivery, nil
}

func (s *memoryDeliveryStore) Get(_ context.Context, id string) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return Delivery{}, fmt.Errorf("delivery %q: %w", id, ErrDeliveryNotFound)
	}
	return delivery, nil
}

func (s *memoryDeliveryStore) RecordOutcome(_ context.Context, in RecordOutcomeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[in.DeliveryID]
	if !ok {
		return fmt.Errorf("delivery %q: %w", in.DeliveryID, ErrDeliveryNotFound)
	}
	delivery.Status = in.Status
	delivery.AttemptNumber = in.AttemptNumber
	delivery.HTTPStatus = in.HTTPStatus
	delivery.ResponseBody = in.ResponseBody
	delivery.ResponseTimeMs = in.ResponseTimeMs
	delivery.ErrorMessage = in.ErrorMessage
	delivery.DeliveredAt = in.DeliveredAt
	delivery.NextRetryAt = in.NextRetryAt
	delivery.UpdatedAt = time.Now().UTC()
	s.deliveries[in.DeliveryID] = delivery
	return nil
}

func (s *memoryDeliveryStore) ClaimForRetry(_ context.Context, id string, attemptNumber int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return false, fmt.Errorf("delivery %q: %w", id, ErrDeliveryNotFound)
	}
	if delivery.Status != DeliveryStatusRetrying {
		return false, nil
	}
	if delivery.AttemptNumber != attemptNumber-1 {
		return false, nil
	}
	if delivery.NextRetryAt == nil {
		return false, nil
	}
	delivery.AttemptNumber = attemptNumber
	delivery.NextRetryAt = nil
	delivery.UpdatedAt = time.Now().UTC()
	s.deliveries[id] = delivery
	return true, nil
}

func (s *memoryDeliveryStore) FindRetryable(_ context.Context, now time.Time, limit int) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, 0, limit)
	for _, delivery := range s.deliveries {
		if len(out) >= limit {
			break
		}
		if delivery.Status != DeliveryStatusRetrying {
			continue
		}
		if delivery.AttemptNumber >= DefaultConfig().Delivery.MaxAttempts {
			continue
		}
		if delivery.NextRetryAt == nil || delivery.NextRetryAt.After(now) {
			continue
		}
		out = append(out, delivery)
	}
	return out, nil
}

func (s *memoryDeliveryStore) byEndpoint(endpointID string) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, 0, len(s.deliveries))
	for _, delivery := range s.deliveries {
		if delivery.EndpointID == endpointID {
			out = append(out, delivery)
		}
	}
	return out
}

// stubHTTPClient routes requests by URL to canned responders so fan-out
// tests can exercise mixed endpoint behavior without real listeners.
type stubHTTPClient struct {
	mu         sync.Mutex
	responders map[string]func(req *http.Request) (*http.Response, error)
	requests   []*http.Request
	bodies     map[string][][]byte
}

func newStubHTTPClient() *stubHTTPClient {
	return &stubHTTPClient{
		responders: map[string]func(req *http.Request) (*http.Response, error){},
		bodies:     map[string][][]byte{},
	}
}

func (c *stubHTTPClient) respond(url string, responder func(req *http.Request) (*http.Response, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responders[url] = responder
}

func (c *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	body := []byte{}
	if req.Body != nil {
		read, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = read
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.bodies[req.URL.String()] = append(c.bodies[req.URL.String()], body)
	responder := c.responders[req.URL.String()]
	c.mu.Unlock()

	if responder == nil {
		return nil, fmt.Errorf("no responder for %s", req.URL.String())
	}
	return responder(req)
}

func (c *stubHTTPClient) sentBodies(url string) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.bodies[url]))
	copy(out, c.bodies[url])
	return out
}

func (c *stubHTTPClient) requestCount(url string) int {
	return len(c.sentBodies(url))
}

func jsonResponse(status int, body string) func(req *http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	}
}

func errorResponse(err error) func(req *http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return nil, err
	}
}
