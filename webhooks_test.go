package webhooks_test

import (
	"context"
	"testing"
	"time"

	webhooks "github.com/goliatone/go-webhooks"
	"github.com/goliatone/go-webhooks/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := webhooks.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", cfg.Delivery.MaxAttempts)
	}
}

func TestEmitRequiresStores(t *testing.T) {
	service, err := webhooks.Setup(webhooks.DefaultConfig())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := service.Emit(context.Background(), webhooks.EmitInput{
		EventType:    "payment.succeeded",
		ResourceID:   "pay_1",
		ResourceType: "payment",
		OwnerID:      "user_1",
	}); err == nil {
		t.Fatalf("expected error without stores")
	}
}

func TestSetupWithStoreProvider(t *testing.T) {
	service, err := webhooks.Setup(webhooks.DefaultConfig(),
		webhooks.WithStoreProvider(nopStores{}),
	)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// No subscribed endpoints resolves to a recorded no-op dispatch.
	result, err := service.Emit(context.Background(), webhooks.EmitInput{
		EventType:    "payment.succeeded",
		ResourceID:   "pay_1",
		ResourceType: "payment",
		OwnerID:      "user_1",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if result.Event.ID == "" {
		t.Fatalf("expected persisted event id")
	}
	if result.Stats.Resolved != 0 {
		t.Fatalf("expected zero resolved endpoints, got %d", result.Stats.Resolved)
	}
}

type nopStores struct{}

func (nopStores) EventStore() core.EventStore               { return nopEventStore{} }
func (nopStores) EndpointStore() core.EndpointStore         { return nopEndpointStore{} }
func (nopStores) SubscriptionStore() core.SubscriptionStore { return nopSubscriptionStore{} }
func (nopStores) DeliveryStore() core.DeliveryStore         { return nopDeliveryStore{} }

type nopEventStore struct{}

func (nopEventStore) Insert(_ context.Context, event core.Event) (core.Event, error) {
	return event, nil
}

func (nopEventStore) Get(context.Context, string) (core.Event, error) {
	return core.Event{}, nil
}

type nopEndpointStore struct{}

func (nopEndpointStore) Get(context.Context, string) (core.Endpoint, error) {
	return core.Endpoint{}, nil
}

func (nopEndpointStore) FindActiveForEvent(context.Context, string, string) ([]core.Endpoint, error) {
	return nil, nil
}

func (nopEndpointStore) UpdateStatus(context.Context, string, string, string) error {
	return nil
}

func (nopEndpointStore) UpdateLastTriggered(context.Context, string, time.Time) error {
	return nil
}

type nopSubscriptionStore struct{}

func (nopSubscriptionStore) Upsert(_ context.Context, in core.UpsertSubscriptionInput) (core.Subscription, error) {
	return core.Subscription{EndpointID: in.EndpointID, EventType: in.EventType, Enabled: in.Enabled}, nil
}

func (nopSubscriptionStore) ListForEndpoint(context.Context, string) ([]core.Subscription, error) {
	return nil, nil
}

type nopDeliveryStore struct{}

func (nopDeliveryStore) Insert(_ context.Context, delivery core.Delivery) (core.Delivery, error) {
	return delivery, nil
}

func (nopDeliveryStore) Get(context.Context, string) (core.Delivery, error) {
	return core.Delivery{}, nil
}

func (nopDeliveryStore) RecordOutcome(context.Context, core.RecordOutcomeInput) error {
	return nil
}

func (nopDeliveryStore) ClaimForRetry(context.Context, string, int) (bool, error) {
	return false, nil
}

func (nopDeliveryStore) FindRetryable(context.Context, time.Time, int) ([]core.Delivery, error) {
	return nil, nil
}
