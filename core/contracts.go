package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// EventStore persists emitted events. Events are append-only.
type EventStore interface {
	Insert(ctx context.Context, event Event) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
}

// EndpointStore resolves and maintains tenant endpoints.
//
// FindActiveForEvent returns the active endpoints owned by ownerID that
// hold an enabled subscription for eventType. Implementations resolve
// endpoints and subscriptions as two explicit steps so the contract does
// not depend on a storage engine's join capability.
type EndpointStore interface {
	Get(ctx context.Context, id string) (Endpoint, error)
	FindActiveForEvent(ctx context.Context, ownerID string, eventType string) ([]Endpoint, error)
	UpdateStatus(ctx context.Context, id string, status string, reason string) error
	UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error
}

// SubscriptionStore maintains endpoint/event-type subscription rows.
type SubscriptionStore interface {
	Upsert(ctx context.Context, in UpsertSubscriptionInput) (Subscription, error)
	ListForEndpoint(ctx context.Context, endpointID string) ([]Subscription, error)
}

// DeliveryStore is the ledger owning delivery rows. RecordOutcome performs
// a single-row upsert of the latest attempt's fields. ClaimForRetry must
// condition the claim on the row still being in retrying state so that
// overlapping scheduler ticks never double-process one delivery.
type DeliveryStore interface {
	Insert(ctx context.Context, delivery Delivery) (Delivery, error)
	Get(ctx context.Context, id string) (Delivery, error)
	RecordOutcome(ctx context.Context, in RecordOutcomeInput) error
	ClaimForRetry(ctx context.Context, id string, attemptNumber int) (bool, error)
	FindRetryable(ctx context.Context, now time.Time, limit int) ([]Delivery, error)
}

type UpsertSubscriptionInput struct {
	EndpointID string
	EventType  string
	Enabled    bool
}

// RecordOutcomeInput carries the delivery fields written after one attempt.
type RecordOutcomeInput struct {
	DeliveryID     string
	Status         string
	AttemptNumber  int
	HTTPStatus     *int
	ResponseBody   string
	ResponseTimeMs *int64
	ErrorMessage   string
	DeliveredAt    *time.Time
	NextRetryAt    *time.Time
}

// StoreProvider exposes the ledger stores the engine consumes.
type StoreProvider interface {
	EventStore() EventStore
	EndpointStore() EndpointStore
	SubscriptionStore() SubscriptionStore
	DeliveryStore() DeliveryStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// PayloadSigner produces and verifies the message authentication code
// carried on outbound requests.
type PayloadSigner interface {
	Sign(payload []byte, secret string) string
	Verify(payload []byte, signature string, secret string) bool
}

// HTTPDoer is the outbound HTTP client surface used by the attempt
// executor. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// JobExecutionMessage mirrors the queue execution contract so job wiring
// does not leak a specific queue library into the core.
type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
