package webhooks

import "github.com/goliatone/go-webhooks/core"

type Config = core.Config

type DeliveryConfig = core.DeliveryConfig

type Option = core.Option

type Service = core.Service

type Event = core.Event
type Endpoint = core.Endpoint
type Subscription = core.Subscription
type Delivery = core.Delivery

type EmitInput = core.EmitInput
type UpsertSubscriptionInput = core.UpsertSubscriptionInput
type DispatchStats = core.DispatchStats
type RetryStats = core.RetryStats

type EventStore = core.EventStore
type EndpointStore = core.EndpointStore
type SubscriptionStore = core.SubscriptionStore
type DeliveryStore = core.DeliveryStore
type StoreProvider = core.StoreProvider
type PayloadSigner = core.PayloadSigner

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithHTTPClient        = core.WithHTTPClient
	WithSigner            = core.WithSigner
	WithClock             = core.WithClock
	WithEventStore        = core.WithEventStore
	WithEndpointStore     = core.WithEndpointStore
	WithSubscriptionStore = core.WithSubscriptionStore
	WithDeliveryStore     = core.WithDeliveryStore
	WithStoreProvider     = core.WithStoreProvider
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
