package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

var (
	ErrEndpointNotFound = errors.New("core: endpoint not found")
	ErrDeliveryNotFound = errors.New("core: delivery not found")
)

// Service is the webhook delivery engine: it records emitted events, fans
// deliveries out to subscribed endpoints, and drives bounded retries.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	signer            PayloadSigner
	executor          *AttemptExecutor
	eventStore        EventStore
	endpointStore     EndpointStore
	subscriptionStore SubscriptionStore
	deliveryStore     DeliveryStore
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Signer            PayloadSigner
	EventStore        EventStore
	EndpointStore     EndpointStore
	SubscriptionStore SubscriptionStore
	DeliveryStore     DeliveryStore
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.signer == nil {
		builder.signer = HMACSigner{}
	}
	if builder.clock == nil {
		builder.clock = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil && needsStores(builder) {
		var storeProvider StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			storeProvider = built
		} else if direct, ok := builder.repositoryFactory.(StoreProvider); ok {
			storeProvider = direct
		}
		if storeProvider != nil {
			if builder.eventStore == nil {
				builder.eventStore = storeProvider.EventStore()
			}
			if builder.endpointStore == nil {
				builder.endpointStore = storeProvider.EndpointStore()
			}
			if builder.subscriptionStore == nil {
				builder.subscriptionStore = storeProvider.SubscriptionStore()
			}
			if builder.deliveryStore == nil {
				builder.deliveryStore = storeProvider.DeliveryStore()
			}
		}
	}

	httpClient := builder.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	executor := NewAttemptExecutor(httpClient, builder.signer)
	executor.Timeout = finalConfig.attemptTimeout()
	executor.UserAgent = finalConfig.userAgent()
	executor.BodyLimit = finalConfig.responseBodyLimit()
	executor.Now = builder.clock

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		signer:            builder.signer,
		executor:          executor,
		eventStore:        builder.eventStore,
		endpointStore:     builder.endpointStore,
		subscriptionStore: builder.subscriptionStore,
		deliveryStore:     builder.deliveryStore,
		now:               builder.clock,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func needsStores(builder serviceBuilder) bool {
	return builder.eventStore == nil ||
		builder.endpointStore == nil ||
		builder.subscriptionStore == nil ||
		builder.deliveryStore == nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Signer:            s.signer,
		EventStore:        s.eventStore,
		EndpointStore:     s.endpointStore,
		SubscriptionStore: s.subscriptionStore,
		DeliveryStore:     s.deliveryStore,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// EmitResult reports the persisted event and the outcome counts of the
// initial fan-out. Delivery failures are not errors from the emitter's
// perspective; they surface in Stats and in the delivery records.
type EmitResult struct {
	Event Event
	Stats DispatchStats
}

// Emit records the event and dispatches attempt 1 to every active endpoint
// holding an enabled subscription for the event type. Endpoint fan-out is
// concurrent and isolated: one endpoint's failure never affects another.
// Zero matching endpoints is a no-op, not an error.
func (s *Service) Emit(ctx context.Context, in EmitInput) (EmitResult, error) {
	startedAt := s.clockNow()
	result, err := s.emit(ctx, in)
	s.observeOperation(ctx, startedAt, "emit", err, map[string]any{
		"event_type": in.EventType,
		"owner_id":   in.OwnerID,
		"resolved":   result.Stats.Resolved,
	})
	return result, err
}

func (s *Service) emit(ctx context.Context, in EmitInput) (EmitResult, error) {
	if s == nil || s.eventStore == nil || s.endpointStore == nil || s.deliveryStore == nil {
		return EmitResult{}, fmt.Errorf("core: service requires event, endpoint and delivery stores")
	}
	if err := in.Validate(); err != nil {
		return EmitResult{}, s.mapError(err)
	}

	event := Event{
		ID:           uuid.NewString(),
		Type:         strings.TrimSpace(in.EventType),
		ResourceID:   strings.TrimSpace(in.ResourceID),
		ResourceType: strings.TrimSpace(in.ResourceType),
		OwnerID:      strings.TrimSpace(in.OwnerID),
		Data:         cloneFields(in.Data),
		CreatedAt:    s.clockNow(),
	}
	stored, err := s.eventStore.Insert(ctx, event)
	if err != nil {
		return EmitResult{}, s.mapError(err)
	}

	endpoints, err := s.endpointStore.FindActiveForEvent(ctx, stored.OwnerID, stored.Type)
	if err != nil {
		return EmitResult{Event: stored}, s.mapError(err)
	}
	if len(endpoints) == 0 {
		return EmitResult{Event: stored}, nil
	}

	envelope, err := BuildEnvelope(stored.ID, stored.Type, stored.CreatedAt, stored.Data)
	if err != nil {
		return EmitResult{Event: stored}, s.mapError(err)
	}
	payload, err := envelope.Encode()
	if err != nil {
		return EmitResult{Event: stored}, s.mapError(err)
	}

	stats := DispatchStats{Resolved: len(endpoints)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, endpoint := range endpoints {
		wg.Add(1)
		go func(endpoint Endpoint) {
			defer wg.Done()
			status := s.deliverNew(ctx, stored, endpoint, payload)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case DeliveryStatusSuccess:
				stats.Delivered++
			case DeliveryStatusRetrying:
				stats.Retrying++
			case DeliveryStatusFailed:
				stats.Failed++
			}
		}(endpoint)
	}
	wg.Wait()

	return EmitResult{Event: stored, Stats: stats}, nil
}

// deliverNew creates the pending delivery record and performs attempt 1.
// Ledger failures are logged and confined to this endpoint's delivery.
func (s *Service) deliverNew(ctx context.Context, event Event, endpoint Endpoint, payload []byte) string {
	delivery := Delivery{
		ID:            uuid.NewString(),
		EndpointID:    endpoint.ID,
		EventID:       event.ID,
		EventType:     event.Type,
		Payload:       append([]byte(nil), payload...),
		AttemptNumber: 1,
		Status:        DeliveryStatusPending,
		CreatedAt:     s.clockNow(),
	}
	stored, err := s.deliveryStore.Insert(ctx, delivery)
	if err != nil {
		s.logError(ctx, "delivery insert failed", map[string]any{
			"endpoint_id": endpoint.ID,
			"event_id":    event.ID,
			"error":       err.Error(),
		})
		return ""
	}

	outcome, err := s.executor.Execute(ctx, endpoint.URL, stored.Payload, endpoint.Secret)
	if err != nil {
		outcome = AttemptOutcome{Err: err, CompletedAt: s.clockNow()}
	}
	return s.applyOutcome(ctx, stored, endpoint, outcome)
}

// applyOutcome records one attempt's result and drives the delivery state
// machine: pending/retrying -> success | retrying | failed. Non-2xx and
// transport errors are equivalent for retry purposes.
func (s *Service) applyOutcome(ctx context.Context, delivery Delivery, endpoint Endpoint, outcome AttemptOutcome) string {
	now := s.clockNow()
	record := RecordOutcomeInput{
		DeliveryID:    delivery.ID,
		AttemptNumber: delivery.AttemptNumber,
		ResponseBody:  outcome.ResponseBody,
	}
	if outcome.HTTPStatus != 0 {
		status := outcome.HTTPStatus
		record.HTTPStatus = &status
	}
	if outcome.ResponseTimeMs != 0 || outcome.HTTPStatus != 0 {
		elapsed := outcome.ResponseTimeMs
		record.ResponseTimeMs = &elapsed
	}

	switch {
	case outcome.Succeeded():
		record.Status = DeliveryStatusSuccess
		deliveredAt := now
		record.DeliveredAt = &deliveredAt
	case delivery.AttemptNumber < s.config.maxAttempts():
		record.Status = DeliveryStatusRetrying
		nextRetryAt := now.Add(BackoffDelay(delivery.AttemptNumber))
		record.NextRetryAt = &nextRetryAt
		record.ErrorMessage = outcomeErrorMessage(outcome)
	default:
		record.Status = DeliveryStatusFailed
		record.ErrorMessage = outcomeErrorMessage(outcome)
	}

	if err := s.deliveryStore.RecordOutcome(ctx, record); err != nil {
		s.logError(ctx, "delivery outcome write failed", map[string]any{
			"delivery_id": delivery.ID,
			"endpoint_id": endpoint.ID,
			"error":       err.Error(),
		})
		return record.Status
	}

	if record.Status == DeliveryStatusSuccess {
		if err := s.endpointStore.UpdateLastTriggered(ctx, endpoint.ID, now); err != nil {
			s.logError(ctx, "endpoint last_triggered update failed", map[string]any{
				"endpoint_id": endpoint.ID,
				"error":       err.Error(),
			})
		}
	}
	return record.Status
}

// UpdateEndpointStatus applies an operator or policy decision to an
// endpoint. The engine itself never disables endpoints automatically.
func (s *Service) UpdateEndpointStatus(ctx context.Context, endpointID string, status string, reason string) error {
	startedAt := s.clockNow()
	err := s.updateEndpointStatus(ctx, endpointID, status, reason)
	s.observeOperation(ctx, startedAt, "endpoint_status_update", err, map[string]any{
		"endpoint_id": endpointID,
		"to_status":   status,
	})
	return err
}

func (s *Service) updateEndpointStatus(ctx context.Context, endpointID string, status string, reason string) error {
	if s == nil || s.endpointStore == nil {
		return fmt.Errorf("core: service requires an endpoint store")
	}
	endpointID = strings.TrimSpace(endpointID)
	if endpointID == "" {
		return s.mapError(fmt.Errorf("core: endpoint id is required"))
	}
	switch strings.TrimSpace(status) {
	case EndpointStatusActive, EndpointStatusDisabled, EndpointStatusFailed:
	default:
		return s.mapError(fmt.Errorf("core: endpoint status %q is invalid", status))
	}
	return s.mapError(s.endpointStore.UpdateStatus(ctx, endpointID, strings.TrimSpace(status), strings.TrimSpace(reason)))
}

// Subscribe upserts a subscription linking an endpoint to an event type.
func (s *Service) Subscribe(ctx context.Context, in UpsertSubscriptionInput) (Subscription, error) {
	if s == nil || s.subscriptionStore == nil {
		return Subscription{}, fmt.Errorf("core: service requires a subscription store")
	}
	if strings.TrimSpace(in.EndpointID) == "" {
		return Subscription{}, s.mapError(fmt.Errorf("core: subscription endpoint id is required"))
	}
	if strings.TrimSpace(in.EventType) == "" {
		return Subscription{}, s.mapError(fmt.Errorf("core: subscription event type is required"))
	}
	subscription, err := s.subscriptionStore.Upsert(ctx, in)
	if err != nil {
		return Subscription{}, s.mapError(err)
	}
	return subscription, nil
}

func (s *Service) clockNow() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func outcomeErrorMessage(outcome AttemptOutcome) string {
	if outcome.Err == nil {
		return ""
	}
	return strings.TrimSpace(outcome.Err.Error())
}
