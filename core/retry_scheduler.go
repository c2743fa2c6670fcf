package core

import (
	"context"
	"fmt"
	"sync"
)

// ProcessRetryBatch drives one scheduler tick: it selects deliveries whose
// retry window has elapsed, capped at limit (config default when <= 0),
// and re-executes each against its endpoint. Deliveries are processed
// concurrently; each delivery's own attempt sequence stays ordered because
// the optimistic claim gates eligibility.
//
// Deliveries whose endpoint is no longer active are skipped and remain
// retrying with their stale next_retry_at; re-enabling the endpoint lets a
// later tick pick them up.
func (s *Service) ProcessRetryBatch(ctx context.Context, limit int) (RetryStats, error) {
	startedAt := s.clockNow()
	stats, err := s.processRetryBatch(ctx, limit)
	s.observeOperation(ctx, startedAt, "retry_batch", err, map[string]any{
		"claimed":   stats.Claimed,
		"delivered": stats.Delivered,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
	})
	return stats, err
}

func (s *Service) processRetryBatch(ctx context.Context, limit int) (RetryStats, error) {
	if s == nil || s.deliveryStore == nil || s.endpointStore == nil {
		return RetryStats{}, fmt.Errorf("core: service requires delivery and endpoint stores")
	}
	if limit <= 0 {
		limit = s.config.retryBatchLimit()
	}

	deliveries, err := s.deliveryStore.FindRetryable(ctx, s.clockNow(), limit)
	if err != nil {
		return RetryStats{}, s.mapError(err)
	}

	stats := RetryStats{Claimed: len(deliveries)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, delivery := range deliveries {
		wg.Add(1)
		go func(delivery Delivery) {
			defer wg.Done()
			status := s.retryOne(ctx, delivery)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case DeliveryStatusSuccess:
				stats.Delivered++
			case DeliveryStatusRetrying:
				stats.Retrying++
			case DeliveryStatusFailed:
				stats.Failed++
			default:
				stats.Skipped++
			}
		}(delivery)
	}
	wg.Wait()

	return stats, nil
}

func (s *Service) retryOne(ctx context.Context, delivery Delivery) string {
	endpoint, err := s.endpointStore.Get(ctx, delivery.EndpointID)
	if err != nil {
		s.logError(ctx, "retry endpoint lookup failed", map[string]any{
			"delivery_id": delivery.ID,
			"endpoint_id": delivery.EndpointID,
			"error":       err.Error(),
		})
		return ""
	}
	if !endpoint.Active() {
		s.logInfo(ctx, "retry skipped for inactive endpoint", map[string]any{
			"delivery_id":     delivery.ID,
			"endpoint_id":     endpoint.ID,
			"endpoint_status": endpoint.Status,
		})
		return ""
	}

	nextAttempt := delivery.AttemptNumber + 1
	claimed, err := s.deliveryStore.ClaimForRetry(ctx, delivery.ID, nextAttempt)
	if err != nil {
		s.logError(ctx, "retry claim failed", map[string]any{
			"delivery_id": delivery.ID,
			"error":       err.Error(),
		})
		return ""
	}
	if !claimed {
		return ""
	}
	delivery.AttemptNumber = nextAttempt

	// The payload was frozen when the delivery was created; it is re-signed
	// and resent byte-identical on every attempt.
	outcome, err := s.executor.Execute(ctx, endpoint.URL, delivery.Payload, endpoint.Secret)
	if err != nil {
		outcome = AttemptOutcome{Err: err, CompletedAt: s.clockNow()}
	}
	return s.applyOutcome(ctx, delivery, endpoint, outcome)
}
