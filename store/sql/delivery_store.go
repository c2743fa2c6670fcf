package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

// defaultMaxAttempts caps how many delivery attempts a row can accumulate
// before it is terminal and no longer eligible for retry scans.
const defaultMaxAttempts = 3

type DeliveryStore struct {
	db          *bun.DB
	repo        repository.Repository[*webhookDeliveryRecord]
	maxAttempts int
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{
		db:          db,
		repo:        repo,
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// SetMaxAttempts overrides the attempt ceiling enforced by FindRetryable.
// Values below one fall back to the default.
func (s *DeliveryStore) SetMaxAttempts(n int) {
	if s == nil {
		return
	}
	if n < 1 {
		n = defaultMaxAttempts
	}
	s.maxAttempts = n
}

func (s *DeliveryStore) Insert(ctx context.Context, delivery core.Delivery) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if strings.TrimSpace(delivery.ID) == "" {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery id is required")
	}
	record := deliveryToRecord(delivery)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Delivery{}, err
	}
	return deliveryToDomain(record), nil
}

func (s *DeliveryStore) Get(ctx context.Context, id string) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := &webhookDeliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Delivery{}, fmt.Errorf("sqlstore: delivery %q: %w", id, core.ErrDeliveryNotFound)
		}
		return core.Delivery{}, err
	}
	return deliveryToDomain(record), nil
}

func (s *DeliveryStore) RecordOutcome(ctx context.Context, in core.RecordOutcomeInput) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	deliveryID := strings.TrimSpace(in.DeliveryID)
	if deliveryID == "" {
		return fmt.Errorf("sqlstore: delivery id is required")
	}

	now := time.Now().UTC()
	query := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", strings.TrimSpace(in.Status)).
		Set("attempt_number = ?", in.AttemptNumber).
		Set("response_body = ?", in.ResponseBody).
		Set("error_message = ?", in.ErrorMessage).
		Set("updated_at = ?", now).
		Where("id = ?", deliveryID)

	if in.HTTPStatus != nil {
		query = query.Set("http_status = ?", *in.HTTPStatus)
	}
	if in.ResponseTimeMs != nil {
		query = query.Set("response_time_ms = ?", *in.ResponseTimeMs)
	}
	if in.DeliveredAt != nil {
		query = query.Set("delivered_at = ?", in.DeliveredAt.UTC())
	}
	if in.NextRetryAt != nil {
		query = query.Set("next_retry_at = ?", in.NextRetryAt.UTC())
	} else {
		query = query.Set("next_retry_at = NULL")
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("sqlstore: delivery %q: %w", deliveryID, core.ErrDeliveryNotFound)
	}
	return nil
}

// ClaimForRetry advances the attempt counter and clears the retry window in
// one conditional update. The claim only lands when the row is still in
// retrying state at the expected prior attempt, so overlapping scheduler
// ticks cannot re-deliver the same row.
func (s *DeliveryStore) ClaimForRetry(ctx context.Context, id string, attemptNumber int) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	res, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("attempt_number = ?", attemptNumber).
		Set("next_retry_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Where("status = ?", core.DeliveryStatusRetrying).
		Where("attempt_number = ?", attemptNumber-1).
		Where("next_retry_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *DeliveryStore) FindRetryable(ctx context.Context, now time.Time, limit int) ([]core.Delivery, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if limit <= 0 {
		return []core.Delivery{}, nil
	}
	maxAttempts := s.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	var records []*webhookDeliveryRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", core.DeliveryStatusRetrying).
		Where("?TableAlias.attempt_number < ?", maxAttempts).
		Where("?TableAlias.next_retry_at IS NOT NULL").
		Where("?TableAlias.next_retry_at <= ?", now.UTC()).
		Order("next_retry_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Delivery, 0, len(records))
	for _, record := range records {
		out = append(out, deliveryToDomain(record))
	}
	return out, nil
}

func deliveryToRecord(delivery core.Delivery) *webhookDeliveryRecord {
	record := &webhookDeliveryRecord{
		ID:            strings.TrimSpace(delivery.ID),
		EndpointID:    strings.TrimSpace(delivery.EndpointID),
		EventID:       strings.TrimSpace(delivery.EventID),
		EventType:     strings.TrimSpace(delivery.EventType),
		Payload:       append([]byte(nil), delivery.Payload...),
		AttemptNumber: delivery.AttemptNumber,
		Status:        strings.TrimSpace(delivery.Status),
		HTTPStatus:    delivery.HTTPStatus,
		ResponseBody:  delivery.ResponseBody,
		ErrorMessage:  delivery.ErrorMessage,
		CreatedAt:     delivery.CreatedAt.UTC(),
		UpdatedAt:     delivery.UpdatedAt.UTC(),
	}
	if delivery.ResponseTimeMs != nil {
		value := *delivery.ResponseTimeMs
		record.ResponseTimeMs = &value
	}
	if delivery.DeliveredAt != nil {
		value := delivery.DeliveredAt.UTC()
		record.DeliveredAt = &value
	}
	if delivery.NextRetryAt != nil {
		value := delivery.NextRetryAt.UTC()
		record.NextRetryAt = &value
	}
	return record
}

func deliveryToDomain(record *webhookDeliveryRecord) core.Delivery {
	if record == nil {
		return core.Delivery{}
	}
	result := core.Delivery{
		ID:            record.ID,
		EndpointID:    record.EndpointID,
		EventID:       record.EventID,
		EventType:     record.EventType,
		Payload:       append([]byte(nil), record.Payload...),
		AttemptNumber: record.AttemptNumber,
		Status:        record.Status,
		HTTPStatus:    record.HTTPStatus,
		ResponseBody:  record.ResponseBody,
		ErrorMessage:  record.ErrorMessage,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.ResponseTimeMs != nil {
		value := *record.ResponseTimeMs
		result.ResponseTimeMs = &value
	}
	if record.DeliveredAt != nil {
		value := *record.DeliveredAt
		result.DeliveredAt = &value
	}
	if record.NextRetryAt != nil {
		value := *record.NextRetryAt
		result.NextRetryAt = &value
	}
	return result
}

var _ core.DeliveryStore = (*DeliveryStore)(nil)
