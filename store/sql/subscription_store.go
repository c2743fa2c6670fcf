package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookSubscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookSubscriptionRecord](db, subscriptionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid subscription repository wiring: %w", err)
		}
	}
	return &SubscriptionStore{
		db:   db,
		repo: repo,
	}, nil
}

// Upsert is keyed on (endpoint_id, event_type): re-subscribing toggles the
// existing row instead of inserting a duplicate.
func (s *SubscriptionStore) Upsert(ctx context.Context, in core.UpsertSubscriptionInput) (core.Subscription, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	endpointID := strings.TrimSpace(in.EndpointID)
	eventType := strings.TrimSpace(in.EventType)
	if endpointID == "" || eventType == "" {
		return core.Subscription{}, fmt.Errorf("sqlstore: endpoint id and event type are required")
	}

	now := time.Now().UTC()
	existing := &webhookSubscriptionRecord{}
	err := s.db.NewSelect().
		Model(existing).
		Where("?TableAlias.endpoint_id = ?", endpointID).
		Where("?TableAlias.event_type = ?", eventType).
		Limit(1).
		Scan(ctx)
	if err == nil {
		_, err = s.db.NewUpdate().
			Model((*webhookSubscriptionRecord)(nil)).
			Set("enabled = ?", in.Enabled).
			Set("updated_at = ?", now).
			Where("id = ?", existing.ID).
			Exec(ctx)
		if err != nil {
			return core.Subscription{}, err
		}
		existing.Enabled = in.Enabled
		existing.UpdatedAt = now
		return subscriptionToDomain(existing), nil
	}
	if err != sql.ErrNoRows {
		return core.Subscription{}, err
	}

	record := &webhookSubscriptionRecord{
		ID:         uuid.NewString(),
		EndpointID: endpointID,
		EventType:  eventType,
		Enabled:    in.Enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Subscription{}, err
	}
	return subscriptionToDomain(record), nil
}

func (s *SubscriptionStore) ListForEndpoint(ctx context.Context, endpointID string) ([]core.Subscription, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	var records []*webhookSubscriptionRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.endpoint_id = ?", strings.TrimSpace(endpointID)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Subscription, 0, len(records))
	for _, record := range records {
		out = append(out, subscriptionToDomain(record))
	}
	return out, nil
}

func subscriptionToDomain(record *webhookSubscriptionRecord) core.Subscription {
	if record == nil {
		return core.Subscription{}
	}
	return core.Subscription{
		ID:         record.ID,
		EndpointID: record.EndpointID,
		EventType:  record.EventType,
		Enabled:    record.Enabled,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

var _ core.SubscriptionStore = (*SubscriptionStore)(nil)
