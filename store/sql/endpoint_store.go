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

type EndpointStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEndpointRecord]
}

func NewEndpointStore(db *bun.DB) (*EndpointStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEndpointRecord](db, endpointHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid endpoint repository wiring: %w", err)
		}
	}
	return &EndpointStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EndpointStore) Insert(ctx context.Context, endpoint core.Endpoint) (core.Endpoint, error) {
	if s == nil || s.db == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	if strings.TrimSpace(endpoint.ID) == "" {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint id is required")
	}
	record := endpointToRecord(endpoint)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Endpoint{}, err
	}
	return endpointToDomain(record), nil
}

func (s *EndpointStore) Get(ctx context.Context, id string) (core.Endpoint, error) {
	if s == nil || s.db == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	record := &webhookEndpointRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint %q: %w", id, core.ErrEndpointNotFound)
		}
		return core.Endpoint{}, err
	}
	return endpointToDomain(record), nil
}

// FindActiveForEvent resolves fan-out targets in two explicit steps: active
// endpoints for the owner first, then their enabled subscriptions for the
// event type. Two queries keep the contract portable across engines that
// cannot join efficiently.
func (s *EndpointStore) FindActiveForEvent(ctx context.Context, ownerID string, eventType string) ([]core.Endpoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	eventType = strings.TrimSpace(eventType)
	if ownerID == "" || eventType == "" {
		return nil, fmt.Errorf("sqlstore: owner id and event type are required")
	}

	var endpointRecords []*webhookEndpointRecord
	err := s.db.NewSelect().
		Model(&endpointRecords).
		Where("?TableAlias.owner_id = ?", ownerID).
		Where("?TableAlias.status = ?", core.EndpointStatusActive).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(endpointRecords) == 0 {
		return []core.Endpoint{}, nil
	}

	endpointIDs := make([]string, 0, len(endpointRecords))
	for _, record := range endpointRecords {
		endpointIDs = append(endpointIDs, record.ID)
	}

	var subscriptionRecords []*webhookSubscriptionRecord
	err = s.db.NewSelect().
		Model(&subscriptionRecords).
		Where("?TableAlias.endpoint_id IN (?)", bun.In(endpointIDs)).
		Where("?TableAlias.event_type = ?", eventType).
		Where("?TableAlias.enabled = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	subscribed := make(map[string]bool, len(subscriptionRecords))
	for _, record := range subscriptionRecords {
		subscribed[record.EndpointID] = true
	}

	matched := make([]core.Endpoint, 0, len(endpointRecords))
	for _, record := range endpointRecords {
		if subscribed[record.ID] {
			matched = append(matched, endpointToDomain(record))
		}
	}
	return matched, nil
}

func (s *EndpointStore) UpdateStatus(ctx context.Context, id string, status string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*webhookEndpointRecord)(nil)).
		Set("status = ?", strings.TrimSpace(status)).
		Set("status_reason = ?", strings.TrimSpace(reason)).
		Set("updated_at = ?", now).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("sqlstore: endpoint %q: %w", id, core.ErrEndpointNotFound)
	}
	return nil
}

func (s *EndpointStore) UpdateLastTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*webhookEndpointRecord)(nil)).
		Set("last_triggered_at = ?", triggeredAt.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func endpointToRecord(endpoint core.Endpoint) *webhookEndpointRecord {
	status := strings.TrimSpace(endpoint.Status)
	if status == "" {
		status = core.EndpointStatusActive
	}
	environment := strings.TrimSpace(endpoint.Environment)
	if environment == "" {
		environment = core.EnvironmentProduction
	}
	record := &webhookEndpointRecord{
		ID:          strings.TrimSpace(endpoint.ID),
		OwnerID:     strings.TrimSpace(endpoint.OwnerID),
		URL:         strings.TrimSpace(endpoint.URL),
		Secret:      endpoint.Secret,
		Status:      status,
		Environment: environment,
		CreatedAt:   endpoint.CreatedAt.UTC(),
		UpdatedAt:   endpoint.UpdatedAt.UTC(),
	}
	if endpoint.LastTriggeredAt != nil {
		value := endpoint.LastTriggeredAt.UTC()
		record.LastTriggeredAt = &value
	}
	return record
}

func endpointToDomain(record *webhookEndpointRecord) core.Endpoint {
	if record == nil {
		return core.Endpoint{}
	}
	result := core.Endpoint{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		URL:         record.URL,
		Secret:      record.Secret,
		Status:      record.Status,
		Environment: record.Environment,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if record.LastTriggeredAt != nil {
		value := *record.LastTriggeredAt
		result.LastTriggeredAt = &value
	}
	return result
}

var _ core.EndpointStore = (*EndpointStore)(nil)
