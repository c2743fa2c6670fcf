package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type EventStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEventRecord]
}

func NewEventStore(db *bun.DB) (*EventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, eventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid event repository wiring: %w", err)
		}
	}
	return &EventStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EventStore) Insert(ctx context.Context, event core.Event) (core.Event, error) {
	if s == nil || s.db == nil {
		return core.Event{}, fmt.Errorf("sqlstore: event store is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		return core.Event{}, fmt.Errorf("sqlstore: event id is required")
	}

	record := eventToRecord(event)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Event{}, err
	}
	return eventToDomain(record), nil
}

func (s *EventStore) Get(ctx context.Context, id string) (core.Event, error) {
	if s == nil || s.db == nil {
		return core.Event{}, fmt.Errorf("sqlstore: event store is not configured")
	}
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Event{}, fmt.Errorf("sqlstore: event %q not found", id)
		}
		return core.Event{}, err
	}
	return eventToDomain(record), nil
}

func eventToRecord(event core.Event) *webhookEventRecord {
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	return &webhookEventRecord{
		ID:           strings.TrimSpace(event.ID),
		Type:         strings.TrimSpace(event.Type),
		ResourceID:   strings.TrimSpace(event.ResourceID),
		ResourceType: strings.TrimSpace(event.ResourceType),
		OwnerID:      strings.TrimSpace(event.OwnerID),
		Data:         data,
		CreatedAt:    event.CreatedAt.UTC(),
	}
}

func eventToDomain(record *webhookEventRecord) core.Event {
	if record == nil {
		return core.Event{}
	}
	return core.Event{
		ID:           record.ID,
		Type:         record.Type,
		ResourceID:   record.ResourceID,
		ResourceType: record.ResourceType,
		OwnerID:      record.OwnerID,
		Data:         record.Data,
		CreatedAt:    record.CreatedAt,
	}
}

var _ core.EventStore = (*EventStore)(nil)
