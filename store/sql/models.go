package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID           string         `bun:"id,pk"`
	Type         string         `bun:"type,notnull"`
	ResourceID   string         `bun:"resource_id,notnull"`
	ResourceType string         `bun:"resource_type,notnull"`
	OwnerID      string         `bun:"owner_id,notnull"`
	Data         map[string]any `bun:"data,type:jsonb,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEndpointRecord struct {
	bun.BaseModel `bun:"table:webhook_endpoints,alias:wep"`

	ID              string     `bun:"id,pk"`
	OwnerID         string     `bun:"owner_id,notnull"`
	URL             string     `bun:"url,notnull"`
	Secret          string     `bun:"secret,notnull"`
	Status          string     `bun:"status,notnull"`
	Environment     string     `bun:"environment,notnull"`
	StatusReason    string     `bun:"status_reason"`
	LastTriggeredAt *time.Time `bun:"last_triggered_at,nullzero"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookSubscriptionRecord struct {
	bun.BaseModel `bun:"table:webhook_subscriptions,alias:ws"`

	ID         string    `bun:"id,pk"`
	EndpointID string    `bun:"endpoint_id,notnull"`
	EventType  string    `bun:"event_type,notnull"`
	Enabled    bool      `bun:"enabled,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:wd"`

	ID             string     `bun:"id,pk"`
	EndpointID     string     `bun:"endpoint_id,notnull"`
	EventID        string     `bun:"event_id,notnull"`
	EventType      string     `bun:"event_type,notnull"`
	Payload        []byte     `bun:"payload,notnull"`
	AttemptNumber  int        `bun:"attempt_number,notnull"`
	Status         string     `bun:"status,notnull"`
	HTTPStatus     *int       `bun:"http_status"`
	ResponseBody   string     `bun:"response_body"`
	ResponseTimeMs *int64     `bun:"response_time_ms"`
	ErrorMessage   string     `bun:"error_message"`
	DeliveredAt    *time.Time `bun:"delivered_at,nullzero"`
	NextRetryAt    *time.Time `bun:"next_retry_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
