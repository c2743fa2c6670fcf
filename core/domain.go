package core

import (
	"strings"
	"time"
)

const (
	EndpointStatusActive   = "active"
	EndpointStatusDisabled = "disabled"
	EndpointStatusFailed   = "failed"
)

const (
	EnvironmentProduction = "production"
	EnvironmentTest       = "test"
)

const (
	DeliveryStatusPending  = "pending"
	DeliveryStatusSuccess  = "success"
	DeliveryStatusFailed   = "failed"
	DeliveryStatusRetrying = "retrying"
)

// Event is an immutable record of something that happened. Events are
// appended once at emission time and never mutated or deleted.
type Event struct {
	ID           string
	Type         string
	ResourceID   string
	ResourceType string
	OwnerID      string
	Data         map[string]any
	CreatedAt    time.Time
}

// Endpoint is a tenant-registered HTTP target. Only active endpoints
// receive new deliveries.
type Endpoint struct {
	ID              string
	OwnerID         string
	URL             string
	Secret          string
	Status          string
	Environment     string
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e Endpoint) Active() bool {
	return strings.TrimSpace(e.Status) == EndpointStatusActive
}

// Subscription links an endpoint to one event type it wants to receive.
type Subscription struct {
	ID         string
	EndpointID string
	EventType  string
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Delivery is one endpoint's instance of receiving one event and the unit
// of retry. Payload holds the exact envelope bytes signed and transmitted;
// it is frozen at creation and never rebuilt between attempts.
type Delivery struct {
	ID             string
	EndpointID     string
	EventID        string
	EventType      string
	Payload        []byte
	AttemptNumber  int
	Status         string
	HTTPStatus     *int
	ResponseBody   string
	ResponseTimeMs *int64
	ErrorMessage   string
	DeliveredAt    *time.Time
	NextRetryAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d Delivery) Terminal() bool {
	switch d.Status {
	case DeliveryStatusSuccess, DeliveryStatusFailed:
		return true
	}
	return false
}

// EmitInput is the producer-facing request to record and dispatch an event.
type EmitInput struct {
	EventType    string
	ResourceID   string
	ResourceType string
	OwnerID      string
	Data         map[string]any
}

func (in EmitInput) Validate() error {
	if strings.TrimSpace(in.EventType) == "" {
		return newWebhookError("core: event type is required")
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return newWebhookError("core: owner id is required")
	}
	if strings.TrimSpace(in.ResourceID) == "" {
		return newWebhookError("core: resource id is required")
	}
	if strings.TrimSpace(in.ResourceType) == "" {
		return newWebhookError("core: resource type is required")
	}
	return nil
}

// AttemptOutcome captures the observable result of a single delivery
// attempt, whether or not a response was received.
type AttemptOutcome struct {
	HTTPStatus     int
	ResponseBody   string
	ResponseTimeMs int64
	Err            error
	CompletedAt    time.Time
}

func (o AttemptOutcome) Succeeded() bool {
	return o.Err == nil && o.HTTPStatus >= 200 && o.HTTPStatus < 300
}

// DispatchStats summarizes one fan-out pass for an emitted event.
type DispatchStats struct {
	Resolved  int
	Delivered int
	Retrying  int
	Failed    int
}

// RetryStats summarizes one retry scheduler batch.
type RetryStats struct {
	Claimed   int
	Delivered int
	Retrying  int
	Failed    int
	Skipped   int
}
