package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeEmitEvent            = "webhooks.command.event.emit"
	TypeProcessRetryBatch    = "webhooks.command.retry.dispatch"
	TypeUpdateEndpointStatus = "webhooks.command.endpoint.update_status"
	TypeSubscribe            = "webhooks.command.subscription.upsert"
)

type EmitEventMessage struct {
	Input core.EmitInput
}

func (EmitEventMessage) Type() string { return TypeEmitEvent }

func (m EmitEventMessage) Validate() error {
	if strings.TrimSpace(m.Input.EventType) == "" {
		return commandInvalidInputError("command: event type is required")
	}
	if strings.TrimSpace(m.Input.OwnerID) == "" {
		return commandInvalidInputError("command: owner id is required")
	}
	if strings.TrimSpace(m.Input.ResourceID) == "" {
		return commandInvalidInputError("command: resource id is required")
	}
	if strings.TrimSpace(m.Input.ResourceType) == "" {
		return commandInvalidInputError("command: resource type is required")
	}
	return nil
}

type ProcessRetryBatchMessage struct {
	Limit int
}

func (ProcessRetryBatchMessage) Type() string { return TypeProcessRetryBatch }

func (m ProcessRetryBatchMessage) Validate() error {
	if m.Limit < 0 {
		return commandInvalidInputError("command: retry batch limit must not be negative")
	}
	return nil
}

type UpdateEndpointStatusMessage struct {
	EndpointID string
	Status     string
	Reason     string
}

func (UpdateEndpointStatusMessage) Type() string { return TypeUpdateEndpointStatus }

func (m UpdateEndpointStatusMessage) Validate() error {
	if strings.TrimSpace(m.EndpointID) == "" {
		return commandInvalidInputError("command: endpoint id is required")
	}
	switch strings.TrimSpace(m.Status) {
	case core.EndpointStatusActive, core.EndpointStatusDisabled, core.EndpointStatusFailed:
		return nil
	}
	return commandInvalidInputError(fmt.Sprintf("command: endpoint status %q is invalid", m.Status))
}

type SubscribeMessage struct {
	Input core.UpsertSubscriptionInput
}

func (SubscribeMessage) Type() string { return TypeSubscribe }

func (m SubscribeMessage) Validate() error {
	if strings.TrimSpace(m.Input.EndpointID) == "" {
		return commandInvalidInputError("command: endpoint id is required")
	}
	if strings.TrimSpace(m.Input.EventType) == "" {
		return commandInvalidInputError("command: event type is required")
	}
	return nil
}
