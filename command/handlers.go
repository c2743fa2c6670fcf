package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

type MutatingService interface {
	Emit(ctx context.Context, in core.EmitInput) (core.EmitResult, error)
	ProcessRetryBatch(ctx context.Context, limit int) (core.RetryStats, error)
	UpdateEndpointStatus(ctx context.Context, endpointID string, status string, reason string) error
	Subscribe(ctx context.Context, in core.UpsertSubscriptionInput) (core.Subscription, error)
}

type EmitEventCommand struct {
	service MutatingService
}

func NewEmitEventCommand(service MutatingService) *EmitEventCommand {
	return &EmitEventCommand{service: service}
}

func (c *EmitEventCommand) Execute(ctx context.Context, msg EmitEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: emit service is required")
	}
	out, err := c.service.Emit(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessRetryBatchCommand struct {
	service MutatingService
}

func NewProcessRetryBatchCommand(service MutatingService) *ProcessRetryBatchCommand {
	return &ProcessRetryBatchCommand{service: service}
}

func (c *ProcessRetryBatchCommand) Execute(ctx context.Context, msg ProcessRetryBatchMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: retry service is required")
	}
	out, err := c.service.ProcessRetryBatch(ctx, msg.Limit)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateEndpointStatusCommand struct {
	service MutatingService
}

func NewUpdateEndpointStatusCommand(service MutatingService) *UpdateEndpointStatusCommand {
	return &UpdateEndpointStatusCommand{service: service}
}

func (c *UpdateEndpointStatusCommand) Execute(ctx context.Context, msg UpdateEndpointStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: endpoint service is required")
	}
	return c.service.UpdateEndpointStatus(ctx, msg.EndpointID, msg.Status, msg.Reason)
}

type SubscribeCommand struct {
	service MutatingService
}

func NewSubscribeCommand(service MutatingService) *SubscribeCommand {
	return &SubscribeCommand{service: service}
}

func (c *SubscribeCommand) Execute(ctx context.Context, msg SubscribeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.Subscribe(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
