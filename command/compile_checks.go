package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[EmitEventMessage]            = (*EmitEventCommand)(nil)
	_ gocmd.Commander[ProcessRetryBatchMessage]    = (*ProcessRetryBatchCommand)(nil)
	_ gocmd.Commander[UpdateEndpointStatusMessage] = (*UpdateEndpointStatusCommand)(nil)
	_ gocmd.Commander[SubscribeMessage]            = (*SubscribeCommand)(nil)
)
