package application

import (
	"context"

	"tv-bridge/internal/domain"
)

// StateHandler receives state change requests. It runs on the goroutine that
// calls DeviceServer.Handle and must return quickly.
type StateHandler func(change domain.StateChange)

// DeviceServer exposes the virtual devices to the voice assistant.
type DeviceServer interface {
	// OnSetState registers the handler for incoming state changes.
	OnSetState(handler StateHandler)
	// Handle services pending requests, invoking the handler synchronously.
	Handle(ctx context.Context) error
	// SetState updates the state shown to the assistant.
	SetState(device string, on bool, value uint8) error
}

type Transmitter interface {
	Send(ctx context.Context, code domain.IRCode) error
}
