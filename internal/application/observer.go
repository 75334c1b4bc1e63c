package application

import (
	"context"

	"tv-bridge/internal/domain"
)

// StateObserver is told about every dispatched command and the device state
// displayed afterwards.
type StateObserver interface {
	Observe(ctx context.Context, cmd domain.Command, state domain.DeviceState) error
}

type NoopObserver struct{}

func (n *NoopObserver) Observe(_ context.Context, _ domain.Command, _ domain.DeviceState) error {
	return nil
}
