// Package irlog provides a transmitter that only logs codes, for running the
// bridge without IR hardware.
package irlog

import (
	"context"
	"log/slog"
	"sync"

	"tv-bridge/internal/domain"
)

type Transmitter struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []domain.IRCode
}

func NewTransmitter(logger *slog.Logger) *Transmitter {
	return &Transmitter{logger: logger}
}

func (t *Transmitter) Send(ctx context.Context, code domain.IRCode) error {
	t.mu.Lock()
	t.sent = append(t.sent, code)
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "IR code (dry run)", "function", code.Function, "code", code.Value)
	return nil
}

// Sent returns a copy of every code sent so far.
func (t *Transmitter) Sent() []domain.IRCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]domain.IRCode, len(t.sent))
	copy(result, t.sent)
	return result
}
