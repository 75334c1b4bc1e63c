package application

import (
	"sync/atomic"

	"tv-bridge/internal/domain"
)

// Register is a single-slot pending command. Submit overwrites whatever has not
// been drained yet; the zero value holds domain.CommandNone.
type Register struct {
	cmd atomic.Int32
}

func (r *Register) Submit(cmd domain.Command) {
	r.cmd.Store(int32(cmd))
}

// Drain returns the held command and resets the slot to domain.CommandNone.
func (r *Register) Drain() domain.Command {
	return domain.Command(r.cmd.Swap(int32(domain.CommandNone)))
}
