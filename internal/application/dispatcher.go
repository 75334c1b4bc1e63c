package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tv-bridge/internal/domain"
)

const (
	volumePresses      = 7
	volumePressesLarge = 13
)

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseDispatching
)

func (p Phase) String() string {
	if p == PhaseDispatching {
		return "dispatching"
	}
	return "idle"
}

type press struct {
	fn   domain.Function
	wait bool
}

// Dispatcher is the control loop: it polls the device server, drains the
// pending command and transmits the matching IR sequence.
type Dispatcher struct {
	server     DeviceServer
	tx         Transmitter
	observer   StateObserver
	register   *Register
	classifier *Classifier
	names      domain.DeviceNames
	codes      domain.CodeTable
	delay      time.Duration
	sleep      func(time.Duration)
	logger     *slog.Logger

	phase atomic.Int32
	last  map[domain.Role]domain.DeviceState
}

func NewDispatcher(
	server DeviceServer,
	tx Transmitter,
	observer StateObserver,
	register *Register,
	names domain.DeviceNames,
	codes domain.CodeTable,
	delay time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if observer == nil {
		observer = &NoopObserver{}
	}
	return &Dispatcher{
		server:     server,
		tx:         tx,
		observer:   observer,
		register:   register,
		classifier: NewClassifier(names),
		names:      names,
		codes:      codes,
		delay:      delay,
		sleep:      time.Sleep,
		logger:     logger,
		last:       make(map[domain.Role]domain.DeviceState),
	}
}

// SetSleepFunc replaces the function used to wait between presses.
func (d *Dispatcher) SetSleepFunc(fn func(time.Duration)) {
	d.sleep = fn
}

func (d *Dispatcher) Phase() Phase {
	return Phase(d.phase.Load())
}

// Setup registers the state handler and centres the SOUND and SOURCE sliders.
func (d *Dispatcher) Setup(ctx context.Context) error {
	d.server.OnSetState(d.handleStateChange)

	d.last[domain.RoleTV] = domain.DeviceState{Name: d.names.TV}
	for _, role := range []domain.Role{domain.RoleSound, domain.RoleSource} {
		state, err := d.centre(role)
		if err != nil {
			return fmt.Errorf("resetting %s: %w", role, err)
		}
		d.last[role] = state
	}

	for _, role := range []domain.Role{domain.RoleTV, domain.RoleSound, domain.RoleSource} {
		state := d.last[role]
		if err := d.observer.Observe(ctx, domain.CommandNone, state); err != nil {
			d.logger.Warn("observing initial state", "device", state.Name, "error", err)
		}
	}

	return nil
}

func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Setup(ctx); err != nil {
		return fmt.Errorf("setting up devices: %w", err)
	}

	d.logger.Info("dispatcher ready", "delay", d.delay)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := d.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.logger.Error("handling device server", "error", err)
			}
		}
	}
}

// Step runs one loop iteration: poll the server, then dispatch at most one
// pending command.
func (d *Dispatcher) Step(ctx context.Context) error {
	if err := d.server.Handle(ctx); err != nil {
		return err
	}

	cmd := d.register.Drain()
	if cmd == domain.CommandNone {
		return nil
	}

	d.dispatch(ctx, cmd)
	return nil
}

func (d *Dispatcher) handleStateChange(change domain.StateChange) {
	d.logger.Info("state change received",
		"device", change.Device,
		"state", change.On,
		"value", change.Value,
	)

	if role, ok := d.names.Role(change.Device); ok {
		d.last[role] = domain.DeviceState{Name: change.Device, On: change.On, Value: change.Value}
	}

	d.register.Submit(d.classifier.Classify(change.Device, change.On, change.Value))
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd domain.Command) {
	d.phase.Store(int32(PhaseDispatching))
	defer d.phase.Store(int32(PhaseIdle))

	d.logger.Info("dispatching command", "command", cmd)

	// A started sequence always runs to completion.
	sendCtx := context.WithoutCancel(ctx)

	for _, p := range sequence(cmd) {
		code := d.codes.Code(p.fn)
		if err := d.tx.Send(sendCtx, code); err != nil {
			d.logger.Warn("transmitting IR code", "code", code, "error", err)
		}
		if p.wait {
			d.sleep(d.delay)
		}
	}

	state := d.last[cmd.Role()]
	if cmd.ResetsSlider() {
		var err error
		state, err = d.centre(cmd.Role())
		if err != nil {
			d.logger.Warn("reporting device state", "command", cmd, "error", err)
		}
		d.last[cmd.Role()] = state
	}

	if err := d.observer.Observe(sendCtx, cmd, state); err != nil {
		d.logger.Warn("observing command", "command", cmd, "error", err)
	}
}

func (d *Dispatcher) centre(role domain.Role) (domain.DeviceState, error) {
	state := domain.DeviceState{Name: d.names.Name(role), On: true, Value: domain.NeutralValue}
	return state, d.server.SetState(state.Name, state.On, state.Value)
}

func sequence(cmd domain.Command) []press {
	switch cmd {
	case domain.CommandPowerToggle:
		return []press{{fn: domain.FunctionPower}}
	case domain.CommandVolumeUp:
		return repeat(domain.FunctionVolumeUp, volumePresses)
	case domain.CommandVolumeUpLarge:
		return repeat(domain.FunctionVolumeUp, volumePressesLarge)
	case domain.CommandVolumeDown:
		return repeat(domain.FunctionVolumeDown, volumePresses)
	case domain.CommandVolumeDownLarge:
		return repeat(domain.FunctionVolumeDown, volumePressesLarge)
	case domain.CommandMute:
		return []press{{fn: domain.FunctionMute}}
	case domain.CommandSourceNext:
		return []press{
			{fn: domain.FunctionSource, wait: true},
			{fn: domain.FunctionDirectionUp, wait: true},
			{fn: domain.FunctionEnter, wait: true},
		}
	case domain.CommandSourcePrevious:
		return []press{
			{fn: domain.FunctionSource, wait: true},
			{fn: domain.FunctionDirectionDown, wait: true},
			{fn: domain.FunctionEnter, wait: true},
		}
	default:
		return nil
	}
}

func repeat(fn domain.Function, n int) []press {
	presses := make([]press, n)
	for i := range presses {
		presses[i] = press{fn: fn, wait: true}
	}
	return presses
}
