package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tv-bridge/internal/domain"
)

const (
	stateOn  = "ON"
	stateOff = "OFF"

	publishTimeout = 2 * time.Second
)

// Injector accepts state changes from outside the Hue API and reports the
// current state of a device.
type Injector interface {
	Inject(change domain.StateChange) error
	State(device string) (domain.DeviceState, bool)
}

type statePayload struct {
	Command string `json:"command,omitempty"`
	State   string `json:"state"`
	Value   uint8  `json:"value"`
}

type setPayload struct {
	State string `json:"state"`
	Value *int   `json:"value"`
}

// Mirror publishes the state of every device after each dispatched command
// and turns messages on <prefix>/<device>/set into state changes.
type Mirror struct {
	bus      Bus
	prefix   string
	names    domain.DeviceNames
	injector Injector
	logger   *slog.Logger
}

func NewMirror(bus Bus, prefix string, names domain.DeviceNames, injector Injector, logger *slog.Logger) *Mirror {
	return &Mirror{
		bus:      bus,
		prefix:   strings.TrimSuffix(prefix, "/"),
		names:    names,
		injector: injector,
		logger:   logger,
	}
}

// Bind subscribes to the set topics. Call it before the bus is started.
func (m *Mirror) Bind() error {
	return m.bus.Subscribe(m.prefix+"/+/set", m.handleSet)
}

// StateTopic is the retained topic a device's state is published on.
func (m *Mirror) StateTopic(device string) string {
	return m.prefix + "/" + strings.ToLower(device) + "/state"
}

func (m *Mirror) Observe(ctx context.Context, cmd domain.Command, state domain.DeviceState) error {
	payload := statePayload{
		State: stateOff,
		Value: state.Value,
	}
	if state.On {
		payload.State = stateOn
	}
	if cmd != domain.CommandNone {
		payload.Command = cmd.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return m.bus.Publish(ctx, m.StateTopic(state.Name), data, true)
}

func (m *Mirror) handleSet(topic string, payload []byte) {
	change, err := m.parseSet(topic, payload)
	if err != nil {
		m.logger.Warn("ignoring mqtt set message", "topic", topic, "error", err)
		return
	}

	if err := m.injector.Inject(change); err != nil {
		m.logger.Warn("mqtt state change rejected", "device", change.Device, "error", err)
		return
	}
	m.logger.Debug("mqtt state change queued", "device", change.Device, "state", change.On, "value", change.Value)
}

func (m *Mirror) parseSet(topic string, payload []byte) (domain.StateChange, error) {
	rest := strings.TrimPrefix(topic, m.prefix+"/")
	segment := strings.TrimSuffix(rest, "/set")
	if segment == rest || strings.Contains(segment, "/") {
		return domain.StateChange{}, errors.New("not a set topic")
	}

	name, ok := m.names.Lookup(segment)
	if !ok {
		return domain.StateChange{}, fmt.Errorf("unknown device %q", segment)
	}

	var msg setPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.StateChange{}, fmt.Errorf("decoding payload: %w", err)
	}

	current, _ := m.injector.State(name)
	change := domain.StateChange{Device: name, On: current.On, Value: current.Value}

	switch strings.ToUpper(msg.State) {
	case stateOn:
		change.On = true
	case stateOff:
		change.On = false
	case "":
	default:
		return domain.StateChange{}, fmt.Errorf("invalid state %q", msg.State)
	}

	if msg.Value != nil {
		if *msg.Value < 0 || *msg.Value > 255 {
			return domain.StateChange{}, fmt.Errorf("value %d out of range", *msg.Value)
		}
		change.Value = uint8(*msg.Value)
	}

	return change, nil
}
