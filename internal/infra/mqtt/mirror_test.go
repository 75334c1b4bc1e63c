package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/neilotoole/slogt"

	"tv-bridge/internal/domain"
	"tv-bridge/internal/infra/mqtt"
)

type message struct {
	topic   string
	payload []byte
	retain  bool
}

type fakeBus struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.Handler
	published []message
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.Handler)}
}

func (b *fakeBus) Subscribe(filter string, handler mqtt.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[filter] = handler
	return nil
}

func (b *fakeBus) Start(context.Context) error { return nil }

func (b *fakeBus) Publish(_ context.Context, topic string, payload []byte, retain bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, message{topic, payload, retain})
	return nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) deliver(topic string, payload string) {
	b.mu.Lock()
	var matched []mqtt.Handler
	for _, h := range b.handlers {
		matched = append(matched, h)
	}
	b.mu.Unlock()

	for _, h := range matched {
		h(topic, []byte(payload))
	}
}

type fakeInjector struct {
	states   map[string]domain.DeviceState
	injected []domain.StateChange
	err      error
}

func (f *fakeInjector) Inject(change domain.StateChange) error {
	if f.err != nil {
		return f.err
	}
	f.injected = append(f.injected, change)
	return nil
}

func (f *fakeInjector) State(device string) (domain.DeviceState, bool) {
	s, ok := f.states[device]
	return s, ok
}

func newMirror(t *testing.T) (*mqtt.Mirror, *fakeBus, *fakeInjector) {
	t.Helper()

	bus := newFakeBus()
	injector := &fakeInjector{states: map[string]domain.DeviceState{
		"Sonido": {Name: "Sonido", On: true, Value: 127},
	}}
	m := mqtt.NewMirror(bus, "tv-bridge/", domain.DefaultDeviceNames(), injector, slogt.New(t))
	assert.NoError(t, m.Bind())

	return m, bus, injector
}

func TestMirror_ObservePublishesRetainedState(t *testing.T) {
	m, bus, _ := newMirror(t)

	err := m.Observe(context.Background(), domain.CommandVolumeUp, domain.DeviceState{Name: "Sonido", On: true, Value: 127})
	assert.NoError(t, err)

	assert.Equal(t, 1, len(bus.published))
	msg := bus.published[0]
	assert.Equal(t, "tv-bridge/sonido/state", msg.topic)
	assert.True(t, msg.retain)

	var got map[string]any
	assert.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, map[string]any{"command": "volume-up", "state": "ON", "value": float64(127)}, got)
}

func TestMirror_ObserveWithoutCommand(t *testing.T) {
	m, bus, _ := newMirror(t)

	err := m.Observe(context.Background(), domain.CommandNone, domain.DeviceState{Name: "Fuente", Value: 127})
	assert.NoError(t, err)

	assert.Equal(t, `{"state":"OFF","value":127}`, string(bus.published[0].payload))
}

func TestMirror_SetInjectsStateChange(t *testing.T) {
	_, bus, injector := newMirror(t)

	bus.deliver("tv-bridge/SONIDO/set", `{"state":"ON","value":200}`)

	assert.Equal(t, []domain.StateChange{{Device: "Sonido", On: true, Value: 200}}, injector.injected)
}

func TestMirror_SetKeepsCurrentValue(t *testing.T) {
	_, bus, injector := newMirror(t)

	bus.deliver("tv-bridge/sonido/set", `{"state":"off"}`)

	assert.Equal(t, []domain.StateChange{{Device: "Sonido", On: false, Value: 127}}, injector.injected)
}

func TestMirror_SetRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"unknown device", "tv-bridge/radio/set", `{"state":"ON"}`},
		{"invalid json", "tv-bridge/tele/set", `{"state":`},
		{"invalid state", "tv-bridge/tele/set", `{"state":"MAYBE"}`},
		{"value out of range", "tv-bridge/sonido/set", `{"value":300}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bus, injector := newMirror(t)

			bus.deliver(tt.topic, tt.payload)

			assert.Equal(t, 0, len(injector.injected))
		})
	}
}

func TestMirror_InjectErrorIsLogged(t *testing.T) {
	_, bus, injector := newMirror(t)
	injector.err = errors.New("queue full")

	bus.deliver("tv-bridge/tele/set", `{"state":"ON"}`)

	assert.Equal(t, 0, len(injector.injected))
}
