package hue

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/amimof/huego"

	"tv-bridge/internal/domain"
)

const (
	lightType       = "Dimmable light"
	lightModelID    = "LWB010"
	lightVendor     = "Philips"
	lightSwVersion  = "1.46.13_r26312"
	minBri          = 1
	maxBri          = 254
	defaultLightBri = domain.NeutralValue
)

var ErrUnknownDevice = errors.New("unknown device")

// Registry holds the virtual lights and their displayed state, indexed by
// Hue light id and by name.
type Registry struct {
	mu     sync.RWMutex
	lights map[string]*entry
	byName map[string]*entry
}

type entry struct {
	id    string
	name  string
	on    bool
	value uint8
	light huego.Light
}

func NewRegistry(serial string, names []string) *Registry {
	r := &Registry{
		lights: make(map[string]*entry, len(names)),
		byName: make(map[string]*entry, len(names)),
	}

	for i, name := range names {
		id := strconv.Itoa(i + 1)
		e := &entry{
			id:    id,
			name:  name,
			value: defaultLightBri,
			light: huego.Light{
				Type:             lightType,
				Name:             name,
				ModelID:          lightModelID,
				ManufacturerName: lightVendor,
				UniqueID:         uniqueID(serial, i+1),
				SwVersion:        lightSwVersion,
			},
		}
		r.lights[id] = e
		r.byName[name] = e
	}

	return r
}

// Light returns the Hue representation of one light.
func (r *Registry) Light(id string) (huego.Light, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.lights[id]
	if !ok {
		return huego.Light{}, false
	}
	return e.render(), true
}

// Lights returns every light keyed by id.
func (r *Registry) Lights() map[string]huego.Light {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]huego.Light, len(r.lights))
	for id, e := range r.lights {
		result[id] = e.render()
	}
	return result
}

// IDs returns the light ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.lights))
	for id := range r.lights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

func (r *Registry) SetState(name string, on bool, value uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	e.on = on
	e.value = value
	return nil
}

// State returns the displayed state of a named device.
func (r *Registry) State(name string) (domain.DeviceState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return domain.DeviceState{}, false
	}
	return domain.DeviceState{Name: e.name, On: e.on, Value: e.value}, true
}

// apply merges a state request into a light and hands the resulting change
// to submit while the registry is locked. The light only takes the new state
// when submit succeeds. Fields absent from the request keep their value.
func (r *Registry) apply(id string, req stateRequest, submit func(domain.StateChange) error) (domain.StateChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lights[id]
	if !ok {
		return domain.StateChange{}, fmt.Errorf("%w: light %s", ErrUnknownDevice, id)
	}

	change := domain.StateChange{Device: e.name, On: e.on, Value: e.value}
	if req.On != nil {
		change.On = *req.On
	}
	if req.Bri != nil {
		change.Value = clampValue(*req.Bri)
	}

	return change, e.commit(change, submit)
}

// update is apply for a complete change addressed by device name.
func (r *Registry) update(change domain.StateChange, submit func(domain.StateChange) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byName[change.Device]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, change.Device)
	}
	return e.commit(change, submit)
}

func (e *entry) commit(change domain.StateChange, submit func(domain.StateChange) error) error {
	if err := submit(change); err != nil {
		return err
	}
	e.on = change.On
	e.value = change.Value
	return nil
}

func (e *entry) render() huego.Light {
	light := e.light
	light.State = &huego.State{
		On:        e.on,
		Bri:       clampBri(e.value),
		Alert:     "none",
		Reachable: true,
	}
	return light
}

func clampValue(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

func clampBri(v uint8) uint8 {
	switch {
	case v < minBri:
		return minBri
	case v > maxBri:
		return maxBri
	default:
		return v
	}
}

func uniqueID(serial string, n int) string {
	return fmt.Sprintf("%s:%02x-%02x", formatMAC(serial), n, 0x0b)
}

// formatMAC renders a 12 digit serial as colon separated octets.
func formatMAC(serial string) string {
	if len(serial) != 12 {
		return serial
	}
	out := make([]byte, 0, 17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, serial[i], serial[i+1])
	}
	return string(out)
}
