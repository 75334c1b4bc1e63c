package domain

import "strings"

type Role string

const (
	RoleTV     Role = "tv"
	RoleSource Role = "source"
	RoleSound  Role = "sound"
)

// NeutralValue is the slider midpoint. It means "no intensity change requested".
const NeutralValue uint8 = 127

// DeviceNames holds the names the virtual devices are announced with.
type DeviceNames struct {
	TV     string
	Source string
	Sound  string
}

func DefaultDeviceNames() DeviceNames {
	return DeviceNames{
		TV:     "Tele",
		Source: "Fuente",
		Sound:  "Sonido",
	}
}

func (n DeviceNames) Name(role Role) string {
	switch role {
	case RoleTV:
		return n.TV
	case RoleSource:
		return n.Source
	case RoleSound:
		return n.Sound
	default:
		return ""
	}
}

// Role resolves a device name back to its role. Names are matched exactly.
func (n DeviceNames) Role(name string) (Role, bool) {
	switch name {
	case "":
		return "", false
	case n.TV:
		return RoleTV, true
	case n.Source:
		return RoleSource, true
	case n.Sound:
		return RoleSound, true
	default:
		return "", false
	}
}

// Lookup resolves a name case-insensitively, for front ends that do not carry
// the exact display name (MQTT topics).
func (n DeviceNames) Lookup(name string) (string, bool) {
	for _, candidate := range n.All() {
		if strings.EqualFold(candidate, name) {
			return candidate, true
		}
	}
	return "", false
}

// All returns the names in registration order.
func (n DeviceNames) All() []string {
	return []string{n.TV, n.Source, n.Sound}
}

// StateChange is a request to change a virtual device's state.
type StateChange struct {
	Device string
	On     bool
	Value  uint8
}

// DeviceState is the state displayed for a virtual device.
type DeviceState struct {
	Name  string
	On    bool
	Value uint8
}
