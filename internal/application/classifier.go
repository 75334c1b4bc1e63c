package application

import "tv-bridge/internal/domain"

const (
	largeStepAbove uint8 = 250
	largeStepBelow uint8 = 5
)

// Classifier turns a virtual device state change into a symbolic command.
// It has no side effects.
type Classifier struct {
	names domain.DeviceNames
}

func NewClassifier(names domain.DeviceNames) *Classifier {
	return &Classifier{names: names}
}

func (c *Classifier) Classify(device string, on bool, value uint8) domain.Command {
	role, ok := c.names.Role(device)
	if !ok {
		return domain.CommandNone
	}
	return ClassifyRole(role, on, value)
}

// ClassifyRole applies the intensity bands for a known device role. A value of
// domain.NeutralValue never moves volume or source.
func ClassifyRole(role domain.Role, on bool, value uint8) domain.Command {
	switch role {
	case domain.RoleSound:
		switch {
		case !on:
			return domain.CommandMute
		case value > largeStepAbove:
			return domain.CommandVolumeUpLarge
		case value > domain.NeutralValue:
			return domain.CommandVolumeUp
		case value < largeStepBelow:
			return domain.CommandVolumeDownLarge
		case value < domain.NeutralValue:
			return domain.CommandVolumeDown
		default:
			return domain.CommandNone
		}

	case domain.RoleSource:
		switch {
		case value > domain.NeutralValue:
			return domain.CommandSourceNext
		case value < domain.NeutralValue:
			return domain.CommandSourcePrevious
		default:
			return domain.CommandNone
		}

	case domain.RoleTV:
		// The set has no observable power state, so every request toggles.
		return domain.CommandPowerToggle

	default:
		return domain.CommandNone
	}
}
