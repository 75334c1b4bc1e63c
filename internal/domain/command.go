package domain

// Command is the symbolic result of classifying a state change request.
type Command int

const (
	CommandNone Command = iota
	CommandPowerToggle
	CommandVolumeUp
	CommandVolumeUpLarge
	CommandVolumeDown
	CommandVolumeDownLarge
	CommandMute
	CommandSourceNext
	CommandSourcePrevious
)

var commandNames = map[Command]string{
	CommandNone:            "no-command",
	CommandPowerToggle:     "power-toggle",
	CommandVolumeUp:        "volume-up",
	CommandVolumeUpLarge:   "volume-up-large",
	CommandVolumeDown:      "volume-down",
	CommandVolumeDownLarge: "volume-down-large",
	CommandMute:            "mute",
	CommandSourceNext:      "source-next",
	CommandSourcePrevious:  "source-previous",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Role reports which virtual device a command belongs to.
func (c Command) Role() Role {
	switch c {
	case CommandPowerToggle:
		return RoleTV
	case CommandVolumeUp, CommandVolumeUpLarge, CommandVolumeDown, CommandVolumeDownLarge, CommandMute:
		return RoleSound
	case CommandSourceNext, CommandSourcePrevious:
		return RoleSource
	default:
		return ""
	}
}

// ResetsSlider reports whether the device slider is re-centred after the
// command has been transmitted.
func (c Command) ResetsSlider() bool {
	switch c {
	case CommandVolumeUp, CommandVolumeUpLarge, CommandVolumeDown, CommandVolumeDownLarge,
		CommandSourceNext, CommandSourcePrevious:
		return true
	default:
		return false
	}
}
