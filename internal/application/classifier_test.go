package application_test

import (
	"testing"

	"tv-bridge/internal/application"
	"tv-bridge/internal/domain"
)

func TestClassifier_Boundaries(t *testing.T) {
	names := domain.DefaultDeviceNames()
	classifier := application.NewClassifier(names)

	tests := []struct {
		name   string
		device string
		on     bool
		value  uint8
		want   domain.Command
	}{
		{"sound neutral", names.Sound, true, 127, domain.CommandNone},
		{"sound just above neutral", names.Sound, true, 128, domain.CommandVolumeUp},
		{"sound top of small band", names.Sound, true, 250, domain.CommandVolumeUp},
		{"sound large up", names.Sound, true, 251, domain.CommandVolumeUpLarge},
		{"sound max", names.Sound, true, 255, domain.CommandVolumeUpLarge},
		{"sound just below neutral", names.Sound, true, 126, domain.CommandVolumeDown},
		{"sound bottom of small band", names.Sound, true, 5, domain.CommandVolumeDown},
		{"sound large down", names.Sound, true, 4, domain.CommandVolumeDownLarge},
		{"sound zero", names.Sound, true, 0, domain.CommandVolumeDownLarge},
		{"sound off", names.Sound, false, 200, domain.CommandMute},
		{"sound off at neutral", names.Sound, false, 127, domain.CommandMute},
		{"source next", names.Source, true, 200, domain.CommandSourceNext},
		{"source previous", names.Source, true, 50, domain.CommandSourcePrevious},
		{"source neutral", names.Source, true, 127, domain.CommandNone},
		{"source ignores state", names.Source, false, 128, domain.CommandSourceNext},
		{"tv on", names.TV, true, 255, domain.CommandPowerToggle},
		{"tv off", names.TV, false, 0, domain.CommandPowerToggle},
		{"tv neutral", names.TV, true, 127, domain.CommandPowerToggle},
		{"unknown device", "Cocina", true, 200, domain.CommandNone},
		{"empty device", "", true, 200, domain.CommandNone},
		{"case sensitive", "sonido", true, 200, domain.CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.device, tt.on, tt.value)
			if got != tt.want {
				t.Errorf("Classify(%q, %t, %d): got %s, want %s", tt.device, tt.on, tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifier_SoundRange(t *testing.T) {
	allowed := map[domain.Command]bool{
		domain.CommandMute:            true,
		domain.CommandVolumeUp:        true,
		domain.CommandVolumeUpLarge:   true,
		domain.CommandVolumeDown:      true,
		domain.CommandVolumeDownLarge: true,
		domain.CommandNone:            true,
	}

	for v := 0; v <= 255; v++ {
		for _, on := range []bool{true, false} {
			got := application.ClassifyRole(domain.RoleSound, on, uint8(v))
			if !allowed[got] {
				t.Fatalf("ClassifyRole(sound, %t, %d): unexpected %s", on, v, got)
			}
			if again := application.ClassifyRole(domain.RoleSound, on, uint8(v)); again != got {
				t.Fatalf("ClassifyRole(sound, %t, %d) not deterministic: %s then %s", on, v, got, again)
			}
			if on && v == 127 && got != domain.CommandNone {
				t.Fatalf("neutral value classified as %s", got)
			}
		}
	}
}

func TestClassifier_TVIgnoresInput(t *testing.T) {
	for v := 0; v <= 255; v++ {
		for _, on := range []bool{true, false} {
			if got := application.ClassifyRole(domain.RoleTV, on, uint8(v)); got != domain.CommandPowerToggle {
				t.Fatalf("ClassifyRole(tv, %t, %d): got %s, want power-toggle", on, v, got)
			}
		}
	}
}

func TestClassifier_CustomNames(t *testing.T) {
	classifier := application.NewClassifier(domain.DeviceNames{TV: "Television", Source: "Input", Sound: "Volume"})

	if got := classifier.Classify("Volume", true, 200); got != domain.CommandVolumeUp {
		t.Errorf("custom sound name: got %s, want volume-up", got)
	}
	if got := classifier.Classify("Sonido", true, 200); got != domain.CommandNone {
		t.Errorf("default name with custom config: got %s, want no-command", got)
	}
}
