package domain_test

import (
	"testing"

	"tv-bridge/internal/domain"
)

func TestDefaultCodes(t *testing.T) {
	codes := domain.DefaultCodes()

	want := map[domain.Function]uint16{
		domain.FunctionPower:         0x080C,
		domain.FunctionDirectionUp:   0x1810,
		domain.FunctionDirectionDown: 0x1811,
		domain.FunctionEnter:         0x1817,
		domain.FunctionVolumeUp:      0x0810,
		domain.FunctionVolumeDown:    0x0811,
		domain.FunctionMute:          0x080D,
		domain.FunctionSource:        0x0838,
	}
	for fn, v := range want {
		if codes[fn] != v {
			t.Errorf("%s: got 0x%04X, want 0x%04X", fn, codes[fn], v)
		}
	}

	if err := codes.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestCodeTable_ValidateMissing(t *testing.T) {
	codes := domain.DefaultCodes()
	delete(codes, domain.FunctionEnter)

	if err := codes.Validate(); err == nil {
		t.Error("expected error for missing enter code")
	}
}

func TestIRCode_String(t *testing.T) {
	code := domain.DefaultCodes().Code(domain.FunctionPower)
	if got := code.String(); got != "power(0x080C)" {
		t.Errorf("got %q, want power(0x080C)", got)
	}
}

func TestIsFunction(t *testing.T) {
	if !domain.IsFunction("volume_up") {
		t.Error("volume_up should be a function")
	}
	if domain.IsFunction("rewind") {
		t.Error("rewind should not be a function")
	}
}

func TestCommand_RoleAndReset(t *testing.T) {
	tests := []struct {
		cmd    domain.Command
		role   domain.Role
		resets bool
	}{
		{domain.CommandNone, "", false},
		{domain.CommandPowerToggle, domain.RoleTV, false},
		{domain.CommandMute, domain.RoleSound, false},
		{domain.CommandVolumeUp, domain.RoleSound, true},
		{domain.CommandVolumeDownLarge, domain.RoleSound, true},
		{domain.CommandSourceNext, domain.RoleSource, true},
		{domain.CommandSourcePrevious, domain.RoleSource, true},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			if got := tt.cmd.Role(); got != tt.role {
				t.Errorf("Role: got %q, want %q", got, tt.role)
			}
			if got := tt.cmd.ResetsSlider(); got != tt.resets {
				t.Errorf("ResetsSlider: got %v, want %v", got, tt.resets)
			}
		})
	}
}

func TestDeviceNames(t *testing.T) {
	names := domain.DefaultDeviceNames()

	if role, ok := names.Role("Sonido"); !ok || role != domain.RoleSound {
		t.Errorf("Role(Sonido): got %q, %v", role, ok)
	}
	if _, ok := names.Role("sonido"); ok {
		t.Error("Role should match exactly")
	}
	if name, ok := names.Lookup("FUENTE"); !ok || name != "Fuente" {
		t.Errorf("Lookup(FUENTE): got %q, %v", name, ok)
	}
	if got := names.Name(domain.RoleTV); got != "Tele" {
		t.Errorf("Name(tv): got %q", got)
	}
}
