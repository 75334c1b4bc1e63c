package application_test

import (
	"testing"

	"tv-bridge/internal/application"
	"tv-bridge/internal/domain"
)

func TestRegister_DefaultsToNone(t *testing.T) {
	var r application.Register

	if got := r.Drain(); got != domain.CommandNone {
		t.Errorf("empty register: got %s, want no-command", got)
	}
}

func TestRegister_LastWriteWins(t *testing.T) {
	var r application.Register

	r.Submit(domain.CommandVolumeUp)
	r.Submit(domain.CommandMute)

	if got := r.Drain(); got != domain.CommandMute {
		t.Errorf("first drain: got %s, want mute", got)
	}
	if got := r.Drain(); got != domain.CommandNone {
		t.Errorf("second drain: got %s, want no-command", got)
	}
}

func TestRegister_NoneOverwritesPending(t *testing.T) {
	var r application.Register

	r.Submit(domain.CommandSourceNext)
	r.Submit(domain.CommandNone)

	if got := r.Drain(); got != domain.CommandNone {
		t.Errorf("drain: got %s, want no-command", got)
	}
}
