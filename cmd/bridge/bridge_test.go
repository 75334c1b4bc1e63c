package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tv-bridge/config"
	"tv-bridge/internal/application"
	"tv-bridge/internal/domain"
	"tv-bridge/internal/infra/hue"
	"tv-bridge/internal/infra/irlog"
)

type bridge struct {
	server     *hue.Server
	tx         *irlog.Transmitter
	dispatcher *application.Dispatcher
	sleeps     []time.Duration
}

func newBridge(t *testing.T) *bridge {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	names := domain.DefaultDeviceNames()

	b := &bridge{
		server: hue.NewServer(hue.Config{Serial: "001788a1b2c3", PollInterval: 5 * time.Millisecond}, names, logger),
		tx:     irlog.NewTransmitter(logger),
	}
	b.dispatcher = application.NewDispatcher(b.server, b.tx, nil, &application.Register{},
		names, domain.DefaultCodes(), 150*time.Millisecond, logger)
	b.dispatcher.SetSleepFunc(func(d time.Duration) { b.sleeps = append(b.sleeps, d) })

	if err := b.dispatcher.Setup(context.Background()); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	return b
}

func (b *bridge) put(t *testing.T, id, body string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/tvbridge/lights/"+id+"/state", strings.NewReader(body))
	rec := httptest.NewRecorder()
	b.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT light %s: status %d (%s)", id, rec.Code, rec.Body.String())
	}
}

func (b *bridge) step(t *testing.T) {
	t.Helper()
	if err := b.dispatcher.Step(context.Background()); err != nil {
		t.Fatalf("Step error: %v", err)
	}
}

func TestBridge_VolumeUpLargeThroughHueAPI(t *testing.T) {
	b := newBridge(t)

	b.put(t, "3", `{"on":true,"bri":255}`)
	b.step(t)

	sent := b.tx.Sent()
	if len(sent) != 13 {
		t.Fatalf("transmissions: got %d, want 13", len(sent))
	}
	for i, code := range sent {
		if code.Value != 0x0810 {
			t.Errorf("transmission %d: got 0x%04X, want 0x0810", i, code.Value)
		}
	}
	if len(b.sleeps) != 13 {
		t.Errorf("waits: got %d, want 13", len(b.sleeps))
	}

	state, _ := b.server.State("Sonido")
	if !state.On || state.Value != domain.NeutralValue {
		t.Errorf("Sonido after dispatch: got %+v, want on at 127", state)
	}
}

func TestBridge_SourceNextThroughHueAPI(t *testing.T) {
	b := newBridge(t)

	b.put(t, "2", `{"bri":200}`)
	b.step(t)

	want := []uint16{0x0838, 0x1810, 0x1817}
	sent := b.tx.Sent()
	if len(sent) != len(want) {
		t.Fatalf("transmissions: got %v, want %d codes", sent, len(want))
	}
	for i, v := range want {
		if sent[i].Value != v {
			t.Errorf("transmission %d: got 0x%04X, want 0x%04X", i, sent[i].Value, v)
		}
	}
}

func TestBridge_BurstKeepsLastCommand(t *testing.T) {
	b := newBridge(t)

	b.put(t, "3", `{"on":true,"bri":255}`)
	b.put(t, "1", `{"on":true}`)
	b.step(t)

	sent := b.tx.Sent()
	if len(sent) != 1 || sent[0].Function != domain.FunctionPower {
		t.Errorf("transmissions: got %v, want a single power toggle", sent)
	}
}

func TestBridge_TVStartsOff(t *testing.T) {
	b := newBridge(t)

	state, ok := b.server.State("Tele")
	if !ok || state.On {
		t.Errorf("Tele at start: got %+v, want off", state)
	}
	for _, name := range []string{"Fuente", "Sonido"} {
		state, _ := b.server.State(name)
		if !state.On || state.Value != domain.NeutralValue {
			t.Errorf("%s at start: got %+v, want on at 127", name, state)
		}
	}
}

func TestDescriptionURL(t *testing.T) {
	url, err := descriptionURL(config.HueConfig{Addr: ":80", AdvertiseIP: "192.168.1.20"})
	if err != nil {
		t.Fatalf("descriptionURL error: %v", err)
	}
	if url != "http://192.168.1.20:80/description.xml" {
		t.Errorf("url: got %q", url)
	}

	if _, err := descriptionURL(config.HueConfig{Addr: "80"}); err == nil {
		t.Error("expected error for address without port separator")
	}
}

func TestParseDuration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if d := parseDuration("200ms", time.Second, "k", logger); d != 200*time.Millisecond {
		t.Errorf("valid duration: got %s", d)
	}
	if d := parseDuration("soon", time.Second, "k", logger); d != time.Second {
		t.Errorf("invalid duration: got %s, want fallback", d)
	}
}
