package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tv-bridge/internal/infra"
)

func fastRetry(attempts int) infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	cfg := fastRetry(5)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := infra.WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry error: %v", err)
	}

	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("OnRetry attempts: got %v, want [1 2]", retried)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	calls := 0
	wantErr := errors.New("refused")

	err := infra.WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("error: got %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := infra.WithRetry(ctx, fastRetry(10), func() error {
		calls++
		cancel()
		return errors.New("refused")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestIndicator_Toggle(t *testing.T) {
	ind := infra.NewIndicator(false)

	if !ind.Toggle() {
		t.Error("first toggle: got low, want high")
	}
	if ind.Toggle() {
		t.Error("second toggle: got high, want low")
	}
}
