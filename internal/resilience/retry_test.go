package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// instantSleep is a Sleeper that records requested delays without waiting.
func instantSleep(delays *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), DefaultRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Errorf("expected 42, got %d", val)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterRetry(t *testing.T) {
	var calls int
	var delays []time.Duration
	cfg := DefaultRetryConfig()
	cfg.Sleep = instantSleep(&delays)

	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("temporary"), 503)
		}
		return "deck", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "deck" {
		t.Errorf("expected deck, got %q", val)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(delays))
	}
	// Exponential: 2s then 4s with the default policy and no jitter.
	if delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Errorf("unexpected backoff sequence: %v", delays)
	}
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	var delays []time.Duration
	cfg := DefaultRetryConfig()
	cfg.Sleep = instantSleep(&delays)

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = instantSleep(&[]time.Duration{})

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("malformed response")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-transient), got %d", calls)
	}
}

func TestDoVal_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := DefaultRetryConfig()
	cfg.Sleep = instantSleep(&[]time.Duration{})

	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestDoVal_OnRetryReportsRetryCount(t *testing.T) {
	var retries []int
	cfg := DefaultRetryConfig()
	cfg.Sleep = instantSleep(&[]time.Duration{})
	cfg.OnRetry = func(retry int, _ error) {
		retries = append(retries, retry)
	}

	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, NewTransientError(errors.New("flaky"), 503)
	})
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected retries [1 2], got %v", retries)
	}
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}
	if d := Backoff(10, cfg); d != 5*time.Second {
		t.Errorf("expected cap at 5s, got %v", d)
	}
}
