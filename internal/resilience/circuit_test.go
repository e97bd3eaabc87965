package resilience

import (
	"errors"
	"testing"
	"time"
)

func tripErr() error {
	return NewTransientError(errors.New("service unavailable"), 503)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute, nil)
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d unexpectedly rejected: %v", i, err)
		}
		b.Record(tripErr())
	}
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !b.Open() {
		t.Error("expected breaker to report open")
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute, nil)
	b.Record(tripErr())
	b.Record(tripErr())
	b.Record(nil)
	b.Record(tripErr())
	if err := b.Allow(); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestBreaker_NonTrippingErrorsIgnored(t *testing.T) {
	b := NewBreaker(2, time.Minute, nil)
	for i := 0; i < 5; i++ {
		b.Record(errors.New("validation failed"))
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(2, time.Minute, nil)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Record(tripErr())
	b.Record(tripErr())
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected open, got %v", err)
	}

	// After the cooldown one probe is allowed; a failure reopens.
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe allowed, got %v", err)
	}
	b.Record(tripErr())
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected reopened breaker, got %v", err)
	}

	// A successful probe closes it.
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe allowed, got %v", err)
	}
	b.Record(nil)
	if b.Open() {
		t.Error("expected breaker closed after successful probe")
	}
}
