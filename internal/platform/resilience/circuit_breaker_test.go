package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 16, 12, 0, 0, 0, time.UTC))
	b := NewCircuitBreakerWithClock(2, 5*time.Second, 1, clock)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	clock.Advance(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.Record(false)
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewCircuitBreakerWithClock(1, time.Second, 1, clock)

	b.RecordFailure()
	clock.Advance(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe, got %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second probe to be rejected, got %v", err)
	}

	b.Record(true)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after failed probe, got %s", state)
	}
}

func TestCircuitBreaker_NilAndDisabled(t *testing.T) {
	var b *CircuitBreaker
	if err := b.Allow(); err != nil {
		t.Fatalf("nil breaker should allow, got %v", err)
	}
	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("nil breaker should report closed, got %s", state)
	}

	if got := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: false}, nil); got != nil {
		t.Fatalf("expected nil breaker when disabled")
	}
	if got := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: true}, nil); got == nil {
		t.Fatalf("expected breaker when enabled")
	}
}

func TestCircuitBreakerConfigWithDefaults(t *testing.T) {
	got := CircuitBreakerConfig{Enabled: true, FailureThreshold: 0, OpenTimeout: -time.Second}.withDefaults()
	if got.FailureThreshold != defaultFailureThreshold || got.OpenTimeout != defaultOpenTimeout || got.HalfOpenMaxReq != defaultHalfOpenMaxReq {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if !got.Enabled {
		t.Fatalf("expected enabled flag to be preserved")
	}

	kept := CircuitBreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute, HalfOpenMaxReq: 1}.withDefaults()
	if kept.FailureThreshold != 3 || kept.OpenTimeout != time.Minute || kept.HalfOpenMaxReq != 1 {
		t.Fatalf("explicit values were overwritten: %+v", kept)
	}
}
