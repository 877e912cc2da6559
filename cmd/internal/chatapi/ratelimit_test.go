package chatapi

import (
	"fmt"
	"testing"
	"time"
)

func TestKeyedLimiterBurstThenRefill(t *testing.T) {
	l := NewKeyedLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("a", now) {
			t.Fatalf("event %d within burst denied", i+1)
		}
	}
	if l.Allow("a", now) {
		t.Fatal("event past the burst allowed")
	}

	// One window restores the full burst.
	later := now.Add(time.Minute)
	if !l.Allow("a", later) {
		t.Error("event after refill denied")
	}
}

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	l := NewKeyedLimiter(1, time.Minute)
	now := time.Now()

	if !l.Allow("a", now) {
		t.Fatal("first event for a denied")
	}
	if l.Allow("a", now) {
		t.Fatal("second event for a allowed")
	}
	if !l.Allow("b", now) {
		t.Error("a's exhaustion leaked into b")
	}
}

func TestKeyedLimiterSweepsIdleKeys(t *testing.T) {
	l := NewKeyedLimiter(1, time.Minute)
	now := time.Now()

	for i := 0; i < gcThreshold+1; i++ {
		l.Allow(fmt.Sprintf("k%d", i), now)
	}
	if len(l.m) <= gcThreshold {
		t.Fatalf("precondition: map size = %d, want > %d", len(l.m), gcThreshold)
	}

	// Every key is now idle for a full window; the next Allow sweeps them.
	l.Allow("fresh", now.Add(2*time.Minute))
	if len(l.m) != 1 {
		t.Errorf("map size after sweep = %d, want 1", len(l.m))
	}
}

func TestKeyedLimiterDefaults(t *testing.T) {
	l := NewKeyedLimiter(0, 0)
	now := time.Now()
	for i := 0; i < 10; i++ {
		if !l.Allow("a", now) {
			t.Fatalf("default burst event %d denied", i+1)
		}
	}
	if l.Allow("a", now) {
		t.Error("default limiter allowed an 11th immediate event")
	}
}
