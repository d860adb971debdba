package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMonotonic_NowIsNonDecreasing(t *testing.T) {
	c := New()
	prev := c.NowMS()
	for i := 0; i < 1000; i++ {
		now := c.NowMS()
		if now < prev {
			t.Fatalf("NowMS went backwards: %d -> %d", prev, now)
		}
		prev = now
	}
}

func TestMonotonic_SleepWaits(t *testing.T) {
	c := New()
	start := time.Now()
	if err := c.Sleep(context.Background(), 15); err != nil {
		t.Fatalf("Sleep() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("Sleep(15) returned after %s", elapsed)
	}
}

func TestMonotonic_SleepHonorsContext(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Sleep(ctx, 10_000)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want context.Canceled", err)
	}
}

func TestMonotonic_ZeroSleepYields(t *testing.T) {
	c := New()
	if err := c.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0) error: %v", err)
	}
}

func TestManual_SleepAdvances(t *testing.T) {
	var m Manual
	if m.NowMS() != 0 {
		t.Fatalf("fresh Manual = %d, want 0", m.NowMS())
	}
	_ = m.Sleep(context.Background(), 16)
	m.Advance(4)
	if got := m.NowMS(); got != 20 {
		t.Fatalf("NowMS() = %d, want 20", got)
	}
}
