package clock

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Clock is the server's monotonic time source.
type Clock interface {
	// NowMS returns milliseconds elapsed since the clock started.
	NowMS() uint64
	// Sleep blocks for ms milliseconds or until ctx is done.
	Sleep(ctx context.Context, ms uint64) error
}

// Monotonic is a Clock backed by the runtime's monotonic clock reading.
type Monotonic struct {
	start time.Time
}

var _ Clock = (*Monotonic)(nil)

// New returns a Monotonic clock starting at zero now.
func New() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// NowMS returns milliseconds since New was called.
func (c *Monotonic) NowMS() uint64 {
	return uint64(time.Since(c.start) / time.Millisecond)
}

// Sleep blocks for ms milliseconds. A zero duration yields the processor.
func (c *Monotonic) Sleep(ctx context.Context, ms uint64) error {
	if ms == 0 {
		runtime.Gosched()
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Manual is a Clock that only moves when told to. Sleep advances it
// instead of blocking, which keeps poll loops deterministic in tests.
type Manual struct {
	ms atomic.Uint64
}

var _ Clock = (*Manual)(nil)

// NowMS returns the current manual reading.
func (m *Manual) NowMS() uint64 {
	return m.ms.Load()
}

// Advance moves the clock forward by ms.
func (m *Manual) Advance(ms uint64) {
	m.ms.Add(ms)
}

// Sleep advances the clock by ms and returns immediately.
func (m *Manual) Sleep(ctx context.Context, ms uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ms.Add(ms)
	return nil
}
