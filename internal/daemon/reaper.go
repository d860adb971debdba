package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/1broseidon/winsrv/internal/window"
)

// WindowTable is the part of the server the reaper inspects.
type WindowTable interface {
	Windows() []window.Window
	DestroyWindow(id window.ID) error
}

// AliveFunc reports whether a process still exists.
type AliveFunc func(pid int) bool

// ProcessAlive probes pid with signal 0. A process owned by another user
// answers EPERM and counts as alive.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ReaperConfig holds configuration for the reaper.
type ReaperConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
	// Alive defaults to ProcessAlive.
	Alive AliveFunc
}

// Reaper periodically destroys windows whose owning process has exited.
// Windows created without a pid are never reaped.
type Reaper struct {
	table  WindowTable
	alive  AliveFunc
	logger *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	reset    chan time.Duration
}

// NewReaper creates a reaper over table.
func NewReaper(cfg ReaperConfig, table WindowTable) *Reaper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	alive := cfg.Alive
	if alive == nil {
		alive = ProcessAlive
	}

	return &Reaper{
		table:    table,
		alive:    alive,
		logger:   logger,
		interval: interval,
		reset:    make(chan time.Duration, 1),
	}
}

// Interval returns the current pass interval.
func (r *Reaper) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetInterval changes the interval of a running loop.
func (r *Reaper) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()

	// Replace any reset the loop has not picked up yet.
	select {
	case <-r.reset:
	default:
	}
	select {
	case r.reset <- d:
	default:
	}
}

// Run starts the reap loop. Blocks until context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()

	r.logger.Info("reaper started", "interval", r.Interval())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case d := <-r.reset:
			ticker.Reset(d)
			r.logger.Info("reaper interval changed", "interval", d)
		case <-ticker.C:
			r.Reap()
		}
	}
}

// Reap performs a single pass and returns the destroyed window ids.
func (r *Reaper) Reap() []window.ID {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reaper panic recovered", "error", err)
		}
	}()

	dead := make(map[int]bool)
	var reaped []window.ID
	for _, w := range r.table.Windows() {
		if w.PID <= 0 {
			continue
		}
		isDead, seen := dead[w.PID]
		if !seen {
			isDead = !r.alive(w.PID)
			dead[w.PID] = isDead
		}
		if !isDead {
			continue
		}
		if err := r.table.DestroyWindow(w.ID); err != nil {
			if !errors.Is(err, window.ErrInvalidHandle) {
				r.logger.Warn("reaper: destroy failed", "window", w.ID, "pid", w.PID, "error", err)
			}
			continue
		}
		r.logger.Info("reaper: destroyed window of exited process", "window", w.ID, "pid", w.PID)
		reaped = append(reaped, w.ID)
	}
	return reaped
}
