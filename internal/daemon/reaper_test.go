package daemon

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winsrv/internal/window"
)

type fakeTable struct {
	mu        sync.Mutex
	windows   []window.Window
	destroyed []window.ID
}

func (f *fakeTable) Windows() []window.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]window.Window(nil), f.windows...)
}

func (f *fakeTable) DestroyWindow(id window.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.windows {
		if w.ID == id {
			f.windows = append(f.windows[:i], f.windows[i+1:]...)
			f.destroyed = append(f.destroyed, id)
			return nil
		}
	}
	return window.ErrInvalidHandle
}

func TestReap_DestroysWindowsOfDeadProcesses(t *testing.T) {
	table := &fakeTable{windows: []window.Window{
		{ID: 1, PID: 100},
		{ID: 2, PID: 200},
		{ID: 3, PID: 100},
		{ID: 4},
	}}
	probes := make(map[int]int)
	r := NewReaper(ReaperConfig{Alive: func(pid int) bool {
		probes[pid]++
		return pid != 100
	}}, table)

	reaped := r.Reap()
	if len(reaped) != 2 || reaped[0] != 1 || reaped[1] != 3 {
		t.Fatalf("reaped = %v, want [1 3]", reaped)
	}
	if probes[100] != 1 {
		t.Fatalf("pid 100 probed %d times, want 1", probes[100])
	}
	if _, ok := probes[0]; ok {
		t.Fatalf("window without pid was probed")
	}
	if got := table.Windows(); len(got) != 2 {
		t.Fatalf("remaining windows = %v", got)
	}
}

func TestReap_RecoversFromPanic(t *testing.T) {
	table := &fakeTable{windows: []window.Window{{ID: 1, PID: 5}}}
	r := NewReaper(ReaperConfig{Alive: func(int) bool { panic("probe") }}, table)
	if got := r.Reap(); got != nil {
		t.Fatalf("reaped = %v", got)
	}
}

func TestProcessAlive(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Fatalf("own process reported dead")
	}
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatalf("non-positive pid reported alive")
	}
}

func TestSetInterval(t *testing.T) {
	r := NewReaper(ReaperConfig{}, &fakeTable{})
	if r.Interval() != 10*time.Second {
		t.Fatalf("default interval = %v", r.Interval())
	}
	r.SetInterval(time.Second)
	r.SetInterval(2 * time.Second)
	r.SetInterval(0)
	if r.Interval() != 2*time.Second {
		t.Fatalf("interval = %v", r.Interval())
	}
	if got := <-r.reset; got != 2*time.Second {
		t.Fatalf("pending reset = %v", got)
	}
}

func TestRun_ReapsOnTick(t *testing.T) {
	table := &fakeTable{windows: []window.Window{{ID: 7, PID: 42}}}
	r := NewReaper(ReaperConfig{Interval: 10 * time.Millisecond, Alive: func(int) bool { return false }}, table)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(table.Windows()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("window not reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
