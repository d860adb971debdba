package events

import (
	"io"
	"log/slog"
	"sort"

	"github.com/1broseidon/winsrv/internal/window"
)

// Pointer is raw pointer state from an input driver, in screen
// coordinates.
type Pointer struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Buttons Button `json:"buttons"`
	Scroll  int8   `json:"scroll"`
	// Mods is the modifier state the driver saw with the pointer event,
	// if it reports one.
	Mods Mod `json:"mods,omitempty"`
}

// KeyInput is a raw key transition from an input driver.
type KeyInput struct {
	Key     Key    `json:"key"`
	Pressed bool   `json:"pressed"`
	Repeat  uint32 `json:"repeat"`
	Mods    Mod    `json:"mods"`
}

// Injector accepts raw input. Input drivers push into it.
type Injector interface {
	PushPointer(p Pointer)
	PushKey(k KeyInput)
}

// Locator answers the geometric questions routing needs.
type Locator interface {
	// WindowAt returns the frontmost hit-testable window containing the
	// screen point.
	WindowAt(x, y int) (*window.Window, bool)
	// FocusCandidate returns the frontmost window eligible for implicit
	// keyboard focus.
	FocusCandidate() (*window.Window, bool)
	// Window returns the live window with the given ID.
	Window(id window.ID) (*window.Window, bool)
}

// QueueStats describes one window's queue.
type QueueStats struct {
	Window    window.ID `json:"window"`
	Pending   int       `json:"pending"`
	Overflows uint64    `json:"overflows"`
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Capacity int
	Logger   *slog.Logger
}

// Router owns the per-window queues and delivers raw input to them.
//
// Router is not safe for concurrent use; the server serializes access.
type Router struct {
	queues   map[window.ID]*Queue
	focus    window.ID
	capacity int
	locate   Locator
	logger   *slog.Logger
}

// NewRouter returns a Router resolving targets through loc.
func NewRouter(loc Locator, opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	capacity := opts.Capacity
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Router{
		queues:   make(map[window.ID]*Queue),
		capacity: capacity,
		locate:   loc,
		logger:   logger,
	}
}

// Register creates the queue for a new window.
func (r *Router) Register(id window.ID) {
	if _, ok := r.queues[id]; !ok {
		r.queues[id] = NewQueue(r.capacity)
	}
}

// Unregister drops a window's queue and any pending events. If the window
// held the focus override, the override is cleared.
func (r *Router) Unregister(id window.ID) {
	if q, ok := r.queues[id]; ok {
		q.Clear()
		delete(r.queues, id)
	}
	if r.focus == id {
		r.focus = 0
	}
}

// Post queues ev for a specific window. Events for unknown windows are
// dropped.
func (r *Router) Post(id window.ID, ev Event) bool {
	q, ok := r.queues[id]
	if !ok {
		return false
	}
	if q.Push(ev) {
		r.logger.Warn("event queue overflow",
			"window", id,
			"type", ev.Type().String(),
			"overflows", q.Overflows())
	}
	return true
}

// Poll removes the window's oldest pending event.
func (r *Router) Poll(id window.ID) (Event, bool) {
	q, ok := r.queues[id]
	if !ok {
		return nil, false
	}
	return q.Pop()
}

// Pending returns the number of events queued for a window.
func (r *Router) Pending(id window.ID) int {
	if q, ok := r.queues[id]; ok {
		return q.Len()
	}
	return 0
}

// SetFocus sets the explicit keyboard focus override. Zero clears it.
func (r *Router) SetFocus(id window.ID) {
	r.focus = id
}

// Focused returns the window keyboard events currently go to.
func (r *Router) Focused() (window.ID, bool) {
	if r.focus != 0 {
		if w, ok := r.locate.Window(r.focus); ok && w.AcceptsInput {
			return w.ID, true
		}
	}
	if w, ok := r.locate.FocusCandidate(); ok {
		return w.ID, true
	}
	return 0, false
}

// RoutePointer hit-tests p and queues a MOUSE event in the target's local
// coordinates. It returns the window that was hit, which may differ from
// a delivery when the window does not accept input.
func (r *Router) RoutePointer(p Pointer) (window.ID, bool) {
	w, ok := r.locate.WindowAt(p.X, p.Y)
	if !ok {
		return 0, false
	}
	if !w.AcceptsInput {
		return w.ID, false
	}
	r.Post(w.ID, Mouse{
		X:       uint32(p.X - w.Bounds.X),
		Y:       uint32(p.Y - w.Bounds.Y),
		Buttons: p.Buttons,
		Scroll:  p.Scroll,
	})
	return w.ID, true
}

// RouteKey queues a KEYBOARD event for the focused window.
func (r *Router) RouteKey(k KeyInput) (window.ID, bool) {
	id, ok := r.Focused()
	if !ok {
		return 0, false
	}
	repeat := k.Repeat
	if repeat == 0 {
		repeat = 1
	}
	r.Post(id, Keyboard{Key: k.Key, Pressed: k.Pressed, Repeat: repeat, Mods: k.Mods})
	return id, true
}

// Stats reports every queue's depth and overflow count.
func (r *Router) Stats() []QueueStats {
	out := make([]QueueStats, 0, len(r.queues))
	for id, q := range r.queues {
		out = append(out, QueueStats{Window: id, Pending: q.Len(), Overflows: q.Overflows()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window < out[j].Window })
	return out
}
