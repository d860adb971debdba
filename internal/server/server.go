// Package server is the window server core. One mutex serializes every
// operation on the window table, the stacking order and the event queues.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/clock"
	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/window"
)

// Options configures a Server.
type Options struct {
	Width         int
	Height        int
	Background    uint32
	QueueCapacity int
	Input         InputOptions
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Status is a point-in-time summary of the server.
type Status struct {
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Windows    int                 `json:"windows"`
	Focused    window.ID           `json:"focused"`
	UptimeMS   uint64              `json:"uptime_ms"`
	Buffers    buffer.Stats        `json:"buffers"`
	Compositor compositor.Stats    `json:"compositor"`
	Queues     []events.QueueStats `json:"queues"`
	Input      InputOptions        `json:"input"`
	Dragging   window.ID           `json:"dragging,omitempty"`
}

// Server owns the registry, buffers, compositor and router.
type Server struct {
	mu sync.Mutex

	reg    *window.Registry
	bufs   *buffer.Manager
	comp   *compositor.Compositor
	router *events.Router
	clock  clock.Clock
	logger *slog.Logger

	input   InputOptions
	buttons events.Button
	mods    events.Mod
	drag    dragState
}

var _ events.Injector = (*Server)(nil)

// New builds a server for a screen of the given size.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	comp, err := compositor.New(compositor.Options{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: opts.Background,
		Logger:     logger.With("component", "compositor"),
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		reg:    window.NewRegistry(),
		bufs:   buffer.NewManager(),
		comp:   comp,
		clock:  clk,
		logger: logger,
		input:  opts.Input,
	}
	s.router = events.NewRouter(locator{s}, events.RouterOptions{
		Capacity: opts.QueueCapacity,
		Logger:   logger.With("component", "events"),
	})
	return s, nil
}

// scene adapts the server's tables for the compositor. Callers hold mu.
type scene struct{ s *Server }

func (sc scene) Resolve(h window.Handle) (*window.Window, bool) { return sc.s.reg.Resolve(h) }

func (sc scene) Buffer(id window.ID) (*buffer.Buffer, bool) {
	b, err := sc.s.bufs.Get(id)
	return b, err == nil
}

// locator adapts the server for event routing. Callers hold mu.
type locator struct{ s *Server }

func (l locator) WindowAt(x, y int) (*window.Window, bool) {
	return l.s.comp.WindowAt(scene{l.s}, x, y)
}

func (l locator) FocusCandidate() (*window.Window, bool) {
	return l.s.comp.FocusCandidate(scene{l.s})
}

func (l locator) Window(id window.ID) (*window.Window, bool) {
	w, err := l.s.reg.Lookup(id)
	return w, err == nil
}

// compose runs a composite pass. Callers hold mu.
func (s *Server) compose() error {
	return s.comp.Recomposite(scene{s})
}

// settle recomposites after a mutation that has already been applied. A
// failed pass is logged and counted by the compositor and its damage is
// kept for the next one, so the mutation itself still succeeds.
func (s *Server) settle() {
	_ = s.compose()
}

// CreateWindow creates a normal window at the origin with default
// capabilities.
func (s *Server) CreateWindow(width, height int, transparent, treatAsTransparent bool) (window.ID, error) {
	w, err := s.Create(window.DefaultSpec(width, height, transparent, treatAsTransparent))
	if err != nil {
		return 0, err
	}
	return w.ID, nil
}

// Create creates a window from a full spec and stacks it at the front of
// its class band.
func (s *Server) Create(spec window.Spec) (window.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Insert(spec)
	if err != nil {
		return window.Window{}, err
	}
	if _, err := s.bufs.Allocate(w.ID, w.Bounds.Width, w.Bounds.Height); err != nil {
		_, _ = s.reg.Remove(w.ID)
		return window.Window{}, err
	}
	if err := s.comp.ZOrder().Insert(w.Handle, w.Class); err != nil {
		s.bufs.Free(w.ID)
		_, _ = s.reg.Remove(w.ID)
		return window.Window{}, fmt.Errorf("stack window %d: %w", w.ID, err)
	}
	s.router.Register(w.ID)
	s.comp.Damage(w.Bounds)

	s.logger.Debug("window created",
		"window", w.ID,
		"size", fmt.Sprintf("%dx%d", w.Bounds.Width, w.Bounds.Height),
		"class", w.Class.String(),
		"pid", w.PID)
	return s.record(w), nil
}

// DestroyWindow tears a window down. Its ID is never valid again and
// pending events are discarded.
func (s *Server) DestroyWindow(id window.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	bounds := w.Bounds

	s.comp.ZOrder().Remove(w.Handle)
	s.router.Unregister(id)
	s.bufs.Free(id)
	if _, err := s.reg.Remove(id); err != nil {
		return err
	}
	if s.drag.active && s.drag.id == id {
		s.drag = dragState{}
	}

	s.comp.Damage(bounds)
	s.logger.Debug("window destroyed", "window", id)
	s.settle()
	return nil
}

// GetBuffer returns the window's pixel buffer, loaned to the caller until
// the next draw.
func (s *Server) GetBuffer(id window.ID) (*buffer.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reg.Lookup(id); err != nil {
		return nil, err
	}
	return s.bufs.Get(id)
}

// Draw marks the window's rectangle damaged and recomposites.
func (s *Server) Draw(id window.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	s.comp.Damage(w.Bounds)
	return s.compose()
}

// DrawPixels replaces the window's pixels with data, encoded as by
// buffer.MarshalPixels for a width x height buffer, then draws. Remote
// clients use it to upload their local copy once per draw.
//
// A loan taken before a resize no longer matches the window. Its pixels are
// dropped, the window is drawn as it stands and stale reports true; the
// client redraws once it sees the RESIZE event.
func (s *Server) DrawPixels(id window.ID, width, height int, data []byte) (stale bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return false, err
	}
	b, err := s.bufs.Get(id)
	if err != nil {
		return false, err
	}
	if width != b.Width || height != b.Height {
		s.logger.Debug("stale pixels dropped",
			"window", id,
			"uploaded", fmt.Sprintf("%dx%d", width, height),
			"size", fmt.Sprintf("%dx%d", b.Width, b.Height))
		stale = true
	} else if err := b.UnmarshalPixels(data); err != nil {
		return false, fmt.Errorf("%w: %v", window.ErrInvalidSize, err)
	}
	s.comp.Damage(w.Bounds)
	return stale, s.compose()
}

// GetEvent pops the window's oldest event. It never blocks; when nothing is
// pending it reports false with a NONE record.
func (s *Server) GetEvent(id window.ID) (events.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reg.Lookup(id); err != nil {
		return events.NoneRecord, false, err
	}
	ev, ok := s.router.Poll(id)
	if !ok {
		return events.NoneRecord, false, nil
	}
	return ev.Record(), true, nil
}

// Sleep blocks the caller for ms milliseconds. It is the only blocking
// operation and holds no server state while waiting.
func (s *Server) Sleep(ctx context.Context, ms uint64) error {
	return s.clock.Sleep(ctx, ms)
}

// TimeMS returns milliseconds since the server started.
func (s *Server) TimeMS() uint64 {
	return s.clock.NowMS()
}

// Move repositions a window. The new position may be off-screen.
func (s *Server) Move(id window.ID, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(id, x, y)
}

func (s *Server) move(id window.ID, x, y int) error {
	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	old := w.Bounds
	if _, err := s.reg.Move(id, x, y); err != nil {
		return err
	}
	s.comp.Damage(old)
	s.comp.Damage(w.Bounds)
	s.settle()
	return nil
}

// Resize reallocates the window's buffer at the new size and queues a
// RESIZE event. Prior pixel content is lost.
func (s *Server) Resize(id window.ID, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.CheckResize(id, width, height)
	if err != nil {
		return err
	}
	if _, err := s.bufs.Resize(id, width, height); err != nil {
		return err
	}
	old := w.Bounds
	w.Bounds.Width = width
	w.Bounds.Height = height

	s.router.Post(id, events.Resize{Width: uint32(width), Height: uint32(height)})
	s.comp.Damage(old.Union(w.Bounds))
	s.settle()
	return nil
}

// Raise moves a window to the front of its class band and asks it to
// redraw.
func (s *Server) Raise(id window.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raise(id)
}

func (s *Server) raise(id window.ID) error {
	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	if err := s.comp.ZOrder().Raise(w.Handle); err != nil {
		return err
	}
	s.router.Post(id, events.Redraw{})
	s.comp.Damage(w.Bounds)
	s.settle()
	return nil
}

// Lower moves a window to the back of its class band.
func (s *Server) Lower(id window.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	if err := s.comp.ZOrder().Lower(w.Handle); err != nil {
		return err
	}
	s.comp.Damage(w.Bounds)
	s.settle()
	return nil
}

// Focus directs keyboard input to a window until it is destroyed or focus
// moves elsewhere.
func (s *Server) Focus(id window.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return err
	}
	if !w.AcceptsInput {
		return fmt.Errorf("%w: window %d does not accept input", window.ErrCapabilityDenied, id)
	}
	s.router.SetFocus(id)
	return nil
}

// Window returns a copy of one window record.
func (s *Server) Window(id window.ID) (window.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.reg.Lookup(id)
	if err != nil {
		return window.Window{}, err
	}
	return s.record(w), nil
}

// Windows returns copies of every live window, front-most first.
func (s *Server) Windows() []window.Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.comp.ZOrder().Snapshot()
	out := make([]window.Window, 0, len(snap))
	for i := len(snap) - 1; i >= 0; i-- {
		if w, ok := s.reg.Resolve(snap[i].Handle); ok {
			rec := *w
			rec.Z = i
			out = append(out, rec)
		}
	}
	return out
}

// record copies w with its current z position. Callers hold mu.
func (s *Server) record(w *window.Window) window.Window {
	rec := *w
	rec.Z = s.comp.ZOrder().Index(w.Handle)
	return rec
}

// Status summarizes the server.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounds := s.comp.Bounds()
	focused, _ := s.router.Focused()
	st := Status{
		Width:      bounds.Width,
		Height:     bounds.Height,
		Windows:    s.reg.Len(),
		Focused:    focused,
		UptimeMS:   s.clock.NowMS(),
		Buffers:    s.bufs.Stats(),
		Compositor: s.comp.Stats(),
		Queues:     s.router.Stats(),
		Input:      s.input,
	}
	if s.drag.active {
		st.Dragging = s.drag.id
	}
	return st
}

// Screenshot composites any pending damage and returns a copy of the
// output frame.
func (s *Server) Screenshot() (*compositor.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.compose(); err != nil {
		return nil, err
	}
	return s.comp.Frame().Clone(), nil
}

// AttachSink adds a display sink and presents the whole screen to it.
func (s *Server) AttachSink(sink compositor.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comp.Attach(sink)
	s.settle()
	return nil
}

// DetachSink removes a display sink.
func (s *Server) DetachSink(sink compositor.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comp.Detach(sink)
}

// SetBackground changes the screen fill color.
func (s *Server) SetBackground(bg uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comp.SetBackground(bg)
	s.settle()
	return nil
}
