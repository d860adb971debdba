package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/platform"
	"github.com/1broseidon/winsrv/internal/runtimepath"
	"github.com/1broseidon/winsrv/internal/server"
	"github.com/1broseidon/winsrv/internal/tiling"
	"github.com/1broseidon/winsrv/internal/window"
)

// ServerOptions configures the IPC server.
type ServerOptions struct {
	// SocketPath overrides the runtime socket location.
	SocketPath string
	Logger     *slog.Logger
	// Reload is invoked for RELOAD. A nil Reload rejects the command.
	Reload func() error
	// Tiler serves TILE and UNDO_TILE. A nil Tiler rejects both.
	Tiler *tiling.Tiler
	// MaxRequestBytes bounds one request line. Zero means MaxRequestSize.
	MaxRequestBytes int
}

// MaxRequestSize fits a DRAW carrying the pixels of the largest legal
// window, base64-encoded, plus room for the JSON around it.
var MaxRequestSize = base64.StdEncoding.EncodedLen(window.MaxDimension*window.MaxDimension*buffer.PixelSize) + 4096

var errRequestTooLarge = errors.New("request too large")

// Server handles IPC requests from clients. Connections are persistent and
// carry any number of requests, each answered in order.
type Server struct {
	socketPath string
	listener   net.Listener
	srv        *server.Server
	logger     *slog.Logger
	reload     func() error
	tiler      *tiling.Tiler
	maxRequest int

	shutdownMu   sync.Mutex
	shuttingDown bool
	conns        map[net.Conn]struct{}
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server
func NewServer(srv *server.Server, opts ServerOptions) (*Server, error) {
	socketPath := opts.SocketPath
	if socketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = p
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxRequest := opts.MaxRequestBytes
	if maxRequest <= 0 {
		maxRequest = MaxRequestSize
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		srv:        srv,
		logger:     logger,
		reload:     opts.Reload,
		tiler:      opts.Tiler,
		maxRequest: maxRequest,
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc: listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) closing() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("ipc: accept failed", "error", err)
			continue
		}

		s.shutdownMu.Lock()
		if s.shuttingDown {
			s.shutdownMu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.shutdownMu.Unlock()

		go s.handleConnection(conn)
	}
}

// handleConnection serves requests on conn until the peer hangs up.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.shutdownMu.Lock()
		delete(s.conns, conn)
		s.shutdownMu.Unlock()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	for {
		data, readErr := readLine(reader, s.maxRequest)
		var resp *Response
		if errors.Is(readErr, errRequestTooLarge) {
			s.logger.Warn("ipc: request dropped", "limit", s.maxRequest)
			resp = NewErrorResponse(CodeBadRequest, fmt.Sprintf("request exceeds %d bytes", s.maxRequest))
			readErr = nil
		} else if len(bytes.TrimSpace(data)) > 0 {
			req, err := ParseRequest(data)
			if err != nil {
				resp = NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid request: %v", err))
			} else {
				resp = s.handleCommand(req)
			}
		}
		if resp != nil {
			if err := s.writeResponse(writer, resp); err != nil {
				if !s.closing() {
					s.logger.Warn("ipc: write failed", "error", err)
				}
				return
			}
		}
		if readErr != nil {
			if readErr != io.EOF && !s.closing() && !errors.Is(readErr, net.ErrClosed) {
				s.logger.Warn("ipc: read failed", "error", readErr)
			}
			return
		}
	}
}

// readLine reads one newline-terminated request. A line longer than limit
// is consumed up to its newline and reported as errRequestTooLarge, leaving
// the connection positioned at the next request.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLarge := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLarge {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLarge = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if tooLarge && err == nil {
			return nil, errRequestTooLarge
		}
		return line, err
	}
}

func (s *Server) writeResponse(w *bufio.Writer, resp *Response) error {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Error("ipc: marshal response", "error", err)
		data, _ = NewErrorResponse(CodeInternal, "failed to marshal response").Marshal()
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandCreateWindow:
		return s.handleCreateWindow(req.Payload)
	case CommandDestroyWindow:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			return nil, s.srv.DestroyWindow(p.ID)
		})
	case CommandDraw:
		return s.handleDraw(req.Payload)
	case CommandGetBufferInfo:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			b, err := s.srv.GetBuffer(p.ID)
			if err != nil {
				return nil, err
			}
			return BufferInfo{ID: p.ID, Width: b.Width, Height: b.Height, Stride: b.Stride, Bytes: b.Bytes()}, nil
		})
	case CommandGetEvent:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			rec, ok, err := s.srv.GetEvent(p.ID)
			if err != nil {
				return nil, err
			}
			return EventData{Available: ok, Event: rec}, nil
		})
	case CommandResizeWindow:
		return withPayload(req.Payload, func(p ResizePayload) (any, error) {
			return nil, s.srv.Resize(p.ID, p.Width, p.Height)
		})
	case CommandMoveWindow:
		return withPayload(req.Payload, func(p MovePayload) (any, error) {
			return nil, s.srv.Move(p.ID, p.X, p.Y)
		})
	case CommandRaiseWindow:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			return nil, s.srv.Raise(p.ID)
		})
	case CommandLowerWindow:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			return nil, s.srv.Lower(p.ID)
		})
	case CommandFocusWindow:
		return withPayload(req.Payload, func(p WindowPayload) (any, error) {
			return nil, s.srv.Focus(p.ID)
		})
	case CommandListWindows:
		return s.handleListWindows()
	case CommandGetStatus:
		return respond(StatusData{Status: s.srv.Status(), Socket: s.socketPath, DaemonRunning: true}, nil)
	case CommandPushInput:
		return s.handlePushInput(req.Payload)
	case CommandScreenshot:
		return s.handleScreenshot(req.Payload)
	case CommandTimeMS:
		return respond(TimeData{MS: s.srv.TimeMS()}, nil)
	case CommandReload:
		return s.handleReload()
	case CommandTile:
		return s.handleTile(req.Payload)
	case CommandUndoTile:
		if s.tiler == nil {
			return NewErrorResponse(CodeUnknownCommand, "tiling is not enabled")
		}
		return respond(nil, s.tiler.Undo())
	default:
		return NewErrorResponse(CodeUnknownCommand, fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// respond turns a handler result into a response.
func respond(data any, err error) *Response {
	if err != nil {
		return NewErrorResponse(CodeFor(err), err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(CodeInternal, err.Error())
	}
	return resp
}

func withPayload[T any](raw json.RawMessage, fn func(T) (any, error)) *Response {
	var p T
	if len(raw) == 0 {
		return NewErrorResponse(CodeBadRequest, "payload is required")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid payload: %v", err))
	}
	return respond(fn(p))
}

func (s *Server) handleCreateWindow(payload json.RawMessage) *Response {
	var p CreateWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid create payload: %v", err))
	}
	spec, err := p.Spec()
	if err != nil {
		return NewErrorResponse(CodeBadRequest, err.Error())
	}
	w, err := s.srv.Create(spec)
	if err != nil {
		return respond(nil, err)
	}
	s.logger.Debug("ipc: window created", "window", w.ID, "pid", w.PID)
	return respond(WindowInfoFrom(w), nil)
}

func (s *Server) handleDraw(payload json.RawMessage) *Response {
	return withPayload(payload, func(p DrawPayload) (any, error) {
		if len(p.Pixels) > 0 {
			stale, err := s.srv.DrawPixels(p.ID, p.Width, p.Height, p.Pixels)
			return DrawData{Stale: stale}, err
		}
		return DrawData{}, s.srv.Draw(p.ID)
	})
}

func (s *Server) handleListWindows() *Response {
	focused := s.srv.Status().Focused
	wins := s.srv.Windows()
	infos := make([]WindowInfo, len(wins))
	for i, w := range wins {
		infos[i] = WindowInfoFrom(w)
		infos[i].Focused = w.ID == focused
	}
	return respond(WindowsData{Windows: infos}, nil)
}

func (s *Server) handlePushInput(payload json.RawMessage) *Response {
	var p InputPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid input payload: %v", err))
	}
	if p.Pointer == nil && p.Key == nil {
		return NewErrorResponse(CodeBadRequest, "pointer or key is required")
	}
	if p.Pointer != nil {
		s.srv.PushPointer(*p.Pointer)
	}
	if p.Key != nil {
		s.srv.PushKey(*p.Key)
	}
	return respond(nil, nil)
}

func (s *Server) handleScreenshot(payload json.RawMessage) *Response {
	var p ScreenshotPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid screenshot payload: %v", err))
		}
	}
	frame, err := s.srv.Screenshot()
	if err != nil {
		return respond(nil, err)
	}
	w, h := platform.FitSize(frame.Width, frame.Height, p.Width, p.Height)
	png, err := platform.EncodePNG(frame, w, h)
	if err != nil {
		return respond(nil, err)
	}
	return respond(ScreenshotData{Width: w, Height: h, PNG: png}, nil)
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	if s.reload == nil {
		return NewErrorResponse(CodeUnknownCommand, "reload is not supported")
	}
	s.logger.Info("ipc: reload requested")
	if err := s.reload(); err != nil {
		return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Failed to reload config: %v", err))
	}
	return respond(nil, nil)
}

func (s *Server) handleTile(payload json.RawMessage) *Response {
	if s.tiler == nil {
		return NewErrorResponse(CodeUnknownCommand, "tiling is not enabled")
	}
	var p TilePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return NewErrorResponse(CodeBadRequest, fmt.Sprintf("Invalid tile payload: %v", err))
		}
	}
	layout := s.tiler.Layout()
	if p.Mode != "" {
		mode, err := tiling.ParseMode(p.Mode)
		if err != nil {
			return NewErrorResponse(CodeBadRequest, err.Error())
		}
		layout.Mode = mode
	}
	if p.Gap != nil {
		layout.Gap = *p.Gap
	}
	n, err := s.tiler.TileWith(layout)
	if err != nil {
		return respond(nil, err)
	}
	return respond(TileData{Tiled: n, Mode: string(layout.Mode)}, nil)
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// Run starts the server and stops it when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Connections reports the number of open client connections.
func (s *Server) Connections() int {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return len(s.conns)
}
