// Package mcp exposes the window server to MCP clients over stdio.
package mcp

import (
	"context"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

const (
	ServerName    = "winsrv"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools drive. *ipc.Client
// implements it.
type Daemon interface {
	ListWindows() ([]ipc.WindowInfo, error)
	Create(p ipc.CreateWindowPayload) (ipc.WindowInfo, error)
	DestroyWindow(id window.ID) error
	Move(id window.ID, x, y int) error
	Resize(id window.ID, width, height int) error
	Raise(id window.ID) error
	Lower(id window.ID) error
	Focus(id window.ID) error
	GetBuffer(id window.ID) (*buffer.Buffer, error)
	Draw(id window.ID) error
	GetEvent(id window.ID) (events.Record, bool, error)
	GetStatus() (*ipc.StatusData, error)
	Screenshot(width, height int) (*ipc.ScreenshotData, error)
	Tile(mode string, gap *int) (*ipc.TileData, error)
	UndoTile() error
	PushPointer(p events.Pointer) error
	PushKey(k events.KeyInput) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for driving winsrv windows.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to d.
func NewServer(d Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{daemon: d, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves one session on t. Tests use it with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List live windows front-most first, with geometry, class, capabilities and focus. Optionally filter by class.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Create a window. Optionally fill it with a color so it is visible immediately. Returns the window record including its id.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "destroy_window",
		Description: "Destroy a window. Its id is never valid again.",
	}, s.handleDestroyWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move a window to a new screen position. Fails for windows created without the move capability.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_window",
		Description: "Resize a window. The pixel content is cleared and the window receives a RESIZE event.",
	}, s.handleResizeWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "raise_window",
		Description: "Raise a window to the front of its class band.",
	}, s.handleRaiseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "lower_window",
		Description: "Lower a window to the back of its class band.",
	}, s.handleLowerWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Direct keyboard input to a window.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fill_window",
		Description: "Fill a window, or a rectangle of it, with a solid color and draw it.",
	}, s.handleFillWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_events",
		Description: "Drain pending events from a window queue without blocking. Returns an empty list when nothing is pending.",
	}, s.handleGetEvents)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "push_pointer",
		Description: "Inject a pointer event at a screen position, as if from the input device.",
	}, s.handlePushPointer)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "push_key",
		Description: "Inject a key press or release into the focused window.",
	}, s.handlePushKey)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report screen size, window count, focus, uptime and frame count.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "screenshot",
		Description: "Return the composited screen as a PNG image, scaled down to fit max_width x max_height.",
	}, s.handleScreenshot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "tile",
		Description: "Arrange movable, resizable normal windows in a grid, vertical, horizontal or master_stack layout.",
	}, s.handleTile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "undo_tile",
		Description: "Restore window geometry from before the last tile.",
	}, s.handleUndoTile)
}
