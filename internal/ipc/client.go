package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/1broseidon/winsrv/internal/buffer"
	"github.com/1broseidon/winsrv/internal/clock"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/runtimepath"
	"github.com/1broseidon/winsrv/internal/window"
)

// Client handles IPC communication with the daemon. It keeps one connection
// open and reconnects after a transport failure. A Client is safe for
// concurrent use; requests are serialized on the connection.
type Client struct {
	socketPath string
	timeout    time.Duration
	clock      clock.Clock

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	// buffers holds the client-side copy of each window's pixels, uploaded
	// on Draw.
	buffers map[window.ID]*buffer.Buffer
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at path.
func NewClientAt(path string) *Client {
	return &Client{
		socketPath: path,
		timeout:    5 * time.Second,
		clock:      clock.New(),
		buffers:    make(map[window.ID]*buffer.Buffer),
	}
}

// Close drops the connection. The client reconnects on the next call.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

func (c *Client) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(command CommandType, payload any) (*Response, error) {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := c.conn.Write(reqData); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := c.reader.ReadBytes('\n')
	if err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, &RemoteError{Code: resp.Code, Message: resp.Error}
	}

	return &resp, nil
}

func call[T any](c *Client, command CommandType, payload any) (T, error) {
	var out T
	resp, err := c.sendRequest(command, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return out, nil
}

// CreateWindow creates a window with the default capabilities.
func (c *Client) CreateWindow(width, height int, transparent, treatAsTransparent bool) (window.ID, error) {
	info, err := c.Create(CreateWindowPayload{
		Width:              width,
		Height:             height,
		Transparent:        transparent,
		TreatAsTransparent: treatAsTransparent,
	})
	if err != nil {
		return 0, err
	}
	return info.ID, nil
}

// Create creates a window from a full request.
func (c *Client) Create(p CreateWindowPayload) (WindowInfo, error) {
	return call[WindowInfo](c, CommandCreateWindow, p)
}

// DestroyWindow destroys a window and forgets its local buffer.
func (c *Client) DestroyWindow(id window.ID) error {
	_, err := c.sendRequest(CommandDestroyWindow, WindowPayload{ID: id})
	c.mu.Lock()
	delete(c.buffers, id)
	c.mu.Unlock()
	return err
}

// BufferInfo reports the geometry of the window's server-side buffer.
func (c *Client) BufferInfo(id window.ID) (BufferInfo, error) {
	return call[BufferInfo](c, CommandGetBufferInfo, WindowPayload{ID: id})
}

// GetBuffer returns the client-side buffer for the window, allocating it
// to match the server's geometry on first use or after a resize. Writes
// reach the server on the next Draw.
func (c *Client) GetBuffer(id window.ID) (*buffer.Buffer, error) {
	info, err := c.BufferInfo(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buffers[id]; ok && b.Width == info.Width && b.Height == info.Height {
		return b, nil
	}
	b := buffer.New(info.Width, info.Height)
	c.buffers[id] = b
	return b, nil
}

// Draw uploads the window's local buffer, if one was handed out, and asks
// the server to recomposite. A buffer outdated by a resize is not applied;
// it is dropped so the next GetBuffer matches the new size.
func (c *Client) Draw(id window.ID) error {
	payload := DrawPayload{ID: id}
	c.mu.Lock()
	b, ok := c.buffers[id]
	if ok {
		payload.Width, payload.Height = b.Width, b.Height
		payload.Pixels = b.MarshalPixels()
	}
	c.mu.Unlock()

	data, err := call[DrawData](c, CommandDraw, payload)
	if err != nil {
		return err
	}
	if data.Stale {
		c.mu.Lock()
		if c.buffers[id] == b {
			delete(c.buffers, id)
		}
		c.mu.Unlock()
	}
	return nil
}

// GetEvent pops the window's oldest event without blocking.
func (c *Client) GetEvent(id window.ID) (events.Record, bool, error) {
	data, err := call[EventData](c, CommandGetEvent, WindowPayload{ID: id})
	if err != nil {
		return events.NoneRecord, false, err
	}
	if !data.Available {
		return events.NoneRecord, false, nil
	}
	return data.Event, true, nil
}

// Sleep blocks for ms milliseconds on the client's clock.
func (c *Client) Sleep(ctx context.Context, ms uint64) error {
	return c.clock.Sleep(ctx, ms)
}

// TimeMS returns the daemon's monotonic time.
func (c *Client) TimeMS() (uint64, error) {
	data, err := call[TimeData](c, CommandTimeMS, nil)
	return data.MS, err
}

func (c *Client) Resize(id window.ID, width, height int) error {
	_, err := c.sendRequest(CommandResizeWindow, ResizePayload{ID: id, Width: width, Height: height})
	return err
}

func (c *Client) Move(id window.ID, x, y int) error {
	_, err := c.sendRequest(CommandMoveWindow, MovePayload{ID: id, X: x, Y: y})
	return err
}

func (c *Client) Raise(id window.ID) error {
	_, err := c.sendRequest(CommandRaiseWindow, WindowPayload{ID: id})
	return err
}

func (c *Client) Lower(id window.ID) error {
	_, err := c.sendRequest(CommandLowerWindow, WindowPayload{ID: id})
	return err
}

func (c *Client) Focus(id window.ID) error {
	_, err := c.sendRequest(CommandFocusWindow, WindowPayload{ID: id})
	return err
}

// ListWindows returns every live window, front-most first.
func (c *Client) ListWindows() ([]WindowInfo, error) {
	data, err := call[WindowsData](c, CommandListWindows, nil)
	return data.Windows, err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	status, err := call[StatusData](c, CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// PushPointer injects pointer input.
func (c *Client) PushPointer(p events.Pointer) error {
	_, err := c.sendRequest(CommandPushInput, InputPayload{Pointer: &p})
	return err
}

// PushKey injects key input.
func (c *Client) PushKey(k events.KeyInput) error {
	_, err := c.sendRequest(CommandPushInput, InputPayload{Key: &k})
	return err
}

// Screenshot returns the output frame as PNG, scaled to fit width x height
// when either is non-zero.
func (c *Client) Screenshot(width, height int) (*ScreenshotData, error) {
	data, err := call[ScreenshotData](c, CommandScreenshot, ScreenshotPayload{Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.sendRequest(CommandReload, nil)
	return err
}

// Tile arranges the normal windows. An empty mode or nil gap keeps the
// daemon's configured value.
func (c *Client) Tile(mode string, gap *int) (*TileData, error) {
	data, err := call[TileData](c, CommandTile, TilePayload{Mode: mode, Gap: gap})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// UndoTile restores the geometry from before the last Tile.
func (c *Client) UndoTile() error {
	_, err := c.sendRequest(CommandUndoTile, nil)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
