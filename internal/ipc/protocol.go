package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/server"
	"github.com/1broseidon/winsrv/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandCreateWindow  CommandType = "CREATE_WINDOW"
	CommandDestroyWindow CommandType = "DESTROY_WINDOW"
	CommandDraw          CommandType = "DRAW"
	CommandGetBufferInfo CommandType = "GET_BUFFER_INFO"
	CommandGetEvent      CommandType = "GET_EVENT"
	CommandResizeWindow  CommandType = "RESIZE_WINDOW"
	CommandMoveWindow    CommandType = "MOVE_WINDOW"
	CommandRaiseWindow   CommandType = "RAISE_WINDOW"
	CommandLowerWindow   CommandType = "LOWER_WINDOW"
	CommandFocusWindow   CommandType = "FOCUS_WINDOW"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandPushInput     CommandType = "PUSH_INPUT"
	CommandScreenshot    CommandType = "SCREENSHOT"
	CommandTimeMS        CommandType = "TIME_MS"
	CommandReload        CommandType = "RELOAD"
	CommandTile          CommandType = "TILE"
	CommandUndoTile      CommandType = "UNDO_TILE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Code   ErrorCode       `json:"code,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ErrorCode is the stable name of a failure kind on the wire.
type ErrorCode string

const (
	CodeInvalidSize      ErrorCode = "INVALID_SIZE"
	CodeInvalidHandle    ErrorCode = "INVALID_HANDLE"
	CodeCapabilityDenied ErrorCode = "CAPABILITY_DENIED"
	CodeCorruptZOrder    ErrorCode = "CORRUPT_ZORDER"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeUnknownCommand   ErrorCode = "UNKNOWN_COMMAND"
	CodeInternal         ErrorCode = "INTERNAL"
)

var codeSentinels = map[ErrorCode]error{
	CodeInvalidSize:      window.ErrInvalidSize,
	CodeInvalidHandle:    window.ErrInvalidHandle,
	CodeCapabilityDenied: window.ErrCapabilityDenied,
	CodeCorruptZOrder:    compositor.ErrCorruptZOrder,
}

// CodeFor classifies err for the wire.
func CodeFor(err error) ErrorCode {
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}

// Sentinel returns the error kind a code stands for, or nil.
func (c ErrorCode) Sentinel() error {
	return codeSentinels[c]
}

// RemoteError is a failure reported by the daemon. It unwraps to the
// matching window or compositor sentinel so errors.Is works across the
// socket.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("daemon error: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Code.Sentinel()
}

// WindowPayload addresses one window.
type WindowPayload struct {
	ID window.ID `json:"id"`
}

// CreateWindowPayload is the payload for CREATE_WINDOW. The zero value of
// every optional field keeps the default of the four-argument create.
type CreateWindowPayload struct {
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	Transparent        bool   `json:"transparent,omitempty"`
	TreatAsTransparent bool   `json:"treat_as_transparent,omitempty"`
	X                  int    `json:"x,omitempty"`
	Y                  int    `json:"y,omitempty"`
	Class              string `json:"class,omitempty"`
	PID                int    `json:"pid,omitempty"`
	MinWidth           int    `json:"min_width,omitempty"`
	MinHeight          int    `json:"min_height,omitempty"`
	Fixed              bool   `json:"fixed,omitempty"`     // can_move=false
	NoResize           bool   `json:"no_resize,omitempty"` // can_resize=false
	NoInput            bool   `json:"no_input,omitempty"`
}

// Spec converts the payload into a window spec.
func (p CreateWindowPayload) Spec() (window.Spec, error) {
	spec := window.DefaultSpec(p.Width, p.Height, p.Transparent, p.TreatAsTransparent)
	class, err := window.ParseClass(p.Class)
	if err != nil {
		return spec, err
	}
	spec.Class = class
	spec.X, spec.Y = p.X, p.Y
	spec.PID = p.PID
	if p.MinWidth > 0 {
		spec.MinWidth = p.MinWidth
	}
	if p.MinHeight > 0 {
		spec.MinHeight = p.MinHeight
	}
	spec.Flags.CanMove = !p.Fixed
	spec.Flags.CanResize = !p.NoResize
	spec.NoInput = p.NoInput
	return spec, nil
}

// DrawPayload is the payload for DRAW. Pixels, when present, replace the
// window's buffer before compositing (see buffer.MarshalPixels). Width and
// Height give the size of the buffer the pixels came from.
type DrawPayload struct {
	ID     window.ID `json:"id"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
	Pixels []byte    `json:"pixels,omitempty"`
}

// DrawData reports whether uploaded pixels were dropped because the window
// was resized after the buffer was handed out.
type DrawData struct {
	Stale bool `json:"stale,omitempty"`
}

type ResizePayload struct {
	ID     window.ID `json:"id"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
}

type MovePayload struct {
	ID window.ID `json:"id"`
	X  int       `json:"x"`
	Y  int       `json:"y"`
}

// InputPayload injects raw input as if it came from a device.
type InputPayload struct {
	Pointer *events.Pointer  `json:"pointer,omitempty"`
	Key     *events.KeyInput `json:"key,omitempty"`
}

// ScreenshotPayload requests a PNG of the output frame, optionally scaled.
type ScreenshotPayload struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// TilePayload overrides the configured layout for one TILE request.
type TilePayload struct {
	Mode string `json:"mode,omitempty"`
	Gap  *int   `json:"gap,omitempty"`
}

// WindowInfo is the wire form of a window record.
type WindowInfo struct {
	ID                 window.ID `json:"id"`
	X                  int       `json:"x"`
	Y                  int       `json:"y"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	Z                  int       `json:"z"`
	Class              string    `json:"class"`
	PID                int       `json:"pid,omitempty"`
	MinWidth           int       `json:"min_width"`
	MinHeight          int       `json:"min_height"`
	CanMove            bool      `json:"can_move"`
	CanResize          bool      `json:"can_resize"`
	Transparent        bool      `json:"transparent"`
	TreatAsTransparent bool      `json:"treat_as_transparent"`
	AcceptsInput       bool      `json:"accepts_input"`
	Focused            bool      `json:"focused,omitempty"`
}

// WindowInfoFrom converts a window record.
func WindowInfoFrom(w window.Window) WindowInfo {
	return WindowInfo{
		ID:                 w.ID,
		X:                  w.Bounds.X,
		Y:                  w.Bounds.Y,
		Width:              w.Bounds.Width,
		Height:             w.Bounds.Height,
		Z:                  w.Z,
		Class:              w.Class.String(),
		PID:                w.PID,
		MinWidth:           w.MinWidth,
		MinHeight:          w.MinHeight,
		CanMove:            w.Flags.CanMove,
		CanResize:          w.Flags.CanResize,
		Transparent:        w.Flags.Transparent,
		TreatAsTransparent: w.Flags.TreatAsTransparent,
		AcceptsInput:       w.AcceptsInput,
	}
}

// WindowsData represents the data returned by LIST_WINDOWS, front-most first.
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// BufferInfo describes a window's pixel buffer.
type BufferInfo struct {
	ID     window.ID `json:"id"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Stride int       `json:"stride"`
	Bytes  int       `json:"bytes"`
}

// EventData represents the data returned by GET_EVENT.
type EventData struct {
	Available bool          `json:"available"`
	Event     events.Record `json:"event"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	server.Status
	Socket        string `json:"socket"`
	DaemonRunning bool   `json:"daemon_running"`
}

type TimeData struct {
	MS uint64 `json:"ms"`
}

type ScreenshotData struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"png"`
}

type TileData struct {
	Tiled int    `json:"tiled"`
	Mode  string `json:"mode"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a code and message
func NewErrorResponse(code ErrorCode, errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Code:   code,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
