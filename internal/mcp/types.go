package mcp

import "github.com/1broseidon/winsrv/internal/ipc"

// WindowArgs addresses one window.
type WindowArgs struct {
	ID uint32 `json:"id" jsonschema:"required,Window id as returned by create_window or list_windows"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Class string `json:"class,omitempty" jsonschema:"Only return windows of this class (wallpaper, window, panel, popup, cursor)"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// CreateWindowInput is the input for the create_window tool.
type CreateWindowInput struct {
	Width              int    `json:"width" jsonschema:"required,Width in pixels"`
	Height             int    `json:"height" jsonschema:"required,Height in pixels"`
	X                  int    `json:"x,omitempty" jsonschema:"Initial x position"`
	Y                  int    `json:"y,omitempty" jsonschema:"Initial y position"`
	Class              string `json:"class,omitempty" jsonschema:"Stacking class (default: window)"`
	Transparent        bool   `json:"transparent,omitempty" jsonschema:"Blend the window using its alpha channel"`
	TreatAsTransparent bool   `json:"treat_as_transparent,omitempty" jsonschema:"Let pointer input pass through fully transparent pixels"`
	Color              string `json:"color,omitempty" jsonschema:"Fill color as #rrggbb or #aarrggbb, drawn right after creation"`
}

// CreateWindowOutput is the output for the create_window tool.
type CreateWindowOutput struct {
	Window ipc.WindowInfo `json:"window"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	ID uint32 `json:"id" jsonschema:"required,Window id"`
	X  int    `json:"x" jsonschema:"required,New x position"`
	Y  int    `json:"y" jsonschema:"required,New y position"`
}

// ResizeWindowInput is the input for the resize_window tool.
type ResizeWindowInput struct {
	ID     uint32 `json:"id" jsonschema:"required,Window id"`
	Width  int    `json:"width" jsonschema:"required,New width"`
	Height int    `json:"height" jsonschema:"required,New height"`
}

// FillWindowInput is the input for the fill_window tool.
type FillWindowInput struct {
	ID    uint32 `json:"id" jsonschema:"required,Window id"`
	Color string `json:"color" jsonschema:"required,Color as #rrggbb or #aarrggbb"`
	// Rect fields are optional; a zero width or height fills the window.
	X      int `json:"x,omitempty" jsonschema:"Left edge of the filled rectangle"`
	Y      int `json:"y,omitempty" jsonschema:"Top edge of the filled rectangle"`
	Width  int `json:"width,omitempty" jsonschema:"Rectangle width (default: whole window)"`
	Height int `json:"height,omitempty" jsonschema:"Rectangle height (default: whole window)"`
}

// EventInfo is one event drained from a window queue.
type EventInfo struct {
	Type string `json:"type"`
	Arg1 uint32 `json:"arg1"`
	Arg2 uint32 `json:"arg2"`
	Arg3 uint32 `json:"arg3"`
	Arg4 uint32 `json:"arg4"`
}

// GetEventsInput is the input for the get_events tool.
type GetEventsInput struct {
	ID  uint32 `json:"id" jsonschema:"required,Window id"`
	Max int    `json:"max,omitempty" jsonschema:"Maximum events to drain (default: 32)"`
}

// GetEventsOutput is the output for the get_events tool.
type GetEventsOutput struct {
	Events []EventInfo `json:"events"`
}

// PushPointerInput is the input for the push_pointer tool.
type PushPointerInput struct {
	X       int      `json:"x" jsonschema:"required,Screen x"`
	Y       int      `json:"y" jsonschema:"required,Screen y"`
	Buttons []string `json:"buttons,omitempty" jsonschema:"Held buttons: left, right, middle"`
	Scroll  int      `json:"scroll,omitempty" jsonschema:"Wheel steps, positive is up"`
	Mods    []string `json:"mods,omitempty" jsonschema:"Held modifiers: shift, ctrl, alt, super"`
}

// PushKeyInput is the input for the push_key tool.
type PushKeyInput struct {
	Key     string   `json:"key" jsonschema:"required,Key name (enter, left, space) or a single character"`
	Release bool     `json:"release,omitempty" jsonschema:"Send a release instead of a press"`
	Mods    []string `json:"mods,omitempty" jsonschema:"Held modifiers: shift, ctrl, alt, super"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Windows  int    `json:"windows"`
	Focused  uint32 `json:"focused"`
	UptimeMS uint64 `json:"uptime_ms"`
	Frames   uint64 `json:"frames"`
	Socket   string `json:"socket"`
}

// ScreenshotInput is the input for the screenshot tool.
type ScreenshotInput struct {
	MaxWidth  int `json:"max_width,omitempty" jsonschema:"Scale down to at most this width (default: 800)"`
	MaxHeight int `json:"max_height,omitempty" jsonschema:"Scale down to at most this height (default: 600)"`
}

// TileInput is the input for the tile tool.
type TileInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"Layout: grid, vertical, horizontal, master_stack (default: configured mode)"`
	Gap  *int   `json:"gap,omitempty" jsonschema:"Gap in pixels (default: configured gap)"`
}

// TileOutput is the output for the tile tool.
type TileOutput struct {
	Tiled int    `json:"tiled"`
	Mode  string `json:"mode"`
}

// EmptyInput is the input for tools that take no arguments.
type EmptyInput struct{}
