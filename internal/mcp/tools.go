package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winsrv/internal/config"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

const (
	defaultEventBatch       = 32
	defaultScreenshotWidth  = 800
	defaultScreenshotHeight = 600
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	wins, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]ipc.WindowInfo, 0, len(wins))}
	class := strings.TrimSpace(args.Class)
	if class != "" {
		c, err := window.ParseClass(class)
		if err != nil {
			return nil, ListWindowsOutput{}, err
		}
		class = c.String()
	}
	for _, w := range wins {
		if class == "" || w.Class == class {
			out.Windows = append(out.Windows, w)
		}
	}
	return nil, out, nil
}

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, CreateWindowOutput, error) {
	var fill uint32
	if args.Color != "" {
		c, err := config.ParseColor(args.Color)
		if err != nil {
			return nil, CreateWindowOutput{}, err
		}
		fill = c
	}

	info, err := s.daemon.Create(ipc.CreateWindowPayload{
		Width:              args.Width,
		Height:             args.Height,
		X:                  args.X,
		Y:                  args.Y,
		Class:              args.Class,
		Transparent:        args.Transparent,
		TreatAsTransparent: args.TreatAsTransparent,
	})
	if err != nil {
		return nil, CreateWindowOutput{}, err
	}
	s.logger.Debug("mcp: window created", "window", info.ID)

	if args.Color != "" {
		if err := s.fill(info.ID, fill, window.Rect{}); err != nil {
			return nil, CreateWindowOutput{}, fmt.Errorf("window %d created but fill failed: %w", info.ID, err)
		}
	}
	return nil, CreateWindowOutput{Window: info}, nil
}

func (s *Server) handleDestroyWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.DestroyWindow(window.ID(args.ID)); err != nil {
		return nil, nil, err
	}
	return textResult("destroyed window %d", args.ID), nil, nil
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Move(window.ID(args.ID), args.X, args.Y); err != nil {
		return nil, nil, err
	}
	return textResult("moved window %d to %d,%d", args.ID, args.X, args.Y), nil, nil
}

func (s *Server) handleResizeWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeWindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Resize(window.ID(args.ID), args.Width, args.Height); err != nil {
		return nil, nil, err
	}
	return textResult("resized window %d to %dx%d", args.ID, args.Width, args.Height), nil, nil
}

func (s *Server) handleRaiseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Raise(window.ID(args.ID)); err != nil {
		return nil, nil, err
	}
	return textResult("raised window %d", args.ID), nil, nil
}

func (s *Server) handleLowerWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Lower(window.ID(args.ID)); err != nil {
		return nil, nil, err
	}
	return textResult("lowered window %d", args.ID), nil, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Focus(window.ID(args.ID)); err != nil {
		return nil, nil, err
	}
	return textResult("focused window %d", args.ID), nil, nil
}

func (s *Server) handleFillWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args FillWindowInput) (*mcpsdk.CallToolResult, any, error) {
	c, err := config.ParseColor(args.Color)
	if err != nil {
		return nil, nil, err
	}
	r := window.Rect{X: args.X, Y: args.Y, Width: args.Width, Height: args.Height}
	if err := s.fill(window.ID(args.ID), c, r); err != nil {
		return nil, nil, err
	}
	return textResult("filled window %d with %s", args.ID, args.Color), nil, nil
}

// fill paints r of the window, or all of it when r is empty, and draws.
func (s *Server) fill(id window.ID, color uint32, r window.Rect) error {
	buf, err := s.daemon.GetBuffer(id)
	if err != nil {
		return err
	}
	if r.Empty() {
		buf.Fill(color)
	} else {
		buf.FillRect(r.X, r.Y, r.Width, r.Height, color)
	}
	return s.daemon.Draw(id)
}

func (s *Server) handleGetEvents(_ context.Context, _ *mcpsdk.CallToolRequest, args GetEventsInput) (*mcpsdk.CallToolResult, GetEventsOutput, error) {
	limit := args.Max
	if limit <= 0 {
		limit = defaultEventBatch
	}
	out := GetEventsOutput{Events: []EventInfo{}}
	for len(out.Events) < limit {
		rec, ok, err := s.daemon.GetEvent(window.ID(args.ID))
		if err != nil {
			return nil, GetEventsOutput{}, err
		}
		if !ok {
			break
		}
		out.Events = append(out.Events, EventInfo{
			Type: rec.Type.String(),
			Arg1: rec.Arg1,
			Arg2: rec.Arg2,
			Arg3: rec.Arg3,
			Arg4: rec.Arg4,
		})
	}
	return nil, out, nil
}

func parseButtons(names []string) (events.Button, error) {
	var b events.Button
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "left":
			b |= events.ButtonLeft
		case "right":
			b |= events.ButtonRight
		case "middle":
			b |= events.ButtonMiddle
		default:
			return 0, fmt.Errorf("unknown button %q", n)
		}
	}
	return b, nil
}

func parseMods(names []string) (events.Mod, error) {
	var m events.Mod
	for _, n := range names {
		mod, err := events.ParseMod(n)
		if err != nil {
			return 0, err
		}
		m |= mod
	}
	return m, nil
}

func (s *Server) handlePushPointer(_ context.Context, _ *mcpsdk.CallToolRequest, args PushPointerInput) (*mcpsdk.CallToolResult, any, error) {
	buttons, err := parseButtons(args.Buttons)
	if err != nil {
		return nil, nil, err
	}
	mods, err := parseMods(args.Mods)
	if err != nil {
		return nil, nil, err
	}
	if args.Scroll < -128 || args.Scroll > 127 {
		return nil, nil, fmt.Errorf("scroll %d out of range", args.Scroll)
	}
	p := events.Pointer{X: args.X, Y: args.Y, Buttons: buttons, Scroll: int8(args.Scroll), Mods: mods}
	if err := s.daemon.PushPointer(p); err != nil {
		return nil, nil, err
	}
	return textResult("pointer at %d,%d", args.X, args.Y), nil, nil
}

func (s *Server) handlePushKey(_ context.Context, _ *mcpsdk.CallToolRequest, args PushKeyInput) (*mcpsdk.CallToolResult, any, error) {
	key, err := events.ParseKey(args.Key)
	if err != nil {
		return nil, nil, err
	}
	mods, err := parseMods(args.Mods)
	if err != nil {
		return nil, nil, err
	}
	k := events.KeyInput{Key: key, Pressed: !args.Release, Repeat: 1, Mods: mods}
	if err := s.daemon.PushKey(k); err != nil {
		return nil, nil, err
	}
	action := "pressed"
	if args.Release {
		action = "released"
	}
	return textResult("%s %s", action, key), nil, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Width:    st.Width,
		Height:   st.Height,
		Windows:  st.Windows,
		Focused:  uint32(st.Focused),
		UptimeMS: st.UptimeMS,
		Frames:   st.Compositor.Frames,
		Socket:   st.Socket,
	}, nil
}

func (s *Server) handleScreenshot(_ context.Context, _ *mcpsdk.CallToolRequest, args ScreenshotInput) (*mcpsdk.CallToolResult, any, error) {
	w, h := args.MaxWidth, args.MaxHeight
	if w <= 0 {
		w = defaultScreenshotWidth
	}
	if h <= 0 {
		h = defaultScreenshotHeight
	}
	shot, err := s.daemon.Screenshot(w, h)
	if err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{Data: shot.PNG, MIMEType: "image/png"},
			&mcpsdk.TextContent{Text: fmt.Sprintf("%dx%d screenshot", shot.Width, shot.Height)},
		},
	}, nil, nil
}

func (s *Server) handleTile(_ context.Context, _ *mcpsdk.CallToolRequest, args TileInput) (*mcpsdk.CallToolResult, TileOutput, error) {
	res, err := s.daemon.Tile(args.Mode, args.Gap)
	if err != nil {
		return nil, TileOutput{}, err
	}
	return nil, TileOutput{Tiled: res.Tiled, Mode: res.Mode}, nil
}

func (s *Server) handleUndoTile(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.UndoTile(); err != nil {
		return nil, nil, err
	}
	return textResult("restored previous layout"), nil, nil
}
