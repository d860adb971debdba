package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	screen, screen.width, screen.height, screen.detect
//	background
//	events.queue_capacity
//	input.raise_on_click, input.move_modifier
//	display.sink, display.title, display.png_path, display.x11_display
//	reaper.enabled, reaper.interval
//	tile.gap_size, tile.mode, tile.master_percent
//	shortcuts.tile, shortcuts.undo
//	log_level
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := ""
	if len(parts) == 2 {
		leaf = parts[1]
	} else if len(parts) > 2 {
		return nil, fmt.Errorf("unknown path %q", path)
	}

	section := func(whole any, fields map[string]any) (any, error) {
		if leaf == "" {
			return whole, nil
		}
		v, ok := fields[leaf]
		if !ok {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		return v, nil
	}
	scalar := func(v any) (any, error) {
		if leaf != "" {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "screen":
		return section(cfg.Screen, map[string]any{
			"width":  cfg.Screen.Width,
			"height": cfg.Screen.Height,
			"detect": cfg.Screen.Detect,
		})
	case "background":
		return scalar(cfg.Background)
	case "events":
		return section(cfg.Events, map[string]any{
			"queue_capacity": cfg.Events.QueueCapacity,
		})
	case "input":
		return section(cfg.Input, map[string]any{
			"raise_on_click": cfg.Input.RaiseOnClick,
			"move_modifier":  cfg.Input.MoveModifier,
		})
	case "display":
		return section(cfg.Display, map[string]any{
			"sink":        string(cfg.Display.Sink),
			"title":       cfg.Display.Title,
			"png_path":    cfg.Display.PNGPath,
			"x11_display": cfg.Display.X11Display,
		})
	case "reaper":
		return section(cfg.Reaper, map[string]any{
			"enabled":  cfg.Reaper.Enabled,
			"interval": cfg.Reaper.Interval.String(),
		})
	case "tile":
		return section(cfg.Tile, map[string]any{
			"gap_size":       cfg.Tile.GapSize,
			"mode":           cfg.Tile.Mode,
			"master_percent": cfg.Tile.MasterPercent,
		})
	case "shortcuts":
		return section(cfg.Shortcuts, map[string]any{
			"tile": cfg.Shortcuts.Tile,
			"undo": cfg.Shortcuts.Undo,
		})
	case "log_level":
		return scalar(cfg.LogLevel)
	default:
		return nil, fmt.Errorf("unknown path %q", path)
	}
}
