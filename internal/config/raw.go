package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// Raw* types mirror the file layout with pointer fields, so a key that is
// absent can be told apart from one set to its zero value when files are
// merged.

type RawScreen struct {
	Width  *int  `yaml:"width"`
	Height *int  `yaml:"height"`
	Detect *bool `yaml:"detect"`
}

type RawEvents struct {
	QueueCapacity *int `yaml:"queue_capacity"`
}

type RawInput struct {
	RaiseOnClick *bool   `yaml:"raise_on_click"`
	MoveModifier *string `yaml:"move_modifier"`
}

type RawDisplay struct {
	Sink       *SinkKind `yaml:"sink"`
	Title      *string   `yaml:"title"`
	PNGPath    *string   `yaml:"png_path"`
	X11Display *string   `yaml:"x11_display"`
}

type RawReaper struct {
	Enabled  *bool          `yaml:"enabled"`
	Interval *time.Duration `yaml:"interval"`
}

type RawTile struct {
	GapSize       *int    `yaml:"gap_size"`
	Mode          *string `yaml:"mode"`
	MasterPercent *int    `yaml:"master_percent"`
}

type RawShortcuts struct {
	Tile *string `yaml:"tile"`
	Undo *string `yaml:"undo"`
}

type RawConfig struct {
	Include    IncludeList   `yaml:"include"`
	Screen     *RawScreen    `yaml:"screen"`
	Background *string       `yaml:"background"`
	Events     *RawEvents    `yaml:"events"`
	Input      *RawInput     `yaml:"input"`
	Display    *RawDisplay   `yaml:"display"`
	Reaper     *RawReaper    `yaml:"reaper"`
	Tile       *RawTile      `yaml:"tile"`
	Shortcuts  *RawShortcuts `yaml:"shortcuts"`
	LogLevel   *string       `yaml:"log_level"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Screen != nil {
		merged := mergeRawScreen(derefOr(out.Screen), *overlay.Screen)
		out.Screen = &merged
	}
	if overlay.Background != nil {
		out.Background = overlay.Background
	}
	if overlay.Events != nil {
		merged := derefOr(out.Events)
		if overlay.Events.QueueCapacity != nil {
			merged.QueueCapacity = overlay.Events.QueueCapacity
		}
		out.Events = &merged
	}
	if overlay.Input != nil {
		merged := derefOr(out.Input)
		if overlay.Input.RaiseOnClick != nil {
			merged.RaiseOnClick = overlay.Input.RaiseOnClick
		}
		if overlay.Input.MoveModifier != nil {
			merged.MoveModifier = overlay.Input.MoveModifier
		}
		out.Input = &merged
	}
	if overlay.Display != nil {
		merged := mergeRawDisplay(derefOr(out.Display), *overlay.Display)
		out.Display = &merged
	}
	if overlay.Reaper != nil {
		merged := derefOr(out.Reaper)
		if overlay.Reaper.Enabled != nil {
			merged.Enabled = overlay.Reaper.Enabled
		}
		if overlay.Reaper.Interval != nil {
			merged.Interval = overlay.Reaper.Interval
		}
		out.Reaper = &merged
	}
	if overlay.Tile != nil {
		merged := derefOr(out.Tile)
		if overlay.Tile.GapSize != nil {
			merged.GapSize = overlay.Tile.GapSize
		}
		if overlay.Tile.Mode != nil {
			merged.Mode = overlay.Tile.Mode
		}
		if overlay.Tile.MasterPercent != nil {
			merged.MasterPercent = overlay.Tile.MasterPercent
		}
		out.Tile = &merged
	}
	if overlay.Shortcuts != nil {
		merged := derefOr(out.Shortcuts)
		if overlay.Shortcuts.Tile != nil {
			merged.Tile = overlay.Shortcuts.Tile
		}
		if overlay.Shortcuts.Undo != nil {
			merged.Undo = overlay.Shortcuts.Undo
		}
		out.Shortcuts = &merged
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}

	// Includes are resolved per file and never merged.
	out.Include = nil
	return out
}

func derefOr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func mergeRawScreen(base RawScreen, overlay RawScreen) RawScreen {
	out := base
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.Detect != nil {
		out.Detect = overlay.Detect
	}
	return out
}

func mergeRawDisplay(base RawDisplay, overlay RawDisplay) RawDisplay {
	out := base
	if overlay.Sink != nil {
		out.Sink = overlay.Sink
	}
	if overlay.Title != nil {
		out.Title = overlay.Title
	}
	if overlay.PNGPath != nil {
		out.PNGPath = overlay.PNGPath
	}
	if overlay.X11Display != nil {
		out.X11Display = overlay.X11Display
	}
	return out
}
