package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies a merged raw config over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if s := raw.Screen; s != nil {
		if s.Width != nil {
			cfg.Screen.Width = *s.Width
		}
		if s.Height != nil {
			cfg.Screen.Height = *s.Height
		}
		if s.Detect != nil {
			cfg.Screen.Detect = *s.Detect
		}
	}
	if raw.Background != nil {
		cfg.Background = *raw.Background
	}
	if raw.Events != nil && raw.Events.QueueCapacity != nil {
		cfg.Events.QueueCapacity = *raw.Events.QueueCapacity
	}
	if in := raw.Input; in != nil {
		if in.RaiseOnClick != nil {
			cfg.Input.RaiseOnClick = *in.RaiseOnClick
		}
		if in.MoveModifier != nil {
			cfg.Input.MoveModifier = *in.MoveModifier
		}
	}
	if d := raw.Display; d != nil {
		if d.Sink != nil {
			cfg.Display.Sink = *d.Sink
		}
		if d.Title != nil {
			cfg.Display.Title = *d.Title
		}
		if d.PNGPath != nil {
			cfg.Display.PNGPath = *d.PNGPath
		}
		if d.X11Display != nil {
			cfg.Display.X11Display = *d.X11Display
		}
	}
	if r := raw.Reaper; r != nil {
		if r.Enabled != nil {
			cfg.Reaper.Enabled = *r.Enabled
		}
		if r.Interval != nil {
			cfg.Reaper.Interval = *r.Interval
		}
	}
	if t := raw.Tile; t != nil {
		if t.GapSize != nil {
			cfg.Tile.GapSize = *t.GapSize
		}
		if t.Mode != nil {
			cfg.Tile.Mode = *t.Mode
		}
		if t.MasterPercent != nil {
			cfg.Tile.MasterPercent = *t.MasterPercent
		}
	}
	if sc := raw.Shortcuts; sc != nil {
		if sc.Tile != nil {
			cfg.Shortcuts.Tile = *sc.Tile
		}
		if sc.Undo != nil {
			cfg.Shortcuts.Undo = *sc.Undo
		}
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	return cfg, nil
}
