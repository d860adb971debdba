package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winsrv/internal/events"
)

// Screen sets the output frame size.
type Screen struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Detect sizes the screen from the primary X11 monitor at startup,
	// falling back to Width x Height.
	Detect bool `yaml:"detect"`
}

// Events configures the per-window event queues.
type Events struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// Input configures window management driven by raw input.
type Input struct {
	RaiseOnClick bool `yaml:"raise_on_click"`
	// MoveModifier is one of: super, alt, ctrl, shift, none.
	MoveModifier string `yaml:"move_modifier"`
}

// SinkKind selects where composited frames go.
type SinkKind string

const (
	SinkNone SinkKind = "none"
	SinkX11  SinkKind = "x11"
	SinkPNG  SinkKind = "png"
)

// Display configures the frame sink.
type Display struct {
	Sink SinkKind `yaml:"sink"`
	// Title names the X11 output window.
	Title string `yaml:"title"`
	// PNGPath is where the png sink writes. Empty uses the runtime dir.
	PNGPath string `yaml:"png_path"`
	// X11Display overrides $DISPLAY for the x11 sink and monitor detection.
	X11Display string `yaml:"x11_display,omitempty"`
}

// Reaper configures destruction of windows whose owner process exited.
type Reaper struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Tile configures the TILE arrangement of normal windows.
type Tile struct {
	GapSize int `yaml:"gap_size"`
	// Mode is one of: grid, vertical, horizontal, master_stack.
	Mode string `yaml:"mode"`
	// MasterPercent is the master column width for master_stack.
	MasterPercent int `yaml:"master_percent"`
}

// Shortcuts binds keys on the x11 output window, in xgbutil keybind
// syntax such as "Mod4-t". An empty sequence disables the shortcut.
type Shortcuts struct {
	Tile string `yaml:"tile"`
	Undo string `yaml:"undo"`
}

// Config is the effective daemon configuration.
type Config struct {
	Screen     Screen    `yaml:"screen"`
	Background string    `yaml:"background"`
	Events     Events    `yaml:"events"`
	Input      Input     `yaml:"input"`
	Display    Display   `yaml:"display"`
	Reaper     Reaper    `yaml:"reaper"`
	Tile       Tile      `yaml:"tile"`
	Shortcuts  Shortcuts `yaml:"shortcuts"`
	LogLevel   string    `yaml:"log_level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Screen:     Screen{Width: 1024, Height: 768},
		Background: "#1e1e2e",
		Events:     Events{QueueCapacity: events.DefaultCapacity},
		Input:      Input{RaiseOnClick: true, MoveModifier: "super"},
		Display:    Display{Sink: SinkNone, Title: "winsrv"},
		Reaper:     Reaper{Enabled: true, Interval: 10 * time.Second},
		Tile:       Tile{GapSize: 8, Mode: "grid", MasterPercent: 60},
		Shortcuts:  Shortcuts{Tile: "Mod4-t", Undo: "Mod4-u"},
		LogLevel:   "info",
	}
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winsrv", "config.yaml"), nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return &ValidationError{Path: "screen", Err: fmt.Errorf("screen width and height must be > 0")}
	}
	if c.Screen.Width > 16384 || c.Screen.Height > 16384 {
		return &ValidationError{Path: "screen", Err: fmt.Errorf("screen width and height must be <= 16384")}
	}
	if _, err := ParseColor(c.Background); err != nil {
		return &ValidationError{Path: "background", Err: err}
	}
	if c.Events.QueueCapacity < 1 {
		return &ValidationError{Path: "events.queue_capacity", Err: fmt.Errorf("queue_capacity must be >= 1")}
	}
	if _, err := events.ParseMod(c.Input.MoveModifier); err != nil {
		return &ValidationError{Path: "input.move_modifier", Err: fmt.Errorf("move_modifier must be one of: super, alt, ctrl, shift, none")}
	}
	switch c.Display.Sink {
	case SinkNone, SinkX11, SinkPNG:
	default:
		return &ValidationError{Path: "display.sink", Err: fmt.Errorf("sink must be one of: none, x11, png")}
	}
	if c.Reaper.Enabled && c.Reaper.Interval < 100*time.Millisecond {
		return &ValidationError{Path: "reaper.interval", Err: fmt.Errorf("interval must be >= 100ms")}
	}
	if c.Tile.GapSize < 0 {
		return &ValidationError{Path: "tile.gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	switch c.Tile.Mode {
	case "grid", "vertical", "horizontal", "master_stack":
	default:
		return &ValidationError{Path: "tile.mode", Err: fmt.Errorf("mode must be one of: grid, vertical, horizontal, master_stack")}
	}
	if c.Tile.MasterPercent < 10 || c.Tile.MasterPercent > 90 {
		return &ValidationError{Path: "tile.master_percent", Err: fmt.Errorf("master_percent must be between 10 and 90")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	return nil
}

// BackgroundColor returns the background as an ARGB word.
func (c *Config) BackgroundColor() uint32 {
	v, err := ParseColor(c.Background)
	if err != nil {
		return 0xFF000000
	}
	return v
}

// MoveMod returns the move modifier mask.
func (c *Config) MoveMod() events.Mod {
	m, _ := events.ParseMod(c.Input.MoveModifier)
	return m
}

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseColor accepts #rrggbb or #aarrggbb. A missing alpha is opaque.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("color %q must be #rrggbb or #aarrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}
	return uint32(v), nil
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
