package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winsrv/internal/events"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Events.QueueCapacity != 256 {
		t.Fatalf("queue_capacity = %d, want 256", cfg.Events.QueueCapacity)
	}
	if cfg.MoveMod() != events.ModSuper {
		t.Fatalf("move modifier = %v, want super", cfg.MoveMod())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Screen.Width != 1024 || len(res.Files) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Background != "#1e1e2e" {
		t.Fatalf("expected default background, got %q", res.Config.Background)
	}
}

func TestLoadFromPath_OverridesAndSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"screen:",
		"  width: 640",
		"input:",
		"  move_modifier: alt",
		"reaper:",
		"  interval: 2s",
		"log_level: debug",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Screen.Width != 640 || cfg.Screen.Height != 768 {
		t.Fatalf("screen = %+v", cfg.Screen)
	}
	if cfg.MoveMod() != events.ModAlt {
		t.Fatalf("move modifier = %v", cfg.MoveMod())
	}
	if cfg.Reaper.Interval != 2*time.Second || !cfg.Reaper.Enabled {
		t.Fatalf("reaper = %+v", cfg.Reaper)
	}

	val, src, err := Explain(res, "screen.width")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 640 || src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("explain screen.width = %v from %+v", val, src)
	}
	_, src, err = Explain(res, "tile.gap_size")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("tile.gap_size source = %+v, want default", src)
	}
	if _, _, err := Explain(res, "screen.depth"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "screen:\n  widht: 10\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected strict decode error")
	}
}

func TestLoadFromPath_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf.d", "10-display.yaml"), "display:\n  sink: png\n  png_path: /tmp/frame.png\n")
	writeFile(t, filepath.Join(dir, "conf.d", "20-tile.yaml"), "tile:\n  gap_size: 2\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include: conf.d\ntile:\n  gap_size: 4\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Display.Sink != SinkPNG || res.Config.Display.PNGPath != "/tmp/frame.png" {
		t.Fatalf("display = %+v", res.Config.Display)
	}
	// The including file is applied last.
	if res.Config.Tile.GapSize != 4 {
		t.Fatalf("gap_size = %d, want 4", res.Config.Tile.GapSize)
	}
	// Partial sections keep the other defaults.
	if res.Config.Display.Title != "winsrv" {
		t.Fatalf("title = %q", res.Config.Display.Title)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadFromPath_ValidationCarriesSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: loud\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "log_level" || verr.Source.Line != 1 {
		t.Fatalf("ValidationError = %+v", verr)
	}
	if !strings.Contains(err.Error(), filepath.Base(path)) {
		t.Fatalf("error %q does not name the file", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{name: "zero screen", mutate: func(c *Config) { c.Screen.Width = 0 }, path: "screen"},
		{name: "bad color", mutate: func(c *Config) { c.Background = "blue" }, path: "background"},
		{name: "queue", mutate: func(c *Config) { c.Events.QueueCapacity = 0 }, path: "events.queue_capacity"},
		{name: "modifier", mutate: func(c *Config) { c.Input.MoveModifier = "hyper" }, path: "input.move_modifier"},
		{name: "sink", mutate: func(c *Config) { c.Display.Sink = "wayland" }, path: "display.sink"},
		{name: "reaper", mutate: func(c *Config) { c.Reaper.Interval = time.Millisecond }, path: "reaper.interval"},
		{name: "gap", mutate: func(c *Config) { c.Tile.GapSize = -1 }, path: "tile.gap_size"},
		{name: "tile mode", mutate: func(c *Config) { c.Tile.Mode = "spiral" }, path: "tile.mode"},
		{name: "master", mutate: func(c *Config) { c.Tile.MasterPercent = 95 }, path: "tile.master_percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Fatalf("Validate() = %v, want ValidationError at %s", err, tt.path)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{in: "#1e1e2e", want: 0xFF1E1E2E},
		{in: "#801e1e2e", want: 0x801E1E2E},
		{in: "000000", want: 0xFF000000},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("expected error for short color")
	}
}

func TestSaveToRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Tile.GapSize = 12
	cfg.Reaper.Interval = 30 * time.Second

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Tile.GapSize != 12 || res.Config.Reaper.Interval != 30*time.Second {
		t.Fatalf("reloaded %+v", res.Config)
	}
}

func TestLoadFromPath_ShortcutsMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, filepath.Join(dir, "keys.yaml"), "shortcuts:\n  tile: Mod1-t\n")
	writeFile(t, path, "include: keys.yaml\nshortcuts:\n  undo: \"\"\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Config.Shortcuts; got.Tile != "Mod1-t" || got.Undo != "" {
		t.Fatalf("shortcuts = %+v", got)
	}
	value, src, err := Explain(res, "shortcuts.tile")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "Mod1-t" || src.Kind != SourceFile || !strings.HasSuffix(src.File, "keys.yaml") {
		t.Fatalf("explain = %v from %+v", value, src)
	}
}
