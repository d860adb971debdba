package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/1broseidon/winsrv/internal/clock"
	"github.com/1broseidon/winsrv/internal/config"
	"github.com/1broseidon/winsrv/internal/hotkeys"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/platform"
	"github.com/1broseidon/winsrv/internal/runtimepath"
	"github.com/1broseidon/winsrv/internal/server"
	"github.com/1broseidon/winsrv/internal/tiling"
	"github.com/1broseidon/winsrv/internal/window"
	"github.com/1broseidon/winsrv/internal/x11"
)

// Options configures a Daemon.
type Options struct {
	// ConfigPath is reloaded on RELOAD and SIGHUP. Empty uses the default path.
	ConfigPath string
	// SocketPath overrides the runtime socket location.
	SocketPath string
	Logger     *slog.Logger
	Clock      clock.Clock
}

// Daemon owns the window server and everything serving it: the IPC
// socket, the reaper, the tiler and the display sinks.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	srv     *server.Server
	ipc     *ipc.Server
	tiler   *tiling.Tiler
	reaper  *Reaper
	backend *platform.LinuxBackend
	output  *x11.Output
	hotkeys *hotkeys.Handler
	png     *platform.PNGSink

	mu           sync.Mutex
	cfg          *config.Config
	runCtx       context.Context
	reaperCancel context.CancelFunc
}

// InputOptions converts the input section for the server.
func InputOptions(cfg *config.Config) server.InputOptions {
	return server.InputOptions{
		RaiseOnClick: cfg.Input.RaiseOnClick,
		MoveModifier: cfg.MoveMod(),
	}
}

// LayoutFor converts the tile section for the tiler.
func LayoutFor(cfg *config.Config) tiling.Layout {
	mode, err := tiling.ParseMode(cfg.Tile.Mode)
	if err != nil {
		mode = tiling.ModeGrid
	}
	return tiling.Layout{Mode: mode, Gap: cfg.Tile.GapSize, MasterPercent: cfg.Tile.MasterPercent}
}

// New builds a daemon from cfg. It connects to X11 only when the screen is
// detected or the x11 sink is selected.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Daemon{opts: opts, logger: logger, cfg: cfg}

	width, height := cfg.Screen.Width, cfg.Screen.Height
	if cfg.Screen.Detect || cfg.Display.Sink == config.SinkX11 {
		backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display.X11Display)
		if err != nil {
			if cfg.Display.Sink == config.SinkX11 {
				return nil, err
			}
			logger.Warn("daemon: screen detection unavailable", "error", err)
		} else {
			d.backend = backend
		}
	}
	if cfg.Screen.Detect && d.backend != nil {
		w, h, err := platform.ScreenSize(d.backend, width, height)
		if err != nil {
			logger.Warn("daemon: screen detection failed", "error", err)
		}
		width, height = w, h
	}

	srv, err := server.New(server.Options{
		Width:         width,
		Height:        height,
		Background:    cfg.BackgroundColor(),
		QueueCapacity: cfg.Events.QueueCapacity,
		Input:         InputOptions(cfg),
		Clock:         opts.Clock,
		Logger:        logger.With("component", "server"),
	})
	if err != nil {
		d.close()
		return nil, err
	}
	d.srv = srv

	d.tiler = tiling.NewTiler(srv, window.Rect{Width: width, Height: height}, LayoutFor(cfg), logger.With("component", "tiling"))
	d.reaper = NewReaper(ReaperConfig{Interval: cfg.Reaper.Interval, Logger: logger.With("component", "reaper")}, srv)

	d.ipc, err = ipc.NewServer(srv, ipc.ServerOptions{
		SocketPath: opts.SocketPath,
		Logger:     logger.With("component", "ipc"),
		Reload:     d.ReloadFromDisk,
		Tiler:      d.tiler,
	})
	if err != nil {
		d.close()
		return nil, err
	}

	if err := d.attachSink(cfg, width, height); err != nil {
		d.close()
		return nil, err
	}

	logger.Info("daemon: ready", "width", width, "height", height, "sink", cfg.Display.Sink)
	return d, nil
}

func (d *Daemon) attachSink(cfg *config.Config, width, height int) error {
	switch cfg.Display.Sink {
	case config.SinkX11:
		out, err := d.backend.OpenOutput(cfg.Display.Title, width, height)
		if err != nil {
			return err
		}
		out.BindInput(d.srv)
		out.OnClose(func() {
			d.logger.Info("daemon: output window closed")
			d.backend.Quit()
		})
		d.output = out
		d.hotkeys = hotkeys.NewHandler(out, d.logger.With("component", "hotkeys"))
		if err := d.hotkeys.Bind(hotkeys.Bindings(cfg.Shortcuts, d.tiler)); err != nil {
			d.logger.Warn("daemon: some shortcuts were not bound", "error", err)
		}
		return d.srv.AttachSink(out)
	case config.SinkPNG:
		path := cfg.Display.PNGPath
		if path == "" {
			p, err := runtimepath.FramePath()
			if err != nil {
				return err
			}
			path = p
		}
		sink, err := platform.NewPNGSink(path)
		if err != nil {
			return err
		}
		d.png = sink
		d.logger.Info("daemon: writing frames", "path", path)
		return d.srv.AttachSink(sink)
	default:
		return nil
	}
}

// Server returns the window server.
func (d *Daemon) Server() *server.Server {
	return d.srv
}

// Tiler returns the tiler.
func (d *Daemon) Tiler() *tiling.Tiler {
	return d.tiler
}

// Reaper returns the reaper.
func (d *Daemon) Reaper() *Reaper {
	return d.reaper
}

// SocketPath returns the IPC socket path.
func (d *Daemon) SocketPath() string {
	return d.ipc.SocketPath()
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Run serves IPC and runs the reaper until ctx is done. With an X11 output
// the X event loop runs too, and closing the output window ends Run.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.ipc.Start(); err != nil {
		return err
	}
	defer d.ipc.Stop()

	d.mu.Lock()
	d.runCtx = ctx
	if d.cfg.Reaper.Enabled {
		d.startReaperLocked()
	}
	d.mu.Unlock()

	if d.output != nil {
		go func() {
			d.backend.EventLoop()
			cancel()
		}()
	}

	<-ctx.Done()

	d.mu.Lock()
	d.stopReaperLocked()
	d.runCtx = nil
	d.mu.Unlock()

	d.close()
	d.logger.Info("daemon: stopped")
	return nil
}

func (d *Daemon) startReaperLocked() {
	if d.reaperCancel != nil || d.runCtx == nil {
		return
	}
	ctx, cancel := context.WithCancel(d.runCtx)
	d.reaperCancel = cancel
	d.reaper.Reap()
	go d.reaper.Run(ctx)
}

func (d *Daemon) stopReaperLocked() {
	if d.reaperCancel != nil {
		d.reaperCancel()
		d.reaperCancel = nil
	}
}

// Reload applies the settings that can change at runtime: background,
// input, tiling, shortcuts and reaper. Screen size and sink selection need a restart.
func (d *Daemon) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.cfg
	if old.Screen != cfg.Screen || old.Display != cfg.Display || old.Events != cfg.Events {
		d.logger.Warn("daemon: screen, display and events settings apply after restart")
	}

	if err := d.srv.SetBackground(cfg.BackgroundColor()); err != nil {
		return fmt.Errorf("apply background: %w", err)
	}
	d.srv.UpdateInput(InputOptions(cfg))
	d.tiler.SetLayout(LayoutFor(cfg))
	if d.hotkeys != nil && old.Shortcuts != cfg.Shortcuts {
		if err := d.hotkeys.Bind(hotkeys.Bindings(cfg.Shortcuts, d.tiler)); err != nil {
			d.logger.Warn("daemon: some shortcuts were not bound", "error", err)
		}
	}
	d.reaper.SetInterval(cfg.Reaper.Interval)
	if cfg.Reaper.Enabled {
		d.startReaperLocked()
	} else {
		d.stopReaperLocked()
	}

	d.cfg = cfg
	d.logger.Info("daemon: config reloaded")
	return nil
}

// ReloadFromDisk loads the config file again and applies it.
func (d *Daemon) ReloadFromDisk() error {
	var (
		res *config.LoadResult
		err error
	)
	if d.opts.ConfigPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(d.opts.ConfigPath)
	}
	if err != nil {
		return err
	}
	return d.Reload(res.Config)
}

func (d *Daemon) close() {
	if d.output != nil {
		d.output.Close()
		d.output = nil
	}
	if d.backend != nil {
		d.backend.Disconnect()
		d.backend = nil
	}
}
