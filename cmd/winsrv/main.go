package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/winsrv/internal/config"
	"github.com/1broseidon/winsrv/internal/daemon"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/tui"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "tile":
		os.Exit(runTile(os.Args[2:]))
	case "undo":
		os.Exit(runUndo(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "screenshot":
		os.Exit(runScreenshot(os.Args[2:]))
	case "workspace":
		os.Exit(runWorkspace(os.Args[2:]))
	case "demo":
		os.Exit(runDemo(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winsrv <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the window server (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "  screenshot          Write the current frame as PNG")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window list         List windows, front-most first")
	fmt.Fprintln(w, "  window create       Create a window")
	fmt.Fprintln(w, "  window destroy      Destroy a window")
	fmt.Fprintln(w, "  window move         Move a window")
	fmt.Fprintln(w, "  window resize       Resize a window")
	fmt.Fprintln(w, "  window raise        Raise a window within its class")
	fmt.Fprintln(w, "  window lower        Lower a window within its class")
	fmt.Fprintln(w, "  window focus        Give a window keyboard focus")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tile                Tile application windows")
	fmt.Fprintln(w, "  undo                Undo the last tiling operation")
	fmt.Fprintln(w, "  demo                Run a demo client against the daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  workspace save      Save window geometry under a name")
	fmt.Fprintln(w, "  workspace restore   Restore saved window geometry")
	fmt.Fprintln(w, "  workspace list      List saved workspaces")
	fmt.Fprintln(w, "  workspace delete    Delete a saved workspace")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive TUI")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Clients connect to $WINSRV_SOCKET when set.")
	fmt.Fprintln(w, "Run 'winsrv <command> --help' for command-specific options.")
}

// parseNoArgs parses a flag set that takes no positional arguments.
func parseNoArgs(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	client := ipc.NewClient()
	defer client.Close()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("socket:         %s\n", status.Socket)
	fmt.Printf("screen:         %dx%d\n", status.Width, status.Height)
	fmt.Printf("windows:        %d\n", status.Windows)
	fmt.Printf("focused:        %d\n", status.Focused)
	fmt.Printf("frames:         %d\n", status.Compositor.Frames)
	fmt.Printf("corrupt_frames: %d\n", status.Compositor.Corrupt)
	fmt.Printf("buffers:        %d (%d bytes)\n", status.Buffers.Buffers, status.Buffers.Bytes)
	fmt.Printf("uptime_ms:      %d\n", status.UptimeMS)
	return 0
}

func runUndo(args []string) int {
	fs := flag.NewFlagSet("undo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv undo")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Restore window geometry from before the last tile.")
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	client := ipc.NewClient()
	defer client.Close()
	if err := client.UndoTile(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runTile(args []string) int {
	fs := flag.NewFlagSet("tile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mode := fs.String("mode", "", "Layout mode: grid, vertical, horizontal, master_stack (default: configured)")
	gap := fs.Int("gap", -1, "Gap in pixels (default: configured)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv tile [--mode MODE] [--gap N]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	var gapPtr *int
	if *gap >= 0 {
		gapPtr = gap
	}
	client := ipc.NewClient()
	defer client.Close()
	res, err := client.Tile(*mode, gapPtr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("tiled %d windows (%s)\n", res.Tiled, res.Mode)
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to re-read its config file.")
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	client := ipc.NewClient()
	defer client.Close()
	if err := client.Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func runScreenshot(args []string) int {
	fs := flag.NewFlagSet("screenshot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	out := fs.String("out", "winsrv.png", "Output file")
	width := fs.Int("width", 0, "Maximum width (0: native)")
	height := fs.Int("height", 0, "Maximum height (0: native)")
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	client := ipc.NewClient()
	defer client.Close()
	shot, err := client.Screenshot(*width, *height)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := os.WriteFile(*out, shot.PNG, 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("wrote %s (%dx%d)\n", *out, shot.Width, shot.Height)
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  winsrv config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  winsrv config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  winsrv config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winsrv/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winsrv/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		_ = fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Printf("# loaded: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winsrv/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/winsrv/config.yaml)")

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: winsrv tui [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive TUI for inspecting and controlling the window server.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  tab, 1-3   Switch tabs (windows, screen, general)")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓   Select window")
		fmt.Fprintln(os.Stderr, "  r/l/f      Raise, lower or focus the selected window")
		fmt.Fprintln(os.Stderr, "  d          Destroy the selected window (asks first)")
		fmt.Fprintln(os.Stderr, "  t/u        Tile windows, undo the last tile")
		fmt.Fprintln(os.Stderr, "  e          Edit general settings (saves and reloads)")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C  Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := ipc.NewClient()
	defer client.Close()
	if err := tui.Run(client, *path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/winsrv/config.yaml)")
	socket := fs.String("socket", "", "Socket path (default: $WINSRV_SOCKET or the runtime dir)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv daemon [--path PATH] [--socket PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the window server in the foreground. SIGHUP reloads the config.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("daemon: configuration loaded",
		"files", res.Files,
		"screen", fmt.Sprintf("%dx%d", cfg.Screen.Width, cfg.Screen.Height),
		"sink", cfg.Display.Sink,
	)

	d, err := daemon.New(cfg, daemon.Options{
		ConfigPath: *path,
		SocketPath: *socket,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("daemon: startup failed", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				if sig == syscall.SIGHUP {
					logger.Info("daemon: SIGHUP, reloading config")
					if err := d.ReloadFromDisk(); err != nil {
						logger.Error("daemon: config reload failed", "error", err)
					}
					continue
				}
				logger.Info("daemon: shutting down", "signal", sig.String())
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon: run failed", "error", err)
		return 1
	}
	return 0
}
