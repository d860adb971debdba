package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/1broseidon/winsrv/internal/config"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

func printWindowUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  winsrv window list [--json]")
	fmt.Fprintln(w, "  winsrv window create --width W --height H [--x X] [--y Y] [--class CLASS] [--color COLOR]")
	fmt.Fprintln(w, "  winsrv window destroy <id>")
	fmt.Fprintln(w, "  winsrv window move <id> <x> <y>")
	fmt.Fprintln(w, "  winsrv window resize <id> <width> <height>")
	fmt.Fprintln(w, "  winsrv window raise <id>")
	fmt.Fprintln(w, "  winsrv window lower <id>")
	fmt.Fprintln(w, "  winsrv window focus <id>")
}

func runWindow(args []string) int {
	if len(args) == 0 {
		printWindowUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "list":
		return runWindowList(args[1:])
	case "create":
		return runWindowCreate(args[1:])
	case "destroy":
		return runWindowByID("destroy", args[1:], (*ipc.Client).DestroyWindow)
	case "raise":
		return runWindowByID("raise", args[1:], (*ipc.Client).Raise)
	case "lower":
		return runWindowByID("lower", args[1:], (*ipc.Client).Lower)
	case "focus":
		return runWindowByID("focus", args[1:], (*ipc.Client).Focus)
	case "move":
		return runWindowPair("move", args[1:], (*ipc.Client).Move)
	case "resize":
		return runWindowPair("resize", args[1:], (*ipc.Client).Resize)
	case "help", "-h", "--help":
		printWindowUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown window command: %s\n\n", args[0])
		printWindowUsage(os.Stderr)
		return 2
	}
}

func parseWindowID(s string) (window.ID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return window.ID(v), nil
}

func runWindowList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	client := ipc.NewClient()
	defer client.Close()
	wins, err := client.ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(wins); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	writeWindowTable(os.Stdout, wins)
	return 0
}

func writeWindowTable(w io.Writer, wins []ipc.WindowInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tX\tY\tW\tH\tZ\tFOCUS")
	for _, info := range wins {
		focus := ""
		if info.Focused {
			focus = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			info.ID, info.Class, info.X, info.Y, info.Width, info.Height, info.Z, focus)
	}
	tw.Flush()
}

func runWindowCreate(args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var p ipc.CreateWindowPayload
	fs.IntVar(&p.Width, "width", 0, "Width in pixels")
	fs.IntVar(&p.Height, "height", 0, "Height in pixels")
	fs.IntVar(&p.X, "x", 0, "Left edge")
	fs.IntVar(&p.Y, "y", 0, "Top edge")
	fs.StringVar(&p.Class, "class", "", "Stacking class: wallpaper, window, bar, popup (default: window)")
	fs.BoolVar(&p.Transparent, "transparent", false, "Blend with per-pixel alpha")
	fs.BoolVar(&p.TreatAsTransparent, "click-through", false, "Exclude from hit testing")
	fs.BoolVar(&p.Fixed, "fixed", false, "Refuse moves")
	fs.BoolVar(&p.NoResize, "no-resize", false, "Refuse resizes")
	fs.BoolVar(&p.NoInput, "no-input", false, "Never receive input events")
	colorFlag := fs.String("color", "", "Fill color (#rrggbb or #aarrggbb)")
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	var fill uint32
	if *colorFlag != "" {
		c, err := config.ParseColor(*colorFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fill = c
	}

	client := ipc.NewClient()
	defer client.Close()
	info, err := client.Create(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *colorFlag != "" {
		buf, err := client.GetBuffer(info.ID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		buf.Fill(fill)
		if err := client.Draw(info.ID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	fmt.Println(info.ID)
	return 0
}

func runWindowByID(name string, args []string, fn func(*ipc.Client, window.ID) error) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: winsrv window %s <id>\n", name)
		return 2
	}
	id, err := parseWindowID(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	defer client.Close()
	if err := fn(client, id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runWindowPair(name string, args []string, fn func(*ipc.Client, window.ID, int, int) error) int {
	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: winsrv window %s <id> <a> <b>\n", name)
		return 2
	}
	id, err := parseWindowID(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	a, errA := strconv.Atoi(args[1])
	b, errB := strconv.Atoi(args[2])
	if errA != nil || errB != nil {
		fmt.Fprintf(os.Stderr, "%s expects integer arguments\n", name)
		return 2
	}

	client := ipc.NewClient()
	defer client.Close()
	if err := fn(client, id, a, b); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
