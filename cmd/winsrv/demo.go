package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

var demoPalette = []uint32{0xFF3B82F6, 0xFF10B981, 0xFFF59E0B, 0xFFEF4444, 0xFF8B5CF6}

// demoWindow is one client window and the color it paints itself.
type demoWindow struct {
	id    window.ID
	color int
}

// demoApp drives a handful of windows through the client API: it paints
// on REDRAW and RESIZE, recolors on click, and bounces a popup.
type demoApp struct {
	client *ipc.Client
	width  int
	height int

	bar     window.ID
	popup   window.ID
	popX    int
	popDX   int
	popSide int
	apps    []*demoWindow
	quit    bool
	frames  int
}

func runDemo(args []string) int {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	frames := fs.Int("frames", 0, "Stop after N frames (0: until 'q' or Ctrl+C)")
	interval := fs.Uint64("interval", 16, "Milliseconds between frames")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winsrv demo [--frames N] [--interval MS]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Create a bar, two application windows and a bouncing popup.")
		fmt.Fprintln(os.Stderr, "Click a window to recolor it, press q in one to quit.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if rc, ok := parseNoArgs(fs, args); !ok {
		return rc
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := ipc.NewClient()
	defer client.Close()
	if err := demo(ctx, client, *frames, *interval); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func demo(ctx context.Context, client *ipc.Client, frames int, interval uint64) error {
	app, err := newDemoApp(client)
	if err != nil {
		return err
	}
	defer app.close()

	start, err := client.TimeMS()
	if err != nil {
		return err
	}
	for !app.quit && (frames == 0 || app.frames < frames) {
		if err := app.step(); err != nil {
			return err
		}
		if err := client.Sleep(ctx, interval); err != nil {
			break
		}
	}
	end, err := client.TimeMS()
	if err != nil {
		return err
	}
	fmt.Printf("demo: %d frames in %d ms\n", app.frames, end-start)
	return nil
}

func newDemoApp(client *ipc.Client) (*demoApp, error) {
	status, err := client.GetStatus()
	if err != nil {
		return nil, err
	}
	app := &demoApp{client: client, width: status.Width, height: status.Height, popDX: 4}

	barH := max(1, app.height/20)
	bar, err := client.Create(ipc.CreateWindowPayload{
		Width: app.width, Height: barH, Class: "bar", Fixed: true, NoResize: true, NoInput: true,
	})
	if err != nil {
		return nil, err
	}
	app.bar = bar.ID
	if err := app.paint(app.bar, 0xFF1F2937); err != nil {
		return nil, err
	}

	w, h := max(1, app.width/3), max(1, app.height/3)
	for i := 0; i < 2; i++ {
		info, err := client.Create(ipc.CreateWindowPayload{
			Width: w, Height: h, X: app.width/8 + i*w/2, Y: app.height/4 + i*h/3,
		})
		if err != nil {
			app.close()
			return nil, err
		}
		dw := &demoWindow{id: info.ID, color: i}
		app.apps = append(app.apps, dw)
		if err := app.paint(dw.id, demoPalette[dw.color]); err != nil {
			app.close()
			return nil, err
		}
	}

	side := max(1, app.height/12)
	app.popSide = side
	pop, err := client.Create(ipc.CreateWindowPayload{
		Width: side, Height: side, Y: app.height - side, Class: "popup",
		Transparent: true, TreatAsTransparent: true, NoInput: true,
	})
	if err != nil {
		app.close()
		return nil, err
	}
	app.popup = pop.ID
	if err := app.paint(app.popup, 0x80FFFFFF); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (a *demoApp) paint(id window.ID, c uint32) error {
	buf, err := a.client.GetBuffer(id)
	if err != nil {
		return err
	}
	buf.Fill(c)
	return a.client.Draw(id)
}

// step drains every window's queue and advances the popup one frame.
func (a *demoApp) step() error {
	for _, w := range a.apps {
		if err := a.drain(w); err != nil {
			return err
		}
	}

	side := a.popSide
	a.popX += a.popDX
	if a.popX < 0 || a.popX+side > a.width {
		a.popDX = -a.popDX
		a.popX += 2 * a.popDX
	}
	if err := a.client.Move(a.popup, a.popX, a.height-side); err != nil {
		return err
	}
	a.frames++
	return nil
}

func (a *demoApp) drain(w *demoWindow) error {
	for {
		rec, ok, err := a.client.GetEvent(w.id)
		if err != nil || !ok {
			return err
		}
		ev, err := events.Decode(rec)
		if err != nil {
			continue
		}
		switch e := ev.(type) {
		case events.Mouse:
			if e.Buttons&events.ButtonLeft != 0 {
				w.color = (w.color + 1) % len(demoPalette)
				if err := a.paint(w.id, demoPalette[w.color]); err != nil {
					return err
				}
			}
		case events.Keyboard:
			if e.Pressed && (e.Key == 'q' || e.Key == events.KeyEscape) {
				a.quit = true
			}
		case events.Resize, events.Redraw:
			if err := a.paint(w.id, demoPalette[w.color]); err != nil {
				return err
			}
		}
	}
}

func (a *demoApp) close() {
	ids := []window.ID{a.bar, a.popup}
	for _, w := range a.apps {
		ids = append(ids, w.id)
	}
	for _, id := range ids {
		if id != 0 {
			_ = a.client.DestroyWindow(id)
		}
	}
}
