package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/winsrv/internal/clock"
	"github.com/1broseidon/winsrv/internal/compositor"
	"github.com/1broseidon/winsrv/internal/events"
	"github.com/1broseidon/winsrv/internal/server"
	"github.com/1broseidon/winsrv/internal/tiling"
	"github.com/1broseidon/winsrv/internal/window"
)

type fixture struct {
	srv    *server.Server
	ipc    *Server
	client *Client
}

func newFixture(t *testing.T, reload func() error) *fixture {
	t.Helper()
	srv, err := server.New(server.Options{
		Width:      200,
		Height:     100,
		Background: 0xFF000000,
		Clock:      &clock.Manual{},
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	tiler := tiling.NewTiler(srv, window.Rect{Width: 200, Height: 100}, tiling.Layout{Mode: tiling.ModeGrid}, nil)

	sock := filepath.Join(t.TempDir(), "winsrv.sock")
	s, err := NewServer(srv, ServerOptions{SocketPath: sock, Reload: reload, Tiler: tiler})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)

	c := NewClientAt(sock)
	t.Cleanup(func() { c.Close() })
	return &fixture{srv: srv, ipc: s, client: c}
}

func TestCreateDrawScreenshot(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.client.CreateWindow(20, 10, false, false)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	buf, err := f.client.GetBuffer(id)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	buf.Fill(0xFF00FF00)
	if err := f.client.Draw(id); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	frame, err := f.srv.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if got := frame.Pixel(5, 5); got != 0xFF00FF00 {
		t.Fatalf("window pixel = %#x", got)
	}

	shot, err := f.client.Screenshot(100, 0)
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if shot.Width != 100 || shot.Height != 50 {
		t.Fatalf("screenshot size = %dx%d", shot.Width, shot.Height)
	}
	img, err := png.Decode(bytes.NewReader(shot.PNG))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("png bounds = %v", b)
	}
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"destroy unknown", func() error { return f.client.DestroyWindow(99) }, window.ErrInvalidHandle},
		{"zero size", func() error { _, err := f.client.CreateWindow(0, 10, false, false); return err }, window.ErrInvalidSize},
		{"event unknown", func() error { _, _, err := f.client.GetEvent(99); return err }, window.ErrInvalidHandle},
		{"move fixed", func() error {
			info, err := f.client.Create(CreateWindowPayload{Width: 10, Height: 10, Fixed: true})
			if err != nil {
				return err
			}
			return f.client.Move(info.ID, 5, 5)
		}, window.ErrCapabilityDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var remote *RemoteError
			if !errors.As(err, &remote) || remote.Code.Sentinel() != tt.want {
				t.Fatalf("err is not a matching RemoteError: %#v", err)
			}
		})
	}
}

func TestEventsOverSocket(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.client.CreateWindow(10, 10, false, false)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := f.client.GetEvent(id); err != nil || ok {
		t.Fatalf("GetEvent on empty queue = %v, %v", ok, err)
	}

	if err := f.client.Focus(id); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if err := f.client.PushKey(events.KeyInput{Key: 'x', Pressed: true, Repeat: 1}); err != nil {
		t.Fatalf("PushKey: %v", err)
	}
	rec, ok, err := f.client.GetEvent(id)
	if err != nil || !ok {
		t.Fatalf("GetEvent = %v, %v", ok, err)
	}
	if rec.Type != events.TypeKeyboard || rec.Arg1 != 'x' || rec.Arg2 != 1 {
		t.Fatalf("event = %+v", rec)
	}

	if err := f.client.Resize(id, 30, 20); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	rec, ok, _ = f.client.GetEvent(id)
	if !ok || rec.Type != events.TypeResize || rec.Arg1 != 30 || rec.Arg2 != 20 {
		t.Fatalf("resize event = %+v, %v", rec, ok)
	}
	buf, err := f.client.GetBuffer(id)
	if err != nil || buf.Width != 30 || buf.Height != 20 {
		t.Fatalf("buffer after resize = %+v, %v", buf, err)
	}
}

func TestListWindowsMarksFocus(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := f.client.CreateWindow(10, 10, false, false)
	b, _ := f.client.CreateWindow(10, 10, false, false)
	if err := f.client.Focus(a); err != nil {
		t.Fatal(err)
	}
	if err := f.client.Raise(b); err != nil {
		t.Fatal(err)
	}

	wins, err := f.client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(wins) != 2 || wins[0].ID != b {
		t.Fatalf("windows = %+v", wins)
	}
	for _, w := range wins {
		if w.Focused != (w.ID == a) {
			t.Fatalf("window %d focused = %v", w.ID, w.Focused)
		}
	}
}

func TestTileAndUndo(t *testing.T) {
	f := newFixture(t, nil)
	a, _ := f.client.CreateWindow(10, 10, false, false)
	b, _ := f.client.CreateWindow(10, 10, false, false)

	gap := 0
	res, err := f.client.Tile("horizontal", &gap)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if res.Tiled != 2 || res.Mode != "horizontal" {
		t.Fatalf("tile = %+v", res)
	}
	wa, _ := f.srv.Window(a)
	wb, _ := f.srv.Window(b)
	if wa.Bounds != (window.Rect{X: 0, Y: 0, Width: 100, Height: 100}) || wb.Bounds.X != 100 {
		t.Fatalf("tiled bounds = %+v, %+v", wa.Bounds, wb.Bounds)
	}

	if err := f.client.UndoTile(); err != nil {
		t.Fatalf("UndoTile: %v", err)
	}
	wa, _ = f.srv.Window(a)
	if wa.Bounds.Width != 10 {
		t.Fatalf("undo bounds = %+v", wa.Bounds)
	}

	if _, err := f.client.Tile("spiral", nil); err == nil {
		t.Fatalf("expected bad mode error")
	}
}

func TestReload(t *testing.T) {
	calls := 0
	f := newFixture(t, func() error {
		calls++
		if calls > 1 {
			return errors.New("broken")
		}
		return nil
	})
	if err := f.client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	err := f.client.Reload()
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != CodeBadRequest {
		t.Fatalf("second reload err = %v", err)
	}
}

func TestTimeAndStatus(t *testing.T) {
	f := newFixture(t, nil)
	ms, err := f.client.TimeMS()
	if err != nil || ms != 0 {
		t.Fatalf("TimeMS = %d, %v", ms, err)
	}
	st, err := f.client.GetStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !st.DaemonRunning || st.Socket != f.ipc.SocketPath() || st.Width != 200 {
		t.Fatalf("status = %+v", st)
	}
}

func TestRawProtocol(t *testing.T) {
	f := newFixture(t, nil)
	conn, err := net.DialTimeout("unix", f.ipc.SocketPath(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	send := func(line string) Response {
		t.Helper()
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatal(err)
		}
		data, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatal(err)
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatal(err)
		}
		return resp
	}

	tests := []struct {
		line string
		code ErrorCode
	}{
		{`{"command":"FROB"}`, CodeUnknownCommand},
		{`not json`, CodeBadRequest},
		{`{"command":"DESTROY_WINDOW"}`, CodeBadRequest},
		{`{"command":"PUSH_INPUT","payload":{}}`, CodeBadRequest},
		{`{"command":"DESTROY_WINDOW","payload":{"id":7}}`, CodeInvalidHandle},
	}
	for _, tt := range tests {
		resp := send(tt.line)
		if resp.Status != "ERROR" || resp.Code != tt.code {
			t.Fatalf("%s: response = %+v, want %s", tt.line, resp, tt.code)
		}
	}
	if resp := send(`{"command":"TIME_MS"}`); resp.Status != "OK" {
		t.Fatalf("connection unusable after errors: %+v", resp)
	}
}

func TestOversizedRequestIsRejected(t *testing.T) {
	srv, err := server.New(server.Options{Width: 50, Height: 50, Clock: &clock.Manual{}})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	sock := filepath.Join(t.TempDir(), "winsrv.sock")
	s, err := NewServer(srv, ServerOptions{SocketPath: sock, MaxRequestBytes: 64})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)

	conn, err := net.DialTimeout("unix", sock, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	// Longer than the limit and than bufio's default buffer.
	big := `{"command":"TIME_MS","payload":"` + strings.Repeat("x", 8192) + `"}`
	if _, err := conn.Write([]byte(big + "\n" + `{"command":"TIME_MS"}` + "\n")); err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"ERROR", "OK"} {
		data, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("response %d: %v", i, err)
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != want {
			t.Fatalf("response %d = %+v, want %s", i, resp, want)
		}
		if want == "ERROR" && resp.Code != CodeBadRequest {
			t.Fatalf("oversized request code = %s, want %s", resp.Code, CodeBadRequest)
		}
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "fits", in: "abcd\n", want: "abcd\n"},
		{name: "at limit", in: "abcdefgh\n", want: "abcdefgh\n"},
		{name: "over limit", in: "abcdefghi\nnext\n", wantErr: errRequestTooLarge},
		{name: "unterminated", in: "ab", want: "ab", wantErr: io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReaderSize(strings.NewReader(tt.in), 16)
			got, err := readLine(r, 8)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("readLine() error = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Fatalf("readLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDrawAfterServerResizeDropsStaleBuffer(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.client.CreateWindow(20, 10, false, false)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	stale, err := f.client.GetBuffer(id)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	stale.Fill(0xFF00FF00)

	// Resized behind the client's back, as TILE does.
	if err := f.srv.Resize(id, 40, 30); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := f.client.Draw(id); err != nil {
		t.Fatalf("Draw with stale buffer: %v", err)
	}

	fresh, err := f.client.GetBuffer(id)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if fresh == stale || fresh.Width != 40 || fresh.Height != 30 {
		t.Fatalf("buffer after resize = %dx%d (reused %v)", fresh.Width, fresh.Height, fresh == stale)
	}
	fresh.Fill(0xFFFF0000)
	if err := f.client.Draw(id); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	frame, err := f.srv.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if got := frame.Pixel(35, 25); got != 0xFFFF0000 {
		t.Fatalf("pixel = %#x, want red", got)
	}
}

func TestCodeFor(t *testing.T) {
	if CodeFor(compositor.ErrCorruptZOrder) != CodeCorruptZOrder {
		t.Fatalf("corrupt z-order code")
	}
	if CodeFor(errors.New("other")) != CodeInternal {
		t.Fatalf("unknown error code")
	}
}
