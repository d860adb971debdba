package tui

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winsrv/internal/platform"
)

// screenMsg carries a fresh screenshot.
type screenMsg struct {
	img image.Image
	err error
}

// ScreenTab previews the composited output with half-block characters,
// two pixel rows per terminal row.
type ScreenTab struct {
	daemon Daemon

	img image.Image
	err error

	width  int
	height int
}

// NewScreenTab creates a ScreenTab.
func NewScreenTab(d Daemon) ScreenTab {
	return ScreenTab{daemon: d}
}

// Fetch requests a screenshot sized for the current tab area.
func (st ScreenTab) Fetch() tea.Cmd {
	d := st.daemon
	cols, rows := st.width, max(1, st.height-1)
	return func() tea.Msg {
		shot, err := d.Screenshot(cols, rows*2)
		if err != nil {
			return screenMsg{err: err}
		}
		img, err := png.Decode(bytes.NewReader(shot.PNG))
		return screenMsg{img: img, err: err}
	}
}

// Update implements tea.Model.
func (st ScreenTab) Update(msg tea.Msg) (ScreenTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		st.width = msg.Width
		st.height = msg.Height
	case screenMsg:
		st.err = msg.err
		if msg.err == nil {
			st.img = msg.img
		}
	}
	return st, nil
}

// View implements tea.Model.
func (st ScreenTab) View() string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if st.img == nil {
		msg := "waiting for screenshot"
		if st.err != nil {
			msg = "screenshot failed: " + st.err.Error()
		}
		return dim.Width(st.width).Height(st.height).Align(lipgloss.Center, lipgloss.Center).Render(msg)
	}

	b := st.img.Bounds()
	caption := dim.Render(fmt.Sprintf("preview %dx%d", b.Dx(), b.Dy()))
	if st.err != nil {
		caption += dim.Render("  (stale: " + st.err.Error() + ")")
	}
	return renderHalfBlocks(st.img, st.width, max(1, st.height-1)) + "\n" + caption
}

// renderHalfBlocks draws img into at most cols x rows cells. Each cell is
// an upper half block with the top pixel as foreground and the bottom
// pixel as background.
func renderHalfBlocks(img image.Image, cols, rows int) string {
	b := img.Bounds()
	if cols <= 0 || rows <= 0 || b.Empty() {
		return ""
	}
	w, h := platform.FitSize(b.Dx(), b.Dy(), cols, rows*2)
	var src image.Image = img
	if w != b.Dx() || h != b.Dy() {
		src = platform.Scale(img, w, h)
	}
	sb := src.Bounds()

	var out strings.Builder
	for y := sb.Min.Y; y < sb.Max.Y; y += 2 {
		if y > sb.Min.Y {
			out.WriteByte('\n')
		}
		for x := sb.Min.X; x < sb.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(src, x, y))
			if y+1 < sb.Max.Y {
				style = style.Background(hexColor(src, x, y+1))
			}
			out.WriteString(style.Render("▀"))
		}
	}
	return out.String()
}

func hexColor(img image.Image, x, y int) lipgloss.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
