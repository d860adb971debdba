package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

// windowItem implements list.Item for the window list.
type windowItem struct {
	info ipc.WindowInfo
}

func (i windowItem) Title() string {
	prefix := "  "
	if i.info.Focused {
		prefix = "* "
	}
	return fmt.Sprintf("%s#%d %s %dx%d", prefix, i.info.ID, i.info.Class, i.info.Width, i.info.Height)
}

func (i windowItem) Description() string { return "" }
func (i windowItem) FilterValue() string { return fmt.Sprintf("%d %s", i.info.ID, i.info.Class) }

// actionMsg reports the outcome of a window action.
type actionMsg struct {
	text string
	err  error
}

// WindowsTab lists live windows and acts on the selected one.
type WindowsTab struct {
	list   list.Model
	daemon Daemon

	confirming bool
	confirm    *huh.Form
	// confirmYes is heap allocated so the form's pointer survives model copies.
	confirmYes *bool
	confirmID  window.ID

	statusText string

	width  int
	height int
}

// NewWindowsTab creates a WindowsTab.
func NewWindowsTab(d Daemon) WindowsTab {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Windows (front-most first)"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return WindowsTab{list: l, daemon: d}
}

// SetWindows replaces the list content, keeping the selection on the same
// window id when it still exists.
func (wt *WindowsTab) SetWindows(wins []ipc.WindowInfo) {
	var selected window.ID
	if it, ok := wt.list.SelectedItem().(windowItem); ok {
		selected = it.info.ID
	}
	items := make([]list.Item, len(wins))
	index := 0
	for i, w := range wins {
		items[i] = windowItem{info: w}
		if w.ID == selected {
			index = i
		}
	}
	wt.list.SetItems(items)
	if len(items) > 0 {
		wt.list.Select(index)
	}
}

func (wt WindowsTab) selected() (ipc.WindowInfo, bool) {
	it, ok := wt.list.SelectedItem().(windowItem)
	return it.info, ok
}

// Capturing reports whether the tab owns all key input.
func (wt WindowsTab) Capturing() bool {
	return wt.confirming
}

// Update implements tea.Model.
func (wt WindowsTab) Update(msg tea.Msg) (WindowsTab, tea.Cmd) {
	if wt.confirming {
		return wt.updateConfirm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		wt.width = msg.Width
		wt.height = msg.Height
		wt.list.SetSize(wt.listWidth(), max(1, msg.Height-1))
		return wt, nil
	case actionMsg:
		if msg.err != nil {
			wt.statusText = "error: " + msg.err.Error()
		} else {
			wt.statusText = msg.text
		}
		return wt, nil
	case tea.KeyMsg:
		info, ok := wt.selected()
		switch msg.String() {
		case "r":
			if ok {
				return wt, wt.act(fmt.Sprintf("raised #%d", info.ID), func() error { return wt.daemon.Raise(info.ID) })
			}
		case "l":
			if ok {
				return wt, wt.act(fmt.Sprintf("lowered #%d", info.ID), func() error { return wt.daemon.Lower(info.ID) })
			}
		case "f":
			if ok {
				return wt, wt.act(fmt.Sprintf("focused #%d", info.ID), func() error { return wt.daemon.Focus(info.ID) })
			}
		case "d":
			if ok {
				wt.startConfirm(info.ID)
				return wt, wt.confirm.Init()
			}
		case "t":
			d := wt.daemon
			return wt, func() tea.Msg {
				res, err := d.Tile("", nil)
				if err != nil {
					return actionMsg{err: err}
				}
				return actionMsg{text: fmt.Sprintf("tiled %d windows (%s)", res.Tiled, res.Mode)}
			}
		case "u":
			return wt, wt.act("restored previous layout", wt.daemon.UndoTile)
		}
	}

	var cmd tea.Cmd
	wt.list, cmd = wt.list.Update(msg)
	return wt, cmd
}

func (wt WindowsTab) act(text string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{text: text}
	}
}

func (wt *WindowsTab) startConfirm(id window.ID) {
	wt.confirmID = id
	wt.confirmYes = new(bool)
	wt.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Destroy window #%d?", id)).
				Affirmative("Destroy").
				Negative("Cancel").
				Value(wt.confirmYes),
		),
	).WithShowHelp(false)
	wt.confirming = true
}

func (wt WindowsTab) updateConfirm(msg tea.Msg) (WindowsTab, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		wt.confirming = false
		wt.confirm = nil
		return wt, nil
	}

	form, cmd := wt.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		wt.confirm = f
	}
	if wt.confirm.State != huh.StateCompleted {
		return wt, cmd
	}

	wt.confirming = false
	wt.confirm = nil
	if !*wt.confirmYes {
		wt.statusText = "destroy cancelled"
		return wt, nil
	}
	id := wt.confirmID
	return wt, wt.act(fmt.Sprintf("destroyed #%d", id), func() error { return wt.daemon.DestroyWindow(id) })
}

func (wt WindowsTab) listWidth() int {
	w := wt.width / 2
	if w < 24 {
		w = 24
	}
	return w
}

// View implements tea.Model.
func (wt WindowsTab) View() string {
	left := wt.list.View()

	var right string
	switch {
	case wt.confirming && wt.confirm != nil:
		right = wt.confirm.View()
	default:
		if info, ok := wt.selected(); ok {
			right = renderWindowDetail(info)
		} else {
			right = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("No windows")
		}
	}

	detail := lipgloss.NewStyle().
		Width(max(1, wt.width-wt.listWidth()-2)).
		PaddingLeft(2).
		Render(right)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, detail)
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(wt.statusText)
	return lipgloss.NewStyle().Width(wt.width).Height(wt.height).Render(body + "\n" + status)
}

func renderWindowDetail(w ipc.WindowInfo) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(16).
		Align(lipgloss.Right).
		PaddingRight(2)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}
	pid := "-"
	if w.PID > 0 {
		pid = fmt.Sprint(w.PID)
	}

	lines := []string{
		row("Window", fmt.Sprintf("#%d", w.ID)),
		row("Class", w.Class),
		row("Position", fmt.Sprintf("%d,%d", w.X, w.Y)),
		row("Size", fmt.Sprintf("%dx%d", w.Width, w.Height)),
		row("Minimum", fmt.Sprintf("%dx%d", w.MinWidth, w.MinHeight)),
		row("Z", fmt.Sprint(w.Z)),
		row("PID", pid),
		row("Capabilities", capabilityList(w)),
	}
	return strings.Join(lines, "\n")
}

func capabilityList(w ipc.WindowInfo) string {
	var caps []string
	if w.CanMove {
		caps = append(caps, "move")
	}
	if w.CanResize {
		caps = append(caps, "resize")
	}
	if w.AcceptsInput {
		caps = append(caps, "input")
	}
	if w.Transparent {
		caps = append(caps, "alpha")
	}
	if w.TreatAsTransparent {
		caps = append(caps, "click-through")
	}
	if len(caps) == 0 {
		return "none"
	}
	return strings.Join(caps, " ")
}
