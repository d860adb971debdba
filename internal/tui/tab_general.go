package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winsrv/internal/config"
)

// generalFields holds the form-bound values as strings for huh. It lives
// behind a pointer so the form keeps writing to the same values after the
// tab is copied.
type generalFields struct {
	background    string
	tileMode      string
	gapSize       string
	masterPercent string
	raiseOnClick  bool
	moveModifier  string
	logLevel      string
}

// savedMsg reports the outcome of saving and reloading the config.
type savedMsg struct {
	cfg *config.Config
	err error
}

// GeneralTab shows and edits the runtime-adjustable settings.
type GeneralTab struct {
	daemon     Daemon
	configPath string
	cfg        *config.Config
	loadErr    error

	width  int
	height int

	editing bool
	form    *huh.Form
	fields  *generalFields

	statusText string
}

// NewGeneralTab creates a GeneralTab and loads the config.
func NewGeneralTab(d Daemon, configPath string) GeneralTab {
	g := GeneralTab{daemon: d, configPath: configPath}
	g.load()
	return g
}

func (g *GeneralTab) load() {
	var (
		res *config.LoadResult
		err error
	)
	if g.configPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(g.configPath)
	}
	if err != nil {
		g.loadErr = err
		return
	}
	g.cfg = res.Config
	g.loadErr = nil
}

// Capturing reports whether the tab owns all key input.
func (g GeneralTab) Capturing() bool {
	return g.editing
}

// Update implements tea.Model.
func (g GeneralTab) Update(msg tea.Msg) (GeneralTab, tea.Cmd) {
	if g.editing {
		return g.updateEditing(msg)
	}
	return g.updateDisplay(msg)
}

func (g GeneralTab) updateDisplay(msg tea.Msg) (GeneralTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && g.cfg != nil {
			g.startEditing()
			return g, g.form.Init()
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	case savedMsg:
		if msg.err != nil {
			g.statusText = "error: " + msg.err.Error()
		} else {
			g.cfg = msg.cfg
			g.statusText = "saved and reloaded"
		}
	}
	return g, nil
}

func (g GeneralTab) updateEditing(msg tea.Msg) (GeneralTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			g.editing = false
			g.form = nil
			return g, nil
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if g.form.State == huh.StateCompleted {
		g.editing = false
		g.form = nil
		next, err := applyFields(g.cfg, g.fields)
		if err != nil {
			g.statusText = "error: " + err.Error()
			return g, nil
		}
		return g, g.save(next)
	}

	return g, cmd
}

func (g *GeneralTab) startEditing() {
	cfg := g.cfg
	g.fields = &generalFields{
		background:    cfg.Background,
		tileMode:      cfg.Tile.Mode,
		gapSize:       strconv.Itoa(cfg.Tile.GapSize),
		masterPercent: strconv.Itoa(cfg.Tile.MasterPercent),
		raiseOnClick:  cfg.Input.RaiseOnClick,
		moveModifier:  cfg.Input.MoveModifier,
		logLevel:      cfg.LogLevel,
	}
	f := g.fields

	w := g.width - 4
	if w < 40 {
		w = 40
	}

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("background").
				Title("Background").
				Description("#rrggbb or #aarrggbb").
				Validate(func(s string) error {
					_, err := config.ParseColor(s)
					return err
				}).
				Value(&f.background),

			huh.NewSelect[string]().
				Key("tile_mode").
				Title("Tile Mode").
				Options(huh.NewOptions("grid", "vertical", "horizontal", "master_stack")...).
				Value(&f.tileMode),

			huh.NewInput().
				Key("gap_size").
				Title("Gap Size").
				Description("Pixels between tiled windows").
				Validate(intAtLeast(0)).
				Value(&f.gapSize),

			huh.NewInput().
				Key("master_percent").
				Title("Master Percent").
				Description("Master column width for master_stack (10-90)").
				Validate(intAtLeast(10)).
				Value(&f.masterPercent),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("raise_on_click").
				Title("Raise On Click").
				Value(&f.raiseOnClick),

			huh.NewSelect[string]().
				Key("move_modifier").
				Title("Move Modifier").
				Description("Held modifier that turns a left drag into a window move").
				Options(huh.NewOptions("super", "alt", "ctrl", "shift", "none")...).
				Value(&f.moveModifier),

			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(huh.NewOptions("debug", "info", "warning", "error")...).
				Value(&f.logLevel),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	g.editing = true
}

func intAtLeast(lo int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if v < lo {
			return fmt.Errorf("must be >= %d", lo)
		}
		return nil
	}
}

// applyFields returns a validated copy of cfg with the form values applied.
func applyFields(cfg *config.Config, f *generalFields) (*config.Config, error) {
	next := *cfg
	next.Background = strings.TrimSpace(f.background)
	next.Tile.Mode = f.tileMode
	gap, err := strconv.Atoi(strings.TrimSpace(f.gapSize))
	if err != nil {
		return nil, fmt.Errorf("gap size: %w", err)
	}
	next.Tile.GapSize = gap
	pct, err := strconv.Atoi(strings.TrimSpace(f.masterPercent))
	if err != nil {
		return nil, fmt.Errorf("master percent: %w", err)
	}
	next.Tile.MasterPercent = pct
	next.Input.RaiseOnClick = f.raiseOnClick
	next.Input.MoveModifier = f.moveModifier
	next.LogLevel = f.logLevel
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (g GeneralTab) save(cfg *config.Config) tea.Cmd {
	path := g.configPath
	d := g.daemon
	return func() tea.Msg {
		var err error
		if path == "" {
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			return savedMsg{err: err}
		}
		if err := d.Reload(); err != nil {
			return savedMsg{err: fmt.Errorf("saved, but reload failed: %w", err)}
		}
		return savedMsg{cfg: cfg}
	}
}

// View implements tea.Model.
func (g GeneralTab) View() string {
	if g.editing && g.form != nil {
		return g.viewEditing()
	}
	return g.viewDisplay()
}

func (g GeneralTab) viewDisplay() string {
	cfg := g.cfg
	if cfg == nil {
		msg := "No config loaded"
		if g.loadErr != nil {
			msg += ": " + g.loadErr.Error()
		}
		style := lipgloss.NewStyle().
			Width(g.width).
			Height(g.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center)
		return style.Render(msg)
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(22).
		Align(lipgloss.Right).
		PaddingRight(2)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	lines := []string{
		"",
		row("Screen", fmt.Sprintf("%dx%d (detect: %t)", cfg.Screen.Width, cfg.Screen.Height, cfg.Screen.Detect)),
		row("Background", cfg.Background),
		row("Sink", string(cfg.Display.Sink)),
		row("Queue Capacity", strconv.Itoa(cfg.Events.QueueCapacity)),
		"",
		row("Tile Mode", cfg.Tile.Mode),
		row("Gap Size", strconv.Itoa(cfg.Tile.GapSize)),
		row("Master Percent", strconv.Itoa(cfg.Tile.MasterPercent)),
		"",
		row("Raise On Click", strconv.FormatBool(cfg.Input.RaiseOnClick)),
		row("Move Modifier", cfg.Input.MoveModifier),
		row("Reaper", fmt.Sprintf("%t every %s", cfg.Reaper.Enabled, cfg.Reaper.Interval)),
		row("Log Level", cfg.LogLevel),
		"",
		dimStyle.Render("  Press 'e' to edit settings"),
	}
	if g.statusText != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("  "+g.statusText))
	}

	contentStyle := lipgloss.NewStyle().
		Width(g.width).
		Height(g.height).
		Padding(1, 2)

	return contentStyle.Render(strings.Join(lines, "\n"))
}

func (g GeneralTab) viewEditing() string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Render("Editing General Settings") +
		lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("  (esc to cancel)")

	style := lipgloss.NewStyle().
		Width(g.width).
		Height(g.height).
		Padding(1, 2)

	return style.Render(header + "\n\n" + g.form.View())
}
