package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/winsrv/internal/ipc"
)

const refreshInterval = time.Second

// tickMsg drives the periodic daemon refresh.
type tickMsg struct{}

// refreshMsg carries daemon state fetched off the UI goroutine.
type refreshMsg struct {
	status  *ipc.StatusData
	windows []ipc.WindowInfo
	err     error
}

// model is the root bubbletea model for the TUI.
type model struct {
	daemon Daemon

	activeTab Tab

	windowsTab WindowsTab
	screenTab  ScreenTab
	generalTab GeneralTab

	status *ipc.StatusData

	width  int
	height int
}

func newModel(d Daemon, configPath string) model {
	return model{
		daemon:     d,
		activeTab:  TabWindows,
		windowsTab: NewWindowsTab(d),
		screenTab:  NewScreenTab(d),
		generalTab: NewGeneralTab(d, configPath),
	}
}

func (m model) refresh() tea.Cmd {
	d := m.daemon
	return func() tea.Msg {
		status, err := d.GetStatus()
		if err != nil {
			return refreshMsg{err: err}
		}
		wins, err := d.ListWindows()
		return refreshMsg{status: status, windows: wins, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func (m model) capturing() bool {
	return (m.activeTab == TabWindows && m.windowsTab.Capturing()) ||
		(m.activeTab == TabGeneral && m.generalTab.Capturing())
}

func (m model) resize(msg tea.WindowSizeMsg) model {
	m.width = msg.Width
	m.height = msg.Height
	sub := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
	m.windowsTab, _ = m.windowsTab.Update(sub)
	m.screenTab, _ = m.screenTab.Update(sub)
	m.generalTab, _ = m.generalTab.Update(sub)
	return m
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tickMsg:
		cmds := []tea.Cmd{m.refresh(), tick()}
		if m.activeTab == TabScreen {
			cmds = append(cmds, m.screenTab.Fetch())
		}
		return m, tea.Batch(cmds...)

	case refreshMsg:
		if msg.err != nil {
			m.status = nil
			m.windowsTab.SetWindows(nil)
			return m, nil
		}
		m.status = msg.status
		m.windowsTab.SetWindows(msg.windows)
		return m, nil

	case screenMsg:
		m.screenTab, _ = m.screenTab.Update(msg)
		return m, nil

	case actionMsg:
		m.windowsTab, _ = m.windowsTab.Update(msg)
		return m, m.refresh()

	case savedMsg:
		m.generalTab, _ = m.generalTab.Update(msg)
		return m, m.refresh()
	}

	// When a sub-model captures input, delegate all keys to it; only
	// ctrl+c escapes to quit.
	if m.capturing() {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.delegate(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			return m.switchTab((m.activeTab + 1) % tabCount)
		case "shift+tab":
			return m.switchTab((m.activeTab - 1 + tabCount) % tabCount)
		case "1":
			return m.switchTab(TabWindows)
		case "2":
			return m.switchTab(TabScreen)
		case "3":
			return m.switchTab(TabGeneral)
		}
	}

	return m.delegate(msg)
}

func (m model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.activeTab = t
	if t == TabScreen {
		return m, m.screenTab.Fetch()
	}
	return m, nil
}

func (m model) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activeTab {
	case TabWindows:
		m.windowsTab, cmd = m.windowsTab.Update(msg)
	case TabScreen:
		m.screenTab, cmd = m.screenTab.Update(msg)
	case TabGeneral:
		m.generalTab, cmd = m.generalTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	var content string
	switch m.activeTab {
	case TabWindows:
		content = m.windowsTab.View()
	case TabScreen:
		content = m.screenTab.View()
	case TabGeneral:
		content = m.generalTab.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
