// Package tui is an interactive inspector for a running winsrv daemon.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/winsrv/internal/ipc"
	"github.com/1broseidon/winsrv/internal/window"
)

// Daemon is the part of the IPC client the inspector uses. *ipc.Client
// implements it.
type Daemon interface {
	ListWindows() ([]ipc.WindowInfo, error)
	GetStatus() (*ipc.StatusData, error)
	Raise(id window.ID) error
	Lower(id window.ID) error
	Focus(id window.ID) error
	DestroyWindow(id window.ID) error
	Tile(mode string, gap *int) (*ipc.TileData, error)
	UndoTile() error
	Screenshot(width, height int) (*ipc.ScreenshotData, error)
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Run starts the inspector. configPath is the file the General tab saves
// to; empty uses the default path.
func Run(d Daemon, configPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	p := tea.NewProgram(newModel(d, configPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
