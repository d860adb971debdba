package tiling

import (
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/winsrv/internal/window"
)

// Mode selects how tiled windows are arranged.
type Mode string

const (
	ModeGrid        Mode = "grid"
	ModeVertical    Mode = "vertical"
	ModeHorizontal  Mode = "horizontal"
	ModeMasterStack Mode = "master_stack"
)

// ParseMode validates a mode name. The empty string is the grid.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeGrid, nil
	case ModeGrid, ModeVertical, ModeHorizontal, ModeMasterStack:
		return m, nil
	default:
		return "", fmt.Errorf("unknown tile mode %q", s)
	}
}

// Layout is a tiling configuration.
type Layout struct {
	Mode Mode
	Gap  int
	// MasterPercent is the share of the width given to the first window in
	// master_stack mode.
	MasterPercent int
}

// CalculateGrid determines the optimal grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Calculate columns first (ceiling of square root)
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))

	// Calculate rows needed
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// CalculatePositions computes the rectangles for numWindows windows inside
// area. In grid mode a short last row stretches to fill the width.
func CalculatePositions(numWindows int, area window.Rect, layout Layout) ([]window.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}
	if layout.Gap < 0 {
		return nil, fmt.Errorf("gap must be >= 0, got %d", layout.Gap)
	}

	var rows, cols int
	switch layout.Mode {
	case ModeGrid, "":
		rows, cols = CalculateGrid(numWindows)
	case ModeVertical:
		rows, cols = numWindows, 1
	case ModeHorizontal:
		rows, cols = 1, numWindows
	case ModeMasterStack:
		return masterStack(numWindows, area, layout)
	default:
		return nil, fmt.Errorf("unsupported tile mode: %q", layout.Mode)
	}

	gap := layout.Gap
	slotWidth := (area.Width - (cols+1)*gap) / cols
	slotHeight := (area.Height - (rows+1)*gap) / rows
	if slotWidth <= 0 || slotHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: area=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			area.Width, area.Height, rows, cols, gap, slotWidth, slotHeight,
		)
	}

	lastRow := rows - 1
	inLastRow := numWindows - lastRow*cols
	lastRowWidth := slotWidth
	if inLastRow < cols {
		lastRowWidth = (area.Width - (inLastRow+1)*gap) / inLastRow
	}

	positions := make([]window.Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		row, col := i/cols, i%cols
		w := slotWidth
		if row == lastRow {
			w = lastRowWidth
		}
		positions[i] = window.Rect{
			X:      area.X + gap + col*(w+gap),
			Y:      area.Y + gap + row*(slotHeight+gap),
			Width:  w,
			Height: slotHeight,
		}
	}
	return positions, nil
}

// masterStack gives the first window a full-height column on the left and
// stacks the rest in one column on the right.
func masterStack(numWindows int, area window.Rect, layout Layout) ([]window.Rect, error) {
	gap := layout.Gap
	percent := layout.MasterPercent
	if percent <= 0 || percent >= 100 {
		percent = 60
	}
	height := area.Height - 2*gap

	if numWindows == 1 {
		r := window.Rect{X: area.X + gap, Y: area.Y + gap, Width: area.Width - 2*gap, Height: height}
		if r.Width <= 0 || r.Height <= 0 {
			return nil, fmt.Errorf("insufficient space for master-stack layout: area=%dx%d gap=%d", area.Width, area.Height, gap)
		}
		return []window.Rect{r}, nil
	}

	masterWidth := area.Width*percent/100 - gap - gap/2
	stackX := area.X + gap + masterWidth + gap
	stackWidth := area.X + area.Width - gap - stackX
	stackCount := numWindows - 1
	cellHeight := (height - (stackCount-1)*gap) / stackCount

	if masterWidth <= 0 || stackWidth <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for master-stack layout: area=%dx%d master=%d stack=%d cell=%d gap=%d",
			area.Width, area.Height, masterWidth, stackWidth, cellHeight, gap,
		)
	}

	positions := make([]window.Rect, numWindows)
	positions[0] = window.Rect{X: area.X + gap, Y: area.Y + gap, Width: masterWidth, Height: height}
	for i := 0; i < stackCount; i++ {
		positions[i+1] = window.Rect{
			X:      stackX,
			Y:      area.Y + gap + i*(cellHeight+gap),
			Width:  stackWidth,
			Height: cellHeight,
		}
	}
	return positions, nil
}
