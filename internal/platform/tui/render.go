package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/snakechain/internal/core"
	"github.com/vovakirdan/snakechain/internal/game"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:   lipgloss.NewStyle(),
	core.ColorGrid:      lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	core.ColorSnakeHead: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	core.ColorSnakeBody: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorFood:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorHUD:       lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
	core.ColorAccent:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
	core.ColorOK:        lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	core.ColorWarn:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	core.ColorError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	core.ColorMuted:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

func styleFor(c core.Color) lipgloss.Style {
	if style, ok := colorStyles[c]; ok {
		return style
	}
	return colorStyles[core.ColorDefault]
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	// Pre-allocate with extra space for ANSI codes
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}
			sb.WriteString(styleFor(startColor).Render(run.String()))
		}
	}
	return sb.String()
}

// cellWidth is how many terminal columns one board cell takes, so cells
// look square.
const cellWidth = 2

// boardSize returns the screen size needed for a board, border included.
func boardSize(cols, rows int) (w, h int) {
	return cols*cellWidth + 2, rows + 2
}

// drawBoard paints a snapshot into s, which must be boardSize large.
func drawBoard(s *core.Screen, snap game.Snapshot) {
	s.Clear()
	w, h := boardSize(snap.Cols, snap.Rows)
	s.DrawBox(core.NewRect(0, 0, w, h), core.ColorGrid)

	for row := range snap.Rows {
		for col := range snap.Cols {
			s.SetColored(1+col*cellWidth, 1+row, '·', core.ColorGrid)
		}
	}

	put := func(c game.Cell, r rune, color core.Color) {
		x := 1 + c.Col*cellWidth
		for i := range cellWidth {
			s.SetColored(x+i, 1+c.Row, r, color)
		}
	}

	if snap.Status == game.StatusIdle {
		s.DrawTextCentered(h/2-1, " SNAKECHAIN ", core.ColorAccent)
		s.DrawTextCentered(h/2+1, " space: start ", core.ColorMuted)
		return
	}

	s.SetColored(1+snap.Food.Col*cellWidth, 1+snap.Food.Row, '●', core.ColorFood)
	for i := len(snap.Snake) - 1; i > 0; i-- {
		put(snap.Snake[i], '▓', core.ColorSnakeBody)
	}
	if head, ok := snap.Head(); ok {
		put(head, '█', core.ColorSnakeHead)
	}

	switch snap.Status {
	case game.StatusPaused:
		s.DrawTextCentered(h/2, " PAUSED ", core.ColorHUD)
	case game.StatusGameOver:
		s.DrawTextCentered(h/2-1, " GAME OVER ", core.ColorError)
		s.DrawTextCentered(h/2+1, " enter: submit  r: again ", core.ColorMuted)
	}
}
