// Package tui provides the Bubble Tea integration for snakechain.
// It handles the terminal UI loop, input mapping, the submission and
// leaderboard panels, and SSH sessions.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg is sent to trigger a game simulation tick. Gen identifies the tick
// chain that armed it; a chain is abandoned on pause, reset and game over,
// and its late ticks are dropped.
type TickMsg struct {
	Gen uint64
	At  time.Time
}

// tickCmd arms a single tick after interval. It is re-armed by the model
// only after a processed tick while the game is running.
func tickCmd(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Gen: gen, At: t}
	})
}
