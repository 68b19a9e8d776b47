package game

import "time"

// Snapshot is an immutable view of a game for rendering and replay checks.
type Snapshot struct {
	Tick         uint64
	Cols         int
	Rows         int
	Snake        []Cell
	Direction    string
	Food         Cell
	Score        int
	TickInterval time.Duration
	Status       Status
}

// Snapshot captures the current game.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Tick:         e.tick,
		Cols:         e.params.Cols,
		Rows:         e.params.Rows,
		Snake:        append([]Cell(nil), e.state.Snake...),
		Direction:    e.state.Direction.String(),
		Food:         e.state.Food,
		Score:        e.state.Score,
		TickInterval: e.state.TickInterval,
		Status:       e.state.Status,
	}
}

// Head returns the head cell, or false for an empty snake.
func (s Snapshot) Head() (Cell, bool) {
	if len(s.Snake) == 0 {
		return Cell{}, false
	}
	return s.Snake[0], true
}
