// Package game implements the snake simulation: a grid-bounded toroidal
// board, growth, food placement, the speed ramp and the terminal collision
// condition. It is pure logic driven one tick at a time; timing, input
// devices and drawing belong to the platform layer.
package game

import (
	"math/rand"
	"time"

	"github.com/vovakirdan/snakechain/internal/core"
	"github.com/vovakirdan/snakechain/internal/input"
)

// Cell is a grid coordinate. Col is in [0, Cols), Row in [0, Rows).
type Cell struct {
	Col, Row int
}

// Status is the lifecycle state of a game.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusGameOver
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Params holds the tunables of a game. See DefaultParams.
type Params struct {
	Cols          int
	Rows          int
	StartInterval time.Duration
	IntervalStep  time.Duration // subtracted from the interval per food eaten
	MinInterval   time.Duration
	FoodAttempts  int // rejection sampling bound before falling back to (0,0)
}

// DefaultParams returns the standard 25x25 board with a 150ms start
// interval that shrinks by 3ms per food down to 80ms.
func DefaultParams() Params {
	return Params{
		Cols:          25,
		Rows:          25,
		StartInterval: 150 * time.Millisecond,
		IntervalStep:  3 * time.Millisecond,
		MinInterval:   80 * time.Millisecond,
		FoodAttempts:  500,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.Cols < 4 {
		p.Cols = d.Cols
	}
	if p.Rows < 1 {
		p.Rows = d.Rows
	}
	if p.MinInterval <= 0 {
		p.MinInterval = d.MinInterval
	}
	if p.StartInterval < p.MinInterval {
		p.StartInterval = max(d.StartInterval, p.MinInterval)
	}
	if p.IntervalStep < 0 {
		p.IntervalStep = 0
	}
	if p.FoodAttempts <= 0 {
		p.FoodAttempts = d.FoodAttempts
	}
	return p
}

// State is the complete game state. Snake is ordered head first.
type State struct {
	Snake        []Cell
	Direction    core.Direction
	Food         Cell
	Score        int
	TickInterval time.Duration
	Status       Status
}

// TickResult describes what a single tick did.
type TickResult struct {
	Moved bool
	Ate   bool
	Died  bool
}

// Engine owns a game State and advances it. It is not safe for concurrent
// use; the platform drives it from a single loop.
type Engine struct {
	params  Params
	rng     *rand.Rand
	state   State
	pending core.Direction // applied at the next tick boundary
	tick    uint64
}

// New creates an idle engine. The seed makes food placement reproducible.
func New(params Params, seed int64) *Engine {
	p := params.normalized()
	return &Engine{
		params: p,
		rng:    rand.New(rand.NewSource(seed)),
		state: State{
			Direction:    core.DirRight,
			TickInterval: p.StartInterval,
			Status:       StatusIdle,
		},
		pending: core.DirRight,
	}
}

// Params returns the engine's effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Reset starts a fresh game: a 3-cell snake centered on the board heading
// right, score 0, the starting interval and new food. It works from any
// status, including GameOver.
func (e *Engine) Reset() {
	midX := e.params.Cols / 2
	midY := e.params.Rows / 2

	e.state = State{
		Snake: []Cell{
			{Col: midX, Row: midY},
			{Col: midX - 1, Row: midY},
			{Col: midX - 2, Row: midY},
		},
		Direction:    core.DirRight,
		Score:        0,
		TickInterval: e.params.StartInterval,
		Status:       StatusRunning,
	}
	e.pending = core.DirRight
	e.tick = 0
	e.state.Food = e.spawnFood(e.state.Snake)
}

// SetDirection requests a heading change for the next tick. A request that
// reverses the direction of the last move is dropped. Returns whether the
// pending direction changed.
func (e *Engine) SetDirection(d core.Direction) bool {
	if e.state.Status != StatusRunning {
		return false
	}
	if input.Apply(e.state.Direction, d) != d {
		return false
	}
	changed := e.pending != d
	e.pending = d
	return changed
}

// Pending returns the direction the next tick will move in.
func (e *Engine) Pending() core.Direction {
	return e.pending
}

// TogglePause flips between Running and Paused. It has no effect on an idle
// or finished game and never touches the snake or its direction.
func (e *Engine) TogglePause() {
	switch e.state.Status {
	case StatusRunning:
		e.state.Status = StatusPaused
	case StatusPaused:
		e.state.Status = StatusRunning
	}
}

// Tick advances a running game by one step.
func (e *Engine) Tick() TickResult {
	if e.state.Status != StatusRunning || len(e.state.Snake) == 0 {
		return TickResult{}
	}
	e.tick++
	e.state.Direction = e.pending

	head := e.state.Snake[0]
	dx, dy := e.state.Direction.Delta()
	next := Cell{
		Col: core.Wrap(head.Col+dx, e.params.Cols),
		Row: core.Wrap(head.Row+dy, e.params.Rows),
	}

	// Any occupied cell is fatal, the tail included.
	if e.isSnakeAt(next) {
		e.state.Status = StatusGameOver
		return TickResult{Died: true}
	}

	grown := make([]Cell, 0, len(e.state.Snake)+1)
	grown = append(grown, next)
	grown = append(grown, e.state.Snake...)

	if next == e.state.Food {
		e.state.Snake = grown
		e.state.Score++
		e.state.Food = e.spawnFood(grown)
		e.state.TickInterval = max(e.state.TickInterval-e.params.IntervalStep, e.params.MinInterval)
		return TickResult{Moved: true, Ate: true}
	}

	e.state.Snake = grown[:len(grown)-1]
	return TickResult{Moved: true}
}

// spawnFood draws uniformly over the board until it finds a cell not covered
// by snake, giving up after FoodAttempts draws and returning (0,0).
func (e *Engine) spawnFood(snake []Cell) Cell {
	occupied := make(map[Cell]struct{}, len(snake))
	for _, c := range snake {
		occupied[c] = struct{}{}
	}
	for range e.params.FoodAttempts {
		c := Cell{Col: e.rng.Intn(e.params.Cols), Row: e.rng.Intn(e.params.Rows)}
		if _, taken := occupied[c]; !taken {
			return c
		}
	}
	return Cell{}
}

func (e *Engine) isSnakeAt(c Cell) bool {
	for _, seg := range e.state.Snake {
		if seg == c {
			return true
		}
	}
	return false
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	s := e.state
	s.Snake = append([]Cell(nil), e.state.Snake...)
	return s
}
