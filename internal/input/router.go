// Package input turns raw directional input (keys, swipe gestures) into the
// single pending direction the game engine consumes.
package input

import (
	"github.com/vovakirdan/snakechain/internal/core"
)

// DefaultDeadZone is the swipe dead zone in terminal cells.
const DefaultDeadZone = 2

// Apply returns requested unless it is the exact reverse of current, in which
// case current is kept. The dropped U-turn is not an error.
func Apply(current, requested core.Direction) core.Direction {
	if requested == current.Opposite() {
		return current
	}
	return requested
}

// ClassifySwipe turns a gesture vector into a direction. Gestures whose
// magnitude on both axes is below deadZone are taps and are ignored.
// Ties between the axes go to the vertical axis.
func ClassifySwipe(dx, dy, deadZone int) (core.Direction, bool) {
	if core.Abs(dx) < deadZone && core.Abs(dy) < deadZone {
		return 0, false
	}
	if core.Abs(dx) > core.Abs(dy) {
		if dx > 0 {
			return core.DirRight, true
		}
		return core.DirLeft, true
	}
	if dy > 0 {
		return core.DirDown, true
	}
	return core.DirUp, true
}

// Gesture tracks a press/release pair and classifies it as a swipe.
// The zero value uses DefaultDeadZone.
type Gesture struct {
	DeadZone int

	active bool
	startX int
	startY int
}

// Press records the start of a gesture.
func (g *Gesture) Press(x, y int) {
	g.active = true
	g.startX = x
	g.startY = y
}

// Release ends the gesture and reports the swipe direction, if any.
// A release without a preceding press is ignored.
func (g *Gesture) Release(x, y int) (core.Direction, bool) {
	if !g.active {
		return 0, false
	}
	g.active = false

	dz := g.DeadZone
	if dz <= 0 {
		dz = DefaultDeadZone
	}
	return ClassifySwipe(x-g.startX, y-g.startY, dz)
}

// Cancel drops an in-progress gesture.
func (g *Gesture) Cancel() {
	g.active = false
}
