package core

// Color is a semantic foreground colour for a screen cell.
// The platform layer decides how each one maps to terminal colours.
type Color uint8

const (
	ColorDefault Color = iota
	ColorGrid
	ColorSnakeHead
	ColorSnakeBody
	ColorFood
	ColorHUD
	ColorAccent
	ColorOK
	ColorWarn
	ColorError
	ColorMuted
)
