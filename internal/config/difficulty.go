package config

import "fmt"

// DifficultyPreset names a speed profile for the snake.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

// ParseDifficulty validates a preset name; empty means normal.
func ParseDifficulty(s string) (DifficultyPreset, error) {
	switch p := DifficultyPreset(s); p {
	case "":
		return DifficultyNormal, nil
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return p, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, normal or hard)", s)
}

// ApplyDifficulty rescales the speed ramp for a preset. Normal keeps the
// configured values.
func ApplyDifficulty(cfg *GameConfig, preset DifficultyPreset) {
	cfg.Difficulty = preset
	switch preset {
	case DifficultyEasy:
		cfg.StartInterval = cfg.StartInterval * 4 / 3
		cfg.IntervalStep = cfg.IntervalStep * 2 / 3
		cfg.MinInterval = cfg.MinInterval * 5 / 4
	case DifficultyHard:
		cfg.StartInterval = cfg.StartInterval * 2 / 3
		cfg.IntervalStep = cfg.IntervalStep * 4 / 3
		cfg.MinInterval = cfg.MinInterval * 3 / 4
	}
}
