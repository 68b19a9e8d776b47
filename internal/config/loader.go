package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/snakechain.yaml
var defaultYAML []byte

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte { return defaultYAML }

// Default returns the embedded default configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default is invalid: %v", err))
	}
	return cfg
}

// Load reads the configuration. Files are layered over the embedded
// default, so they only need the keys they change.
// Search order: customPath -> ~/.snakechain/config.yaml -> ./configs/snakechain.yaml -> embedded default
func Load(customPath string) (Config, error) {
	cfg := Default()

	// A custom path must exist and parse.
	if customPath != "" {
		path := ExpandPath(customPath)
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		return cfg, cfg.Validate()
	}

	for _, path := range []string{userConfigPath("config.yaml"), filepath.Join("configs", "snakechain.yaml")} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		return cfg, cfg.Validate()
	}

	return cfg, nil
}

// Validate reports settings the game cannot run with.
func (c Config) Validate() error {
	var errs []error
	g := c.Game
	if g.Cols < 4 || g.Rows < 1 {
		errs = append(errs, fmt.Errorf("game: board %dx%d too small (need at least 4x1)", g.Cols, g.Rows))
	}
	if g.StartInterval <= 0 || g.MinInterval <= 0 {
		errs = append(errs, errors.New("game: intervals must be positive"))
	}
	if g.MinInterval > g.StartInterval {
		errs = append(errs, fmt.Errorf("game: min_interval %s above start_interval %s", g.MinInterval, g.StartInterval))
	}
	if g.IntervalStep < 0 {
		errs = append(errs, errors.New("game: interval_step must not be negative"))
	}
	if g.FoodAttempts <= 0 {
		errs = append(errs, errors.New("game: food_attempts must be positive"))
	}
	if _, err := ParseDifficulty(string(g.Difficulty)); err != nil {
		errs = append(errs, fmt.Errorf("game: %w", err))
	}
	if c.Ledger.RPCURL == "" {
		errs = append(errs, errors.New("ledger: rpc_url is required"))
	}
	if c.Ledger.ChainID <= 0 {
		errs = append(errs, errors.New("ledger: chain_id must be positive"))
	}
	if c.Leaderboard.PageSize <= 0 {
		errs = append(errs, errors.New("leaderboard: page_size must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DataDir is ~/.snakechain, where the database, log and host key live by
// default.
func DataDir() string {
	return ExpandPath("~/.snakechain")
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".snakechain", filename)
}
