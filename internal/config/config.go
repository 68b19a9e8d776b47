// Package config provides YAML-based configuration for snakechain: game
// tuning, ledger endpoint, wallet, refresh timing and storage.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole snakechain configuration file.
type Config struct {
	Game        GameConfig        `yaml:"game"`
	Input       InputConfig       `yaml:"input"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Wallet      WalletConfig      `yaml:"wallet"`
	Submit      SubmitConfig      `yaml:"submit"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
	Serve       ServeConfig       `yaml:"serve"`
}

// GameConfig tunes the board and the speed ramp.
type GameConfig struct {
	Cols          int              `yaml:"cols"`
	Rows          int              `yaml:"rows"`
	StartInterval Duration         `yaml:"start_interval"`
	IntervalStep  Duration         `yaml:"interval_step"` // subtracted per food eaten
	MinInterval   Duration         `yaml:"min_interval"`
	FoodAttempts  int              `yaml:"food_attempts"`
	Difficulty    DifficultyPreset `yaml:"difficulty"`
}

// InputConfig tunes gesture input.
type InputConfig struct {
	SwipeDeadZone int `yaml:"swipe_dead_zone"` // in cells
}

// LedgerConfig points at the chain and the score contract.
type LedgerConfig struct {
	RPCURL string `yaml:"rpc_url"`
	// ReadRPCURL serves leaderboard reads; empty means RPCURL.
	ReadRPCURL     string   `yaml:"read_rpc_url"`
	Contract       string   `yaml:"contract"`
	ChainID        int64    `yaml:"chain_id"`
	GasLimit       uint64   `yaml:"gas_limit"`
	ReceiptPoll    Duration `yaml:"receipt_poll"`
	ReceiptTimeout Duration `yaml:"receipt_timeout"`
	LogPoll        Duration `yaml:"log_poll"`
}

// ReadURL returns the endpoint for read-only calls.
func (l LedgerConfig) ReadURL() string {
	if l.ReadRPCURL != "" {
		return l.ReadRPCURL
	}
	return l.RPCURL
}

// WalletConfig says where the signing key lives. The hex key itself is only
// ever taken from the environment.
type WalletConfig struct {
	KeyFile       string `yaml:"key_file"`
	Keystore      string `yaml:"keystore"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

// SubmitConfig tunes the confirmation protocol.
type SubmitConfig struct {
	ReadbackDelay Duration `yaml:"readback_delay"`
	FallbackDelay Duration `yaml:"fallback_delay"`
}

// LeaderboardConfig tunes paging and refresh timing.
type LeaderboardConfig struct {
	PageSize     int      `yaml:"page_size"`
	SubmitSettle Duration `yaml:"submit_settle"`
	EventSettle  Duration `yaml:"event_settle"`
	ManualEvery  Duration `yaml:"manual_every"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the log level and, for play, the log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ServeConfig configures the SSH server.
type ServeConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	HostKey string `yaml:"host_key"`
}

// Duration is a time.Duration written as a string ("150ms", "3s") in YAML.
type Duration time.Duration

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
