package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snakechain/internal/config"
	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/storage"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

// app holds what every command needs: configuration, a logger and the
// local database.
type app struct {
	cfg    config.Config
	log    *log.Logger
	store  *storage.Store
	closer []func()
}

// newApp loads configuration with the global flags applied and opens the
// database. Logs go to w.
func newApp(w io.Writer) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDifficulty != "" {
		preset, err := config.ParseDifficulty(flagDifficulty)
		if err != nil {
			return nil, err
		}
		cfg.Game.Difficulty = preset
	}
	if flagDBPath != "" {
		cfg.Storage.Path = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	a := &app{cfg: cfg, log: newLogger(w, cfg.Log.Level)}
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closer = append(a.closer, func() { store.Close() })
	return a, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "snakechain",
		Level:           lvl,
	})
}

// openLogFile opens the play log, creating its directory.
func openLogFile(path string) (*os.File, error) {
	path = config.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Close releases everything the app opened, newest first.
func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		a.closer[i]()
	}
}

// dialReader connects to the read endpoint used for leaderboard views.
func (a *app) dialReader(ctx context.Context) (*ledger.Client, error) {
	c, err := ledger.Dial(ctx, a.cfg.LedgerReader(), a.log)
	if err != nil {
		return nil, err
	}
	a.closer = append(a.closer, c.Close)
	return c, nil
}

// dialWriter connects to the signing endpoint.
func (a *app) dialWriter(ctx context.Context) (*ledger.Client, error) {
	c, err := ledger.Dial(ctx, a.cfg.LedgerClient(), a.log)
	if err != nil {
		return nil, err
	}
	a.closer = append(a.closer, c.Close)
	return c, nil
}

// newSigner loads the configured key and checks the endpoint is on the
// configured chain. wallet.ErrNoProvider means no key is configured.
func (a *app) newSigner(ctx context.Context, c *ledger.Client, approve wallet.Approver) (*wallet.KeyedSigner, error) {
	key, err := wallet.LoadKey(a.cfg.KeySource(os.Getenv))
	if err != nil {
		return nil, err
	}
	backend, ok := c.Backend().(wallet.Backend)
	if !ok {
		return nil, errors.New("wallet: ledger endpoint cannot send transactions")
	}
	chainID := c.Config().ChainID
	s := wallet.NewKeyedSigner(backend, key, chainID, a.log)
	s.SetApprover(approve)
	if err := s.EnsureChain(ctx); err != nil {
		return nil, err
	}
	a.log.Info("wallet ready", "account", s.Account(), "chain", chainID, "contract", c.Contract().Hex())
	return s, nil
}
