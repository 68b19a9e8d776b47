package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vovakirdan/snakechain/internal/config"
	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/platform/tui"
	"github.com/vovakirdan/snakechain/internal/storage"
	"github.com/vovakirdan/snakechain/internal/submit"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

var flagOffline bool

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play snake",
	Long: `Start a game. When it ends, press enter to submit the score on chain.

Controls:
  Arrows/WASD  - Steer (or swipe with the mouse)
  Space/P/Esc  - Pause
  Enter        - Submit score (after game over)
  Y/N          - Approve or reject the transaction
  R            - New game (after game over or while paused)
  L            - Toggle leaderboard, G refreshes, [ ] page
  Q/Ctrl+C     - Quit

Logs are written to the file configured under log.file since the game
owns the terminal.

Examples:
  snakechain play
  snakechain play --difficulty easy
  snakechain play --offline`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&flagOffline, "offline", false, "Play without connecting to the ledger")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logFile, err := openLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	a, err := newApp(logFile)
	if err != nil {
		return err
	}
	defer a.Close()

	params := a.cfg.GameParams()
	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width, height = w, h
	}
	if need := params.Cols*2 + 2; width < need || height < params.Rows+3 {
		fmt.Fprintf(os.Stderr, "Warning: terminal is %dx%d, the board needs at least %dx%d\n",
			width, height, need, params.Rows+3)
	}

	approvals := tui.NewApprovalQueue()
	deps := tui.Deps{
		Games:     a.store,
		Approvals: approvals,
		Logger:    a.log,
	}

	var (
		ledgerAPI submit.Ledger
		signer    wallet.Signer
	)
	if !flagOffline {
		reader, err := a.dialReader(ctx)
		if err != nil {
			a.log.Warn("leaderboard unavailable", "err", err)
		} else {
			deps.Leaderboard = leaderboard.New(reader, a.store, a.log, a.cfg.LeaderboardOptions())
		}

		writer, err := a.dialWriter(ctx)
		if err != nil {
			a.log.Warn("ledger unavailable, scores cannot be submitted", "err", err)
		} else {
			ledgerAPI = writer
			s, err := a.newSigner(ctx, writer, approvals.Approve)
			switch {
			case errors.Is(err, wallet.ErrNoProvider):
				a.log.Warn("no wallet configured", "env", wallet.KeyEnv)
			case err != nil:
				a.log.Error("wallet unavailable", "err", err)
			default:
				signer = s
				deps.Account = s.Account()
			}
		}
	}
	submitter := submit.New(ledgerAPI, signer, a.store, a.log, a.cfg.SubmitOptions())
	deps.Submitter = submitter

	opts := tui.Options{
		Params:          params,
		Seed:            flagSeed,
		DeadZone:        a.cfg.Input.SwipeDeadZone,
		ShowLeaderboard: deps.Leaderboard != nil && width >= params.Cols*2+40,
		ScreenshotDir:   filepath.Join(config.DataDir(), "screenshots"),
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(gctx)
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, deps, opts)
	})
	if ledgerAPI != nil {
		g.Go(func() error {
			resolvePending(gctx, a, submitter)
			return nil
		})
	}
	return g.Wait()
}

// resolvePending makes one receipt lookup for each submission an earlier
// run left pending or verifying.
func resolvePending(ctx context.Context, a *app, s *submit.Submitter) {
	pending, err := a.store.UnresolvedSubmissions(ctx)
	if err != nil {
		a.log.Warn("list unresolved submissions", "err", err)
		return
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return
		}
		resolveOne(ctx, a, s, rec)
	}
}

func resolveOne(ctx context.Context, a *app, s *submit.Submitter, rec storage.SubmissionRecord) submit.Submission {
	sub, err := s.Resolve(ctx, rec.Submission)
	if !sub.Status.Terminal() {
		a.log.Info("submission still unresolved", "tx", rec.TxID, "err", err)
		return sub
	}
	a.log.Info("submission resolved", "tx", rec.TxID, "status", sub.Status)
	return sub
}
