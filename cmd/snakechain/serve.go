package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/snakechain/internal/config"
	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/platform/tui"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snakechain SSH server",
	Long: `Start an SSH server that lets users connect and play.

Each SSH connection gets its own game with a live leaderboard. Sessions
have no wallet, so scores cannot be submitted over SSH. Games are recorded
in the server's local database.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise uses serve.host_key from the config

Examples:
  snakechain serve                           # Listen on the configured address
  snakechain serve --ssh :2222               # Listen on port 2222
  snakechain serve --host-key ./my_host_key  # Use specific host key

Users can connect with:
  ssh localhost -p 2222`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (host:port, default from config)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	reader, err := a.dialReader(ctx)
	if err != nil {
		return err
	}

	cfg := tui.DefaultSSHServerConfig()
	cfg.Address = tui.SSHAddress(a.cfg.Serve.Host, a.cfg.Serve.Port)
	if flagSSHAddr != "" {
		cfg.Address = flagSSHAddr
	}
	cfg.HostKeyPath = config.ExpandPath(a.cfg.Serve.HostKey)
	if flagHostKey != "" {
		cfg.HostKeyPath = flagHostKey
	}
	cfg.IdleTimeout = time.Duration(flagIdleTimeout) * time.Minute
	cfg.Params = a.cfg.GameParams()
	cfg.DeadZone = a.cfg.Input.SwipeDeadZone
	cfg.Leaderboard = a.cfg.LeaderboardOptions()
	cfg.Submit = a.cfg.SubmitOptions()

	server, err := tui.NewSSHServer(cfg, reader, a.store, a.store, a.log)
	if err != nil {
		return err
	}

	// A shared sync keeps the cache warm so new sessions start with a
	// recent leaderboard.
	warm := leaderboard.New(reader, a.store, a.log.WithPrefix("cache"), cfg.Leaderboard)

	fmt.Printf("Starting snakechain SSH server on %s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		defer cancel()
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		if err := warm.Activate(gctx); err != nil {
			a.log.Warn("leaderboard events unavailable", "err", err)
		}
		<-gctx.Done()
		warm.Deactivate()
		return nil
	})
	return g.Wait()
}
