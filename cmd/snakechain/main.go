// snakechain is a terminal snake game that records scores on an EVM ledger.
//
// Usage:
//
//	snakechain play            - Play; submit the final score with enter
//	snakechain leaderboard     - Show the on-chain leaderboard
//	snakechain submit <score>  - Submit a score from the command line
//	snakechain verify <tx>     - Resolve a submission left verifying
//	snakechain history         - Show local games and submissions
//	snakechain serve           - Start SSH server for remote play
//
// Global flags:
//
//	--config <path>      - Config file (default: ~/.snakechain/config.yaml)
//	--db <path>          - Database path (default from config)
//	--seed <value>       - RNG seed for reproducible food placement
//	--difficulty <name>  - easy, normal or hard
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig     string
	flagDBPath     string
	flagSeed       int64
	flagDifficulty string
	flagLogLevel   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snakechain",
	Short: "Snakechain - snake in your terminal, scores on chain",
	Long: `Snakechain is a terminal snake game whose final scores can be submitted
to a leaderboard contract on an EVM chain (Base by default).

Available commands:
  play         - Play the game
  leaderboard  - Show the on-chain leaderboard
  submit       - Submit a score without playing
  verify       - Look up a submitted transaction
  history      - Local games and submissions
  serve        - Start SSH server for remote play

The signing key is read from $SNAKECHAIN_PRIVATE_KEY, or from the key_file or
keystore configured under "wallet".

Examples:
  snakechain play
  snakechain play --difficulty hard
  snakechain leaderboard --plain
  snakechain verify 0x5e1f...`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to local database (default from config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}
