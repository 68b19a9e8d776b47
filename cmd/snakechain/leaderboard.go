package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakechain/internal/leaderboard"
	"github.com/vovakirdan/snakechain/internal/platform/tui"
)

var (
	flagPlain   bool
	flagAccount string
	flagPage    int
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"lb", "scores"},
	Short:   "Show the on-chain leaderboard",
	Long: `Show the leaderboard read from the score contract. The view refreshes
whenever anyone submits a score. When the ledger cannot be reached, the last
fetched leaderboard is shown from the local cache.

Examples:
  snakechain leaderboard
  snakechain leaderboard --plain
  snakechain leaderboard --plain --page 2
  snakechain leaderboard --account 0xabc...`,
	Args: cobra.NoArgs,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print the leaderboard once instead of opening the viewer")
	leaderboardCmd.Flags().StringVar(&flagAccount, "account", "", "Highlight this account")
	leaderboardCmd.Flags().IntVar(&flagPage, "page", 0, "With --plain, print only this page (0 prints all)")
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
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
	sync := leaderboard.New(reader, a.store, a.log, a.cfg.LeaderboardOptions())

	if !flagPlain {
		return tui.RunLeaderboard(ctx, sync, flagAccount)
	}

	sync.Seed(ctx)
	if _, err = sync.Refresh(ctx); err != nil {
		a.log.Warn("leaderboard fetch failed", "err", err)
	}
	snap := sync.State()
	entries := sync.Entries()
	if len(entries) == 0 {
		if err != nil {
			return err
		}
		fmt.Println("No scores on chain yet.")
		return nil
	}

	title := "Leaderboard"
	if flagPage > 0 {
		var page int
		entries, page = sync.Page(flagPage)
		title += fmt.Sprintf(" page %d/%d", page, sync.TotalPages())
	}
	if snap.Cached {
		title += " (cached " + snap.UpdatedAt.Format("2006-01-02 15:04") + ")"
	}
	fmt.Println(title)
	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Rank\tPlayer\tScore")
	fmt.Fprintln(tw, "  ----\t------\t-----")
	for _, e := range entries {
		marker := " "
		if flagAccount != "" && strings.EqualFold(e.Account, flagAccount) {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%d\n", marker, e.Rank, e.Account, e.Score)
	}
	return tw.Flush()
}
