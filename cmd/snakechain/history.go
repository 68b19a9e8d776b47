package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakechain/internal/submit"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show local games and score submissions",
	Long: `Display statistics and the best and most recent games played on this
machine, followed by recent score submissions and their status.

Examples:
  snakechain history
  snakechain history --limit 20`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "Rows per section")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.GamesPlayed == 0 {
		fmt.Println("No games recorded yet.")
		fmt.Println()
		fmt.Println("Play 'snakechain play' to set the first high score!")
		return nil
	}

	fmt.Printf("Games: %d  Best: %d  Average: %.1f  Food eaten: %d\n",
		stats.GamesPlayed, stats.BestScore, stats.AvgScore, stats.TotalFood)
	fmt.Printf("Last played: %s\n\n", stats.LastPlayed.Format("2006-01-02 15:04"))

	top, err := a.store.TopGames(ctx, flagLimit)
	if err != nil {
		return err
	}
	fmt.Println("Best games")
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Rank\tScore\tLength\tTicks\tDate")
	for i, g := range top {
		fmt.Fprintf(tw, "  %d\t%d\t%d\t%d\t%s\n", i+1, g.Score, g.Length, g.Ticks, g.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	recent, err := a.store.RecentGames(ctx, flagLimit)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Recent games")
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Date\tScore\tSeed")
	for _, g := range recent {
		fmt.Fprintf(tw, "  %s\t%d\t%d\n", g.CreatedAt.Format("2006-01-02 15:04"), g.Score, g.Seed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	subs, err := a.store.RecentSubmissions(ctx, flagLimit)
	if err != nil {
		return err
	}
	fmt.Println()
	if len(subs) == 0 {
		fmt.Println("No score submissions yet.")
		return nil
	}
	fmt.Println("Submissions")
	tw = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Date\tScore\tStatus\tTx\tDetail")
	for _, s := range subs {
		detail := s.ErrKind.String()
		if s.Status == submit.StatusConfirmed && s.HighScoreKnown {
			detail = fmt.Sprintf("best %d", s.HighScore)
		} else if s.ErrText != "" {
			detail = s.ErrText
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\n",
			s.CreatedAt.Format("2006-01-02 15:04"), s.Score, s.Status, submit.ShortID(s.TxID), detail)
	}
	return tw.Flush()
}
