package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakechain/internal/submit"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

var flagYes bool

var submitCmd = &cobra.Command{
	Use:   "submit <score>",
	Short: "Submit a score to the leaderboard contract",
	Long: `Sign and send a submitScore transaction, then follow it until it is
confirmed. The contract keeps each account's best score.

Examples:
  snakechain submit 42
  snakechain submit 42 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Sign without asking")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	score, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.dialWriter(ctx)
	if err != nil {
		return err
	}
	approve := promptApprove
	if flagYes {
		approve = wallet.AutoApprove
	}
	signer, err := a.newSigner(ctx, client, approve)
	if err != nil {
		return err
	}

	s := submit.New(client, signer, a.store, a.log, a.cfg.SubmitOptions())
	type result struct {
		sub submit.Submission
		err error
	}
	resc := make(chan result, 1)
	go func() {
		sub, err := s.Submit(ctx, score)
		resc <- result{sub, err}
	}()

	var res result
wait:
	for {
		select {
		case u := <-s.Updates():
			printSubmission(u)
		case res = <-resc:
			break wait
		}
	}
	drainSubmissions(s)

	sub, err := res.sub, res.err
	if err != nil {
		return fmt.Errorf("%s: %w", submit.Message(sub), err)
	}
	if sub.Status == submit.StatusVerifying {
		fmt.Printf("Run 'snakechain verify %s' later to check the outcome.\n", sub.TxID)
	}
	return nil
}

// drainSubmissions prints updates already queued when Submit returned.
func drainSubmissions(s *submit.Submitter) {
	for {
		select {
		case u := <-s.Updates():
			printSubmission(u)
		default:
			return
		}
	}
}

func printSubmission(sub submit.Submission) {
	if msg := submit.Message(sub); msg != "" {
		fmt.Println(msg)
	}
}

// promptApprove asks on the terminal before signing.
func promptApprove(_ context.Context, req wallet.Request) error {
	fmt.Printf("Sign submitScore from %s on chain %d? [y/N] ", req.Account, req.ChainID)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrUserRejected, err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return wallet.ErrUserRejected
}
