package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/snakechain/internal/storage"
	"github.com/vovakirdan/snakechain/internal/submit"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <tx>",
	Short: "Look up the outcome of a submitted transaction",
	Long: `Fetch the receipt of a score transaction and record the outcome. Use it
for submissions left verifying when the confirmation wait failed.
Without a transaction, every unresolved local submission is checked.

Examples:
  snakechain verify 0x5e1f...
  snakechain verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.dialReader(ctx)
	if err != nil {
		return err
	}
	// Reading receipts needs no signer; the store records the outcome.
	s := submit.New(client, nil, a.store, a.log, a.cfg.SubmitOptions())

	var records []storage.SubmissionRecord
	if len(args) == 1 {
		rec, err := a.store.SubmissionByTx(ctx, args[0])
		switch {
		case errors.Is(err, storage.ErrNotFound):
			rec.Submission = submit.Submission{ID: uuid.NewString(), TxID: args[0], Status: submit.StatusVerifying}
		case err != nil:
			return err
		}
		records = append(records, rec)
	} else {
		records, err = a.store.UnresolvedSubmissions(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No unresolved submissions.")
			return nil
		}
	}

	for _, rec := range records {
		sub := resolveOne(ctx, a, s, rec)
		if !sub.Status.Terminal() {
			fmt.Printf("%s  still unresolved\n", submit.ShortID(sub.TxID))
			continue
		}
		fmt.Printf("%s  %s\n", submit.ShortID(sub.TxID), submit.Message(sub))
	}
	return nil
}
