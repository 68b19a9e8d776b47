package submit

import "fmt"

// Message renders the status line shown to the player.
func Message(s Submission) string {
	switch s.Status {
	case StatusNone:
		if s.Err != nil {
			return "Cannot submit: " + reason(s.Err)
		}
		return ""
	case StatusPreparing:
		return "Preparing transaction..."
	case StatusAwaitingSignature:
		return "Waiting for signature..."
	case StatusPending:
		return fmt.Sprintf("Transaction sent (%s), waiting for confirmation...", ShortID(s.TxID))
	case StatusVerifying:
		return fmt.Sprintf("Submitted (%s), verifying transaction...", ShortID(s.TxID))
	case StatusConfirmed:
		if s.HighScoreKnown {
			return fmt.Sprintf("Score %d recorded on-chain! Your high score: %d", s.Score, s.HighScore)
		}
		return fmt.Sprintf("Score %d recorded on-chain!", s.Score)
	case StatusFailed:
		switch s.ErrKind {
		case KindUserRejected:
			return "Transaction rejected"
		case KindInsufficientFunds:
			return "Insufficient funds for gas"
		case KindCooldownActive:
			return "Cooldown active, wait before submitting again"
		case KindLedgerRejected:
			return "Transaction reverted by the contract"
		case KindPrecondition:
			return "Cannot submit: " + reason(s.Err)
		}
		if s.Err != nil {
			return "Submission failed: " + s.Err.Error()
		}
		return "Submission failed"
	}
	return s.Status.String()
}

func reason(err error) string {
	if err == nil {
		return "unknown reason"
	}
	return err.Error()
}

// ShortID abbreviates a transaction hash as 0x1234…cdef.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}
