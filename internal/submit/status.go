package submit

import (
	"fmt"
	"time"
)

// Status is the stage a submission has reached.
type Status int

const (
	StatusNone Status = iota
	StatusPreparing
	StatusAwaitingSignature
	StatusPending
	// StatusVerifying means the transaction was broadcast but waiting for
	// its receipt failed; the outcome is being checked by id.
	StatusVerifying
	StatusConfirmed
	StatusFailed
)

var statusNames = [...]string{
	StatusNone:              "none",
	StatusPreparing:         "preparing",
	StatusAwaitingSignature: "awaiting_signature",
	StatusPending:           "pending",
	StatusVerifying:         "verifying",
	StatusConfirmed:         "confirmed",
	StatusFailed:            "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further transition will happen on its own.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusNone, fmt.Errorf("submit: unknown status %q", name)
}

// ErrorKind classifies why a submission did not go through.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindPrecondition
	KindUserRejected
	KindInsufficientFunds
	KindCooldownActive
	KindLedgerRejected
	KindUnknown
)

var kindNames = [...]string{
	KindNone:              "",
	KindPrecondition:      "precondition",
	KindUserRejected:      "user_rejected",
	KindInsufficientFunds: "insufficient_funds",
	KindCooldownActive:    "cooldown_active",
	KindLedgerRejected:    "ledger_rejected",
	KindUnknown:           "unknown",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseErrorKind is the inverse of ErrorKind.String.
func ParseErrorKind(name string) (ErrorKind, error) {
	for i, n := range kindNames {
		if n == name {
			return ErrorKind(i), nil
		}
	}
	return KindUnknown, fmt.Errorf("submit: unknown error kind %q", name)
}

// Submission is one attempt to record a score on the ledger.
type Submission struct {
	ID        string
	Score     int
	Status    Status
	TxID      string
	ErrKind   ErrorKind
	Err       error
	HighScore uint64
	// HighScoreKnown is set once the post-confirmation read succeeded.
	HighScoreKnown bool
	UpdatedAt      time.Time
}
