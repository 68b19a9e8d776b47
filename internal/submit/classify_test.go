package submit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"precondition", fmt.Errorf("%w: no score", ErrPrecondition), KindPrecondition},
		{"no provider", wallet.ErrNoProvider, KindPrecondition},
		{"wallet rejection", fmt.Errorf("tui: %w", wallet.ErrUserRejected), KindUserRejected},
		{"rpc code 4001", codedError{4001, "request failed"}, KindUserRejected},
		{"other rpc code", codedError{-32000, "nonce too low"}, KindUnknown},
		{"user denied text", errors.New("MetaMask Tx Signature: User denied transaction signature."), KindUserRejected},
		{"insufficient funds", errors.New("wallet: send: insufficient funds for gas * price + value"), KindInsufficientFunds},
		{"cooldown", errors.New("execution reverted: Cooldown active"), KindCooldownActive},
		{"too soon", errors.New("execution reverted: submitted too soon"), KindCooldownActive},
		{"wait before", errors.New("please wait before submitting"), KindCooldownActive},
		{"reverted sentinel", fmt.Errorf("%w: 0xabc", ledger.ErrReverted), KindLedgerRejected},
		{"revert text", errors.New("execution reverted"), KindLedgerRejected},
		{"network", errors.New("dial tcp: connection refused"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		sub  Submission
		want string
	}{
		{Submission{}, ""},
		{Submission{Status: StatusPreparing}, "Preparing transaction..."},
		{Submission{Status: StatusAwaitingSignature}, "Waiting for signature..."},
		{Submission{Status: StatusVerifying, TxID: "0x1234567890abcdef"}, "Submitted (0x1234…cdef), verifying transaction..."},
		{Submission{Status: StatusConfirmed, Score: 7}, "Score 7 recorded on-chain!"},
		{Submission{Status: StatusConfirmed, Score: 7, HighScore: 9, HighScoreKnown: true}, "Score 7 recorded on-chain! Your high score: 9"},
		{Submission{Status: StatusFailed, ErrKind: KindUserRejected}, "Transaction rejected"},
		{Submission{Status: StatusFailed, ErrKind: KindCooldownActive}, "Cooldown active, wait before submitting again"},
		{Submission{Status: StatusFailed, ErrKind: KindUnknown, Err: errors.New("boom")}, "Submission failed: boom"},
	}
	for _, tt := range tests {
		if got := Message(tt.sub); got != tt.want {
			t.Errorf("Message(%v/%v) = %q, want %q", tt.sub.Status, tt.sub.ErrKind, got, tt.want)
		}
	}
}

func TestStatusNamesRoundTrip(t *testing.T) {
	for s := StatusNone; s <= StatusFailed; s++ {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%q) = %v, %v", s.String(), got, err)
		}
	}
	for k := KindNone; k <= KindUnknown; k++ {
		got, err := ParseErrorKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseErrorKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}
