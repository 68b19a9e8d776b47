package submit

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

// codeUserRejected is the EIP-1193 "user rejected request" code.
const codeUserRejected = 4001

// Classify maps a submission failure onto an ErrorKind by sentinel, RPC
// error code and finally message text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrPrecondition) || errors.Is(err, wallet.ErrNoProvider) {
		return KindPrecondition
	}
	if errors.Is(err, wallet.ErrUserRejected) {
		return KindUserRejected
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return KindUserRejected
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return KindUserRejected
	case strings.Contains(msg, "insufficient funds"):
		return KindInsufficientFunds
	case strings.Contains(msg, "cooldown"),
		strings.Contains(msg, "too soon"),
		strings.Contains(msg, "wait before"):
		return KindCooldownActive
	case errors.Is(err, ledger.ErrReverted), strings.Contains(msg, "revert"):
		return KindLedgerRejected
	}
	return KindUnknown
}
