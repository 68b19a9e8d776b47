// Package wallet provides the signing side of score submission: an account
// that authorizes, signs and broadcasts a prepared contract call.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/vovakirdan/snakechain/internal/ledger"
)

var (
	// ErrNoProvider means no signing account is configured.
	ErrNoProvider = errors.New("wallet: no signing provider")
	// ErrUserRejected means the user declined to sign.
	ErrUserRejected = errors.New("wallet: user rejected the request")
	// ErrWrongNetwork means the endpoint serves a different chain than the
	// one the game is configured for.
	ErrWrongNetwork = errors.New("wallet: wrong network")
)

// Signer authorizes and broadcasts contract calls on behalf of one account.
type Signer interface {
	Connected() bool
	Account() string
	SignAndBroadcast(ctx context.Context, call ledger.Call) (txID string, err error)
}

// Request describes a call awaiting the user's approval.
type Request struct {
	Account string
	ChainID int64
	Call    ledger.Call
}

// Approver is asked before every signature. Returning an error (normally
// ErrUserRejected) aborts the request. It may block until the user answers.
type Approver func(ctx context.Context, req Request) error

// AutoApprove approves every request.
func AutoApprove(context.Context, Request) error { return nil }

// ChainIDReader reports the chain an endpoint serves.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// EnsureChain fails with ErrWrongNetwork unless the endpoint is on want.
// There is no way to switch a remote endpoint, so "switching" means refusing
// to sign anywhere else.
func EnsureChain(ctx context.Context, r ChainIDReader, want int64) error {
	got, err := r.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("wallet: chain id: %w", err)
	}
	if got.Int64() != want {
		return fmt.Errorf("%w: endpoint is on chain %s, want %d", ErrWrongNetwork, got, want)
	}
	return nil
}
