package ledger

import "errors"

var (
	// ErrReceiptNotFound means the ledger has no receipt for the transaction
	// yet; it may still be pending.
	ErrReceiptNotFound = errors.New("ledger: receipt not found")

	// ErrMalformedResponse means a read view returned data that does not
	// match the contract ABI.
	ErrMalformedResponse = errors.New("ledger: malformed response")

	// ErrInvalidAddress is returned for a contract or account that is not a
	// 20-byte hex address.
	ErrInvalidAddress = errors.New("ledger: invalid address")
)

// ErrReverted is reported for a mined transaction whose execution failed.
var ErrReverted = errors.New("ledger: execution reverted")
