package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vovakirdan/snakechain/internal/ledger"
)

// Backend is the JSON-RPC surface needed to build and send a transaction.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainIDReader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyedSigner signs EIP-1559 transactions with a local private key.
type KeyedSigner struct {
	backend Backend
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
	log     *log.Logger

	mu      sync.Mutex
	approve Approver
}

// NewKeyedSigner returns a signer for key on chainID. A nil key yields a
// signer that is not connected.
func NewKeyedSigner(backend Backend, key *ecdsa.PrivateKey, chainID int64, logger *log.Logger) *KeyedSigner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &KeyedSigner{
		backend: backend,
		key:     key,
		chainID: big.NewInt(chainID),
		log:     logger.WithPrefix("wallet"),
	}
	if key != nil {
		s.addr = crypto.PubkeyToAddress(key.PublicKey)
	}
	return s
}

// SetApprover installs the approval hook. nil approves everything.
func (s *KeyedSigner) SetApprover(a Approver) {
	s.mu.Lock()
	s.approve = a
	s.mu.Unlock()
}

func (s *KeyedSigner) Connected() bool { return s != nil && s.key != nil && s.backend != nil }

func (s *KeyedSigner) Account() string {
	if !s.Connected() {
		return ""
	}
	return s.addr.Hex()
}

// EnsureChain checks the signer's endpoint is on the configured chain.
func (s *KeyedSigner) EnsureChain(ctx context.Context) error {
	if !s.Connected() {
		return ErrNoProvider
	}
	return EnsureChain(ctx, s.backend, s.chainID.Int64())
}

// SignAndBroadcast asks the approver, then signs and sends call. The
// returned id is the transaction hash.
func (s *KeyedSigner) SignAndBroadcast(ctx context.Context, call ledger.Call) (string, error) {
	if !s.Connected() {
		return "", ErrNoProvider
	}

	s.mu.Lock()
	approve := s.approve
	s.mu.Unlock()
	if approve != nil {
		req := Request{Account: s.addr.Hex(), ChainID: s.chainID.Int64(), Call: call}
		if err := approve(ctx, req); err != nil {
			s.log.Info("request declined", "to", call.To.Hex(), "err", err)
			return "", err
		}
	}

	if err := s.EnsureChain(ctx); err != nil {
		return "", err
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.addr)
	if err != nil {
		return "", fmt.Errorf("wallet: nonce: %w", err)
	}
	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet: gas tip: %w", err)
	}
	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("wallet: latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := call.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       call.GasLimit,
		To:        &to,
		Value:     new(big.Int),
		Data:      call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("wallet: sign: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("wallet: send: %w", err)
	}

	id := signed.Hash().Hex()
	s.log.Info("broadcast", "tx", id, "nonce", nonce, "gas", call.GasLimit)
	return id, nil
}
