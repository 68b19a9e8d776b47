// Package ledger talks to the score contract on an EVM chain: it encodes
// submitScore calls, reads the leaderboard and high score views, tracks
// transaction receipts and streams ScoreSubmitted events.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	DefaultRPCURL         = "https://mainnet.base.org"
	DefaultChainID        = 8453
	DefaultGasLimit       = 200000
	DefaultReceiptPoll    = 2 * time.Second
	DefaultReceiptTimeout = 2 * time.Minute
	DefaultLogPoll        = 4 * time.Second
)

// Config describes the endpoint and contract a Client works against.
type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	GasLimit        uint64
	ReceiptPoll     time.Duration
	ReceiptTimeout  time.Duration
	LogPoll         time.Duration
}

func (c Config) withDefaults() Config {
	if c.RPCURL == "" {
		c.RPCURL = DefaultRPCURL
	}
	if c.ChainID == 0 {
		c.ChainID = DefaultChainID
	}
	if c.GasLimit == 0 {
		c.GasLimit = DefaultGasLimit
	}
	if c.ReceiptPoll <= 0 {
		c.ReceiptPoll = DefaultReceiptPoll
	}
	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = DefaultReceiptTimeout
	}
	if c.LogPoll <= 0 {
		c.LogPoll = DefaultLogPoll
	}
	return c
}

// Backend is the subset of the JSON-RPC API the client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Call is an encoded contract invocation ready to be signed.
type Call struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxID        string
	Success     bool
	BlockNumber uint64
	GasUsed     uint64
}

// Err returns ErrReverted for a failed transaction, nil otherwise.
func (r Receipt) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrReverted, r.TxID)
}

// Board holds the raw parallel arrays returned by getLeaderboard.
type Board struct {
	Accounts []string
	Scores   []uint64
}

// Client is a score contract bound to a Backend.
type Client struct {
	cfg      Config
	backend  Backend
	contract common.Address
	abi      abi.ABI
	log      *log.Logger
	closer   func()
}

// New binds the contract at cfg.ContractAddress to backend.
func New(backend Backend, cfg Config, logger *log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, cfg.ContractAddress)
	}
	parsed, err := ContractABI()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		cfg:      cfg,
		backend:  backend,
		contract: common.HexToAddress(cfg.ContractAddress),
		abi:      parsed,
		log:      logger.WithPrefix("ledger"),
	}, nil
}

// Dial connects to cfg.RPCURL over HTTP or WebSocket.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", cfg.RPCURL, err)
	}
	c, err := New(ec, cfg, logger)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	c.log.Debug("dialed", "rpc", cfg.RPCURL, "contract", c.contract.Hex())
	return c, nil
}

// Close releases the underlying connection when the client owns it.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Backend exposes the JSON-RPC backend, e.g. for a signer sharing the
// connection.
func (c *Client) Backend() Backend { return c.backend }

// Contract returns the bound contract address.
func (c *Client) Contract() common.Address { return c.contract }

// ChainID asks the endpoint which chain it serves.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: chain id: %w", err)
	}
	return id.Int64(), nil
}

// PackSubmitScore encodes a submitScore(score) call. It does no I/O.
func (c *Client) PackSubmitScore(score uint64) (Call, error) {
	data, err := c.abi.Pack(methodSubmitScore, new(big.Int).SetUint64(score))
	if err != nil {
		return Call{}, fmt.Errorf("ledger: pack submitScore: %w", err)
	}
	return Call{To: c.contract, Data: data, GasLimit: c.cfg.GasLimit}, nil
}

func (c *Client) call(ctx context.Context, from common.Address, method string) ([]any, error) {
	data, err := c.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack %s: %w", method, err)
	}
	to := c.contract
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: call %s: %w", method, err)
	}
	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	return vals, nil
}

// Leaderboard reads getLeaderboard. The arrays are returned as the contract
// produced them; length checks are left to the caller.
func (c *Client) Leaderboard(ctx context.Context) (Board, error) {
	vals, err := c.call(ctx, common.Address{}, methodGetLeaderboard)
	if err != nil {
		return Board{}, err
	}
	if len(vals) != 2 {
		return Board{}, fmt.Errorf("%w: getLeaderboard returned %d values", ErrMalformedResponse, len(vals))
	}
	players, ok := vals[0].([]common.Address)
	if !ok {
		return Board{}, fmt.Errorf("%w: players is %T", ErrMalformedResponse, vals[0])
	}
	rawScores, ok := vals[1].([]*big.Int)
	if !ok {
		return Board{}, fmt.Errorf("%w: scores is %T", ErrMalformedResponse, vals[1])
	}
	b := Board{
		Accounts: make([]string, len(players)),
		Scores:   make([]uint64, len(rawScores)),
	}
	for i, p := range players {
		b.Accounts[i] = p.Hex()
	}
	for i, s := range rawScores {
		n, err := toUint64(s, "score")
		if err != nil {
			return Board{}, err
		}
		b.Scores[i] = n
	}
	return b, nil
}

// HighScore reads getMyScore as seen from account.
func (c *Client) HighScore(ctx context.Context, account string) (uint64, error) {
	if !common.IsHexAddress(account) {
		return 0, fmt.Errorf("%w: account %q", ErrInvalidAddress, account)
	}
	vals, err := c.call(ctx, common.HexToAddress(account), methodGetMyScore)
	if err != nil {
		return 0, err
	}
	if len(vals) != 2 {
		return 0, fmt.Errorf("%w: getMyScore returned %d values", ErrMalformedResponse, len(vals))
	}
	return toUint64(vals[0], "highScore")
}

// Receipt fetches the receipt for txID. ErrReceiptNotFound means the
// transaction is not mined yet (or unknown to the endpoint).
func (c *Client) Receipt(ctx context.Context, txID string) (Receipt, error) {
	hash, err := parseTxID(txID)
	if err != nil {
		return Receipt{}, err
	}
	r, err := c.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && r == nil) {
		return Receipt{}, fmt.Errorf("%w: %s", ErrReceiptNotFound, txID)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("ledger: receipt %s: %w", txID, err)
	}
	out := Receipt{
		TxID:    hash.Hex(),
		Success: r.Status == types.ReceiptStatusSuccessful,
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}

// WaitReceipt polls for the receipt of txID until it is mined, ctx ends or
// ReceiptTimeout elapses.
func (c *Client) WaitReceipt(ctx context.Context, txID string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.ReceiptPoll)
	defer ticker.Stop()

	for {
		r, err := c.Receipt(ctx, txID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrReceiptNotFound) {
			return Receipt{}, err
		}
		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("ledger: waiting for %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func parseTxID(txID string) (common.Hash, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(txID, "0x"), "0X")
	if len(s) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("ledger: invalid transaction id %q", txID)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return common.Hash{}, fmt.Errorf("ledger: invalid transaction id %q", txID)
	}
	return common.HexToHash(s), nil
}
