package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x1111111111111111111111111111111111111111"

var (
	alice = common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	bob   = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
)

type fakeBackend struct {
	mu sync.Mutex

	outputs  map[string][]byte
	calls    []ethereum.CallMsg
	receipts map[common.Hash]*types.Receipt
	// receiptAfter makes TransactionReceipt report NotFound for the first n
	// lookups.
	receiptAfter int
	lookups      int

	block   uint64
	logs    []types.Log
	queries []ethereum.FilterQuery
	subErr  error
	pushed  chan types.Log
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		outputs:  map[string][]byte{},
		receipts: map[common.Hash]*types.Receipt{},
		subErr:   rpc.ErrNotificationsUnsupported,
	}
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	out, ok := f.outputs[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookups <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	r, ok := f.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	src := f.pushed
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for {
			select {
			case l := <-src:
				select {
				case ch <- l:
				case <-quit:
					return nil
				}
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(DefaultChainID), nil
}

func (f *fakeBackend) setBlock(n uint64, logs ...types.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = n
	f.logs = append(f.logs, logs...)
}

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	t.Helper()
	c, err := New(b, Config{
		ContractAddress: testContract,
		ReceiptPoll:     time.Millisecond,
		ReceiptTimeout:  200 * time.Millisecond,
		LogPoll:         5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func scoreLog(t *testing.T, c *Client, player common.Address, score, ts int64, block uint64) types.Log {
	t.Helper()
	ev := c.abi.Events[eventScoreSubmitted]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(score), big.NewInt(ts))
	require.NoError(t, err)
	return types.Log{
		Address:     c.contract,
		Topics:      []common.Hash{ev.ID, common.BytesToHash(player.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
	}
}

func TestNewRejectsBadContract(t *testing.T) {
	_, err := New(newFakeBackend(), Config{ContractAddress: "nope"}, nil)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestConfigDefaults(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	cfg := c.Config()
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.EqualValues(t, DefaultChainID, cfg.ChainID)
	assert.EqualValues(t, DefaultGasLimit, cfg.GasLimit)
}

func TestPackSubmitScore(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	call, err := c.PackSubmitScore(42)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(testContract), call.To)
	assert.Equal(t, c.Contract(), call.To)
	assert.EqualValues(t, 200000, call.GasLimit)

	m := c.abi.Methods[methodSubmitScore]
	require.Equal(t, m.ID, call.Data[:4])
	args, err := m.Inputs.Unpack(call.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(42), args[0].(*big.Int).Int64())
}

func TestLeaderboard(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	m := c.abi.Methods[methodGetLeaderboard]
	out, err := m.Outputs.Pack(
		[]common.Address{alice, bob},
		[]*big.Int{big.NewInt(30), big.NewInt(0)},
	)
	require.NoError(t, err)
	b.outputs[string(m.ID)] = out

	board, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{alice.Hex(), bob.Hex()}, board.Accounts)
	assert.Equal(t, []uint64{30, 0}, board.Scores)
}

func TestLeaderboardKeepsMismatchedLengths(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	m := c.abi.Methods[methodGetLeaderboard]
	out, err := m.Outputs.Pack([]common.Address{alice, bob}, []*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	b.outputs[string(m.ID)] = out

	board, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, board.Accounts, 2)
	assert.Len(t, board.Scores, 1)
}

func TestLeaderboardCallError(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	_, err := c.Leaderboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger: call getLeaderboard")
}

func TestHighScoreCallsFromAccount(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	m := c.abi.Methods[methodGetMyScore]
	out, err := m.Outputs.Pack(big.NewInt(77), big.NewInt(12))
	require.NoError(t, err)
	b.outputs[string(m.ID)] = out

	hs, err := c.HighScore(context.Background(), alice.Hex())
	require.NoError(t, err)
	assert.EqualValues(t, 77, hs)
	require.Len(t, b.calls, 1)
	assert.Equal(t, alice, b.calls[0].From)

	_, err = c.HighScore(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestReceipt(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	ok := common.HexToHash("0x01")
	bad := common.HexToHash("0x02")
	b.receipts[ok] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(9), GasUsed: 50000}
	b.receipts[bad] = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(10)}

	r, err := c.Receipt(context.Background(), ok.Hex())
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.EqualValues(t, 9, r.BlockNumber)
	assert.NoError(t, r.Err())

	r, err = c.Receipt(context.Background(), bad.Hex())
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.ErrorIs(t, r.Err(), ErrReverted)

	_, err = c.Receipt(context.Background(), common.HexToHash("0x03").Hex())
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	_, err = c.Receipt(context.Background(), "0xzz")
	assert.Error(t, err)
}

func TestWaitReceiptPollsUntilMined(t *testing.T) {
	b := newFakeBackend()
	c := newTestClient(t, b)
	h := common.HexToHash("0xabc")
	b.receipts[h] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}
	b.receiptAfter = 3

	r, err := c.WaitReceipt(context.Background(), h.Hex())
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, 4, b.lookups)
}

func TestWaitReceiptTimesOut(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	_, err := c.WaitReceipt(context.Background(), common.HexToHash("0xdead").Hex())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeScoreSubmitted(t *testing.T) {
	c := newTestClient(t, newFakeBackend())
	ev, err := c.DecodeScoreSubmitted(scoreLog(t, c, bob, 12, 1700000000, 5))
	require.NoError(t, err)
	assert.Equal(t, bob.Hex(), ev.Player)
	assert.EqualValues(t, 12, ev.Score)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.Timestamp)
	assert.EqualValues(t, 5, ev.BlockNumber)

	_, err = c.DecodeScoreSubmitted(types.Log{Topics: []common.Hash{{}}})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestWatchPollsWithoutNotifications(t *testing.T) {
	b := newFakeBackend()
	b.block = 100
	c := newTestClient(t, b)

	sink := make(chan ScoreEvent, 4)
	sub, err := c.WatchScoreSubmitted(context.Background(), sink)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// A log at or below the starting block is history and must not appear.
	b.setBlock(102, scoreLog(t, c, alice, 1, 1, 99), scoreLog(t, c, alice, 8, 2, 101))

	select {
	case ev := <-sink:
		assert.EqualValues(t, 8, ev.Score)
		assert.EqualValues(t, 101, ev.BlockNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-sink:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestWatchUsesSubscription(t *testing.T) {
	b := newFakeBackend()
	b.subErr = nil
	b.pushed = make(chan types.Log, 1)
	c := newTestClient(t, b)

	sink := make(chan ScoreEvent, 1)
	sub, err := c.WatchScoreSubmitted(context.Background(), sink)
	require.NoError(t, err)

	b.pushed <- scoreLog(t, c, bob, 3, 3, 7)
	select {
	case ev := <-sink:
		assert.Equal(t, bob.Hex(), ev.Player)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
	sub.Unsubscribe()
	assert.Empty(t, b.queries)
}
