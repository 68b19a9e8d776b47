package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

const testTx = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

type fakeLedger struct {
	mu sync.Mutex

	packed     []uint64
	waitResult ledger.Receipt
	waitErr    error
	pollResult ledger.Receipt
	pollErr    error
	highScore  uint64
	highErr    error

	waits, polls, reads int
	readAccount         string
}

func (f *fakeLedger) PackSubmitScore(score uint64) (ledger.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packed = append(f.packed, score)
	return ledger.Call{Data: []byte{1, 2, 3, 4}, GasLimit: 200000}, nil
}

func (f *fakeLedger) WaitReceipt(context.Context, string) (ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	return f.waitResult, f.waitErr
}

func (f *fakeLedger) Receipt(context.Context, string) (ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.pollResult, f.pollErr
}

func (f *fakeLedger) HighScore(_ context.Context, account string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.readAccount = account
	return f.highScore, f.highErr
}

func (f *fakeLedger) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits + f.polls + f.reads
}

type fakeSigner struct {
	connected bool
	err       error
	calls     int
}

func (f *fakeSigner) Connected() bool { return f.connected }
func (f *fakeSigner) Account() string { return "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa" }

func (f *fakeSigner) SignAndBroadcast(context.Context, ledger.Call) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return testTx, nil
}

type memRecorder struct {
	mu   sync.Mutex
	seen []Submission
}

func (m *memRecorder) RecordSubmission(_ context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, s)
	return nil
}

func (m *memRecorder) statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, len(m.seen))
	for i, s := range m.seen {
		out[i] = s.Status
	}
	return out
}

func newTestSubmitter(l Ledger, s wallet.Signer) (*Submitter, *memRecorder) {
	rec := &memRecorder{}
	return New(l, s, rec, nil, Options{ReadbackDelay: -1, FallbackDelay: -1}), rec
}

func TestZeroScoreMakesNoCalls(t *testing.T) {
	l := &fakeLedger{}
	signer := &fakeSigner{connected: true}
	s, rec := newTestSubmitter(l, signer)

	for _, score := range []int{0, -3} {
		sub, err := s.Submit(context.Background(), score)
		require.ErrorIs(t, err, ErrPrecondition)
		assert.Equal(t, StatusNone, sub.Status)
		assert.Equal(t, KindPrecondition, sub.ErrKind)
	}
	assert.Empty(t, l.packed)
	assert.Zero(t, l.networkCalls())
	assert.Zero(t, signer.calls)
	// Rejected attempts reach the listener but are never recorded.
	assert.Empty(t, rec.statuses())
	require.Len(t, s.Updates(), 2)
	assert.Equal(t, KindPrecondition, (<-s.Updates()).ErrKind)
}

func TestPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		ledger Ledger
		signer wallet.Signer
	}{
		{"no signer", &fakeLedger{}, nil},
		{"disconnected signer", &fakeLedger{}, &fakeSigner{}},
		{"no ledger", nil, &fakeSigner{connected: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestSubmitter(tt.ledger, tt.signer)
			sub, err := s.Submit(context.Background(), 5)
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Equal(t, StatusNone, sub.Status)
			assert.Contains(t, Message(sub), "Cannot submit")
			assert.Empty(t, rec.statuses())
		})
	}
}

func TestUserRejects(t *testing.T) {
	l := &fakeLedger{}
	s, rec := newTestSubmitter(l, &fakeSigner{connected: true, err: wallet.ErrUserRejected})

	sub, err := s.Submit(context.Background(), 9)
	require.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, StatusFailed, sub.Status)
	assert.Equal(t, KindUserRejected, sub.ErrKind)
	assert.Empty(t, sub.TxID)
	assert.Equal(t, []Status{StatusPreparing, StatusAwaitingSignature, StatusFailed}, rec.statuses())
	assert.Zero(t, l.networkCalls(), "no retry and no receipt wait after rejection")
}

func TestConfirmedReadsHighScore(t *testing.T) {
	l := &fakeLedger{
		waitResult: ledger.Receipt{TxID: testTx, Success: true, BlockNumber: 12},
		highScore:  31,
	}
	signer := &fakeSigner{connected: true}
	s, rec := newTestSubmitter(l, signer)

	sub, err := s.Submit(context.Background(), 31)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)
	assert.Equal(t, testTx, sub.TxID)
	assert.True(t, sub.HighScoreKnown)
	assert.EqualValues(t, 31, sub.HighScore)
	assert.Equal(t, []uint64{31}, l.packed)
	assert.Equal(t, 1, l.reads)
	assert.Equal(t, signer.Account(), l.readAccount)
	assert.Equal(t, []Status{
		StatusPreparing, StatusAwaitingSignature, StatusPending, StatusConfirmed, StatusConfirmed,
	}, rec.statuses())
}

func TestReadbackFailureKeepsConfirmed(t *testing.T) {
	l := &fakeLedger{
		waitResult: ledger.Receipt{Success: true},
		highErr:    errors.New("rpc down"),
	}
	s, _ := newTestSubmitter(l, &fakeSigner{connected: true})

	sub, err := s.Submit(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)
	assert.False(t, sub.HighScoreKnown)
	assert.Equal(t, 1, l.reads)
}

func TestRevertedReceipt(t *testing.T) {
	l := &fakeLedger{waitResult: ledger.Receipt{TxID: testTx, Success: false}}
	s, _ := newTestSubmitter(l, &fakeSigner{connected: true})

	sub, err := s.Submit(context.Background(), 4)
	require.ErrorIs(t, err, ledger.ErrReverted)
	assert.Equal(t, StatusFailed, sub.Status)
	assert.Equal(t, KindLedgerRejected, sub.ErrKind)
	assert.Zero(t, l.reads)
}

func TestFallbackVerification(t *testing.T) {
	waitErr := fmt.Errorf("ledger: waiting: %w", context.DeadlineExceeded)
	tests := []struct {
		name       string
		pollResult ledger.Receipt
		pollErr    error
		wantStatus Status
		wantKind   ErrorKind
		wantErr    bool
	}{
		{"lands", ledger.Receipt{Success: true}, nil, StatusConfirmed, KindNone, false},
		{"reverted", ledger.Receipt{Success: false}, nil, StatusFailed, KindLedgerRejected, true},
		{"still unknown", ledger.Receipt{}, ledger.ErrReceiptNotFound, StatusVerifying, KindNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLedger{waitErr: waitErr, pollResult: tt.pollResult, pollErr: tt.pollErr}
			s, rec := newTestSubmitter(l, &fakeSigner{connected: true})

			sub, err := s.Submit(context.Background(), 6)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, sub.Status)
			assert.Equal(t, tt.wantKind, sub.ErrKind)
			assert.Equal(t, 1, l.polls, "exactly one fallback poll")
			assert.Contains(t, rec.statuses(), StatusVerifying)
			assert.Equal(t, testTx, sub.TxID)
		})
	}
}

func TestFallbackWaitsForDelay(t *testing.T) {
	l := &fakeLedger{waitErr: errors.New("timeout"), pollResult: ledger.Receipt{Success: true}}
	s := New(l, &fakeSigner{connected: true}, nil, nil, Options{ReadbackDelay: -1, FallbackDelay: 30 * time.Millisecond})

	start := time.Now()
	sub, err := s.Submit(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFallbackAbandonedOnCancel(t *testing.T) {
	l := &fakeLedger{waitErr: errors.New("timeout"), pollResult: ledger.Receipt{Success: true}}
	s := New(l, &fakeSigner{connected: true}, nil, nil, Options{FallbackDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Submission, 1)
	go func() {
		sub, _ := s.Submit(ctx, 2)
		done <- sub
	}()

	require.Eventually(t, func() bool {
		select {
		case u := <-s.Updates():
			return u.Status == StatusVerifying
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case sub := <-done:
		assert.Equal(t, StatusVerifying, sub.Status)
		assert.Zero(t, l.polls)
	case <-time.After(time.Second):
		t.Fatal("submit did not return after cancel")
	}
}

func TestUpdatesCarryEveryTransition(t *testing.T) {
	l := &fakeLedger{waitResult: ledger.Receipt{Success: true}, highErr: errors.New("skip")}
	s, _ := newTestSubmitter(l, &fakeSigner{connected: true})

	_, err := s.Submit(context.Background(), 3)
	require.NoError(t, err)

	var got []Status
	for len(s.Updates()) > 0 {
		got = append(got, (<-s.Updates()).Status)
	}
	assert.Equal(t, []Status{StatusPreparing, StatusAwaitingSignature, StatusPending, StatusConfirmed}, got)
}

func TestResolve(t *testing.T) {
	l := &fakeLedger{pollResult: ledger.Receipt{Success: true}, highErr: errors.New("skip")}
	s, _ := newTestSubmitter(l, &fakeSigner{connected: true})

	sub, err := s.Resolve(context.Background(), Submission{ID: "x", Score: 3, Status: StatusVerifying, TxID: testTx})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)

	l.pollErr = ledger.ErrReceiptNotFound
	_, err = s.Resolve(context.Background(), Submission{Status: StatusVerifying, TxID: testTx})
	assert.ErrorIs(t, err, ledger.ErrReceiptNotFound)

	_, err = s.Resolve(context.Background(), Submission{Status: StatusVerifying})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestResolveWithoutSignerSkipsReadback(t *testing.T) {
	l := &fakeLedger{pollResult: ledger.Receipt{Success: true}}
	s, rec := newTestSubmitter(l, nil)

	sub, err := s.Resolve(context.Background(), Submission{ID: "v", Score: 9, Status: StatusVerifying, TxID: testTx})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, sub.Status)
	assert.False(t, sub.HighScoreKnown)
	assert.Empty(t, l.readAccount)
	assert.Equal(t, []Status{StatusConfirmed}, rec.statuses())
}
