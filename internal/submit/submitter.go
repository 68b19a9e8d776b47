// Package submit drives a finished game's score through signing, broadcast
// and confirmation on the ledger.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/snakechain/internal/ledger"
	"github.com/vovakirdan/snakechain/internal/wallet"
)

// ErrPrecondition is returned when a submission cannot start: no score, no
// signer or no ledger endpoint.
var ErrPrecondition = errors.New("submit: precondition failed")

const (
	DefaultReadbackDelay = 2 * time.Second
	DefaultFallbackDelay = 5 * time.Second
	updatesBuffer        = 64
)

// Ledger is the part of the ledger endpoint a submission needs.
type Ledger interface {
	PackSubmitScore(score uint64) (ledger.Call, error)
	WaitReceipt(ctx context.Context, txID string) (ledger.Receipt, error)
	Receipt(ctx context.Context, txID string) (ledger.Receipt, error)
	HighScore(ctx context.Context, account string) (uint64, error)
}

// Recorder persists submission transitions.
type Recorder interface {
	RecordSubmission(ctx context.Context, s Submission) error
}

// Options tunes the delays of the protocol.
type Options struct {
	// ReadbackDelay is how long to wait after confirmation before reading
	// the player's high score.
	ReadbackDelay time.Duration
	// FallbackDelay is how long to wait before the single receipt lookup
	// made when waiting for the receipt failed.
	FallbackDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadbackDelay < 0 {
		o.ReadbackDelay = 0
	} else if o.ReadbackDelay == 0 {
		o.ReadbackDelay = DefaultReadbackDelay
	}
	if o.FallbackDelay < 0 {
		o.FallbackDelay = 0
	} else if o.FallbackDelay == 0 {
		o.FallbackDelay = DefaultFallbackDelay
	}
	return o
}

// Submitter runs submissions one at a time per call; it holds no
// per-submission state so calls may overlap.
type Submitter struct {
	ledger   Ledger
	signer   wallet.Signer
	recorder Recorder
	log      *log.Logger
	opts     Options
	updates  chan Submission
	now      func() time.Time
}

// New builds a Submitter. ledger and signer may be nil, in which case every
// Submit fails its preconditions. recorder may be nil.
func New(l Ledger, signer wallet.Signer, recorder Recorder, logger *log.Logger, opts Options) *Submitter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Submitter{
		ledger:   l,
		signer:   signer,
		recorder: recorder,
		log:      logger.WithPrefix("submit"),
		opts:     opts.withDefaults(),
		updates:  make(chan Submission, updatesBuffer),
		now:      time.Now,
	}
}

// Updates delivers every transition of every submission in order.
func (s *Submitter) Updates() <-chan Submission { return s.updates }

// Submit records score on the ledger. The returned error is non-nil when the
// submission failed or could not start; a submission left Verifying returns
// a nil error with Err describing why the wait failed.
func (s *Submitter) Submit(ctx context.Context, score int) (Submission, error) {
	return s.SubmitAs(ctx, uuid.NewString(), score)
}

// SubmitAs is Submit with a caller-chosen submission id, so the caller can
// tell its own updates apart on the shared Updates channel.
func (s *Submitter) SubmitAs(ctx context.Context, id string, score int) (Submission, error) {
	sub := Submission{ID: id, Score: score}

	if err := s.precondition(score); err != nil {
		sub.ErrKind = KindPrecondition
		sub.Err = err
		s.publish(ctx, &sub)
		return sub, err
	}

	sub.Status = StatusPreparing
	s.publish(ctx, &sub)
	call, err := s.ledger.PackSubmitScore(uint64(score))
	if err != nil {
		return s.fail(ctx, sub, KindUnknown, err)
	}

	sub.Status = StatusAwaitingSignature
	s.publish(ctx, &sub)
	txID, err := s.signer.SignAndBroadcast(ctx, call)
	if err != nil {
		return s.fail(ctx, sub, Classify(err), err)
	}

	sub.Status = StatusPending
	sub.TxID = txID
	s.publish(ctx, &sub)
	r, err := s.ledger.WaitReceipt(ctx, txID)
	if err != nil {
		return s.fallback(ctx, sub, err)
	}
	return s.settle(ctx, sub, r)
}

// Resolve makes one receipt lookup for a submission that was left
// Verifying (or Pending) and applies its outcome.
func (s *Submitter) Resolve(ctx context.Context, sub Submission) (Submission, error) {
	if sub.Status.Terminal() {
		return sub, nil
	}
	if sub.TxID == "" || s.ledger == nil {
		return sub, fmt.Errorf("%w: nothing to verify", ErrPrecondition)
	}
	r, err := s.ledger.Receipt(ctx, sub.TxID)
	if err != nil {
		return sub, fmt.Errorf("submit: verify %s: %w", sub.TxID, err)
	}
	return s.settle(ctx, sub, r)
}

func (s *Submitter) precondition(score int) error {
	switch {
	case score <= 0:
		return fmt.Errorf("%w: no score to submit", ErrPrecondition)
	case s.signer == nil || !s.signer.Connected():
		return fmt.Errorf("%w: no wallet connected", ErrPrecondition)
	case s.ledger == nil:
		return fmt.Errorf("%w: ledger client not ready", ErrPrecondition)
	}
	return nil
}

func (s *Submitter) fallback(ctx context.Context, sub Submission, waitErr error) (Submission, error) {
	sub.Status = StatusVerifying
	sub.Err = waitErr
	s.publish(ctx, &sub)
	s.log.Warn("waiting for receipt failed, verifying by id", "tx", sub.TxID, "err", waitErr)

	if !sleep(ctx, s.opts.FallbackDelay) {
		s.log.Warn("verification abandoned", "tx", sub.TxID, "err", ctx.Err())
		return sub, nil
	}
	r, err := s.ledger.Receipt(ctx, sub.TxID)
	if err != nil {
		s.log.Warn("transaction still unverified", "tx", sub.TxID, "err", err)
		return sub, nil
	}
	return s.settle(ctx, sub, r)
}

func (s *Submitter) settle(ctx context.Context, sub Submission, r ledger.Receipt) (Submission, error) {
	if !r.Success {
		return s.fail(ctx, sub, KindLedgerRejected, r.Err())
	}
	sub.Status = StatusConfirmed
	sub.ErrKind = KindNone
	sub.Err = nil
	s.publish(ctx, &sub)
	s.log.Info("score confirmed", "score", sub.Score, "tx", sub.TxID, "block", r.BlockNumber)

	// Without a signer there is no account to read back for.
	if s.signer == nil || !s.signer.Connected() {
		return sub, nil
	}
	if !sleep(ctx, s.opts.ReadbackDelay) {
		return sub, nil
	}
	account := s.signer.Account()
	hs, err := s.ledger.HighScore(ctx, account)
	if err != nil {
		s.log.Warn("high score read-back failed", "account", account, "err", err)
		return sub, nil
	}
	sub.HighScore = hs
	sub.HighScoreKnown = true
	s.publish(ctx, &sub)
	return sub, nil
}

func (s *Submitter) fail(ctx context.Context, sub Submission, kind ErrorKind, err error) (Submission, error) {
	sub.Status = StatusFailed
	sub.ErrKind = kind
	sub.Err = err
	s.publish(ctx, &sub)
	s.log.Error("submission failed", "score", sub.Score, "kind", kind, "err", err)
	return sub, err
}

func (s *Submitter) publish(ctx context.Context, sub *Submission) {
	sub.UpdatedAt = s.now()
	// A submission that never started is not worth keeping.
	if s.recorder != nil && sub.Status != StatusNone {
		if err := s.recorder.RecordSubmission(context.WithoutCancel(ctx), *sub); err != nil {
			s.log.Warn("record submission", "id", sub.ID, "status", sub.Status, "err", err)
		}
	}
	select {
	case s.updates <- *sub:
	default:
		s.log.Warn("updates full, dropping", "id", sub.ID, "status", sub.Status)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
