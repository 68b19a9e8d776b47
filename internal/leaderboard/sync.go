// Package leaderboard keeps a ranked view of the on-ledger leaderboard,
// refetching it on activation, after local submissions and whenever the
// ledger reports a submission by anyone.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/event"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/snakechain/internal/ledger"
)

const (
	DefaultSubmitSettle = 3 * time.Second
	DefaultEventSettle  = 2 * time.Second
	DefaultManualEvery  = 2 * time.Second
	updatesBuffer       = 16
)

// ErrRateLimited is returned by RefreshNow when asked too often.
var ErrRateLimited = errors.New("leaderboard: refresh rate limited")

// Reader is the read side of the ledger.
type Reader interface {
	Leaderboard(ctx context.Context) (ledger.Board, error)
	WatchScoreSubmitted(ctx context.Context, sink chan<- ledger.ScoreEvent) (event.Subscription, error)
}

// Cache stores the last good collection for offline display.
type Cache interface {
	LoadLeaderboard(ctx context.Context) ([]Entry, time.Time, error)
	SaveLeaderboard(ctx context.Context, entries []Entry) error
}

// Options tunes paging and refresh timing.
type Options struct {
	PageSize     int
	SubmitSettle time.Duration
	EventSettle  time.Duration
	// ManualEvery bounds how often RefreshNow may hit the ledger.
	ManualEvery time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.SubmitSettle <= 0 {
		o.SubmitSettle = DefaultSubmitSettle
	}
	if o.EventSettle <= 0 {
		o.EventSettle = DefaultEventSettle
	}
	if o.ManualEvery <= 0 {
		o.ManualEvery = DefaultManualEvery
	}
	return o
}

// Sync owns the leaderboard collection. Readers get whole snapshots that
// are swapped atomically; a partially built collection is never visible.
type Sync struct {
	reader  Reader
	cache   Cache
	log     *log.Logger
	opts    Options
	limiter *rate.Limiter

	snap    atomic.Pointer[Snapshot]
	updates chan Snapshot

	// refreshMu orders fetches so an older result never replaces a newer one.
	refreshMu sync.Mutex

	mu     sync.Mutex
	active context.Context
	cancel context.CancelFunc
	sub    event.Subscription
	wg     sync.WaitGroup
}

// New returns an idle Sync. cache may be nil.
func New(reader Reader, cache Cache, logger *log.Logger, opts Options) *Sync {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	opts = opts.withDefaults()
	s := &Sync{
		reader:  reader,
		cache:   cache,
		log:     logger.WithPrefix("leaderboard"),
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.ManualEvery), 1),
		updates: make(chan Snapshot, updatesBuffer),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Updates delivers a snapshot after every refresh attempt.
func (s *Sync) Updates() <-chan Snapshot { return s.updates }

// State returns the current snapshot.
func (s *Sync) State() Snapshot { return *s.snap.Load() }

// Entries returns the current collection.
func (s *Sync) Entries() []Entry { return s.snap.Load().Entries }

// PageSize is the configured rows per page.
func (s *Sync) PageSize() int { return s.opts.PageSize }

// TotalPages is ceil(len(entries)/PageSize).
func (s *Sync) TotalPages() int { return TotalPages(len(s.Entries()), s.opts.PageSize) }

// Page returns page n (clamped) of the current collection.
func (s *Sync) Page(n int) ([]Entry, int) { return Paginate(s.Entries(), n, s.opts.PageSize) }

// Seed shows the cached collection until the first fetch completes. It does
// nothing once a fetch has produced data.
func (s *Sync) Seed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	entries, at, err := s.cache.LoadLeaderboard(ctx)
	if err != nil {
		s.log.Warn("load cached leaderboard", "err", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	cur := s.snap.Load()
	if cur.State != StateIdle || len(cur.Entries) > 0 {
		return
	}
	s.store(Snapshot{Entries: entries, State: StateIdle, Cached: true, UpdatedAt: at})
}

// Refresh fetches the leaderboard and replaces the collection. On failure
// the previous collection stays visible and the state becomes Error.
func (s *Sync) Refresh(ctx context.Context) ([]Entry, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	prev := s.snap.Load()
	s.store(Snapshot{Entries: prev.Entries, State: StateLoading, Cached: prev.Cached, UpdatedAt: prev.UpdatedAt})

	board, err := s.reader.Leaderboard(ctx)
	var entries []Entry
	if err == nil {
		entries, err = Build(board)
	}
	if err != nil {
		if !errors.Is(err, ErrReadFailure) {
			err = fmt.Errorf("%w: %w", ErrReadFailure, err)
		}
		s.log.Warn("refresh failed", "err", err)
		s.store(Snapshot{Entries: prev.Entries, State: StateError, Err: err, Cached: prev.Cached, UpdatedAt: prev.UpdatedAt})
		return nil, err
	}

	s.store(Snapshot{Entries: entries, State: StateReady, UpdatedAt: time.Now()})
	s.log.Debug("refreshed", "entries", len(entries))
	if s.cache != nil {
		if err := s.cache.SaveLeaderboard(context.WithoutCancel(ctx), entries); err != nil {
			s.log.Warn("cache leaderboard", "err", err)
		}
	}
	return entries, nil
}

// RefreshNow is the manual retry: a Refresh bounded by a rate limiter.
func (s *Sync) RefreshNow(ctx context.Context) ([]Entry, error) {
	if !s.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return s.Refresh(ctx)
}

// Activate performs the initial refresh in the background and subscribes to
// submission events. Calling it on an active Sync is a no-op. A failed
// subscription is returned but the Sync stays active for manual and
// submission-triggered refreshes.
func (s *Sync) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	actx, cancel := context.WithCancel(ctx)
	s.active, s.cancel = actx, cancel
	s.mu.Unlock()

	s.Seed(actx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Refresh(actx); err != nil && actx.Err() == nil {
			s.log.Warn("initial refresh", "err", err)
		}
	}()

	events := make(chan ledger.ScoreEvent, 16)
	sub, err := s.reader.WatchScoreSubmitted(actx, events)
	if err != nil {
		return fmt.Errorf("leaderboard: watch: %w", err)
	}
	s.mu.Lock()
	if s.active != actx || actx.Err() != nil {
		// Deactivated while subscribing.
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case ev := <-events:
				s.log.Debug("score submitted", "player", ev.Player, "score", ev.Score)
				s.schedule(s.opts.EventSettle)
			case err := <-sub.Err():
				if err != nil {
					s.log.Warn("event subscription ended", "err", err)
				}
				return
			case <-actx.Done():
				return
			}
		}
	}()
	return nil
}

// NotifySubmitted schedules a refresh once a local transaction is known.
func (s *Sync) NotifySubmitted(txID string) {
	s.log.Debug("local submission", "tx", txID)
	s.schedule(s.opts.SubmitSettle)
}

// schedule refreshes after d. Pending refreshes are not coalesced; each one
// is skipped if the Sync was deactivated in the meantime.
func (s *Sync) schedule(d time.Duration) {
	s.mu.Lock()
	actx := s.active
	s.mu.Unlock()
	if actx == nil || actx.Err() != nil {
		return
	}
	time.AfterFunc(d, func() {
		if actx.Err() != nil {
			return
		}
		if _, err := s.Refresh(actx); err != nil && actx.Err() == nil {
			s.log.Warn("scheduled refresh", "err", err)
		}
	})
}

// Deactivate tears down the event subscription and stops pending refreshes
// from firing.
func (s *Sync) Deactivate() {
	s.mu.Lock()
	cancel, sub := s.cancel, s.sub
	s.active, s.cancel, s.sub = nil, nil, nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Sync) store(snap Snapshot) {
	s.snap.Store(&snap)
	select {
	case s.updates <- snap:
	default:
	}
}
