package leaderboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/snakechain/internal/ledger"
)

// ErrReadFailure wraps every failed leaderboard fetch.
var ErrReadFailure = errors.New("leaderboard: read failure")

// Entry is one ranked row. Rank is the position the ledger returned it at,
// so filtered rows leave gaps.
type Entry struct {
	Account string
	Score   uint64
	Rank    int
}

// LoadState describes the freshness of the displayed collection.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateReady
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot is an immutable view of the leaderboard at one moment.
type Snapshot struct {
	Entries []Entry
	State   LoadState
	Err     error
	// Cached is set while the entries come from local storage rather than
	// a fetch.
	Cached    bool
	UpdatedAt time.Time
}

// Build zips the parallel arrays of a board into ranked entries and drops
// zero scores. The ledger's order is kept.
func Build(b ledger.Board) ([]Entry, error) {
	if len(b.Accounts) != len(b.Scores) {
		return nil, fmt.Errorf("%w: %d accounts but %d scores", ErrReadFailure, len(b.Accounts), len(b.Scores))
	}
	out := make([]Entry, 0, len(b.Accounts))
	for i, acct := range b.Accounts {
		if b.Scores[i] == 0 {
			continue
		}
		out = append(out, Entry{Account: acct, Score: b.Scores[i], Rank: i + 1})
	}
	return out, nil
}
