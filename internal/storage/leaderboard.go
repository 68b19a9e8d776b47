package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vovakirdan/snakechain/internal/leaderboard"
)

// SaveLeaderboard replaces the cached leaderboard wholesale.
func (s *Store) SaveLeaderboard(ctx context.Context, entries []leaderboard.Entry) error {
	at := toMillis(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM leaderboard_cache"); err != nil {
			return fmt.Errorf("storage: cannot clear leaderboard cache: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO leaderboard_cache (rank, account, score, fetched_at) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("storage: cannot prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Rank, e.Account, int64(e.Score), at); err != nil {
				return fmt.Errorf("storage: cannot cache rank %d: %w", e.Rank, err)
			}
		}
		return nil
	})
}

// LoadLeaderboard returns the cached leaderboard in rank order and when it
// was fetched. An empty cache returns no entries and a zero time.
func (s *Store) LoadLeaderboard(ctx context.Context) ([]leaderboard.Entry, time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT rank, account, score, fetched_at FROM leaderboard_cache ORDER BY rank ASC")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: cannot query leaderboard cache: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	var fetched int64
	for rows.Next() {
		var e leaderboard.Entry
		var score int64
		if err := rows.Scan(&e.Rank, &e.Account, &score, &fetched); err != nil {
			return nil, time.Time{}, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Score = uint64(score)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: row iteration error: %w", err)
	}
	if len(entries) == 0 {
		return nil, time.Time{}, nil
	}
	return entries, fromMillis(fetched), nil
}

var _ leaderboard.Cache = (*Store)(nil)
