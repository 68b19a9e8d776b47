package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GameRecord is one finished local game.
type GameRecord struct {
	ID        int64
	Score     int
	Length    int
	Ticks     int64
	Seed      int64
	CreatedAt time.Time
}

// GameStats contains aggregated statistics over local games.
type GameStats struct {
	GamesPlayed int
	BestScore   int
	AvgScore    float64
	TotalFood   int
	LastPlayed  time.Time
}

// SaveGame records a finished game. Returns the ID of the inserted record.
func (s *Store) SaveGame(ctx context.Context, g GameRecord) (int64, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO games (score, length, ticks, seed, created_at) VALUES (?, ?, ?, ?, ?)",
		g.Score, g.Length, g.Ticks, g.Seed, toMillis(g.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save game: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// TopGames retrieves the best local games, highest score first.
func (s *Store) TopGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryGames(ctx,
		`SELECT id, score, length, ticks, seed, created_at
		 FROM games
		 ORDER BY score DESC, created_at ASC
		 LIMIT ?`, limit)
}

// RecentGames retrieves the latest local games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryGames(ctx,
		`SELECT id, score, length, ticks, seed, created_at
		 FROM games
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
}

func (s *Store) queryGames(ctx context.Context, query string, args ...any) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		var created int64
		if err := rows.Scan(&g.ID, &g.Score, &g.Length, &g.Ticks, &g.Seed, &created); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		g.CreatedAt = fromMillis(created)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return games, nil
}

// HighScore returns the best local score, 0 if no games exist.
func (s *Store) HighScore(ctx context.Context) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(score) FROM games").Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}
	return int(score.Int64), nil
}

// Stats aggregates all local games.
func (s *Store) Stats(ctx context.Context) (GameStats, error) {
	var st GameStats
	var best, total, last sql.NullInt64
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(score), AVG(score), SUM(score), MAX(created_at) FROM games`,
	).Scan(&st.GamesPlayed, &best, &avg, &total, &last)
	if err != nil {
		return st, fmt.Errorf("storage: cannot query stats: %w", err)
	}
	st.BestScore = int(best.Int64)
	st.AvgScore = avg.Float64
	// One point per food eaten.
	st.TotalFood = int(total.Int64)
	if last.Valid {
		st.LastPlayed = fromMillis(last.Int64)
	}
	return st, nil
}
