package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/snakechain/internal/submit"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// SubmissionRecord is a persisted submission.
type SubmissionRecord struct {
	submit.Submission
	// ErrText is the stored failure message; Submission.Err is rebuilt
	// from it.
	ErrText   string
	CreatedAt time.Time
}

// RecordSubmission upserts the latest state of a submission. It implements
// submit.Recorder.
func (s *Store) RecordSubmission(ctx context.Context, sub submit.Submission) error {
	updated := sub.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	errText := ""
	if sub.Err != nil {
		errText = sub.Err.Error()
	}
	var hs sql.NullInt64
	if sub.HighScoreKnown {
		hs = sql.NullInt64{Int64: int64(sub.HighScore), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, score, status, tx_id, error_kind, error, high_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			tx_id = excluded.tx_id,
			error_kind = excluded.error_kind,
			error = excluded.error,
			high_score = COALESCE(excluded.high_score, submissions.high_score),
			updated_at = excluded.updated_at`,
		sub.ID, sub.Score, sub.Status.String(), sub.TxID, sub.ErrKind.String(), errText, hs,
		toMillis(updated), toMillis(updated),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot record submission %s: %w", sub.ID, err)
	}
	return nil
}

const submissionColumns = `id, score, status, tx_id, error_kind, error, high_score, created_at, updated_at`

// SubmissionByTx finds a submission by transaction id.
func (s *Store) SubmissionByTx(ctx context.Context, txID string) (SubmissionRecord, error) {
	rows, err := s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE tx_id = ? ORDER BY updated_at DESC LIMIT 1`, txID)
	if err != nil {
		return SubmissionRecord{}, err
	}
	if len(rows) == 0 {
		return SubmissionRecord{}, fmt.Errorf("%w: submission with tx %s", ErrNotFound, txID)
	}
	return rows[0], nil
}

// RecentSubmissions lists submissions, newest first.
func (s *Store) RecentSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC, updated_at DESC LIMIT ?`, limit)
}

// UnresolvedSubmissions lists broadcast submissions whose outcome is not
// known yet (pending or verifying), oldest first.
func (s *Store) UnresolvedSubmissions(ctx context.Context) ([]SubmissionRecord, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE status IN (?, ?) AND tx_id != ''
		 ORDER BY created_at ASC`,
		submit.StatusPending.String(), submit.StatusVerifying.String())
}

func (s *Store) querySubmissions(ctx context.Context, query string, args ...any) ([]SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query submissions: %w", err)
	}
	defer rows.Close()

	var out []SubmissionRecord
	for rows.Next() {
		var r SubmissionRecord
		var status, kind string
		var hs sql.NullInt64
		var created, updated int64
		if err := rows.Scan(&r.ID, &r.Score, &status, &r.TxID, &kind, &r.ErrText, &hs, &created, &updated); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if r.Status, err = submit.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("storage: submission %s: %w", r.ID, err)
		}
		if r.ErrKind, err = submit.ParseErrorKind(kind); err != nil {
			return nil, fmt.Errorf("storage: submission %s: %w", r.ID, err)
		}
		if r.ErrText != "" {
			r.Err = errors.New(r.ErrText)
		}
		if hs.Valid {
			r.HighScore = uint64(hs.Int64)
			r.HighScoreKnown = true
		}
		r.CreatedAt = fromMillis(created)
		r.UpdatedAt = fromMillis(updated)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

var _ submit.Recorder = (*Store)(nil)
