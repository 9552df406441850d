package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// CompletionRepo provides data access for habit_completions. The
// UNIQUE(habit_id, completed_date) constraint makes MarkComplete naturally
// idempotent.
type CompletionRepo struct {
	db *sqlx.DB
}

func NewCompletionRepo(db *sqlx.DB) *CompletionRepo { return &CompletionRepo{db: db} }

// EnsureTable creates the habit_completions table if not exists (idempotent).
func (r *CompletionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS habit_completions (
  id BIGSERIAL PRIMARY KEY,
  habit_id BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
  completed_date TEXT NOT NULL,
  UNIQUE (habit_id, completed_date)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// IsCompleted reports whether the habit has a completion for the given
// date (YYYY-MM-DD).
func (r *CompletionRepo) IsCompleted(ctx context.Context, habitID int64, date string) (bool, error) {
	const q = `SELECT 1 FROM habit_completions WHERE habit_id=$1 AND completed_date=$2`
	var one int
	if err := r.db.GetContext(ctx, &one, q, habitID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkComplete records a completion for the given date. A second call for
// the same (habit, date) is a silent no-op.
func (r *CompletionRepo) MarkComplete(ctx context.Context, habitID int64, date string) error {
	const q = `INSERT INTO habit_completions (habit_id, completed_date) VALUES ($1, $2)
	           ON CONFLICT (habit_id, completed_date) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, habitID, date)
	return err
}

// Revert deletes the completion for the given date only. Deleting a
// non-existent row is not an error.
func (r *CompletionRepo) Revert(ctx context.Context, habitID int64, date string) error {
	const q = `DELETE FROM habit_completions WHERE habit_id=$1 AND completed_date=$2`
	_, err := r.db.ExecContext(ctx, q, habitID, date)
	return err
}

// Count returns the total number of completions recorded for a habit.
func (r *CompletionRepo) Count(ctx context.Context, habitID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM habit_completions WHERE habit_id=$1`
	var n int
	if err := r.db.GetContext(ctx, &n, q, habitID); err != nil {
		return 0, err
	}
	return n, nil
}
