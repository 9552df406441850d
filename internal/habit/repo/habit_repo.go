package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/albinfrick/habbit-service/internal/habit/entity"
)

// HabitRepo provides data access for the habits table using sqlx.
type HabitRepo struct {
	db *sqlx.DB
}

func NewHabitRepo(db *sqlx.DB) *HabitRepo { return &HabitRepo{db: db} }

// EnsureTable creates the habits table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *HabitRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS habits (
  id BIGSERIAL PRIMARY KEY,
  what TEXT NOT NULL,
  why TEXT NOT NULL,
  "when" TEXT NOT NULL,
  reminder_time TIMESTAMPTZ,
  reminder_enabled BOOLEAN NOT NULL DEFAULT false,
  created_by TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_habits_created_by ON habits(created_by);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new habit row and returns its id.
func (r *HabitRepo) Create(ctx context.Context, h *entity.Habit) (int64, error) {
	const q = `INSERT INTO habits (what, why, "when", reminder_time, reminder_enabled, created_by)
	           VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &h.ID, q, h.What, h.Why, h.When, h.ReminderTime, h.ReminderEnabled, h.CreatedByID); err != nil {
		return 0, err
	}
	return h.ID, nil
}

// Update overwrites the mutable fields of a habit. Returns affected rows
// so the caller can distinguish a missing habit.
func (r *HabitRepo) Update(ctx context.Context, h *entity.Habit) (int64, error) {
	const q = `UPDATE habits SET what=$2, why=$3, "when"=$4, reminder_time=$5, reminder_enabled=$6, updated_at=NOW()
	           WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, h.ID, h.What, h.Why, h.When, h.ReminderTime, h.ReminderEnabled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a habit. Completions go with it via ON DELETE CASCADE.
func (r *HabitRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetByID fetches a full habit row or sql.ErrNoRows.
func (r *HabitRepo) GetByID(ctx context.Context, id int64) (*entity.Habit, error) {
	const q = `SELECT id, what, why, "when", reminder_time, reminder_enabled, created_by, created_at, updated_at
	           FROM habits WHERE id=$1`
	var row entity.Habit
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByOwner returns every habit created by the given user.
func (r *HabitRepo) ListByOwner(ctx context.Context, userID string) ([]entity.Habit, error) {
	const q = `SELECT id, what, why, "when", reminder_time, reminder_enabled, created_by, created_at, updated_at
	           FROM habits WHERE created_by=$1 ORDER BY id`
	var rows []entity.Habit
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueEnabled returns habits eligible for reminding: reminders enabled
// and a reminder time configured. Habits with a null reminder_time are
// excluded here so they are never seen by the reminder pass, forced or not.
func (r *HabitRepo) ListDueEnabled(ctx context.Context) ([]entity.Habit, error) {
	const q = `SELECT id, what, why, "when", reminder_time, reminder_enabled, created_by, created_at, updated_at
	           FROM habits WHERE reminder_enabled = true AND reminder_time IS NOT NULL ORDER BY id`
	var rows []entity.Habit
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}
