package entity

import "time"

// Habit represents a row in the `habits` table. ReminderTime stores the
// wall-clock reminder moment as an instant; only its UTC hour and minute
// carry meaning, the date portion is whatever the client sent at creation.
type Habit struct {
	ID              int64      `db:"id" json:"id"`
	What            string     `db:"what" json:"what"`
	Why             string     `db:"why" json:"why"`
	When            string     `db:"when" json:"when"`
	ReminderTime    *time.Time `db:"reminder_time" json:"reminder_time,omitempty"`
	ReminderEnabled bool       `db:"reminder_enabled" json:"reminder_enabled"`
	CreatedByID     string     `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// HabitCompletion records that a habit was done on one calendar day.
// CompletedDate is a date-only string (YYYY-MM-DD, UTC); at most one row
// exists per (HabitID, CompletedDate).
type HabitCompletion struct {
	ID            int64  `db:"id" json:"id"`
	HabitID       int64  `db:"habit_id" json:"habit_id"`
	CompletedDate string `db:"completed_date" json:"completed_date"`
}

// HabitWithStatus is the list-view projection: the habit plus whether it
// is completed today and how many completions it has in total.
type HabitWithStatus struct {
	Habit       Habit `json:"habit"`
	IsCompleted bool  `json:"is_completed"`
	Completions int   `json:"completions"`
}
