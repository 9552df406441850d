package habit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/albinfrick/habbit-service/internal/habit/entity"
)

// sentinel errors for common failure modes
var (
	ErrNotFound  = errors.New("habit not found")
	ErrForbidden = errors.New("habit belongs to another user")
)

// Today renders an instant as the engine's calendar day: a date-only
// string in UTC. A reminder pass computes this once up front so a pass
// spanning a UTC midnight boundary stays internally consistent.
func Today(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// habitStore is the slice of the habit repo the service needs.
type habitStore interface {
	Create(ctx context.Context, h *entity.Habit) (int64, error)
	Update(ctx context.Context, h *entity.Habit) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Habit, error)
	ListByOwner(ctx context.Context, userID string) ([]entity.Habit, error)
}

// completionStore is the completion ledger the service records into.
type completionStore interface {
	IsCompleted(ctx context.Context, habitID int64, date string) (bool, error)
	MarkComplete(ctx context.Context, habitID int64, date string) error
	Revert(ctx context.Context, habitID int64, date string) error
	Count(ctx context.Context, habitID int64) (int, error)
}

// Service carries the habit CRUD surface and the completion ledger. The
// reminder engine reads habits through its own interfaces; this service is
// the user-facing side.
type Service struct {
	habits      habitStore
	completions completionStore
	now         func() time.Time
}

func NewService(habits habitStore, completions completionStore) *Service {
	return &Service{habits: habits, completions: completions, now: time.Now}
}

// HabitInput is the mutable field set accepted by create and update.
type HabitInput struct {
	What            string
	Why             string
	When            string
	ReminderEnabled bool
	ReminderTime    *time.Time
}

func (in HabitInput) validate() error {
	if in.What == "" || in.Why == "" || in.When == "" {
		return errors.New("what, why and when are required")
	}
	return nil
}

// Create stores a new habit owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in HabitInput) (*entity.Habit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	h := &entity.Habit{
		What:            in.What,
		Why:             in.Why,
		When:            in.When,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
		CreatedByID:     userID,
	}
	if _, err := s.habits.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Update overwrites a habit the user owns.
func (s *Service) Update(ctx context.Context, userID string, id int64, in HabitInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	h := &entity.Habit{
		ID:              id,
		What:            in.What,
		Why:             in.Why,
		When:            in.When,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
	}
	rows, err := s.habits.Update(ctx, h)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a habit the user owns; its completions cascade away.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	rows, err := s.habits.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithStatus returns the user's habits with today's completion flag
// and the all-time completion count.
func (s *Service) ListWithStatus(ctx context.Context, userID string) ([]entity.HabitWithStatus, error) {
	habits, err := s.habits.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := Today(s.now())
	out := make([]entity.HabitWithStatus, 0, len(habits))
	for _, h := range habits {
		done, err := s.completions.IsCompleted(ctx, h.ID, today)
		if err != nil {
			return nil, err
		}
		count, err := s.completions.Count(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.HabitWithStatus{Habit: h, IsCompleted: done, Completions: count})
	}
	return out, nil
}

// Complete marks the habit done for today. Calling it twice in one day
// leaves exactly one completion row.
func (s *Service) Complete(ctx context.Context, userID string, id int64) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	return s.completions.MarkComplete(ctx, id, Today(s.now()))
}

// Revert deletes today's completion only; completions recorded on other
// days are untouched and a missing row is not an error.
func (s *Service) Revert(ctx context.Context, userID string, id int64) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	return s.completions.Revert(ctx, id, Today(s.now()))
}

func (s *Service) checkOwner(ctx context.Context, userID string, id int64) error {
	h, err := s.habits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if h.CreatedByID != userID {
		return ErrForbidden
	}
	return nil
}
