package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/habit"
	habitentity "github.com/albinfrick/habbit-service/internal/habit/entity"
	"github.com/albinfrick/habbit-service/internal/push"
	pushentity "github.com/albinfrick/habbit-service/internal/push/entity"
)

// ReminderTitle heads every reminder notification.
const ReminderTitle = "Habit Reminder"

// ReasonNoSubscriptions explains an unsent reminder whose owner has no
// registered push endpoint.
const ReasonNoSubscriptions = "no subscriptions"

// HabitSource loads reminder candidates. ListDueEnabled must already
// exclude disabled habits and habits without a reminder time, so the pass
// never sees them, forced or not.
type HabitSource interface {
	ListDueEnabled(ctx context.Context) ([]habitentity.Habit, error)
	GetByID(ctx context.Context, id int64) (*habitentity.Habit, error)
}

// CompletionLedger answers whether a habit is already done on a given day.
type CompletionLedger interface {
	IsCompleted(ctx context.Context, habitID int64, date string) (bool, error)
}

// SubscriptionSource is the cheap pre-check for reachability: a user with
// zero subscriptions is skipped before the ledger is ever queried.
type SubscriptionSource interface {
	ListForUser(ctx context.Context, userID string) ([]pushentity.PushSubscription, error)
}

// Notifier fans one notification out to every device of a user.
type Notifier interface {
	Dispatch(ctx context.Context, userID, title, body string) (push.DispatchResult, error)
}

// HabitOutcome records what one pass did for one due habit.
type HabitOutcome struct {
	HabitID   int64  `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Sent      bool   `json:"sent"`
	Completed bool   `json:"completed,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Attempted int    `json:"attempted,omitempty"`
	Delivered int    `json:"delivered,omitempty"`
}

// PassResult is the aggregate of one orchestrator pass plus bookkeeping
// for observability. Outcomes are unordered across users.
type PassResult struct {
	Outcomes []HabitOutcome `json:"outcomes"`
	Today    string         `json:"today"`
	Time     string         `json:"time"`
}

// Service is the reminder orchestrator. It holds no timer: an external
// scheduler (or a user's "check now") invokes RunPass.
type Service struct {
	habits HabitSource
	ledger CompletionLedger
	subs   SubscriptionSource
	sender Notifier
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(habits HabitSource, ledger CompletionLedger, subs SubscriptionSource, sender Notifier, logger *zap.SugaredLogger) *Service {
	return &Service{habits: habits, ledger: ledger, subs: subs, sender: sender, logger: logger, now: time.Now}
}

// RunPass evaluates every reminder-enabled habit once. With force false
// only habits whose reminder time matches the current UTC minute survive;
// with force true the time filter is skipped ("check now"). Habits
// completed today are never dispatched. When storage fails mid-pass the
// outcomes accumulated so far are returned together with the error.
func (s *Service) RunPass(ctx context.Context, force bool) (PassResult, error) {
	now := s.now()
	res := PassResult{
		Today: habit.Today(now),
		Time:  now.UTC().Format("15:04"),
	}

	s.logger.Infow("running habit reminder check", "time", res.Time, "date", res.Today, "force", force)

	candidates, err := s.habits.ListDueEnabled(ctx)
	if err != nil {
		return res, fmt.Errorf("load habits: %w", err)
	}

	due := candidates
	if !force {
		due = make([]habitentity.Habit, 0, len(candidates))
		for _, h := range candidates {
			if h.ReminderTime != nil && MatchesWindow(*h.ReminderTime, now) {
				due = append(due, h)
			}
		}
	}
	s.logger.Infow("found habits that need reminders", "count", len(due))

	// group by owner so one subscription lookup serves all of a user's due
	// habits; content is still one notification per habit
	byUser := make(map[string][]habitentity.Habit)
	var userOrder []string
	for _, h := range due {
		if _, seen := byUser[h.CreatedByID]; !seen {
			userOrder = append(userOrder, h.CreatedByID)
		}
		byUser[h.CreatedByID] = append(byUser[h.CreatedByID], h)
	}

	for _, userID := range userOrder {
		userHabits := byUser[userID]

		subs, err := s.subs.ListForUser(ctx, userID)
		if err != nil {
			return res, fmt.Errorf("load subscriptions for user %s: %w", userID, err)
		}
		if len(subs) == 0 {
			// unreachable user: record every habit and skip the ledger
			s.logger.Infow("user has no push subscriptions", "user", userID)
			for _, h := range userHabits {
				res.Outcomes = append(res.Outcomes, HabitOutcome{
					HabitID:   h.ID,
					HabitName: h.What,
					Sent:      false,
					Reason:    ReasonNoSubscriptions,
				})
			}
			continue
		}

		for _, h := range userHabits {
			done, err := s.ledger.IsCompleted(ctx, h.ID, res.Today)
			if err != nil {
				return res, fmt.Errorf("check completion for habit %d: %w", h.ID, err)
			}
			if done {
				res.Outcomes = append(res.Outcomes, HabitOutcome{
					HabitID:   h.ID,
					HabitName: h.What,
					Sent:      false,
					Completed: true,
				})
				continue
			}

			body := fmt.Sprintf("Don't forget to %s %s!", h.What, h.When)
			dr, err := s.sender.Dispatch(ctx, userID, ReminderTitle, body)
			if err != nil {
				return res, fmt.Errorf("dispatch for habit %d: %w", h.ID, err)
			}
			res.Outcomes = append(res.Outcomes, HabitOutcome{
				HabitID:   h.ID,
				HabitName: h.What,
				Sent:      dr.Delivered > 0,
				Attempted: dr.Attempted,
				Delivered: dr.Delivered,
			})
		}
	}

	return res, nil
}

// RemindHabit resends one habit's reminder immediately unless it is
// already completed today. The acting user must own the habit.
func (s *Service) RemindHabit(ctx context.Context, userID string, habitID int64) (HabitOutcome, error) {
	h, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HabitOutcome{}, habit.ErrNotFound
		}
		return HabitOutcome{}, err
	}
	if h.CreatedByID != userID {
		return HabitOutcome{}, habit.ErrForbidden
	}

	out := HabitOutcome{HabitID: h.ID, HabitName: h.What}

	done, err := s.ledger.IsCompleted(ctx, h.ID, habit.Today(s.now()))
	if err != nil {
		return out, err
	}
	if done {
		out.Completed = true
		return out, nil
	}

	dr, err := s.sender.Dispatch(ctx, userID, ReminderTitle, fmt.Sprintf("Don't forget to %s today!", h.What))
	if err != nil {
		return out, err
	}
	out.Sent = dr.Delivered > 0
	out.Attempted = dr.Attempted
	out.Delivered = dr.Delivered
	if dr.NoSubscriptions {
		out.Reason = ReasonNoSubscriptions
	}
	return out, nil
}
