package habit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albinfrick/habbit-service/internal/habit/entity"
)

type fakeHabitStore struct {
	nextID int64
	rows   map[int64]*entity.Habit
}

func newFakeHabitStore() *fakeHabitStore {
	return &fakeHabitStore{rows: make(map[int64]*entity.Habit)}
}

func (f *fakeHabitStore) Create(ctx context.Context, h *entity.Habit) (int64, error) {
	f.nextID++
	h.ID = f.nextID
	cp := *h
	f.rows[h.ID] = &cp
	return h.ID, nil
}

func (f *fakeHabitStore) Update(ctx context.Context, h *entity.Habit) (int64, error) {
	row, ok := f.rows[h.ID]
	if !ok {
		return 0, nil
	}
	row.What, row.Why, row.When = h.What, h.Why, h.When
	row.ReminderEnabled, row.ReminderTime = h.ReminderEnabled, h.ReminderTime
	return 1, nil
}

func (f *fakeHabitStore) Delete(ctx context.Context, id int64) (int64, error) {
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

func (f *fakeHabitStore) GetByID(ctx context.Context, id int64) (*entity.Habit, error) {
	if h, ok := f.rows[id]; ok {
		cp := *h
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeHabitStore) ListByOwner(ctx context.Context, userID string) ([]entity.Habit, error) {
	var out []entity.Habit
	for id := int64(1); id <= f.nextID; id++ {
		if h, ok := f.rows[id]; ok && h.CreatedByID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

// fakeCompletionStore mirrors the unique (habit, date) constraint.
type fakeCompletionStore struct {
	done map[int64]map[string]bool
}

func newFakeCompletionStore() *fakeCompletionStore {
	return &fakeCompletionStore{done: make(map[int64]map[string]bool)}
}

func (f *fakeCompletionStore) IsCompleted(ctx context.Context, habitID int64, date string) (bool, error) {
	return f.done[habitID][date], nil
}

func (f *fakeCompletionStore) MarkComplete(ctx context.Context, habitID int64, date string) error {
	if f.done[habitID] == nil {
		f.done[habitID] = make(map[string]bool)
	}
	f.done[habitID][date] = true
	return nil
}

func (f *fakeCompletionStore) Revert(ctx context.Context, habitID int64, date string) error {
	delete(f.done[habitID], date)
	return nil
}

func (f *fakeCompletionStore) Count(ctx context.Context, habitID int64) (int, error) {
	return len(f.done[habitID]), nil
}

func newTestService(habits *fakeHabitStore, completions *fakeCompletionStore, now time.Time) *Service {
	s := NewService(habits, completions)
	s.now = func() time.Time { return now }
	return s
}

func TestCompleteAndRevertToday(t *testing.T) {
	habits := newFakeHabitStore()
	completions := newFakeCompletionStore()
	now := time.Date(2024, time.May, 5, 23, 30, 0, 0, time.UTC)
	svc := newTestService(habits, completions, now)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", HabitInput{What: "stretch", Why: "health", When: "daily"})
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, "u1", created.ID))
	// second call in the same day is a no-op, not an error
	require.NoError(t, svc.Complete(ctx, "u1", created.ID))

	done, err := completions.IsCompleted(ctx, created.ID, "2024-05-05")
	require.NoError(t, err)
	assert.True(t, done)
	n, _ := completions.Count(ctx, created.ID)
	assert.Equal(t, 1, n)

	// revert removes today only; reverting again stays a no-op
	require.NoError(t, svc.Revert(ctx, "u1", created.ID))
	require.NoError(t, svc.Revert(ctx, "u1", created.ID))
	done, _ = completions.IsCompleted(ctx, created.ID, "2024-05-05")
	assert.False(t, done)
}

func TestRevertLeavesOtherDaysAlone(t *testing.T) {
	habits := newFakeHabitStore()
	completions := newFakeCompletionStore()
	now := time.Date(2024, time.May, 5, 10, 0, 0, 0, time.UTC)
	svc := newTestService(habits, completions, now)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", HabitInput{What: "stretch", Why: "health", When: "daily"})
	require.NoError(t, err)

	require.NoError(t, completions.MarkComplete(ctx, created.ID, "2024-05-04"))
	require.NoError(t, svc.Complete(ctx, "u1", created.ID))

	require.NoError(t, svc.Revert(ctx, "u1", created.ID))

	yesterday, _ := completions.IsCompleted(ctx, created.ID, "2024-05-04")
	assert.True(t, yesterday, "historical completions must survive a revert")
}

func TestOwnershipIsEnforced(t *testing.T) {
	habits := newFakeHabitStore()
	completions := newFakeCompletionStore()
	svc := newTestService(habits, completions, time.Now())
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", HabitInput{What: "stretch", Why: "health", When: "daily"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Complete(ctx, "intruder", created.ID), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "intruder", created.ID), ErrForbidden)
	assert.ErrorIs(t, svc.Update(ctx, "intruder", created.ID, HabitInput{What: "a", Why: "b", When: "c"}), ErrForbidden)

	assert.ErrorIs(t, svc.Complete(ctx, "u1", 999), ErrNotFound)
}

func TestListWithStatus(t *testing.T) {
	habits := newFakeHabitStore()
	completions := newFakeCompletionStore()
	now := time.Date(2024, time.May, 5, 10, 0, 0, 0, time.UTC)
	svc := newTestService(habits, completions, now)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", HabitInput{What: "stretch", Why: "health", When: "daily"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u1", HabitInput{What: "read", Why: "growth", When: "at night"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", HabitInput{What: "other", Why: "x", When: "y"})
	require.NoError(t, err)

	require.NoError(t, completions.MarkComplete(ctx, a.ID, "2024-05-04"))
	require.NoError(t, svc.Complete(ctx, "u1", a.ID))

	out, err := svc.ListWithStatus(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := map[int64]entity.HabitWithStatus{}
	for _, s := range out {
		byID[s.Habit.ID] = s
	}
	assert.True(t, byID[a.ID].IsCompleted)
	assert.Equal(t, 2, byID[a.ID].Completions)
	assert.False(t, byID[b.ID].IsCompleted)
	assert.Equal(t, 0, byID[b.ID].Completions)
}

func TestTodayIsUTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC
	local := time.Date(2024, time.May, 5, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "2024-05-06", Today(local))
	assert.Equal(t, "2024-05-05", Today(time.Date(2024, time.May, 5, 0, 0, 1, 0, time.UTC)))
}
