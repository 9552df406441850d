package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/push/entity"
)

// fakeStore is an in-memory subscription registry keyed by endpoint.
type fakeStore struct {
	mu        sync.Mutex
	subs      map[string]entity.PushSubscription
	removeErr error
}

func newFakeStore(subs ...entity.PushSubscription) *fakeStore {
	s := &fakeStore{subs: make(map[string]entity.PushSubscription)}
	for _, sub := range subs {
		s.subs[sub.Endpoint] = sub
	}
	return s
}

func (s *fakeStore) ListForUser(ctx context.Context, userID string) ([]entity.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.PushSubscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) Remove(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.subs, endpoint)
	return nil
}

// fakeTransport fails specific endpoints with configured errors and
// records every payload it saw.
type fakeTransport struct {
	mu       sync.Mutex
	fail     map[string]error
	payloads [][]byte
}

func (t *fakeTransport) Send(ctx context.Context, sub entity.PushSubscription, payload []byte) error {
	t.mu.Lock()
	t.payloads = append(t.payloads, payload)
	t.mu.Unlock()
	if err, ok := t.fail[sub.Endpoint]; ok {
		return err
	}
	return nil
}

func sub(userID, endpoint string) entity.PushSubscription {
	return entity.PushSubscription{UserID: userID, Endpoint: endpoint, P256dh: "p", Auth: "a"}
}

func TestDispatchFanOutPrunesPermanentFailures(t *testing.T) {
	store := newFakeStore(sub("u1", "ep-1"), sub("u1", "ep-2"), sub("u1", "ep-3"))
	transport := &fakeTransport{fail: map[string]error{"ep-2": ErrEndpointGone}}
	d := NewDispatcher(store, transport, zap.NewNop().Sugar())

	res, err := d.Dispatch(context.Background(), "u1", "Habit Reminder", "Don't forget!")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Delivered)
	assert.Equal(t, []string{"ep-2"}, res.PrunedEndpoints)
	assert.False(t, res.NoSubscriptions)
	assert.Len(t, res.Outcomes, 3)

	// the dead endpoint is gone from the registry, the others survive
	left, err := store.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, left, 2)
	for _, s := range left {
		assert.NotEqual(t, "ep-2", s.Endpoint)
	}
}

func TestDispatchTransientFailureKeepsSubscription(t *testing.T) {
	store := newFakeStore(sub("u1", "ep-1"), sub("u1", "ep-2"))
	transport := &fakeTransport{fail: map[string]error{"ep-1": errors.New("503 from push service")}}
	d := NewDispatcher(store, transport, zap.NewNop().Sugar())

	res, err := d.Dispatch(context.Background(), "u1", "t", "b")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Delivered)
	assert.Empty(t, res.PrunedEndpoints)

	statuses := map[string]string{}
	for _, o := range res.Outcomes {
		statuses[o.Endpoint] = o.Status
	}
	assert.Equal(t, StatusFailedTransient, statuses["ep-1"])
	assert.Equal(t, StatusDelivered, statuses["ep-2"])

	left, err := store.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestDispatchFailedPruneIsReportedTransient(t *testing.T) {
	store := newFakeStore(sub("u1", "ep-1"))
	store.removeErr = errors.New("deadlock detected")
	transport := &fakeTransport{fail: map[string]error{"ep-1": ErrEndpointGone}}
	d := NewDispatcher(store, transport, zap.NewNop().Sugar())

	res, err := d.Dispatch(context.Background(), "u1", "t", "b")
	require.NoError(t, err)

	// the row is still in the registry, so the aggregate must not claim
	// it was pruned
	assert.Empty(t, res.PrunedEndpoints)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, StatusFailedTransient, res.Outcomes[0].Status)

	left, err := store.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestDispatchNoSubscriptionsIsNotAnError(t *testing.T) {
	store := newFakeStore(sub("someone-else", "ep-9"))
	transport := &fakeTransport{}
	d := NewDispatcher(store, transport, zap.NewNop().Sugar())

	res, err := d.Dispatch(context.Background(), "u1", "t", "b")
	require.NoError(t, err)

	assert.True(t, res.NoSubscriptions)
	assert.Equal(t, 0, res.Attempted)
	assert.Equal(t, 0, res.Delivered)
	assert.Empty(t, transport.payloads, "transport must not be touched")
}

func TestDispatchPayloadShape(t *testing.T) {
	store := newFakeStore(sub("u1", "ep-1"))
	transport := &fakeTransport{}
	d := NewDispatcher(store, transport, zap.NewNop().Sugar())

	_, err := d.Dispatch(context.Background(), "u1", "Habit Reminder", "Don't forget to stretch daily!")
	require.NoError(t, err)
	require.Len(t, transport.payloads, 1)

	var p Payload
	require.NoError(t, json.Unmarshal(transport.payloads[0], &p))
	assert.Equal(t, "Habit Reminder", p.Title)
	assert.Equal(t, "Don't forget to stretch daily!", p.Body)
	assert.Equal(t, NotificationIcon, p.Icon)
}
