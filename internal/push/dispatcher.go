package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/push/entity"
)

// NotificationIcon is shown by the client for every reminder.
const NotificationIcon = "/rabbit.svg"

// Per-subscription outcome classes.
const (
	StatusDelivered       = "delivered"
	StatusFailedPermanent = "failed-permanent"
	StatusFailedTransient = "failed-transient"
)

// SendOutcome is the result of one delivery attempt.
type SendOutcome struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// DispatchResult aggregates a fan-out to every subscription of one user.
// The call as a whole succeeds as long as loading and attempting completed;
// Delivered may be zero without that being an error.
type DispatchResult struct {
	UserID          string        `json:"user_id"`
	Attempted       int           `json:"attempted"`
	Delivered       int           `json:"delivered"`
	NoSubscriptions bool          `json:"no_subscriptions,omitempty"`
	PrunedEndpoints []string      `json:"pruned_endpoints,omitempty"`
	Outcomes        []SendOutcome `json:"outcomes,omitempty"`
}

// SubscriptionStore is the slice of the subscription repo the dispatcher
// needs: load a user's endpoints and prune one by key. Remove is keyed by
// endpoint so concurrent pruners commute.
type SubscriptionStore interface {
	ListForUser(ctx context.Context, userID string) ([]entity.PushSubscription, error)
	Remove(ctx context.Context, endpoint string) error
}

// Dispatcher fans one notification out to every subscription of a user.
// One user may hold several subscriptions (multiple browsers/devices); one
// dead endpoint must never block delivery to the others, and it must not
// silently persist alongside them either, so permanent failures are pruned
// as a side effect of attempting delivery.
type Dispatcher struct {
	store     SubscriptionStore
	transport Transport
	logger    *zap.SugaredLogger
}

func NewDispatcher(store SubscriptionStore, transport Transport, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{store: store, transport: transport, logger: logger}
}

// Dispatch delivers {title, body} to every subscription of userID,
// concurrently. All attempts run to completion before the aggregate is
// returned; there is no early return on the first failure and no retry of
// transient failures within the call.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, title, body string) (DispatchResult, error) {
	res := DispatchResult{UserID: userID}

	subs, err := d.store.ListForUser(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		// not an error: the user simply cannot be reached right now
		res.NoSubscriptions = true
		return res, nil
	}

	payload, err := json.Marshal(Payload{Title: title, Body: body, Icon: NotificationIcon})
	if err != nil {
		return res, fmt.Errorf("encode payload: %w", err)
	}

	res.Attempted = len(subs)
	outcomes := make([]SendOutcome, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub entity.PushSubscription) {
			defer wg.Done()
			outcomes[i] = d.attempt(ctx, sub, payload)
		}(i, sub)
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o.Status {
		case StatusDelivered:
			res.Delivered++
		case StatusFailedPermanent:
			res.PrunedEndpoints = append(res.PrunedEndpoints, o.Endpoint)
		}
	}
	res.Outcomes = outcomes
	return res, nil
}

func (d *Dispatcher) attempt(ctx context.Context, sub entity.PushSubscription, payload []byte) SendOutcome {
	err := d.transport.Send(ctx, sub, payload)
	if err == nil {
		return SendOutcome{Endpoint: sub.Endpoint, Status: StatusDelivered}
	}
	if errors.Is(err, ErrEndpointGone) {
		// prune before recording the outcome so the endpoint is never
		// retried on a future pass; if the prune itself fails the row is
		// still in the registry, so report the attempt as transient
		if rmErr := d.store.Remove(ctx, sub.Endpoint); rmErr != nil {
			d.logger.Warnw("failed to prune dead subscription", "endpoint", sub.Endpoint, "err", rmErr)
			return SendOutcome{Endpoint: sub.Endpoint, Status: StatusFailedTransient, Error: err.Error()}
		}
		d.logger.Infow("pruned dead subscription", "endpoint", sub.Endpoint)
		return SendOutcome{Endpoint: sub.Endpoint, Status: StatusFailedPermanent, Error: err.Error()}
	}
	d.logger.Debugw("push delivery failed", "endpoint", sub.Endpoint, "err", err)
	return SendOutcome{Endpoint: sub.Endpoint, Status: StatusFailedTransient, Error: err.Error()}
}
