package push

import (
	"context"
	"errors"
	"fmt"
)

// Registry is the full subscription-registry surface used by the
// subscribe/unsubscribe flows.
type Registry interface {
	SubscriptionStore
	Upsert(ctx context.Context, userID, endpoint, p256dh, auth string) error
	RemoveAllForUser(ctx context.Context, userID string) error
}

// Service wraps the subscription registry for the user-initiated
// subscribe/unsubscribe surfaces.
type Service struct {
	registry Registry
}

func NewService(registry Registry) *Service {
	return &Service{registry: registry}
}

// Subscribe stores or refreshes a subscription. The endpoint, not the row
// id, is the external identity: a browser re-subscribing the same endpoint
// with rotated keys overwrites in place.
func (s *Service) Subscribe(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	if endpoint == "" || p256dh == "" || auth == "" {
		return errors.New("endpoint and keys required")
	}
	if err := s.registry.Upsert(ctx, userID, endpoint, p256dh, auth); err != nil {
		return fmt.Errorf("store subscription: %w", err)
	}
	return nil
}

// Unsubscribe removes one subscription by endpoint, or every subscription
// of the user when no endpoint is given (the caller lost its local
// subscription handle). Removing what is already gone is a no-op.
func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if endpoint != "" {
		return s.registry.Remove(ctx, endpoint)
	}
	return s.registry.RemoveAllForUser(ctx, userID)
}
