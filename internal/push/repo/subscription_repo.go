package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/albinfrick/habbit-service/internal/push/entity"
)

// SubscriptionRepo provides data access for push_subscriptions. The
// endpoint is the external identity: UNIQUE(endpoint) plus an upsert keyed
// on it mean a browser re-subscribing with rotated keys updates in place.
type SubscriptionRepo struct {
	db *sqlx.DB
}

func NewSubscriptionRepo(db *sqlx.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// EnsureTable creates the push_subscriptions table if not exists (idempotent).
func (r *SubscriptionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS push_subscriptions (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  endpoint TEXT NOT NULL UNIQUE,
  p256dh TEXT NOT NULL,
  auth TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_push_subscriptions_user_id ON push_subscriptions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Upsert stores a subscription keyed by endpoint: a new endpoint inserts,
// a known one has its owner, keys and updated_at overwritten.
func (r *SubscriptionRepo) Upsert(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	const q = `INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
	           VALUES ($1, $2, $3, $4)
	           ON CONFLICT (endpoint) DO UPDATE
	           SET user_id=EXCLUDED.user_id, p256dh=EXCLUDED.p256dh, auth=EXCLUDED.auth, updated_at=NOW()`
	_, err := r.db.ExecContext(ctx, q, userID, endpoint, p256dh, auth)
	return err
}

// Remove deletes the row with the given endpoint; absent rows are a no-op.
func (r *SubscriptionRepo) Remove(ctx context.Context, endpoint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint=$1`, endpoint)
	return err
}

// RemoveAllForUser deletes every subscription owned by the user. Used when
// the caller lost its local subscription handle and cannot name an endpoint.
func (r *SubscriptionRepo) RemoveAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id=$1`, userID)
	return err
}

// ListForUser returns all subscriptions for the user. An empty slice is a
// valid outcome, not an error.
func (r *SubscriptionRepo) ListForUser(ctx context.Context, userID string) ([]entity.PushSubscription, error) {
	const q = `SELECT id, user_id, endpoint, p256dh, auth, created_at, updated_at
	           FROM push_subscriptions WHERE user_id=$1`
	var rows []entity.PushSubscription
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}
