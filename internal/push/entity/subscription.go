package entity

import "time"

// PushSubscription stores one browser push endpoint with its encryption
// keys. Endpoint is globally unique; re-subscribing the same endpoint
// rotates the keys in place instead of creating a second row.
type PushSubscription struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
