package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/albinfrick/habbit-service/internal/push/entity"
)

// Payload is the push message wire format the service worker renders.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
}

// ErrEndpointGone marks a permanent delivery failure: the push service
// reported the endpoint expired or was revoked and will never accept
// delivery again.
var ErrEndpointGone = errors.New("push endpoint gone")

// Transport delivers an encrypted payload to one subscription. Any error
// other than ErrEndpointGone is treated as transient by callers.
type Transport interface {
	Send(ctx context.Context, sub entity.PushSubscription, payload []byte) error
}

type TransportConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the contact address sent to the push service
	// (webpush-go adds the mailto: scheme itself).
	Subscriber string
	TTLSeconds int
	// Timeout bounds a single delivery attempt so one stuck endpoint
	// cannot stall the rest of a fan-out.
	Timeout time.Duration
}

// TransportConfigFromEnv reads web-push config from environment variables.
func TransportConfigFromEnv() TransportConfig {
	cfg := TransportConfig{
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
		TTLSeconds:      60 * 60 * 24,
		Timeout:         10 * time.Second,
	}
	if v := os.Getenv("PUSH_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TTLSeconds = n
		}
	}
	if v := os.Getenv("PUSH_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Timeout = time.Duration(n) * time.Millisecond
		}
	}
	return cfg
}

// WebPushTransport delivers through the Web Push protocol with VAPID auth.
type WebPushTransport struct {
	cfg TransportConfig
}

func NewWebPushTransport(cfg TransportConfig) *WebPushTransport {
	return &WebPushTransport{cfg: cfg}
}

func (t *WebPushTransport) Send(ctx context.Context, sub entity.PushSubscription, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      t.cfg.Subscriber,
		VAPIDPublicKey:  t.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: t.cfg.VAPIDPrivateKey,
		TTL:             t.cfg.TTLSeconds,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404/410 mean the subscription is dead; everything else >= 400 may
	// recover on a later pass.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrEndpointGone
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("push service status %d: %s", resp.StatusCode, b)
	}
	return nil
}
