package push

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/auth"
)

// Handler exposes the browser-facing subscription endpoints.
type Handler struct {
	svc            *Service
	sessions       *auth.Service
	vapidPublicKey string
	logger         *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *auth.Service, vapidPublicKey string, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, vapidPublicKey: vapidPublicKey, logger: logger}
}

// VAPIDPublicKey returns the public key the browser needs to call
// PushManager.subscribe.
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.vapidPublicKey})
}

// SubscribeRequest mirrors the serialized browser PushSubscription.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.UserFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.Subscribe(r.Context(), userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		h.logger.Warnw("subscribe failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store subscription"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UnsubscribeRequest carries an optional endpoint; when absent every
// subscription of the acting user is removed.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint,omitempty"`
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.UserFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	var req UnsubscribeRequest
	if r.Body != nil {
		// body is optional; a missing or empty body means "remove all"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.svc.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		h.logger.Warnw("unsubscribe failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove subscription"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
