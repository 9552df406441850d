package habit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/auth"
)

// Handler exposes HTTP endpoints for habit CRUD and completion.
type Handler struct {
	svc      *Service
	sessions *auth.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *auth.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// HabitRequest is the create/update payload.
type HabitRequest struct {
	What            string     `json:"what"`
	Why             string     `json:"why"`
	When            string     `json:"when"`
	ReminderEnabled bool       `json:"reminder_enabled"`
	ReminderTime    *time.Time `json:"reminder_time,omitempty"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ListWithStatus(r.Context(), userID)
	if err != nil {
		h.logger.Warnw("list habits failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list habits"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var req HabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	created, err := h.svc.Create(r.Context(), userID, HabitInput{
		What: req.What, Why: req.Why, When: req.When,
		ReminderEnabled: req.ReminderEnabled, ReminderTime: req.ReminderTime,
	})
	if err != nil {
		h.logger.Debugw("create habit failed", "user", userID, "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := h.habitID(w, r)
	if !ok {
		return
	}
	var req HabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	err := h.svc.Update(r.Context(), userID, id, HabitInput{
		What: req.What, Why: req.Why, When: req.When,
		ReminderEnabled: req.ReminderEnabled, ReminderTime: req.ReminderTime,
	})
	if h.handleErr(w, userID, "update habit", err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := h.habitID(w, r)
	if !ok {
		return
	}
	if h.handleErr(w, userID, "delete habit", h.svc.Delete(r.Context(), userID, id)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := h.habitID(w, r)
	if !ok {
		return
	}
	if h.handleErr(w, userID, "complete habit", h.svc.Complete(r.Context(), userID, id)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	id, ok := h.habitID(w, r)
	if !ok {
		return
	}
	if h.handleErr(w, userID, "revert completion", h.svc.Revert(r.Context(), userID, id)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := h.sessions.UserFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return "", false
	}
	return userID, true
}

func (h *Handler) habitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid habit id"})
		return 0, false
	}
	return id, true
}

// handleErr maps service errors to HTTP responses; reports whether the
// request is already answered.
func (h *Handler) handleErr(w http.ResponseWriter, userID, op string, err error) bool {
	if err == nil {
		return false
	}
	switch err {
	case ErrNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "habit not found"})
	case ErrForbidden:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		h.logger.Warnw(op+" failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
