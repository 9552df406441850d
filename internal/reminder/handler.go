package reminder

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/auth"
	"github.com/albinfrick/habbit-service/internal/habit"
)

// Handler exposes the trigger surfaces for the reminder engine.
type Handler struct {
	svc      *Service
	sessions *auth.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *auth.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// CheckSummary is the user-facing "check now" response. Sent, completed
// and unreachable are materially different outcomes to the user even
// though none is an error, so they are counted apart.
type CheckSummary struct {
	Success             bool   `json:"success"`
	SentCount           int    `json:"sent_count"`
	CompletedCount      int    `json:"completed_count"`
	NoSubscriptionCount int    `json:"no_subscription_count"`
	TotalHabits         int    `json:"total_habits"`
	Today               string `json:"today"`
}

// CheckNow runs a forced pass for the authenticated "check now" action:
// every enabled reminder is evaluated regardless of its configured time.
func (h *Handler) CheckNow(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.UserFromRequest(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	res, err := h.svc.RunPass(r.Context(), true)
	if err != nil {
		h.logger.Errorw("manual reminder check failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reminder check failed"})
		return
	}

	sum := CheckSummary{Success: true, TotalHabits: len(res.Outcomes), Today: res.Today}
	for _, o := range res.Outcomes {
		switch {
		case o.Sent:
			sum.SentCount++
		case o.Completed:
			sum.CompletedCount++
		case o.Reason == ReasonNoSubscriptions:
			sum.NoSubscriptionCount++
		}
	}
	writeJSON(w, http.StatusOK, sum)
}

// Run is the scheduled trigger: an external cron calls it on an interval
// with the shared secret. Only time-matching habits are evaluated.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.CronAuthorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid cron secret"})
		return
	}

	res, err := h.svc.RunPass(r.Context(), false)
	if err != nil {
		h.logger.Errorw("scheduled reminder pass failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "reminder pass failed", "partial": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Remind resends a single habit's reminder now.
func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.UserFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid habit id"})
		return
	}

	out, err := h.svc.RemindHabit(r.Context(), userID, id)
	if err != nil {
		switch err {
		case habit.ErrNotFound:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "habit not found"})
		case habit.ErrForbidden:
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		default:
			h.logger.Errorw("single habit reminder failed", "habit", id, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reminder failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
