package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handler exposes HTTP endpoints for account operations (signup / login).
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by both signup and login.
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	id, err := h.svc.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if err == ErrUserExists {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Warnw("signup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		return
	}
	token, err := h.svc.IssueToken(id)
	if err != nil {
		h.logger.Warnw("token issue failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		return
	}
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token, UserID: id})
}

// LoginRequest login payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		if err == ErrBadCredentials {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		h.logger.Warnw("login failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	token, err := h.svc.IssueToken(u.ID)
	if err != nil {
		h.logger.Warnw("token issue failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, UserID: u.ID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
