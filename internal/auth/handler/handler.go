// Package handler exposes account and session endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clave/internal/auth"
	"clave/internal/platform/middleware"
	"clave/internal/transport/http/shared"
	dErrors "clave/pkg/domain-errors"
)

// Handler handles auth-related endpoints.
type Handler struct {
	logger *slog.Logger
	svc    *auth.Service
}

func New(svc *auth.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// RegisterPublic mounts the routes that must work without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

// RegisterProtected mounts the routes behind authentication.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/users", h.handleCreateUser)
	r.Get("/users/me", h.handleMe)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/evaluations/{id}/temp-token", h.handleReportToken)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        *auth.User `json:"user"`
}

type reportTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.svc.CreateUser(r.Context(), req.Username, req.Password, role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	token, user, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// Log failed attempts without the credentials themselves.
		h.logger.WarnContext(r.Context(), "authentication failed", "username", req.Username)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if err := h.svc.Logout(r.Context(), claims); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReportToken mints a short-lived token for one evaluation's shareable
// report link.
func (h *Handler) handleReportToken(w http.ResponseWriter, r *http.Request) {
	evaluationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return
	}
	token, ttl, err := h.svc.MintTempReportToken(r.Context(), evaluationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reportTokenResponse{
		Token:     token,
		ExpiresIn: int64(ttl / time.Second),
	})
}
