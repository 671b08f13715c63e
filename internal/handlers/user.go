package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planetevo/apiserver/internal/services"
)

const defaultHistoryLimit = 50

// CreateUserRequest is sent by the client after each login.
type CreateUserRequest struct {
	Auth0ID  string  `json:"auth0_id" validate:"required,max=255"`
	Email    *string `json:"email" validate:"omitempty,max=320"`
	Username *string `json:"username" validate:"omitempty,max=255"`
}

// UserHandler provides HTTP handlers for users and their runs.
type UserHandler struct {
	users  *services.UserService
	runs   *services.GameRunService
	logger *slog.Logger
}

func NewUserHandler(users *services.UserService, runs *services.GameRunService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		runs:   runs,
		logger: logger,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users *services.UserService, runs *services.GameRunService, logger *slog.Logger) {
	handler := NewUserHandler(users, runs, logger)

	r.Post("/", handler.CreateUser)
	r.Route("/{auth0ID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Get("/stats", handler.GetStats)
		r.Get("/runs", handler.ListRuns)
	})
}

// CreateUser resolves the user, creating it on first login.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Resolve(r.Context(), services.ResolveUserInput{
		Auth0ID:  req.Auth0ID,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	auth0ID, err := auth0IDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Get(r.Context(), auth0ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	auth0ID, err := auth0IDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	stats, err := h.runs.Stats(r.Context(), auth0ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	auth0ID, err := auth0IDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	limit, err := parseLimit(r, defaultHistoryLimit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	runs, err := h.runs.History(r.Context(), auth0ID, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}
