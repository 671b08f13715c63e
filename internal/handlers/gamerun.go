package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planetevo/apiserver/internal/services"
)

// SubmitGameRunRequest is the outcome of one session as reported by the client.
// Pointer fields distinguish a missing value from a zero value.
type SubmitGameRunRequest struct {
	Auth0ID           string   `json:"auth0_id" validate:"required,max=255"`
	Completed         *bool    `json:"completed" validate:"required"`
	TimeToHabitable   *int     `json:"time_to_habitable" validate:"omitempty,gte=0"`
	HabitabilityScore *float64 `json:"habitability_score" validate:"required,gte=0,lte=100"`
	RunDuration       *int     `json:"run_duration" validate:"required,gte=0"`
}

// GameRunHandler provides HTTP handlers for game runs.
type GameRunHandler struct {
	runs   *services.GameRunService
	logger *slog.Logger
}

func NewGameRunHandler(runs *services.GameRunService, logger *slog.Logger) *GameRunHandler {
	return &GameRunHandler{runs: runs, logger: logger}
}

// GameRunRouter registers game run routes on the given router.
func GameRunRouter(r chi.Router, runs *services.GameRunService, logger *slog.Logger) {
	handler := NewGameRunHandler(runs, logger)

	r.Post("/", handler.SubmitRun)
}

func (h *GameRunHandler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var req SubmitGameRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	run, err := h.runs.Submit(r.Context(), services.SubmitRunInput{
		Auth0ID:           req.Auth0ID,
		Completed:         *req.Completed,
		TimeToHabitable:   req.TimeToHabitable,
		HabitabilityScore: *req.HabitabilityScore,
		RunDuration:       *req.RunDuration,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}
