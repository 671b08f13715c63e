package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planetevo/apiserver/internal/services"
)

const defaultLeaderboardLimit = 100

// LeaderboardHandler serves the global ranking.
type LeaderboardHandler struct {
	board  *services.LeaderboardService
	logger *slog.Logger
}

func NewLeaderboardHandler(board *services.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, logger: logger}
}

// LeaderboardRouter registers leaderboard routes on the given router.
func LeaderboardRouter(r chi.Router, board *services.LeaderboardService, logger *slog.Logger) {
	handler := NewLeaderboardHandler(board, logger)

	r.Get("/", handler.GetLeaderboard)
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultLeaderboardLimit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	entries, err := h.board.Top(r.Context(), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
