package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/planetevo/apiserver/internal/apperror"
	"github.com/planetevo/apiserver/types"
)

const eventGameRunSubmitted = "game_run.submitted"

// GameRunRepository defines persistence and aggregation for game runs.
type GameRunRepository interface {
	CreateForUser(ctx context.Context, auth0ID string, run types.GameRun) (types.GameRun, error)
	StatsForUser(ctx context.Context, userID int64) (types.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]types.GameRun, error)
}

// EventPublisher announces stored runs to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// SubmitRunInput is the outcome of one finished session.
type SubmitRunInput struct {
	Auth0ID           string
	Completed         bool
	TimeToHabitable   *int
	HabitabilityScore float64
	RunDuration       int
}

// Validate checks the ranges the schema enforces, so bad input is rejected
// before a connection is taken from the pool.
func (in SubmitRunInput) Validate() error {
	if strings.TrimSpace(in.Auth0ID) == "" {
		return apperror.ValidationFailed("auth0_id", "auth0_id is required")
	}
	if !(in.HabitabilityScore >= types.MinHabitabilityScore && in.HabitabilityScore <= types.MaxHabitabilityScore) {
		return apperror.ValidationFailed("habitability_score",
			fmt.Sprintf("habitability_score must be between %g and %g", types.MinHabitabilityScore, types.MaxHabitabilityScore))
	}
	if in.TimeToHabitable != nil && *in.TimeToHabitable < 0 {
		return apperror.ValidationFailed("time_to_habitable", "time_to_habitable must not be negative")
	}
	if in.RunDuration < 0 {
		return apperror.ValidationFailed("run_duration", "run_duration must not be negative")
	}
	return nil
}

// GameRunService encapsulates run submission and per-user queries.
type GameRunService struct {
	users   UserRepository
	runs    GameRunRepository
	events  EventPublisher
	channel string
	logger  *slog.Logger
}

func NewGameRunService(users UserRepository, runs GameRunRepository, logger *slog.Logger) *GameRunService {
	return &GameRunService{
		users:  users,
		runs:   runs,
		logger: logger,
	}
}

// WithEvents enables publishing a GameRunEvent on channel after each submission.
func (s *GameRunService) WithEvents(events EventPublisher, channel string) *GameRunService {
	s.events = events
	s.channel = channel
	return s
}

// Submit stores a run for the given identity, creating the user if needed.
func (s *GameRunService) Submit(ctx context.Context, in SubmitRunInput) (types.GameRun, error) {
	if err := in.Validate(); err != nil {
		return types.GameRun{}, err
	}
	auth0ID := strings.TrimSpace(in.Auth0ID)

	run, err := s.runs.CreateForUser(ctx, auth0ID, types.GameRun{
		Completed:         in.Completed,
		TimeToHabitable:   in.TimeToHabitable,
		HabitabilityScore: in.HabitabilityScore,
		RunDuration:       in.RunDuration,
	})
	if err != nil {
		return types.GameRun{}, apperror.Unavailable("submit game run", err)
	}

	s.publish(ctx, auth0ID, run)
	return run, nil
}

// Stats aggregates the user's runs. Unknown users are reported as not found
// rather than as empty statistics.
func (s *GameRunService) Stats(ctx context.Context, auth0ID string) (types.UserStats, error) {
	user, err := lookupUser(ctx, s.users, auth0ID)
	if err != nil {
		return types.UserStats{}, err
	}

	stats, err := s.runs.StatsForUser(ctx, user.ID)
	if err != nil {
		return types.UserStats{}, apperror.Unavailable("compute user stats", err)
	}
	return stats, nil
}

// History lists up to limit of the user's runs, newest first.
func (s *GameRunService) History(ctx context.Context, auth0ID string, limit int) ([]types.GameRun, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}

	user, err := lookupUser(ctx, s.users, auth0ID)
	if err != nil {
		return nil, err
	}

	runs, err := s.runs.ListForUser(ctx, user.ID, limit)
	if err != nil {
		return nil, apperror.Unavailable("list game runs", err)
	}
	return runs, nil
}

// publish is best-effort: the run is already committed, so a broker failure
// is logged and never reported to the client.
func (s *GameRunService) publish(ctx context.Context, auth0ID string, run types.GameRun) {
	if s.events == nil {
		return
	}

	data, err := json.Marshal(types.GameRunEvent{Auth0ID: auth0ID, Run: run})
	if err != nil {
		s.logger.Error("encode game run event failed", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
		return
	}

	attrs := map[string]string{
		"event":    eventGameRunSubmitted,
		"auth0_id": auth0ID,
	}
	if _, err := s.events.Publish(ctx, s.channel, data, attrs); err != nil {
		s.logger.Warn("publish game run event failed",
			slog.Int64("run_id", run.ID),
			slog.String("channel", s.channel),
			slog.String("error", err.Error()),
		)
	}
}
