package store

import (
	"context"
	"database/sql"

	"github.com/planetevo/apiserver/types"
)

// GameRunRepository handles persistence and aggregation for game runs.
type GameRunRepository struct {
	db *sql.DB
}

func NewGameRunRepository(db *sql.DB) *GameRunRepository {
	return &GameRunRepository{db: db}
}

const gameRunColumns = `id, user_id, completed, time_to_habitable, habitability_score,
		       run_duration, started_at, ended_at, created_at`

// CreateForUser resolves (or creates) the owner of auth0ID and inserts the run
// in one transaction. Timestamps are assigned by the database.
func (r *GameRunRepository) CreateForUser(ctx context.Context, auth0ID string, run types.GameRun) (types.GameRun, error) {
	var created types.GameRun
	err := retryOnUniqueViolation(func() error {
		return withTx(ctx, r.db, func(tx *sql.Tx) error {
			owner, err := upsertUser(ctx, tx, auth0ID, nil, nil)
			if err != nil {
				return err
			}
			created, err = insertGameRun(ctx, tx, owner.ID, run)
			return err
		})
	})
	if err != nil {
		return types.GameRun{}, err
	}
	return created, nil
}

func insertGameRun(ctx context.Context, q querier, userID int64, run types.GameRun) (types.GameRun, error) {
	const query = `
		INSERT INTO game_runs (user_id, completed, time_to_habitable, habitability_score, run_duration)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + gameRunColumns
	var timeToHabitable sql.NullInt64
	if run.TimeToHabitable != nil {
		timeToHabitable = sql.NullInt64{Int64: int64(*run.TimeToHabitable), Valid: true}
	}
	return scanGameRun(q.QueryRowContext(
		ctx,
		query,
		userID,
		run.Completed,
		timeToHabitable,
		run.HabitabilityScore,
		run.RunDuration,
	))
}

// StatsForUser aggregates every run of the user. Aggregates over an empty
// set come back as NULL and are left nil.
func (r *GameRunRepository) StatsForUser(ctx context.Context, userID int64) (types.UserStats, error) {
	const query = `
		SELECT
			COUNT(*) AS total_runs,
			COUNT(*) FILTER (WHERE completed) AS completed_runs,
			COUNT(*) FILTER (WHERE NOT completed) AS failed_runs,
			MAX(habitability_score) AS best_score,
			MIN(time_to_habitable) FILTER (WHERE completed) AS fastest_time,
			AVG(habitability_score) AS average_score
		FROM game_runs
		WHERE user_id = $1`
	var (
		stats        types.UserStats
		bestScore    sql.NullFloat64
		fastestTime  sql.NullInt64
		averageScore sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.TotalRuns,
		&stats.CompletedRuns,
		&stats.FailedRuns,
		&bestScore,
		&fastestTime,
		&averageScore,
	); err != nil {
		return types.UserStats{}, err
	}
	stats.BestScore = float64Ptr(bestScore)
	stats.FastestTime = intPtr(fastestTime)
	stats.AverageScore = float64Ptr(averageScore)
	return stats, nil
}

// Leaderboard returns the best completed runs across all users. Ties on
// score go to the faster run, then to the earlier insert, so the order is total.
func (r *GameRunRepository) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	const query = `
		SELECT u.username, gr.habitability_score, gr.time_to_habitable, gr.completed, gr.created_at
		FROM game_runs gr
		JOIN users u ON gr.user_id = u.id
		WHERE gr.completed = true
		ORDER BY gr.habitability_score DESC, gr.time_to_habitable ASC NULLS LAST, gr.id ASC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			entry           types.LeaderboardEntry
			username        sql.NullString
			timeToHabitable sql.NullInt64
		)
		if err := rows.Scan(
			&username,
			&entry.HabitabilityScore,
			&timeToHabitable,
			&entry.Completed,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Username = stringPtr(username)
		entry.TimeToHabitable = intPtr(timeToHabitable)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListForUser returns the user's most recent runs first.
func (r *GameRunRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]types.GameRun, error) {
	const query = `
		SELECT ` + gameRunColumns + `
		FROM game_runs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]types.GameRun, 0, limit)
	for rows.Next() {
		run, err := scanGameRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGameRun(row rowScanner) (types.GameRun, error) {
	var (
		run             types.GameRun
		timeToHabitable sql.NullInt64
	)
	if err := row.Scan(
		&run.ID,
		&run.UserID,
		&run.Completed,
		&timeToHabitable,
		&run.HabitabilityScore,
		&run.RunDuration,
		&run.StartedAt,
		&run.EndedAt,
		&run.CreatedAt,
	); err != nil {
		return types.GameRun{}, err
	}
	run.TimeToHabitable = intPtr(timeToHabitable)
	return run, nil
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
