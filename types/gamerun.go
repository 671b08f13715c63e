package types

import "time"

// Bounds of the habitability score reported by the game client.
const (
	MinHabitabilityScore = 0.0
	MaxHabitabilityScore = 100.0
)

// GameRun is the recorded outcome of one planet evolution session.
// Runs are immutable once written.
type GameRun struct {
	// ID is the surrogate identifier assigned by the database.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID int64 `json:"user_id" db:"user_id"`

	// Completed reports whether the planet became habitable.
	Completed bool `json:"completed" db:"completed"`

	// TimeToHabitable is the number of seconds it took to reach
	// habitability. It is nil for runs that did not complete.
	TimeToHabitable *int `json:"time_to_habitable" db:"time_to_habitable"`

	// HabitabilityScore is the final score, within [0, 100].
	HabitabilityScore float64 `json:"habitability_score" db:"habitability_score"`

	// RunDuration is the total wall time of the session in seconds.
	RunDuration int `json:"run_duration" db:"run_duration"`

	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserStats summarises every run of a single user.
// The pointer fields are nil when there is no data to aggregate,
// which is distinct from an aggregate value of zero.
type UserStats struct {
	TotalRuns     int      `json:"total_runs"`
	CompletedRuns int      `json:"completed_runs"`
	FailedRuns    int      `json:"failed_runs"`
	BestScore     *float64 `json:"best_score"`
	FastestTime   *int     `json:"fastest_time"`
	AverageScore  *float64 `json:"average_score"`
}

// LeaderboardEntry is one ranked, completed run.
type LeaderboardEntry struct {
	// Rank is the 1-based position on the leaderboard.
	Rank int `json:"rank"`

	// Username is the owner's display name, nil when the owner has none.
	Username *string `json:"username"`

	HabitabilityScore float64   `json:"habitability_score"`
	TimeToHabitable   *int      `json:"time_to_habitable"`
	Completed         bool      `json:"completed"`
	CreatedAt         time.Time `json:"created_at"`
}

// LeaderboardSnapshot is a point-in-time copy of the leaderboard
// exported to object storage.
type LeaderboardSnapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Limit       int                `json:"limit"`
	Entries     []LeaderboardEntry `json:"entries"`
}

// GameRunEvent is published to the message broker after a run is stored.
type GameRunEvent struct {
	Auth0ID string  `json:"auth0_id"`
	Run     GameRun `json:"run"`
}
