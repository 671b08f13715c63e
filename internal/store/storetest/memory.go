// Package storetest provides an in-memory stand-in for the Postgres
// repositories, with the same ordering and merge rules, for use in tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/planetevo/apiserver/internal/store"
	"github.com/planetevo/apiserver/types"
)

// Memory implements the user and game run repositories.
type Memory struct {
	mu     sync.Mutex
	users  map[string]*types.User
	runs   []types.GameRun
	nextID int64
	clock  time.Time

	// Err, when set, is returned by every call.
	Err error
	// Calls counts repository calls, to assert that validation happens first.
	Calls int
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*types.User),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so insertion order is observable.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) enter() error {
	m.Calls++
	return m.Err
}

func (m *Memory) Upsert(ctx context.Context, auth0ID string, email, username *string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return types.User{}, err
	}
	return m.upsert(auth0ID, email, username), nil
}

func (m *Memory) upsert(auth0ID string, email, username *string) types.User {
	email, username = nonEmpty(email), nonEmpty(username)
	if user, ok := m.users[auth0ID]; ok {
		if email == nil && username == nil {
			return *user
		}
		if email != nil {
			user.Email = email
		}
		if username != nil {
			user.Username = username
		}
		user.UpdatedAt = m.tick()
		return *user
	}

	m.nextID++
	now := m.tick()
	user := &types.User{
		ID:        m.nextID,
		Auth0ID:   auth0ID,
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[auth0ID] = user
	return *user
}

func (m *Memory) GetByAuth0ID(ctx context.Context, auth0ID string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return types.User{}, err
	}
	user, ok := m.users[auth0ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return *user, nil
}

func (m *Memory) CreateForUser(ctx context.Context, auth0ID string, run types.GameRun) (types.GameRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return types.GameRun{}, err
	}
	owner := m.upsert(auth0ID, nil, nil)

	m.nextID++
	now := m.tick()
	run.ID = m.nextID
	run.UserID = owner.ID
	run.StartedAt = now
	run.EndedAt = now
	run.CreatedAt = now
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *Memory) StatsForUser(ctx context.Context, userID int64) (types.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return types.UserStats{}, err
	}

	var (
		stats types.UserStats
		sum   float64
	)
	for _, run := range m.runs {
		if run.UserID != userID {
			continue
		}
		stats.TotalRuns++
		sum += run.HabitabilityScore
		if stats.BestScore == nil || run.HabitabilityScore > *stats.BestScore {
			best := run.HabitabilityScore
			stats.BestScore = &best
		}
		if !run.Completed {
			stats.FailedRuns++
			continue
		}
		stats.CompletedRuns++
		if run.TimeToHabitable != nil && (stats.FastestTime == nil || *run.TimeToHabitable < *stats.FastestTime) {
			fastest := *run.TimeToHabitable
			stats.FastestTime = &fastest
		}
	}
	if stats.TotalRuns > 0 {
		avg := sum / float64(stats.TotalRuns)
		stats.AverageScore = &avg
	}
	return stats, nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	completed := make([]types.GameRun, 0, len(m.runs))
	for _, run := range m.runs {
		if run.Completed {
			completed = append(completed, run)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		a, b := completed[i], completed[j]
		if a.HabitabilityScore != b.HabitabilityScore {
			return a.HabitabilityScore > b.HabitabilityScore
		}
		switch {
		case a.TimeToHabitable == nil && b.TimeToHabitable != nil:
			return false
		case a.TimeToHabitable != nil && b.TimeToHabitable == nil:
			return true
		case a.TimeToHabitable != nil && *a.TimeToHabitable != *b.TimeToHabitable:
			return *a.TimeToHabitable < *b.TimeToHabitable
		}
		return a.ID < b.ID
	})
	if len(completed) > limit {
		completed = completed[:limit]
	}

	entries := make([]types.LeaderboardEntry, 0, len(completed))
	for _, run := range completed {
		entries = append(entries, types.LeaderboardEntry{
			Username:          m.usernameOf(run.UserID),
			HabitabilityScore: run.HabitabilityScore,
			TimeToHabitable:   run.TimeToHabitable,
			Completed:         run.Completed,
			CreatedAt:         run.CreatedAt,
		})
	}
	return entries, nil
}

func (m *Memory) ListForUser(ctx context.Context, userID int64, limit int) ([]types.GameRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	runs := make([]types.GameRun, 0)
	for _, run := range m.runs {
		if run.UserID == userID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// UserCount returns the number of stored users.
func (m *Memory) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// RunCount returns the number of stored runs.
func (m *Memory) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *Memory) usernameOf(userID int64) *string {
	for _, user := range m.users {
		if user.ID == userID {
			return user.Username
		}
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
