//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/planetevo/apiserver/config"
	"github.com/planetevo/apiserver/internal/mq"
	"github.com/planetevo/apiserver/internal/services"
	"github.com/planetevo/apiserver/internal/storage"
	"github.com/planetevo/apiserver/internal/store"
	"github.com/planetevo/apiserver/types"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("auth0|%s-%d", prefix, time.Now().UnixNano())
}

func TestUserResolution(t *testing.T) {
	id := uniqueID("resolve")

	created := postJSON[types.User](t, "/api/users", map[string]any{"auth0_id": id, "email": "p@example.com"}, http.StatusOK)
	if created.ID == 0 || created.Email == nil || *created.Email != "p@example.com" {
		t.Fatalf("unexpected created user: %+v", created)
	}

	merged := postJSON[types.User](t, "/api/users", map[string]any{"auth0_id": id, "username": "voyager"}, http.StatusOK)
	if merged.ID != created.ID {
		t.Fatalf("expected same id %d, got %d", created.ID, merged.ID)
	}
	if merged.Email == nil || *merged.Email != "p@example.com" {
		t.Fatalf("email lost on merge: %+v", merged)
	}
	if merged.Username == nil || *merged.Username != "voyager" {
		t.Fatalf("username not merged: %+v", merged)
	}

	fetched := getJSON[types.User](t, "/api/users/"+url.PathEscape(id), http.StatusOK)
	if fetched.ID != created.ID {
		t.Fatalf("unexpected fetched user: %+v", fetched)
	}

	getJSON[map[string]any](t, "/api/users/"+url.PathEscape(uniqueID("missing")), http.StatusNotFound)
}

func TestConcurrentResolutionCreatesOneUser(t *testing.T) {
	id := uniqueID("race")
	const workers = 20

	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := postJSON[types.User](t, "/api/users", map[string]any{"auth0_id": id}, http.StatusOK)
			ids <- user.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first int64
	for got := range ids {
		if first == 0 {
			first = got
		}
		if got != first {
			t.Fatalf("concurrent resolution returned ids %d and %d", first, got)
		}
	}

	if count := countRows(t, "SELECT COUNT(*) FROM users WHERE auth0_id = $1", id); count != 1 {
		t.Fatalf("expected 1 user row, got %d", count)
	}
}

func TestGameRunFlow(t *testing.T) {
	id := uniqueID("runs")
	username := strings.TrimPrefix(id, "auth0|")
	postJSON[types.User](t, "/api/users", map[string]any{"auth0_id": id, "username": username}, http.StatusOK)

	runs := []map[string]any{
		{"auth0_id": id, "completed": true, "time_to_habitable": 120, "habitability_score": 80, "run_duration": 200},
		{"auth0_id": id, "completed": false, "habitability_score": 40, "run_duration": 100},
		{"auth0_id": id, "completed": true, "time_to_habitable": 90, "habitability_score": 95, "run_duration": 150},
	}
	for _, run := range runs {
		postJSON[types.GameRun](t, "/api/game-runs", run, http.StatusOK)
	}

	stats := getJSON[types.UserStats](t, "/api/users/"+url.PathEscape(id)+"/stats", http.StatusOK)
	if stats.TotalRuns != 3 || stats.CompletedRuns != 2 || stats.FailedRuns != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.BestScore == nil || *stats.BestScore != 95 {
		t.Fatalf("unexpected best score: %+v", stats)
	}
	if stats.FastestTime == nil || *stats.FastestTime != 90 {
		t.Fatalf("unexpected fastest time: %+v", stats)
	}
	if stats.AverageScore == nil || *stats.AverageScore < 71.66 || *stats.AverageScore > 71.67 {
		t.Fatalf("unexpected average score: %+v", stats)
	}

	history := getJSON[[]types.GameRun](t, "/api/users/"+url.PathEscape(id)+"/runs?limit=2", http.StatusOK)
	if len(history) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(history))
	}
	if history[0].HabitabilityScore != 95 || history[1].HabitabilityScore != 40 {
		t.Fatalf("unexpected history order: %+v", history)
	}

	board := getJSON[[]types.LeaderboardEntry](t, "/api/leaderboard?limit=1000", http.StatusOK)
	var mine []types.LeaderboardEntry
	for i, entry := range board {
		if !entry.Completed {
			t.Fatalf("leaderboard contains an incomplete run: %+v", entry)
		}
		if i > 0 && entry.HabitabilityScore > board[i-1].HabitabilityScore {
			t.Fatalf("leaderboard not ordered by score at %d", i)
		}
		if entry.Username != nil && *entry.Username == username {
			mine = append(mine, entry)
		}
	}
	if len(mine) != 2 || mine[0].HabitabilityScore != 95 {
		t.Fatalf("unexpected own leaderboard entries: %+v", mine)
	}
}

func TestSubmitCreatesUserImplicitly(t *testing.T) {
	id := uniqueID("implicit")

	run := postJSON[types.GameRun](t, "/api/game-runs",
		map[string]any{"auth0_id": id, "completed": false, "habitability_score": 12.5, "run_duration": 30}, http.StatusOK)
	if run.ID == 0 || run.UserID == 0 {
		t.Fatalf("unexpected run: %+v", run)
	}

	user := getJSON[types.User](t, "/api/users/"+url.PathEscape(id), http.StatusOK)
	if user.ID != run.UserID || user.Email != nil || user.Username != nil {
		t.Fatalf("unexpected implicit user: %+v", user)
	}
}

func TestInvalidScoreRejectedWithoutWrite(t *testing.T) {
	id := uniqueID("invalid")

	postJSON[map[string]any](t, "/api/game-runs",
		map[string]any{"auth0_id": id, "completed": true, "habitability_score": 150, "run_duration": 30}, http.StatusBadRequest)

	if count := countRows(t, "SELECT COUNT(*) FROM users WHERE auth0_id = $1", id); count != 0 {
		t.Fatalf("expected no user for rejected run, got %d", count)
	}
}

func TestUnknownUserStats(t *testing.T) {
	id := url.PathEscape(uniqueID("ghost"))
	getJSON[map[string]any](t, "/api/users/"+id+"/stats", http.StatusNotFound)
	getJSON[map[string]any](t, "/api/users/"+id+"/runs", http.StatusNotFound)
}

func TestRunEventsArePublished(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	queue, err := mq.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open broker: %v", err)
	}
	defer queue.Close()

	id := uniqueID("events")
	run := postJSON[types.GameRun](t, "/api/game-runs",
		map[string]any{"auth0_id": id, "completed": true, "time_to_habitable": 60, "habitability_score": 70, "run_duration": 90}, http.StatusOK)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var received types.GameRunEvent
	_ = queue.Subscribe(ctx, cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
		var event types.GameRunEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return nil
		}
		if event.Run.ID == run.ID {
			received = event
			cancel()
		}
		return nil
	})

	if received.Auth0ID != id {
		t.Fatalf("did not receive event for run %d", run.ID)
	}
}

func TestLeaderboardSnapshotExport(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	snapshots, err := storage.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	conn, err := openDB()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	postJSON[types.GameRun](t, "/api/game-runs",
		map[string]any{"auth0_id": uniqueID("snapshot"), "completed": true, "habitability_score": 66, "run_duration": 10}, http.StatusOK)

	board := services.NewLeaderboardService(store.NewGameRunRepository(conn)).WithSnapshots(snapshots)
	key, err := board.Export(ctx, 10)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	snapshot, err := board.Fetch(ctx, key)
	if err != nil {
		t.Fatalf("fetch %s: %v", key, err)
	}
	if snapshot.Limit != 10 || len(snapshot.Entries) == 0 || snapshot.Entries[0].Rank != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func postJSON[T any](t *testing.T, path string, payload any, wantStatus int) T {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON[T](t, req, wantStatus)
}

func getJSON[T any](t *testing.T, path string, wantStatus int) T {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return doJSON[T](t, req, wantStatus)
}

func doJSON[T any](t *testing.T, req *http.Request, wantStatus int) T {
	t.Helper()

	var parsed T
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
		return parsed
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Errorf("%s %s: status %d, want %d: %s", req.Method, req.URL.Path, resp.StatusCode, wantStatus, strings.TrimSpace(string(data)))
		return parsed
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Errorf("decode response: %v", err)
	}
	return parsed
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()

	conn, err := openDB()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}
