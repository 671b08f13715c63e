package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/planetevo/apiserver/internal/apperror"
	"github.com/planetevo/apiserver/internal/storage"
	"github.com/planetevo/apiserver/types"
	"github.com/rs/xid"
)

const (
	// MaxLimit bounds every leaderboard and history query.
	MaxLimit = 1000

	snapshotContentType = "application/json"
	snapshotPrefix      = "leaderboards/"
)

// SnapshotStore is the object storage used for leaderboard snapshots.
type SnapshotStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// LeaderboardService ranks completed runs and exports snapshots of the ranking.
type LeaderboardService struct {
	runs      GameRunRepository
	snapshots SnapshotStore
	now       func() time.Time
}

func NewLeaderboardService(runs GameRunRepository) *LeaderboardService {
	return &LeaderboardService{
		runs: runs,
		now:  time.Now,
	}
}

// WithSnapshots attaches the object store used by Export and Fetch.
func (s *LeaderboardService) WithSnapshots(snapshots SnapshotStore) *LeaderboardService {
	s.snapshots = snapshots
	return s
}

// Top returns at most limit ranked entries, with limit clamped to MaxLimit.
// Fewer qualifying runs than limit yields a shorter list.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}

	entries, err := s.runs.Leaderboard(ctx, limit)
	if err != nil {
		return nil, apperror.Unavailable("fetch leaderboard", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Export writes the current top entries to object storage and returns the object key.
func (s *LeaderboardService) Export(ctx context.Context, limit int) (string, error) {
	if s.snapshots == nil {
		return "", errors.New("snapshot storage is not configured")
	}

	limit, err := clampLimit(limit)
	if err != nil {
		return "", err
	}
	entries, err := s.Top(ctx, limit)
	if err != nil {
		return "", err
	}

	generatedAt := s.now().UTC()
	data, err := json.Marshal(types.LeaderboardSnapshot{
		GeneratedAt: generatedAt,
		Limit:       limit,
		Entries:     entries,
	})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s/%s.json", snapshotPrefix, generatedAt.Format("2006/01/02"), xid.New().String())
	if err := s.snapshots.Put(ctx, key, bytes.NewReader(data), int64(len(data)), snapshotContentType); err != nil {
		return "", apperror.Unavailable("store leaderboard snapshot", err)
	}
	return key, nil
}

// Fetch reads back a snapshot written by Export.
func (s *LeaderboardService) Fetch(ctx context.Context, key string) (types.LeaderboardSnapshot, error) {
	if s.snapshots == nil {
		return types.LeaderboardSnapshot{}, errors.New("snapshot storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return types.LeaderboardSnapshot{}, apperror.ValidationFailed("key", "snapshot key is required")
	}

	reader, err := s.snapshots.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.LeaderboardSnapshot{}, apperror.NotFound("snapshot", key)
		}
		return types.LeaderboardSnapshot{}, apperror.Unavailable("load leaderboard snapshot", err)
	}
	defer reader.Close()

	var snapshot types.LeaderboardSnapshot
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return types.LeaderboardSnapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

// Snapshots lists the keys of exported snapshots, oldest first.
func (s *LeaderboardService) Snapshots(ctx context.Context) ([]string, error) {
	if s.snapshots == nil {
		return nil, errors.New("snapshot storage is not configured")
	}
	keys, err := s.snapshots.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, apperror.Unavailable("list leaderboard snapshots", err)
	}
	return keys, nil
}

func clampLimit(limit int) (int, error) {
	if limit < 1 {
		return 0, apperror.ValidationFailed("limit", "limit must be a positive integer")
	}
	return min(limit, MaxLimit), nil
}
