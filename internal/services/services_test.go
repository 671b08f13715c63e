package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/planetevo/apiserver/internal/logging"
	"github.com/planetevo/apiserver/internal/storage"
	"github.com/planetevo/apiserver/internal/store/storetest"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	attrs    []map[string]string
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	p.attrs = append(p.attrs, attrs)
	if p.err != nil {
		return "", p.err
	}
	return "msg-1", nil
}

type memorySnapshots struct {
	objects map[string]string
	err     error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{objects: make(map[string]string)}
}

func (m *memorySnapshots) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *memorySnapshots) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (m *memorySnapshots) List(ctx context.Context, prefix string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func newServices(t *testing.T) (*storetest.Memory, *UserService, *GameRunService, *LeaderboardService) {
	t.Helper()
	mem := storetest.NewMemory()
	return mem,
		NewUserService(mem),
		NewGameRunService(mem, mem, logging.Discard()),
		NewLeaderboardService(mem)
}
