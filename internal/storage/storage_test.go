package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetevo/apiserver/config"
)

type memoryBackend struct {
	objects map[string][]byte
	ensured bool
}

func (m *memoryBackend) EnsureBucket(ctx context.Context) error {
	m.ensured = true
	return nil
}

func (m *memoryBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryBackend) Bucket() string { return "test" }

func TestStorageDelegatesToBackend(t *testing.T) {
	backend := &memoryBackend{objects: make(map[string][]byte)}
	s := NewStorage(backend)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, backend.ensured)

	require.NoError(t, s.Put(ctx, "leaderboards/2026/01/02/b.json", strings.NewReader(`{"b":1}`), 7, "application/json"))
	require.NoError(t, s.Put(ctx, "leaderboards/2026/01/01/a.json", strings.NewReader(`{"a":1}`), 7, "application/json"))
	require.NoError(t, s.Put(ctx, "other/c.json", strings.NewReader(`{}`), 2, "application/json"))

	keys, err := s.List(ctx, "leaderboards/")
	require.NoError(t, err)
	assert.Equal(t, []string{"leaderboards/2026/01/01/a.json", "leaderboards/2026/01/02/b.json"}, keys)

	reader, err := s.Get(ctx, "leaderboards/2026/01/01/a.json")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "test", s.Bucket())
}

func TestOpenValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "unknown backend",
			cfg:  config.Config{Storage: config.StorageConfig{Backend: "s4"}},
			want: "unsupported storage backend",
		},
		{
			name: "minio without endpoint",
			cfg:  config.Config{Storage: config.StorageConfig{Backend: config.StorageBackendMinio}},
			want: "minio endpoint is required",
		},
		{
			name: "minio without credentials",
			cfg: config.Config{
				Storage: config.StorageConfig{Backend: config.StorageBackendMinio},
				Minio:   config.MinioConfig{Endpoint: "localhost:9000", Bucket: "planetevo"},
			},
			want: "access key and secret key are required",
		},
		{
			name: "gcs without bucket",
			cfg:  config.Config{Storage: config.StorageConfig{Backend: config.StorageBackendGCS}},
			want: "gcs bucket is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
