package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linksum/internal/config"
	"linksum/internal/logger"
)

type fakeRepository struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{keys: make(map[string]time.Duration)}
}

func (r *fakeRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.keys[key] = ttl
	return true, nil
}

func testConfig() config.DeduplicationConfig {
	return config.DeduplicationConfig{TTLSeconds: 3600, OnRedisError: "allow"}
}

func TestCheckAndMark_FirstSightUnseen(t *testing.T) {
	repo := newFakeRepository()
	store := NewStore(repo, testConfig(), logger.NopLogger())

	seen, err := store.CheckAndMark(context.Background(), "E1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckAndMark_SecondSightSeen(t *testing.T) {
	repo := newFakeRepository()
	store := NewStore(repo, testConfig(), logger.NopLogger())
	ctx := context.Background()

	_, err := store.CheckAndMark(ctx, "E1")
	require.NoError(t, err)

	seen, err := store.CheckAndMark(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestCheckAndMark_DistinctEventsIndependent(t *testing.T) {
	repo := newFakeRepository()
	store := NewStore(repo, testConfig(), logger.NopLogger())
	ctx := context.Background()

	_, err := store.CheckAndMark(ctx, "E1")
	require.NoError(t, err)

	seen, err := store.CheckAndMark(ctx, "E2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckAndMark_KeyAndTTL(t *testing.T) {
	repo := newFakeRepository()
	store := NewStore(repo, testConfig(), logger.NopLogger())

	_, err := store.CheckAndMark(context.Background(), "Ev123")
	require.NoError(t, err)

	ttl, ok := repo.keys["event:Ev123"]
	require.True(t, ok)
	assert.Equal(t, time.Hour, ttl)
}

func TestCheckAndMark_NoBackendNeverDeduplicates(t *testing.T) {
	store := NewStore(nil, testConfig(), logger.NopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seen, err := store.CheckAndMark(ctx, "E1")
		require.NoError(t, err)
		assert.False(t, seen)
	}
}

func TestCheckAndMark_BackendErrorFallbackAllow(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("connection refused")
	store := NewStore(repo, testConfig(), logger.NopLogger())

	seen, err := store.CheckAndMark(context.Background(), "E1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckAndMark_BackendErrorFallbackDeny(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("connection refused")
	cfg := config.DeduplicationConfig{TTLSeconds: 3600, OnRedisError: "deny"}
	store := NewStore(repo, cfg, logger.NopLogger())

	seen, err := store.CheckAndMark(context.Background(), "E1")
	require.Error(t, err)
	assert.True(t, seen)
}
