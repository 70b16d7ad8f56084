package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/cache"
	"github.com/kiranshivaraju/copydesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-process Cache for unit tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}


func (m *memCache) Ping(context.Context) error { return m.err }

func (m *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("not implemented")
}

func TestSnapshots_HistoryRoundtrip(t *testing.T) {
	mc := newMemCache()
	snaps := cache.NewSnapshots(mc, 0)
	ctx := context.Background()

	score := &models.Analysis{ReadabilityScore: 72.4, KeywordDensity: map[string]float64{"go": 3.5}}
	require.NoError(t, snaps.SaveHistory(ctx, []models.Job{
		{ID: "b", Title: "B", Status: models.JobStatusCompleted, Analysis: score},
		{ID: "a", Title: "A", Status: models.JobStatusProcessing},
	}))

	assert.Equal(t, cache.DefaultSnapshotTTL, mc.ttls[cache.HistorySnapshotKey])

	jobs, found, err := snaps.LoadHistory(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, jobs, 2)
	assert.Equal(t, "b", jobs[0].ID)
	require.NotNil(t, jobs[0].Analysis)
	assert.Equal(t, 3.5, jobs[0].Analysis.KeywordDensity["go"])
	assert.Nil(t, jobs[1].Analysis)
}

func TestSnapshots_NilHistoryStoredAsEmpty(t *testing.T) {
	mc := newMemCache()
	snaps := cache.NewSnapshots(mc, time.Hour)

	require.NoError(t, snaps.SaveHistory(context.Background(), nil))
	assert.Equal(t, "[]", string(mc.data[cache.HistorySnapshotKey]))
	assert.Equal(t, time.Hour, mc.ttls[cache.HistorySnapshotKey])
}

func TestSnapshots_StatsRoundtrip(t *testing.T) {
	snaps := cache.NewSnapshots(newMemCache(), 0)
	ctx := context.Background()

	require.NoError(t, snaps.SaveStats(ctx, models.Stats{TotalJobs: 3, FailedJobs: 1, AvgSEOScore: 41.5}))

	stats, found, err := snaps.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 1, stats.FailedJobs)
	assert.Equal(t, 41.5, stats.AvgSEOScore)
}

func TestSnapshots_NotFound(t *testing.T) {
	snaps := cache.NewSnapshots(newMemCache(), 0)
	ctx := context.Background()

	jobs, found, err := snaps.LoadHistory(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, jobs)

	stats, found, err := snaps.LoadStats(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, stats)
}

func TestSnapshots_CorruptValue(t *testing.T) {
	mc := newMemCache()
	mc.data[cache.StatsSnapshotKey] = []byte("{not json")
	snaps := cache.NewSnapshots(mc, 0)

	_, found, err := snaps.LoadStats(context.Background())
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "decode copydesk:stats")
}

func TestSnapshots_CacheError(t *testing.T) {
	mc := newMemCache()
	mc.err = errors.New("connection refused")
	snaps := cache.NewSnapshots(mc, 0)
	ctx := context.Background()

	err := snaps.SaveStats(ctx, models.Stats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, _, err = snaps.LoadHistory(ctx)
	require.Error(t, err)
}
