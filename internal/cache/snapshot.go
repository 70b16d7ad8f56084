package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// DefaultSnapshotTTL bounds how old a primed history or stats view can be.
const DefaultSnapshotTTL = 24 * time.Hour

// Snapshots persists the last observed history and stats in a Cache.
type Snapshots struct {
	cache Cache
	ttl   time.Duration
}

// NewSnapshots wraps c. A non-positive ttl selects DefaultSnapshotTTL.
func NewSnapshots(c Cache, ttl time.Duration) *Snapshots {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Snapshots{cache: c, ttl: ttl}
}

func (s *Snapshots) SaveHistory(ctx context.Context, jobs []models.Job) error {
	if jobs == nil {
		jobs = []models.Job{}
	}
	return s.save(ctx, HistorySnapshotKey, jobs)
}

func (s *Snapshots) SaveStats(ctx context.Context, stats models.Stats) error {
	return s.save(ctx, StatsSnapshotKey, stats)
}

// LoadHistory returns the cached history. found is false when nothing is cached.
func (s *Snapshots) LoadHistory(ctx context.Context) (jobs []models.Job, found bool, err error) {
	found, err = s.load(ctx, HistorySnapshotKey, &jobs)
	return jobs, found, err
}

// LoadStats returns the cached stats. found is false when nothing is cached.
func (s *Snapshots) LoadStats(ctx context.Context) (*models.Stats, bool, error) {
	var stats models.Stats
	found, err := s.load(ctx, StatsSnapshotKey, &stats)
	if err != nil || !found {
		return nil, found, err
	}
	return &stats, true, nil
}

func (s *Snapshots) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Snapshots) load(ctx context.Context, key string, v any) (bool, error) {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
