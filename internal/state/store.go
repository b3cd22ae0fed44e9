// Package state persists run statistics between scaler invocations.
package state

import (
	"context"
	"sync"
	"time"
)

// RunStats records how often the scaler has run for a table
type RunStats struct {
	TableName string    `json:"tableName" dynamodbav:"id"`
	LastRunAt time.Time `json:"lastRunAt" dynamodbav:"lastRunAt"`
	TotalRuns int64     `json:"totalRuns" dynamodbav:"totalRuns"`
}

// Record returns the stats after one more completed run at t.
func (s RunStats) Record(t time.Time) RunStats {
	s.LastRunAt = t
	s.TotalRuns++
	return s
}

// Store loads and saves RunStats keyed by table name.
// Load returns zero stats for a table that has never run.
type Store interface {
	Load(ctx context.Context, tableName string) (RunStats, error)
	Save(ctx context.Context, stats RunStats) error
}

// MemoryStore keeps stats for the life of the process
type MemoryStore struct {
	mu    sync.RWMutex
	stats map[string]RunStats
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: make(map[string]RunStats)}
}

func (m *MemoryStore) Load(_ context.Context, tableName string) (RunStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.stats[tableName]; ok {
		return s, nil
	}
	return RunStats{TableName: tableName}, nil
}

func (m *MemoryStore) Save(_ context.Context, stats RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats[stats.TableName] = stats
	return nil
}
