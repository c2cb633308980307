package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

// Memory is the in-process task record store for tests and single-node
// deployments. Entries expire after the retention window; expiry is lazy
// on read with a janitor sweep behind it.
type Memory struct {
	mu        sync.RWMutex
	entries   map[tasks.TaskID]memoryEntry
	retention time.Duration
	now       func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemory(retention time.Duration) *Memory {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Memory{
		entries:   make(map[tasks.TaskID]memoryEntry),
		retention: retention,
		now:       time.Now,
	}
}

// Put stores a snapshot of the task. Serializing decouples the stored
// record from the struct the worker keeps mutating, matching the Redis
// implementation's semantics.
func (s *Memory) Put(_ context.Context, t *tasks.AnalysisTask) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[t.ID] = memoryEntry{data: data, expiresAt: s.now().Add(s.retention)}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Get(_ context.Context, id tasks.TaskID) (*tasks.AnalysisTask, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		return nil, tasks.ErrNotFound
	}
	var t tasks.AnalysisTask
	if err := json.Unmarshal(e.data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RunJanitor sweeps expired entries until ctx is cancelled.
func (s *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.now()
			s.mu.Lock()
			for id, e := range s.entries {
				if cutoff.After(e.expiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
