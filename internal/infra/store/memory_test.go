package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

func TestMemoryPutGet(t *testing.T) {
	s := NewMemory(time.Hour)
	ctx := context.Background()

	task := &tasks.AnalysisTask{ID: "t1", RepoURL: "https://github.com/a/b", Status: tasks.StatusPending}
	require.NoError(t, s.Put(ctx, task))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, tasks.StatusPending, got.Status)
}

func TestMemoryGetUnknown(t *testing.T) {
	s := NewMemory(time.Hour)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

func TestMemorySnapshotIsolation(t *testing.T) {
	s := NewMemory(time.Hour)
	ctx := context.Background()

	task := &tasks.AnalysisTask{ID: "t1", Status: tasks.StatusPending}
	require.NoError(t, s.Put(ctx, task))

	// Mutating the caller's struct after Put must not leak to readers.
	task.Status = tasks.StatusFailure

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tasks.StatusPending, got.Status)
}

func TestMemoryRetentionExpiry(t *testing.T) {
	s := NewMemory(time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	require.NoError(t, s.Put(context.Background(), &tasks.AnalysisTask{ID: "t1"}))

	current = base.Add(59 * time.Minute)
	_, err := s.Get(context.Background(), "t1")
	require.NoError(t, err)

	current = base.Add(61 * time.Minute)
	_, err = s.Get(context.Background(), "t1")
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

func TestMemoryWriteRefreshesRetention(t *testing.T) {
	s := NewMemory(time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	require.NoError(t, s.Put(context.Background(), &tasks.AnalysisTask{ID: "t1"}))

	current = base.Add(50 * time.Minute)
	require.NoError(t, s.Put(context.Background(), &tasks.AnalysisTask{ID: "t1", Attempts: 1}))

	// 70 minutes after the first write, but only 20 after the refresh.
	current = base.Add(70 * time.Minute)
	got, err := s.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
}
