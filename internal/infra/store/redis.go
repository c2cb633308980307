package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

const defaultRetention = time.Hour

// Redis is the primary task record store: one JSON value per task with
// the retention window as TTL, refreshed on every write.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedis(client *redis.Client, retention time.Duration) *Redis {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Redis{client: client, retention: retention}
}

func taskKey(id tasks.TaskID) string { return "review:task:" + string(id) }

func (s *Redis) Put(ctx context.Context, t *tasks.AnalysisTask) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling task %s: %w", t.ID, err)
	}
	if err := s.client.Set(ctx, taskKey(t.ID), data, s.retention).Err(); err != nil {
		return fmt.Errorf("storing task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, id tasks.TaskID) (*tasks.AnalysisTask, error) {
	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, tasks.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", id, err)
	}
	var t tasks.AnalysisTask
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", id, err)
	}
	return &t, nil
}
