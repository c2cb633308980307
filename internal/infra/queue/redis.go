package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

const (
	pendingKey    = "review:queue:pending"
	processingKey = "review:queue:processing"
	popTimeout    = 5 * time.Second
)

// Redis is the durable queue. Enqueue pushes onto a pending list; Dequeue
// atomically moves an id to a processing list (at-least-once delivery) and
// ack removes it there. Ids left on the processing list by a crashed
// worker can be requeued by Recover.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (q *Redis) Enqueue(ctx context.Context, id tasks.TaskID) error {
	if err := q.client.LPush(ctx, pendingKey, string(id)).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

func (q *Redis) Dequeue(ctx context.Context) (tasks.TaskID, func(), error) {
	for {
		val, err := q.client.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", popTimeout).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return "", nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("dequeue: %w", err)
		}
		ack := func() {
			// Detached context: the ack must land even when the worker
			// context was cancelled right after processing.
			actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			q.client.LRem(actx, processingKey, 1, val)
		}
		return tasks.TaskID(val), ack, nil
	}
}

// Recover moves all unacked ids from the processing list back to pending.
// Call it at startup so deliveries lost to a crash are redelivered.
func (q *Redis) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := q.client.LMove(ctx, processingKey, pendingKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover: %w", err)
		}
		n++
	}
}
