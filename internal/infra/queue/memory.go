package queue

import (
	"context"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

const defaultMemoryCapacity = 1024

// Memory is the channel-backed queue for tests and single-node
// deployments. Delivery is at-most-once here; ack is a no-op.
type Memory struct {
	ch chan tasks.TaskID
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{ch: make(chan tasks.TaskID, capacity)}
}

func (q *Memory) Enqueue(ctx context.Context, id tasks.TaskID) error {
	select {
	case q.ch <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Dequeue(ctx context.Context) (tasks.TaskID, func(), error) {
	select {
	case id := <-q.ch:
		return id, func() {}, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}
