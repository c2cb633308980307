package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/code-review-agent/internal/domain/tasks"
)

func TestMemoryFIFO(t *testing.T) {
	q := NewMemory(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	id, ack, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, tasks.TaskID("a"), id)
	ack()

	id, ack, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, tasks.TaskID("b"), id)
	ack()
}

func TestMemoryDequeueHonorsCancel(t *testing.T) {
	q := NewMemory(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryEnqueueHonorsCancelWhenFull(t *testing.T) {
	q := NewMemory(1)
	require.NoError(t, q.Enqueue(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
