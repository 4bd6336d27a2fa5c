package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

func TestEnqueueDequeue_RoundTrips(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s1"}))
	pending, _, _ := q.Counts()
	assert.Equal(t, int64(1), pending)

	task, ok, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s1", task.SourceID)
}

func TestEnqueue_BlocksWhenFull(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s1"}))

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx2, model.TransformationTask{SourceID: "s2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMarkCompletedAndFailed_AdjustCounters(t *testing.T) {
	q := New(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s1"}))
	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s2"}))

	q.MarkCompleted()
	q.MarkFailed()

	pending, completed, failed := q.Counts()
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(1), failed)
}

func TestClear_IsIdempotentAndKeepsHistory(t *testing.T) {
	q := New(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s1"}))
	q.MarkCompleted()
	require.NoError(t, q.Enqueue(ctx, model.TransformationTask{SourceID: "s2"}))

	q.Clear()
	q.Clear()

	pending, completed, _ := q.Counts()
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, int64(1), completed)
}

func TestDequeue_ReturnsFalseAfterClose(t *testing.T) {
	q := New(1)
	q.Close()
	_, ok, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
