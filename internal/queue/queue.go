// Package queue implements the Transformation Queue: a bounded FIFO of
// TransformationTasks with atomic pending/completed/failed counters,
// backed by a buffered Go channel rather than an external broker (there
// is no distributed-queue concept in this pipeline — see DESIGN.md).
package queue

import (
	"context"
	"sync/atomic"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// Queue is a bounded FIFO of transformation tasks.
type Queue struct {
	tasks chan model.TransformationTask

	pending   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New constructs a Queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{tasks: make(chan model.TransformationTask, capacity)}
}

// Enqueue blocks until there is room, ctx is cancelled, or the error
// channel is returned.
func (q *Queue) Enqueue(ctx context.Context, task model.TransformationTask) error {
	select {
	case q.tasks <- task:
		depth.Set(float64(q.pending.Add(1)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a task is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (model.TransformationTask, bool, error) {
	select {
	case task, ok := <-q.tasks:
		if !ok {
			return model.TransformationTask{}, false, nil
		}
		return task, true, nil
	case <-ctx.Done():
		return model.TransformationTask{}, false, ctx.Err()
	}
}

// MarkCompleted records one fewer pending task and one more completed.
func (q *Queue) MarkCompleted() {
	depth.Set(float64(q.pending.Add(-1)))
	q.completed.Add(1)
}

// MarkFailed records one fewer pending task and one more failed.
func (q *Queue) MarkFailed() {
	depth.Set(float64(q.pending.Add(-1)))
	q.failed.Add(1)
}

// Counts returns the current pending/completed/failed counters.
func (q *Queue) Counts() (pending, completed, failed int64) {
	return q.pending.Load(), q.completed.Load(), q.failed.Load()
}

// Clear drains any queued-but-undequeued tasks and resets pending to
// zero. It is idempotent and does not touch the completed/failed
// historical counts.
func (q *Queue) Clear() {
	for {
		select {
		case <-q.tasks:
			depth.Set(float64(q.pending.Add(-1)))
		default:
			return
		}
	}
}

// Close closes the underlying channel, signalling workers to stop once
// drained. Enqueue must not be called after Close.
func (q *Queue) Close() {
	close(q.tasks)
}

// Capacity returns the queue's fixed buffer size, for status reporting.
func (q *Queue) Capacity() int {
	return cap(q.tasks)
}
