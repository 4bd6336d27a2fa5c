// Package jobs tracks per-job discovered/ingested/failed counts and
// status for inspection via the HTTP API.
package jobs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// Job is the mutable, concurrency-safe counterpart of model.IngestionJob.
type Job struct {
	id         string
	startedAt  time.Time
	status     atomic.Value // model.JobStatus
	discovered atomic.Int64
	ingested   atomic.Int64
	failed     atomic.Int64

	mu          sync.RWMutex
	completedAt *time.Time
}

// Snapshot returns a point-in-time copy for reporting.
func (j *Job) Snapshot() model.IngestionJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return model.IngestionJob{
		ID:          j.id,
		Status:      j.status.Load().(model.JobStatus),
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
		Discovered:  j.discovered.Load(),
		Ingested:    j.ingested.Load(),
		Failed:      j.failed.Load(),
	}
}

// RecordDiscovered increments the discovered counter.
func (j *Job) RecordDiscovered() { j.discovered.Add(1) }

// RecordIngested increments the ingested counter.
func (j *Job) RecordIngested() { j.ingested.Add(1) }

// RecordFailed increments the failed counter.
func (j *Job) RecordFailed() { j.failed.Add(1) }

// Complete marks the job finished, successfully or not.
func (j *Job) Complete(status model.JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.completedAt = &now
	j.status.Store(status)
}

// Registry holds all jobs started by this process, keyed by id.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Start creates and registers a new running Job.
func (r *Registry) Start() *Job {
	job := &Job{id: uuid.NewString(), startedAt: time.Now()}
	job.status.Store(model.JobRunning)

	r.mu.Lock()
	r.jobs[job.id] = job
	r.mu.Unlock()

	return job
}

// Get returns the job with the given id, or nil if unknown.
func (r *Registry) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

// List returns a snapshot of every tracked job.
func (r *Registry) List() []model.IngestionJob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.IngestionJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Snapshot())
	}
	return out
}
