// Package batch orchestrates a full ingestion run: it drives
// discovery.Discoverer over a set of roots, hands each discovered
// document to ingest.Ingester with bounded concurrency, and records
// progress on a jobs.Job so the HTTP API can report it while the run is
// still in flight.
package batch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/discovery"
	"github.com/fyrsmithlabs/lakesync/internal/jobs"
	"github.com/fyrsmithlabs/lakesync/internal/model"
)

// Ingester is the subset of ingest.Ingester the executor depends on.
type Ingester interface {
	Ingest(ctx context.Context, doc model.SourceDocument) error
}

// Discoverer is the subset of discovery.Discoverer the executor depends
// on.
type Discoverer interface {
	Discover(ctx context.Context, roots []discovery.Root) (<-chan model.SourceDocument, <-chan error)
}

// Config bounds the executor's concurrency. Zero values fall back to
// the defaults below, matching batch.executor.coreSize /
// batch.executor.maxSize in the configuration.
type Config struct {
	// MaxParallel is the maximum number of documents ingested
	// concurrently.
	MaxParallel int
}

const defaultMaxParallel = 4

// Executor runs discovery and ingestion for one batch sync invocation.
type Executor struct {
	discoverer Discoverer
	ingester   Ingester
	cfg        Config
	logger     *zap.Logger
}

// New constructs an Executor.
func New(discoverer Discoverer, ingester Ingester, cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	return &Executor{discoverer: discoverer, ingester: ingester, cfg: cfg, logger: logger}
}

// Run discovers every document under roots and ingests each one,
// recording progress on job as it goes. It returns the discovery
// error, if any, after all in-flight ingestion work has drained;
// individual ingestion failures are recorded on job and logged, never
// returned, so one bad document never aborts the run.
//
// Run blocks until discovery completes (or ctx is cancelled) and every
// discovered document has been ingested.
func (e *Executor) Run(ctx context.Context, roots []discovery.Root, job *jobs.Job) error {
	docs, errc := e.discoverer.Discover(ctx, roots)

	sem := make(chan struct{}, e.cfg.MaxParallel)
	var wg sync.WaitGroup

	for doc := range docs {
		job.RecordDiscovered()

		if ctx.Err() != nil {
			wg.Wait()
			job.Complete(model.JobFailed)
			return ctx.Err()
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			job.Complete(model.JobFailed)
			return ctx.Err()
		}

		wg.Add(1)
		go func(doc model.SourceDocument) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := e.ingester.Ingest(ctx, doc); err != nil {
				job.RecordFailed()
				e.logger.Error("ingest failed",
					zap.String("source_id", doc.ID),
					zap.String("path", doc.Path),
					zap.Error(err))
				return
			}
			job.RecordIngested()
		}(doc)
	}

	wg.Wait()

	discoverErr := <-errc
	if discoverErr != nil {
		job.Complete(model.JobFailed)
		return discoverErr
	}

	job.Complete(model.JobCompleted)
	return nil
}
