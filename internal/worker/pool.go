// Package worker implements the Transformation Worker Pool: a fixed-size
// set of goroutines draining the Transformation Queue and running each
// task's extract -> chunk -> embed -> lake-replace pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/chunking"
	"github.com/fyrsmithlabs/lakesync/internal/embeddingclient"
	"github.com/fyrsmithlabs/lakesync/internal/extractionclient"
	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/model"
	"github.com/fyrsmithlabs/lakesync/internal/queue"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
)

const defaultShutdownGrace = 5 * time.Second

// textMimeTypes are decoded inline rather than round-tripped through the
// extraction service.
var textMimeTypes = map[string]bool{
	"text/plain":             true,
	"text/html":              true,
	"text/xml":               true,
	"text/csv":               true,
	"text/markdown":          true,
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
}

func isInlineText(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if strings.HasSuffix(mimeType, "+xml") || strings.HasSuffix(mimeType, "+json") {
		return true
	}
	return textMimeTypes[mimeType]
}

// Config configures a Pool.
type Config struct {
	WorkerCount    int
	ChunkSize      int
	ChunkOverlap   int
	EmbeddingModel string
	ShutdownGrace  time.Duration
}

// Pool drains a Queue with a fixed number of worker goroutines.
type Pool struct {
	cfg Config

	queue      *queue.Queue
	source     *sourceclient.Client
	lake       *lakeclient.Client
	extraction *extractionclient.Client
	embedder   *embeddingclient.Client
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Pool. WorkerCount below 1 is treated as 1.
func New(cfg Config, q *queue.Queue, source *sourceclient.Client, lake *lakeclient.Client, extraction *extractionclient.Client, embedder *embeddingclient.Client, logger *zap.Logger) *Pool {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	return &Pool{
		cfg:        cfg,
		queue:      q,
		source:     source,
		lake:       lake,
		extraction: extraction,
		embedder:   embedder,
		logger:     logger,
	}
}

// Start launches the worker goroutines. It does not block.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		id := i
		go func() {
			defer p.wg.Done()
			p.run(runCtx, id)
		}()
	}
}

// Stop cancels the run context, interrupting any blocking dequeue, and
// waits up to the configured grace period for workers to drain their
// current task before abandoning them.
func (p *Pool) Stop() error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(p.cfg.ShutdownGrace):
		return fmt.Errorf("worker pool shutdown timed out after %s", p.cfg.ShutdownGrace)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		task, ok, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Warn("worker dequeue error", zap.Int("worker", id), zap.Error(err))
			return
		}
		if !ok {
			return
		}

		start := time.Now()
		err = p.process(ctx, task)
		switch {
		case err == nil:
			taskDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
			p.queue.MarkCompleted()
		case errors.Is(err, model.ErrNotFound):
			// The source was deleted between discovery and pickup; there is
			// nothing left to transform, and retrying can't change that.
			taskDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
			p.logger.Info("source no longer exists, treating task as done",
				zap.String("sourceId", task.SourceID),
				zap.String("lakeId", task.LakeID))
			p.queue.MarkCompleted()
		default:
			taskDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
			p.logger.Error("transformation task failed",
				zap.String("sourceId", task.SourceID),
				zap.String("lakeId", task.LakeID),
				zap.Error(err))
			p.queue.MarkFailed()
		}
	}
}

func (p *Pool) process(ctx context.Context, task model.TransformationTask) error {
	text, err := p.extractText(ctx, task)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	chunks := chunking.AdaptiveChunk(text, task.LakeID, chunking.Config{
		MinChunkSize: p.cfg.ChunkSize / 4,
		MaxChunkSize: p.cfg.ChunkSize,
	}, p.logger)
	if len(chunks) == 0 {
		return nil
	}

	embedded, err := p.embedder.EmbedChunks(ctx, chunks, task.DocumentName)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	embeddings := make([]model.Embedding, 0, len(embedded))
	for _, ce := range embedded {
		embeddings = append(embeddings, model.Embedding{
			Type:    p.cfg.EmbeddingModel,
			Text:    ce.Chunk.Text,
			Vector:  ce.Embedding,
			ChunkID: ce.Chunk.ID(),
		})
	}

	if err := p.lake.DeleteEmbeddings(ctx, task.LakeID); err != nil {
		p.logger.Warn("best-effort embeddings delete failed",
			zap.String("lakeId", task.LakeID), zap.Error(err))
	}
	if err := p.lake.UpdateEmbeddings(ctx, task.LakeID, embeddings); err != nil {
		return fmt.Errorf("update embeddings: %w", err)
	}
	if err := p.lake.UpdateFields(ctx, task.LakeID, map[string]any{"fullText": text}); err != nil {
		return fmt.Errorf("update full text: %w", err)
	}
	return nil
}

// extractText decodes inline text mimetypes directly; everything else is
// downloaded to a temp file and routed through the extraction client. The
// temp file is removed on every exit path.
func (p *Pool) extractText(ctx context.Context, task model.TransformationTask) (string, error) {
	if isInlineText(task.MimeType) {
		content, err := p.source.GetContent(ctx, task.SourceID)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(content) {
			return strings.ToValidUTF8(string(content), ""), nil
		}
		return string(content), nil
	}

	tmpPath, err := p.source.DownloadContentToTempFile(ctx, task.SourceID, task.DocumentName)
	if err != nil {
		return "", err
	}
	defer removeTempFile(p.logger, tmpPath)

	content, err := readFile(tmpPath)
	if err != nil {
		return "", err
	}

	return p.extraction.TransformToText(ctx, content, task.MimeType)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func removeTempFile(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
	}
}
