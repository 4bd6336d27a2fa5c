package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/authn"
	"github.com/fyrsmithlabs/lakesync/internal/batch"
	"github.com/fyrsmithlabs/lakesync/internal/chatclient"
	"github.com/fyrsmithlabs/lakesync/internal/config"
	"github.com/fyrsmithlabs/lakesync/internal/discovery"
	"github.com/fyrsmithlabs/lakesync/internal/embeddingclient"
	"github.com/fyrsmithlabs/lakesync/internal/extractionclient"
	"github.com/fyrsmithlabs/lakesync/internal/ingest"
	"github.com/fyrsmithlabs/lakesync/internal/jobs"
	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/queue"
	"github.com/fyrsmithlabs/lakesync/internal/rag"
	"github.com/fyrsmithlabs/lakesync/internal/retrieval"
	"github.com/fyrsmithlabs/lakesync/internal/secrets"
	"github.com/fyrsmithlabs/lakesync/internal/sourceclient"
	"github.com/fyrsmithlabs/lakesync/internal/vectorcache"
	"github.com/fyrsmithlabs/lakesync/internal/worker"
)

// app bundles every long-lived component a lakesync process can need.
// Not every command uses every field: sync batch/configured only need
// lake/source/discovery/ingest/batch, serve needs all of it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	source    *sourceclient.Client
	lake      *lakeclient.Client
	extractor *extractionclient.Client
	embedder  *embeddingclient.Client
	chat      *chatclient.Client

	exclusion  *discovery.ExclusionWatcher
	discoverer *discovery.Discoverer
	queue      *queue.Queue
	ingester   *ingest.Ingester
	executor   *batch.Executor
	pool       *worker.Pool
	retriever  *retrieval.Retriever
	generator  *rag.Generator
	auth       *authn.Validator
	registry   *jobs.Registry
	scrubber   secrets.Scrubber
}

// newApp wires every component from cfg. It does not start the worker
// pool; callers that need it running call app.pool.Start separately.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.source = sourceclient.New(sourceclient.Config{
		BaseURL:  cfg.Source.URL,
		Username: cfg.Source.Security.BasicAuth.Username,
		Password: string(cfg.Source.Security.BasicAuth.Password),
	}, logger)

	a.lake = lakeclient.New(lakeclient.Config{
		BaseURL:      cfg.Lake.URL,
		RepositoryID: cfg.Lake.RepositoryID,
		TargetPath:   cfg.Lake.TargetPath,
		TokenURL:     cfg.Lake.IDP.TokenURL,
		ClientID:     cfg.Lake.IDP.ClientID,
		ClientSecret: string(cfg.Lake.IDP.ClientSecret),
		Username:     cfg.Lake.IDP.Username,
		Password:     string(cfg.Lake.IDP.Password),
	}, logger)

	a.extractor = extractionclient.New(extractionclient.Config{
		BaseURL:           cfg.TransformService.URL,
		TimeoutMS:         cfg.TransformService.TimeoutMS,
		RequestsPerSecond: cfg.TransformService.RequestsPerSecond,
		Burst:             cfg.TransformService.Burst,
	}, logger)

	// Embedding and chat endpoints are both OpenAI-compatible and, per
	// the configuration surface, share one base URL (chat.baseUrl) with
	// different model names.
	a.embedder = embeddingclient.New(embeddingclient.Config{
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Embedding.ModelName,
	}, logger)

	if cfg.Chat.BaseURL != "" {
		chat, err := chatclient.New(chatclient.Config{
			BaseURL: cfg.Chat.BaseURL,
			Model:   cfg.Chat.Model,
			APIKey:  string(cfg.Chat.APIKey),
		})
		if err != nil {
			return nil, fmt.Errorf("constructing chat client: %w", err)
		}
		a.chat = chat
	}

	exclusion, err := discovery.NewExclusionWatcher(cfg.Exclude.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("starting exclusion watcher: %w", err)
	}
	a.exclusion = exclusion
	a.discoverer = discovery.New(a.source, a.exclusion)

	a.queue = queue.New(cfg.Transform.QueueCapacity)

	a.ingester = ingest.New(ingest.Config{
		RepositoryID: cfg.Lake.RepositoryID,
		TargetPath:   cfg.Lake.TargetPath,
	}, a.lake, a.source, a.queue, logger)

	a.executor = batch.New(a.discoverer, a.ingester, batch.Config{
		MaxParallel: cfg.BatchExecutor.MaxSize,
	}, logger)

	a.pool = worker.New(worker.Config{
		WorkerCount:    cfg.Transform.WorkerThreads,
		ChunkSize:      cfg.Embedding.ChunkSize,
		ChunkOverlap:   cfg.Embedding.ChunkOverlap,
		EmbeddingModel: cfg.Embedding.ModelName,
	}, a.queue, a.source, a.lake, a.extractor, a.embedder, logger)

	cache, err := newRetrievalCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing retrieval cache: %w", err)
	}

	a.retriever = retrieval.New(a.embedder, a.lake, a.source, cache, cfg.RetrievalCache.TTL, cfg.Lake.RepositoryID, logger)

	if a.chat != nil {
		a.generator = rag.New(a.retriever, a.chat, rag.Config{
			DefaultTopK:         cfg.RAG.DefaultTopK,
			DefaultMinScore:     cfg.RAG.DefaultMinScore,
			MaxContextChars:     cfg.RAG.MaxContextLength,
			DefaultSystemPrompt: cfg.RAG.DefaultSystemPrompt,
		})
	}

	a.auth = authn.New(authn.Config{BaseURL: cfg.Source.URL}, logger)
	a.registry = jobs.NewRegistry()

	scrubber, err := secrets.New(secrets.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("constructing secret scrubber: %w", err)
	}
	a.scrubber = scrubber

	return a, nil
}

// Close releases the background watchers newApp started. It does not
// stop the worker pool; callers that started it call pool.Stop directly.
func (a *app) Close() {
	if a.exclusion != nil {
		_ = a.exclusion.Close()
	}
}

// newRetrievalCache constructs the backend named by
// cfg.RetrievalCache.Backend, or nil if caching is disabled.
func newRetrievalCache(cfg *config.Config, logger *zap.Logger) (vectorcache.Store, error) {
	if !cfg.RetrievalCache.Enabled {
		return nil, nil
	}
	switch cfg.RetrievalCache.Backend {
	case "qdrant":
		return vectorcache.NewQdrantStore(vectorcache.QdrantConfig{
			Host:         cfg.RetrievalCache.Qdrant.Host,
			Port:         cfg.RetrievalCache.Qdrant.Port,
			UseTLS:       cfg.RetrievalCache.Qdrant.UseTLS,
			RepositoryID: cfg.Lake.RepositoryID,
		}, logger)
	default:
		return vectorcache.NewChromemStore(logger)
	}
}
