// Package http provides the HTTP API: batch sync orchestration,
// permission-scoped semantic search, and retrieval-augmented
// generation, fronted by the ticket/basic authentication middleware.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/authn"
	"github.com/fyrsmithlabs/lakesync/internal/batch"
	"github.com/fyrsmithlabs/lakesync/internal/discovery"
	"github.com/fyrsmithlabs/lakesync/internal/jobs"
	"github.com/fyrsmithlabs/lakesync/internal/queue"
	"github.com/fyrsmithlabs/lakesync/internal/rag"
	"github.com/fyrsmithlabs/lakesync/internal/retrieval"
	"github.com/fyrsmithlabs/lakesync/internal/secrets"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the pipeline's REST surface over echo.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
	config *Config

	auth      *authn.Validator
	retriever *retrieval.Retriever
	generator *rag.Generator
	executor  *batch.Executor
	registry  *jobs.Registry
	queue     *queue.Queue
	scrubber  secrets.Scrubber

	configuredRoots []discovery.Root
}

// Deps bundles the components NewServer wires onto routes. ConfiguredRoots
// backs POST /api/sync/configured; Scrubber may be nil, in which case
// search and RAG responses are returned unredacted.
type Deps struct {
	Auth            *authn.Validator
	Retriever       *retrieval.Retriever
	Generator       *rag.Generator
	Executor        *batch.Executor
	Registry        *jobs.Registry
	Queue           *queue.Queue
	Scrubber        secrets.Scrubber
	ConfiguredRoots []discovery.Root
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("authentication validator is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9090}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:            e,
		logger:          logger,
		config:          cfg,
		auth:            deps.Auth,
		retriever:       deps.Retriever,
		generator:       deps.Generator,
		executor:        deps.Executor,
		registry:        deps.Registry,
		queue:           deps.Queue,
		scrubber:        deps.Scrubber,
		configuredRoots: deps.ConfiguredRoots,
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/actuator/health", s.handleActuatorHealth)
	s.echo.GET("/actuator/info", s.handleActuatorInfo)
	s.echo.GET("/api/rag/health", s.handleRAGHealth)
	s.echo.GET("/api/search/semantic/health", s.handleSearchHealth)

	auth := s.auth.Middleware()
	s.echo.POST("/api/sync/batch", s.handleSyncBatch, auth)
	s.echo.POST("/api/sync/configured", s.handleSyncConfigured, auth)
	s.echo.GET("/api/sync/status", s.handleSyncStatus, auth)
	s.echo.GET("/api/sync/status/:jobId", s.handleSyncStatusByID, auth)
	s.echo.DELETE("/api/sync/queue", s.handleQueueClear, auth)
	s.echo.POST("/api/search/semantic", s.handleSemanticSearch, auth)
	s.echo.POST("/api/rag/prompt", s.handleRAGPrompt, auth)
}

// syncBatchRequest is the body of POST /api/sync/batch.
type syncBatchRequest struct {
	Folders   []string `json:"folders"`
	Recursive bool     `json:"recursive"`
	Types     []string `json:"types"`
	MimeTypes []string `json:"mimeTypes"`
}

func (s *Server) handleSyncBatch(c echo.Context) error {
	var req syncBatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Folders) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "folders field is required")
	}

	roots := make([]discovery.Root, 0, len(req.Folders))
	for _, folder := range req.Folders {
		roots = append(roots, discovery.Root{
			FolderID:  folder,
			Recursive: req.Recursive,
			Types:     req.Types,
			MimeTypes: req.MimeTypes,
		})
	}
	return s.startJob(c, roots)
}

func (s *Server) handleSyncConfigured(c echo.Context) error {
	if len(s.configuredRoots) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no sources are configured")
	}
	return s.startJob(c, s.configuredRoots)
}

func (s *Server) startJob(c echo.Context, roots []discovery.Root) error {
	job := s.registry.Start()
	snapshot := job.Snapshot()

	go func() {
		if err := s.executor.Run(context.Background(), roots, job); err != nil {
			s.logger.Error("batch sync run failed", zap.String("job_id", snapshot.ID), zap.Error(err))
		}
	}()

	return c.JSON(http.StatusAccepted, snapshot)
}

func (s *Server) handleSyncStatus(c echo.Context) error {
	pending, completed, failed := s.queue.Counts()
	return c.JSON(http.StatusOK, map[string]any{
		"jobs": s.registry.List(),
		"queue": map[string]any{
			"pending":   pending,
			"completed": completed,
			"failed":    failed,
			"queueSize": s.queue.Capacity(),
		},
	})
}

func (s *Server) handleSyncStatusByID(c echo.Context) error {
	job := s.registry.Get(c.Param("jobId"))
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, job.Snapshot())
}

func (s *Server) handleQueueClear(c echo.Context) error {
	s.queue.Clear()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// semanticSearchRequest is the body of POST /api/search/semantic.
type semanticSearchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"topK"`
	Filter        string  `json:"filter"`
	EmbeddingType string  `json:"embeddingType"`
	MinScore      float64 `json:"minScore"`
}

func (s *Server) handleSemanticSearch(c echo.Context) error {
	var req semanticSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, retrieval.Result{})
	}

	principal, _ := authn.FromContext(c)
	result, err := s.retriever.Retrieve(c.Request().Context(), retrieval.Request{
		Query:         req.Query,
		TopK:          req.TopK,
		EmbeddingType: req.EmbeddingType,
		Filter:        req.Filter,
		MinScore:      req.MinScore,
		Caller:        principal,
	})
	if err != nil {
		s.logger.Error("semantic search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	s.scrubHits(result.Hits)
	return c.JSON(http.StatusOK, result)
}

// ragPromptRequest is the body of POST /api/rag/prompt.
type ragPromptRequest struct {
	Question       string  `json:"question"`
	TopK           int     `json:"topK"`
	MinScore       float64 `json:"minScore"`
	Filter         string  `json:"filter"`
	EmbeddingType  string  `json:"embeddingType"`
	SystemPrompt   string  `json:"systemPrompt"`
	IncludeContext bool    `json:"includeContext"`
}

func (s *Server) handleRAGPrompt(c echo.Context) error {
	var req ragPromptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}
	if s.generator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "rag generation is not configured")
	}

	principal, _ := authn.FromContext(c)
	answer, err := s.generator.Generate(c.Request().Context(), rag.Request{
		Question:       req.Question,
		TopK:           req.TopK,
		MinScore:       req.MinScore,
		SystemPrompt:   req.SystemPrompt,
		IncludeContext: req.IncludeContext,
		Caller:         principal,
	})
	if err != nil {
		s.logger.Error("rag prompt failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "answer generation failed")
	}

	s.scrubAnswer(answer)
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) scrubHits(hits []retrieval.Hit) {
	if s.scrubber == nil {
		return
	}
	for i := range hits {
		hits[i].ChunkText = s.scrubber.Scrub(hits[i].ChunkText).Scrubbed
	}
}

func (s *Server) scrubAnswer(a *rag.Answer) {
	if s.scrubber == nil || a == nil {
		return
	}
	a.Answer = s.scrubber.Scrub(a.Answer).Scrubbed
	for i := range a.Context {
		a.Context[i] = s.scrubber.Scrub(a.Context[i]).Scrubbed
	}
}

// actuatorHealthResponse is the body of GET /actuator/health.
type actuatorHealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleActuatorHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, actuatorHealthResponse{Status: "ok"})
}

func (s *Server) handleActuatorInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"name": "lakesync"})
}

// compositeHealth reports "ok" when every named component is wired, and
// "degraded" when any is missing, rather than a hard failure: a missing
// optional component (e.g. the retrieval cache) should not fail a probe.
func compositeHealth(components map[string]bool) map[string]any {
	status := "ok"
	for _, present := range components {
		if !present {
			status = "degraded"
			break
		}
	}
	return map[string]any{"status": status, "components": components}
}

func (s *Server) handleRAGHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, compositeHealth(map[string]bool{
		"retriever": s.retriever != nil,
		"generator": s.generator != nil,
	}))
}

func (s *Server) handleSearchHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, compositeHealth(map[string]bool{
		"retriever": s.retriever != nil,
	}))
}

// Echo exposes the underlying echo instance so the caller can register
// additional routes, such as a Prometheus /metrics handler.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
