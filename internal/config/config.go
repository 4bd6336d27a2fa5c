// Package config loads lakesync's configuration: discovery sources and
// exclusion rules, the ingestion and transformation pipeline's sizing
// knobs, the external systems it talks to (source repository, content
// lake, extraction service, chat/embedding endpoints), and the
// retrieval/RAG defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/lakesync/internal/discovery"
)

// Config holds the complete lakesync configuration.
type Config struct {
	Server         ServerConfig
	Observability  ObservabilityConfig
	Sources        []SourceRoot
	Exclude        ExcludeConfig
	Transform      TransformConfig
	Embedding      EmbeddingConfig
	BatchExecutor  BatchExecutorConfig
	Lake           LakeConfig
	TransformService TransformServiceConfig
	Source         SourceConfig
	Chat           ChatConfig
	RAG            RAGConfig
	SemanticSearch SemanticSearchConfig
	RetrievalCache RetrievalCacheConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
}

// SourceRoot is one configured discovery root, backing POST
// /api/sync/configured.
type SourceRoot struct {
	Folder    string   `koanf:"folder"`
	Recursive bool     `koanf:"recursive"`
	Types     []string `koanf:"types"`
	MimeTypes []string `koanf:"mime_types"`
}

// ExcludeConfig points at the file discovery.ExclusionWatcher loads and
// hot-reloads (internal/discovery/config.go's ExclusionConfig: aspect
// names and path globs to filter out of discovery). An empty Path means
// no exclusion rules are configured.
type ExcludeConfig struct {
	Path string `koanf:"path"`
}

// TransformConfig sizes the transformation worker pool.
type TransformConfig struct {
	WorkerThreads int `koanf:"worker_threads"`
	QueueCapacity int `koanf:"queue_capacity"`
}

// EmbeddingConfig configures chunking and the embedding label attached
// to computed vectors.
type EmbeddingConfig struct {
	ChunkSize    int    `koanf:"chunk_size"`
	ChunkOverlap int    `koanf:"chunk_overlap"`
	ModelName    string `koanf:"model_name"`
}

// BatchExecutorConfig sizes the metadata ingestion executor
// (internal/batch.Executor).
type BatchExecutorConfig struct {
	CoreSize                int `koanf:"core_size"`
	MaxSize                 int `koanf:"max_size"`
	QueueCapacity           int `koanf:"queue_capacity"`
	AwaitTerminationSeconds int `koanf:"await_termination_seconds"`
}

// LakeConfig configures the Lake Client.
type LakeConfig struct {
	URL          string     `koanf:"url"`
	RepositoryID string     `koanf:"repository_id"`
	TargetPath   string     `koanf:"target_path"`
	IDP          IDPConfig  `koanf:"idp"`
	Model        LakeModelConfig `koanf:"model"`
}

// IDPConfig configures the OAuth2 Resource-Owner-Password token
// acquisition the Lake Client uses.
type IDPConfig struct {
	TokenURL     string `koanf:"token_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret Secret `koanf:"client_secret"`
	Username     string `koanf:"username"`
	Password     Secret `koanf:"password"`
}

// LakeModelConfig controls schema provisioning (model bootstrap).
type LakeModelConfig struct {
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Fragments []string        `koanf:"fragments"`
}

// BootstrapConfig toggles whether model bootstrap runs at startup.
type BootstrapConfig struct {
	Enabled bool `koanf:"enabled"`
}

// TransformServiceConfig configures the external text-extraction
// service the Transformation Worker Pool calls for non-text formats.
type TransformServiceConfig struct {
	URL               string  `koanf:"url"`
	TimeoutMS         int64   `koanf:"timeout_ms"`
	Enabled           bool    `koanf:"enabled"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// SourceConfig configures the Source Client.
type SourceConfig struct {
	URL      string         `koanf:"url"`
	Security SecurityConfig `koanf:"security"`
}

// SecurityConfig holds the Source Client's basic-auth credentials.
type SecurityConfig struct {
	BasicAuth BasicAuthConfig `koanf:"basic_auth"`
}

// BasicAuthConfig is a username/password pair.
type BasicAuthConfig struct {
	Username string `koanf:"username"`
	Password Secret `koanf:"password"`
}

// ChatConfig configures the Chat Client.
type ChatConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// RAGConfig holds the RAG defaults, applied when a request leaves the
// corresponding field unset.
type RAGConfig struct {
	DefaultTopK         int     `koanf:"default_top_k"`
	DefaultMinScore     float64 `koanf:"default_min_score"`
	MaxContextLength    int     `koanf:"max_context_length"`
	DefaultSystemPrompt string  `koanf:"default_system_prompt"`
}

// SemanticSearchConfig holds the semantic search endpoint's defaults.
type SemanticSearchConfig struct {
	DefaultMinScore float64 `koanf:"default_min_score"`
}

// RetrievalCacheConfig configures the local semantic result cache
// (internal/vectorcache).
type RetrievalCacheConfig struct {
	Enabled bool                  `koanf:"enabled"`
	Backend string                `koanf:"backend"` // "chromem" or "qdrant"
	TTL     time.Duration         `koanf:"ttl"`
	Qdrant  RetrievalQdrantConfig `koanf:"qdrant"`
}

// RetrievalQdrantConfig configures the qdrant retrieval cache backend.
// Only consulted when RetrievalCacheConfig.Backend is "qdrant".
type RetrievalQdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	UseTLS bool   `koanf:"use_tls"`
}

// DiscoveryRoots converts the configured sources[] into discovery.Root
// values for POST /api/sync/configured.
func (c *Config) DiscoveryRoots() []discovery.Root {
	roots := make([]discovery.Root, 0, len(c.Sources))
	for _, s := range c.Sources {
		roots = append(roots, discovery.Root{
			FolderID:  s.Folder,
			Recursive: s.Recursive,
			Types:     s.Types,
			MimeTypes: s.MimeTypes,
		})
	}
	return roots
}

// Load loads configuration from environment variables with defaults,
// without consulting a YAML file. Use LoadWithFile (loader.go) when a
// config file should also be consulted.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OTEL_ENABLE", true),
			ServiceName:     getEnvString("OTEL_SERVICE_NAME", "lakesync"),
		},
		Exclude: ExcludeConfig{
			Path: getEnvString("EXCLUDE_PATH", ""),
		},
		Transform: TransformConfig{
			WorkerThreads: getEnvInt("TRANSFORM_WORKER_THREADS", 4),
			QueueCapacity: getEnvInt("TRANSFORM_QUEUE_CAPACITY", 100),
		},
		Embedding: EmbeddingConfig{
			ChunkSize:    getEnvInt("EMBEDDING_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("EMBEDDING_CHUNK_OVERLAP", 200),
			ModelName:    getEnvString("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		},
		BatchExecutor: BatchExecutorConfig{
			CoreSize:                getEnvInt("BATCH_EXECUTOR_CORE_SIZE", 4),
			MaxSize:                 getEnvInt("BATCH_EXECUTOR_MAX_SIZE", 8),
			QueueCapacity:           getEnvInt("BATCH_EXECUTOR_QUEUE_CAPACITY", 1000),
			AwaitTerminationSeconds: getEnvInt("BATCH_EXECUTOR_AWAIT_TERMINATION_SECONDS", 30),
		},
		Lake: LakeConfig{
			URL:          getEnvString("LAKE_URL", ""),
			RepositoryID: getEnvString("LAKE_REPOSITORY_ID", ""),
			TargetPath:   getEnvString("LAKE_TARGET_PATH", "/"),
			IDP: IDPConfig{
				TokenURL:     getEnvString("LAKE_IDP_TOKEN_URL", ""),
				ClientID:     getEnvString("LAKE_IDP_CLIENT_ID", ""),
				ClientSecret: Secret(getEnvString("LAKE_IDP_CLIENT_SECRET", "")),
				Username:     getEnvString("LAKE_IDP_USERNAME", ""),
				Password:     Secret(getEnvString("LAKE_IDP_PASSWORD", "")),
			},
			Model: LakeModelConfig{
				Bootstrap: BootstrapConfig{Enabled: getEnvBool("LAKE_MODEL_BOOTSTRAP_ENABLED", false)},
			},
		},
		TransformService: TransformServiceConfig{
			URL:               getEnvString("TRANSFORM_SERVICE_URL", ""),
			TimeoutMS:         int64(getEnvInt("TRANSFORM_SERVICE_TIMEOUT_MS", 30000)),
			Enabled:           getEnvBool("TRANSFORM_SERVICE_ENABLED", true),
			RequestsPerSecond: getEnvFloat("TRANSFORM_SERVICE_REQUESTS_PER_SECOND", 10),
			Burst:             getEnvInt("TRANSFORM_SERVICE_BURST", 5),
		},
		Source: SourceConfig{
			URL: getEnvString("SOURCE_URL", ""),
			Security: SecurityConfig{
				BasicAuth: BasicAuthConfig{
					Username: getEnvString("SOURCE_SECURITY_BASIC_AUTH_USERNAME", ""),
					Password: Secret(getEnvString("SOURCE_SECURITY_BASIC_AUTH_PASSWORD", "")),
				},
			},
		},
		Chat: ChatConfig{
			BaseURL: getEnvString("CHAT_BASE_URL", ""),
			Model:   getEnvString("CHAT_MODEL", "gpt-4o-mini"),
			APIKey:  Secret(getEnvString("CHAT_API_KEY", "")),
		},
		RAG: RAGConfig{
			DefaultTopK:         getEnvInt("RAG_DEFAULT_TOP_K", 5),
			DefaultMinScore:     getEnvFloat("RAG_DEFAULT_MIN_SCORE", 0.5),
			MaxContextLength:    getEnvInt("RAG_MAX_CONTEXT_LENGTH", 12000),
			DefaultSystemPrompt: getEnvString("RAG_DEFAULT_SYSTEM_PROMPT", ""),
		},
		SemanticSearch: SemanticSearchConfig{
			DefaultMinScore: getEnvFloat("SEMANTIC_SEARCH_DEFAULT_MIN_SCORE", 0.5),
		},
		RetrievalCache: RetrievalCacheConfig{
			Enabled: getEnvBool("RETRIEVAL_CACHE_ENABLED", true),
			Backend: getEnvString("RETRIEVAL_CACHE_BACKEND", "chromem"),
			TTL:     getEnvDuration("RETRIEVAL_CACHE_TTL", 5*time.Minute),
			Qdrant: RetrievalQdrantConfig{
				Host:   getEnvString("RETRIEVAL_CACHE_QDRANT_HOST", "localhost"),
				Port:   getEnvInt("RETRIEVAL_CACHE_QDRANT_PORT", 6334),
				UseTLS: getEnvBool("RETRIEVAL_CACHE_QDRANT_USE_TLS", false),
			},
		},
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Lake.URL == "" {
		return errors.New("lake.url is required")
	}
	if c.Lake.RepositoryID == "" {
		return errors.New("lake.repositoryId is required")
	}
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if c.TransformService.Enabled && c.TransformService.URL == "" {
		return errors.New("transformService.url is required when transformService.enabled is true")
	}
	if c.RetrievalCache.Enabled && c.RetrievalCache.Backend != "chromem" && c.RetrievalCache.Backend != "qdrant" {
		return fmt.Errorf("invalid retrievalCache.backend: %q (must be chromem or qdrant)", c.RetrievalCache.Backend)
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
