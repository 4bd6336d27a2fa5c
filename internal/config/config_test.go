package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	defer restoreEnv(saveEnv())
	os.Clearenv()

	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "lakesync", cfg.Observability.ServiceName)
	assert.Equal(t, 4, cfg.Transform.WorkerThreads)
	assert.Equal(t, 1000, cfg.Embedding.ChunkSize)
	assert.Equal(t, "/", cfg.Lake.TargetPath)
	assert.Equal(t, "chromem", cfg.RetrievalCache.Backend)
	assert.Equal(t, 5, cfg.RAG.DefaultTopK)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	defer restoreEnv(saveEnv())
	os.Clearenv()

	os.Setenv("SERVER_PORT", "8080")
	os.Setenv("OTEL_SERVICE_NAME", "test-service")
	os.Setenv("LAKE_URL", "https://lake.example.com")
	os.Setenv("LAKE_REPOSITORY_ID", "repo-1")
	os.Setenv("CHAT_MODEL", "gpt-4o")
	os.Setenv("RAG_DEFAULT_TOP_K", "10")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test-service", cfg.Observability.ServiceName)
	assert.Equal(t, "https://lake.example.com", cfg.Lake.URL)
	assert.Equal(t, "repo-1", cfg.Lake.RepositoryID)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, 10, cfg.RAG.DefaultTopK)
}

func TestConfig_Validate(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			Server:           ServerConfig{Port: 9090, ShutdownTimeout: 10 * time.Second},
			Observability:    ObservabilityConfig{EnableTelemetry: false},
			Lake:             LakeConfig{URL: "https://lake.example.com", RepositoryID: "repo-1"},
			Source:           SourceConfig{URL: "https://source.example.com"},
			TransformService: TransformServiceConfig{Enabled: false},
			RetrievalCache:   RetrievalCacheConfig{Backend: "chromem"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, true},
		{"telemetry without service name", func(c *Config) {
			c.Observability.EnableTelemetry = true
			c.Observability.ServiceName = ""
		}, true},
		{"missing lake url", func(c *Config) { c.Lake.URL = "" }, true},
		{"missing lake repository id", func(c *Config) { c.Lake.RepositoryID = "" }, true},
		{"missing source url", func(c *Config) { c.Source.URL = "" }, true},
		{"transform service enabled without url", func(c *Config) {
			c.TransformService.Enabled = true
			c.TransformService.URL = ""
		}, true},
		{"invalid retrieval cache backend", func(c *Config) { c.RetrievalCache.Backend = "redis" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DiscoveryRoots(t *testing.T) {
	cfg := &Config{
		Sources: []SourceRoot{
			{Folder: "folder-1", Recursive: true, Types: []string{"cm:content"}},
			{Folder: "folder-2", MimeTypes: []string{"application/pdf"}},
		},
	}

	roots := cfg.DiscoveryRoots()
	require.Len(t, roots, 2)
	assert.Equal(t, "folder-1", roots[0].FolderID)
	assert.True(t, roots[0].Recursive)
	assert.Equal(t, []string{"application/pdf"}, roots[1].MimeTypes)
}

func saveEnv() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				env[e[:i]] = e[i+1:]
				break
			}
		}
	}
	return env
}

func restoreEnv(env map[string]string) {
	os.Clearenv()
	for k, v := range env {
		os.Setenv(k, v)
	}
}
