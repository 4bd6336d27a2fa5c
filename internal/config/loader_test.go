package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome creates a temporary home directory for testing.
func setupTestHome(t *testing.T) (string, func()) {
	t.Helper()

	tmpHome := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)

	return tmpHome, func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		} else {
			os.Unsetenv("HOME")
		}
	}
}

func writeConfigFile(t *testing.T, home, content string, perm os.FileMode) string {
	t.Helper()
	configDir := filepath.Join(home, ".config", "lakesync")
	require.NoError(t, os.MkdirAll(configDir, 0700))
	configPath := filepath.Join(configDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), perm))
	return configPath
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeConfigFile(t, home, `
server:
  port: 9191

observability:
  enable_telemetry: true
  service_name: lakesync-test

lake:
  url: https://lake.example.com
  repository_id: repo-1
`, 0600)

	cfg, err := LoadWithFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "lakesync-test", cfg.Observability.ServiceName)
	assert.True(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "https://lake.example.com", cfg.Lake.URL)
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeConfigFile(t, home, `
server:
  port: 9090

observability:
  service_name: yaml-service

lake:
  url: https://lake.example.com
  repository_id: repo-1
`, 0600)

	os.Setenv("SERVER_PORT", "7777")
	os.Setenv("OBSERVABILITY_SERVICE_NAME", "env-service")
	defer os.Unsetenv("SERVER_PORT")
	defer os.Unsetenv("OBSERVABILITY_SERVICE_NAME")

	cfg, err := LoadWithFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "env-service", cfg.Observability.ServiceName)
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := filepath.Join(home, ".config", "lakesync", "config.yaml")

	_, err := LoadWithFile(configPath)
	require.Error(t, err, "defaults alone don't satisfy lake.url/source.url validation")
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := "server:\n  port: not-a-number\n  invalid syntax here\n"
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0600))

	_, err := LoadWithFile(configPath)
	assert.Error(t, err)
}

func TestLoadWithFile_ValidationFailsOnBadPort(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeConfigFile(t, home, `
server:
  port: 99999

lake:
  url: https://lake.example.com
  repository_id: repo-1
`, 0600)

	_, err := LoadWithFile(configPath)
	assert.Error(t, err)
}

func TestLoadWithFile_PathTraversal(t *testing.T) {
	_, cleanup := setupTestHome(t)
	defer cleanup()

	_, err := LoadWithFile("../../../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in ~/.config/lakesync/ or /etc/lakesync/")
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeConfigFile(t, home, "server:\n  port: 9090\n", 0644)

	_, err := LoadWithFile(configPath)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "insecure") || strings.Contains(err.Error(), "permissions"))
}

func TestLoadWithFile_SecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeConfigFile(t, home, `
server:
  port: 9090

lake:
  url: https://lake.example.com
  repository_id: repo-1
`, 0600)

	cfg, err := LoadWithFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadWithFile_FileTooLarge(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configDir := filepath.Join(home, ".config", "lakesync")
	require.NoError(t, os.MkdirAll(configDir, 0700))
	configPath := filepath.Join(configDir, "config.yaml")

	largeContent := bytes.Repeat([]byte("# comment line\n"), 150000)
	require.NoError(t, os.WriteFile(configPath, largeContent, 0600))

	_, err := LoadWithFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
