// Lakesync is a content-lake ingestion daemon: it discovers documents in
// a source repository, mirrors their metadata and ACLs into a content
// lake, extracts and embeds their text on a background worker pool, and
// serves permission-scoped semantic search and retrieval-augmented
// generation over the result.
//
// Usage:
//
//	lakesync serve                  # start the HTTP API and worker pool
//	lakesync sync batch <root>...   # run one discovery+ingestion pass
//	lakesync sync configured        # run a pass over configured sources
//	lakesync model bootstrap        # provision the lake's schema
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/lakesync/internal/config"
	"github.com/fyrsmithlabs/lakesync/internal/logging"
)

var version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "lakesync",
	Short:   "Content-lake ingestion daemon and operator CLI",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/lakesync/config.yaml)")

	syncCmd.AddCommand(syncBatchCmd)
	syncCmd.AddCommand(syncConfiguredCmd)
	modelCmd.AddCommand(modelBootstrapCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(modelCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a discovery and ingestion pass",
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage the content lake's schema",
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process's root logger via internal/logging, the
// ambient zap wrapper this module carries. Components below main still
// take a plain *zap.Logger (logging.Logger.Underlying); the dual
// OTel/stdout core and redaction config live here, at the one place a
// process is constructed.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Observability.EnableTelemetry {
		logCfg.Output.OTEL = true
	} else {
		logCfg.Format = "console"
		logCfg.Level = zapcore.DebugLevel
	}
	logCfg.Fields["service"] = cfg.Observability.ServiceName

	l, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, err
	}
	return l.Underlying(), nil
}
