package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lakesync/internal/lakeclient"
	"github.com/fyrsmithlabs/lakesync/internal/modelschema"
)

var modelFragmentPath string

func init() {
	modelBootstrapCmd.Flags().StringVar(&modelFragmentPath, "fragment", "", "path to a TOML schema fragment (default: the embedded fragment)")
}

var modelBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Ensure the content lake's schema has the types this pipeline needs",
	RunE:  runModelBootstrap,
}

func runModelBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	desired, err := loadDesiredModel(cfg.Lake.Model.Fragments)
	if err != nil {
		return fmt.Errorf("loading desired schema: %w", err)
	}

	lake := lakeclient.New(lakeclient.Config{
		BaseURL:      cfg.Lake.URL,
		RepositoryID: cfg.Lake.RepositoryID,
		TargetPath:   cfg.Lake.TargetPath,
		TokenURL:     cfg.Lake.IDP.TokenURL,
		ClientID:     cfg.Lake.IDP.ClientID,
		ClientSecret: string(cfg.Lake.IDP.ClientSecret),
		Username:     cfg.Lake.IDP.Username,
		Password:     string(cfg.Lake.IDP.Password),
	}, logger)

	if err := lake.EnsureModelPresent(context.Background(), desired); err != nil {
		return fmt.Errorf("bootstrapping model: %w", err)
	}

	logger.Info("model bootstrap complete",
		zap.Int("types", len(desired.Types)),
		zap.Int("mixin_types", len(desired.MixinTypes)))

	return nil
}

// loadDesiredModel resolves the desired schema fragment. --fragment
// takes precedence over lake.model.fragments[0] from config; with
// neither set, it falls back to the embedded default fragment.
func loadDesiredModel(configuredFragments []string) (*lakeclient.Model, error) {
	path := modelFragmentPath
	if path == "" && len(configuredFragments) > 0 {
		path = configuredFragments[0]
	}
	if path != "" {
		return modelschema.LoadFile(path)
	}
	return modelschema.Load()
}
