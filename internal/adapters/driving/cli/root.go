// Package cli provides the cobra command tree for docindex.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docindex/internal/app"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/core/services"
	"github.com/custodia-labs/docindex/internal/logger"
)

var (
	version = "dev"

	configPath string
	envFile    string
	verbose    bool

	// settingsService is set by the root command before any subcommand runs.
	settingsService driving.SettingsService
)

// Services are the core services a command works against.
type Services struct {
	Indexer driving.Indexer
	Search  driving.SearchService

	// Close releases connections and file handles.
	Close func() error
}

// newSettingsService opens the config file at path. Replaced in tests.
var newSettingsService = func(path string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return services.NewSettingsService(store), nil
}

// openServices wires the pipeline from settings. Replaced in tests.
var openServices = func(ctx context.Context, settings *domain.AppSettings) (*Services, error) {
	a, err := app.Build(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &Services{Indexer: a.Indexer, Search: a.Search, Close: a.Close}, nil
}

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Incremental document indexing and semantic search",
	Long: `docindex extracts text from the documents in a directory, splits it into
overlapping chunks, embeds each chunk and exports the vectors to a
queryable store. Re-running only processes documents that changed.

Configuration is read from ~/.docindex/config.toml (or --config),
overridden by environment variables. A .env file in the working
directory is loaded first.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initialise,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docindex/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initialise(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := file.LoadEnv(envFile); err != nil {
			return fmt.Errorf("%w: load %s: %w", domain.ErrConfiguration, envFile, err)
		}
	}

	svc, err := newSettingsService(configPath)
	if err != nil {
		return err
	}
	settingsService = svc
	return nil
}

// Execute runs the root command with the given build version.
func Execute(ctx context.Context, v string) error {
	if v != "" {
		version = v
	}
	defer logger.Sync()

	// Command output goes to stdout; cobra defaults to stderr.
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// withServices resolves settings, wires the services and runs fn.
func withServices(cmd *cobra.Command, fn func(*Services) error) (err error) {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}

	svc, err := openServices(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() {
		if svc.Close != nil {
			err = errors.Join(err, svc.Close())
		}
	}()
	return fn(svc)
}
