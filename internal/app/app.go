// Package app wires settings into the driven adapters and core services.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/docindex/internal/adapters/driven/extraction/documentai"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docindex/internal/connectors/filesystem"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/services"
	"github.com/custodia-labs/docindex/internal/extractors"
	"github.com/custodia-labs/docindex/internal/extractors/html"
	"github.com/custodia-labs/docindex/internal/extractors/plaintext"
	"github.com/custodia-labs/docindex/internal/logger"
	"github.com/custodia-labs/docindex/internal/postprocessors"
)

// App holds the wired services for one process.
type App struct {
	Settings *domain.AppSettings
	Indexer  *services.Indexer
	Search   *services.SearchService

	// Embedder is shared by Indexer and Search.
	Embedder driven.EmbeddingService

	closers []func() error
}

// Build validates settings and constructs every component. The caller
// must Close the returned App.
func Build(ctx context.Context, settings *domain.AppSettings) (_ *App, err error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are nil", domain.ErrConfiguration)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &App{Settings: settings}
	defer func() {
		if err != nil {
			a.Close() //nolint:errcheck // reporting the build error
		}
	}()

	a.Embedder, err = ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Embedder.Close)

	extractor, err := a.buildExtractor(ctx)
	if err != nil {
		return nil, err
	}

	exporter, tracking, cache, err := a.buildStorage(ctx)
	if err != nil {
		return nil, err
	}

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, settings.Processors)
	if err != nil {
		return nil, err
	}

	source := filesystem.New(settings.Source.Path)
	a.closers = append(a.closers, source.Close)

	p := settings.Pipeline
	a.Indexer = services.NewIndexer(
		source, extractor, pipeline, a.Embedder, exporter, tracking, settings.Storage.Table,
		services.WithWorkers(p.Workers),
		services.WithEmbedConcurrency(p.EmbedConcurrency),
		services.WithTimeouts(p.ExtractTimeout, p.EmbedTimeout),
		services.WithCallRetries(p.CallRetries),
		services.WithStorageRetries(settings.Storage.MaxRetries),
		services.WithEmbeddingPolicy(p.EmbeddingPolicy),
		services.WithTransformCache(cache),
	)
	a.Search = services.NewSearchService(a.Embedder, exporter)

	logger.Debug("Wired %s extraction, %s embeddings, %s storage",
		settings.Extraction.Provider, a.Embedder.Identity(), settings.Storage.Driver)
	return a, nil
}

// buildExtractor registers the built-in text extractors and, when
// configured, Document AI for PDFs and images.
func (a *App) buildExtractor(ctx context.Context) (driven.Extractor, error) {
	registry := extractors.NewRegistry(plaintext.New(), html.New())

	if a.Settings.Extraction.Provider == domain.ExtractionDocumentAI {
		docai, err := documentai.New(ctx, a.Settings.Extraction.DocumentAI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, docai.Close)
		registry.Register(docai)
	}
	return registry, nil
}

// buildStorage opens the export target plus the tracking store and
// transform cache. Tracking and cache always live in the local SQLite
// database unless everything is in memory.
func (a *App) buildStorage(ctx context.Context) (driven.Exporter, driven.TrackingStore, driven.TransformCache, error) {
	s := a.Settings.Storage

	if s.Driver == domain.StorageMemory {
		return memory.NewExporter(), memory.NewTrackingStore(), memory.NewTransformCache(), nil
	}

	local, err := sqlite.NewStore(s.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	a.closers = append(a.closers, local.Close)

	var exporter driven.Exporter
	switch s.Driver {
	case domain.StoragePostgres:
		pg, err := postgres.Open(ctx, postgres.Config{URL: s.URL, Table: s.Table, MaxOpenConns: s.MaxOpenConns})
		if err != nil {
			return nil, nil, nil, err
		}
		exporter = pg
	default:
		exporter = local.Exporter(s.Table)
	}
	a.closers = append(a.closers, exporter.Close)

	return exporter, local.TrackingStore(), local.TransformCache(), nil
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
