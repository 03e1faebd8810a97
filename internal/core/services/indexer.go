package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.Indexer = (*Indexer)(nil)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 2 * time.Second

// Indexer runs the incremental indexing pipeline: scan the source,
// extract and chunk changed documents, embed the chunks and replace each
// document's rows in the export target.
type Indexer struct {
	source    driven.Source
	extractor *CachedExtractor
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	exporter  driven.Exporter
	tracking  driven.TrackingStore

	table            string
	workers          int
	embedConcurrency int
	extractTimeout   time.Duration
	embedTimeout     time.Duration
	callRetries      int
	storageRetries   int
	policy           domain.EmbeddingPolicy
	debounce         time.Duration
	newBackOff       func() backoff.BackOff
	cache            driven.TransformCache

	mu     sync.RWMutex
	status driving.IndexStatus
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithWorkers sets how many documents are processed concurrently.
func WithWorkers(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithEmbedConcurrency sets how many chunks of one document are embedded concurrently.
func WithEmbedConcurrency(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.embedConcurrency = n
		}
	}
}

// WithTimeouts sets the per-call extraction and embedding timeouts.
func WithTimeouts(extract, embed time.Duration) IndexerOption {
	return func(i *Indexer) {
		if extract > 0 {
			i.extractTimeout = extract
		}
		if embed > 0 {
			i.embedTimeout = embed
		}
	}
}

// WithCallRetries sets how often a timed-out extraction or embedding is retried.
func WithCallRetries(n int) IndexerOption {
	return func(i *Indexer) {
		if n >= 0 {
			i.callRetries = n
		}
	}
}

// WithStorageRetries sets how often a transient storage failure is retried.
func WithStorageRetries(n int) IndexerOption {
	return func(i *Indexer) {
		if n >= 0 {
			i.storageRetries = n
		}
	}
}

// WithEmbeddingPolicy selects what happens when a chunk cannot be embedded.
func WithEmbeddingPolicy(p domain.EmbeddingPolicy) IndexerOption {
	return func(i *Indexer) {
		if p.IsValid() {
			i.policy = p
		}
	}
}

// WithTransformCache enables caching of extractor output.
func WithTransformCache(c driven.TransformCache) IndexerOption {
	return func(i *Indexer) {
		i.cache = c
	}
}

// WithDebounce sets the quiet period Watch waits for before re-indexing.
func WithDebounce(d time.Duration) IndexerOption {
	return func(i *Indexer) {
		if d > 0 {
			i.debounce = d
		}
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(fn func() backoff.BackOff) IndexerOption {
	return func(i *Indexer) {
		if fn != nil {
			i.newBackOff = fn
		}
	}
}

// NewIndexer creates an indexer. The same embedder must be handed to the
// SearchService so queries and rows share one embedding identity.
func NewIndexer(
	source driven.Source,
	extractor driven.Extractor,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	exporter driven.Exporter,
	tracking driven.TrackingStore,
	table string,
	opts ...IndexerOption,
) *Indexer {
	defaults := domain.DefaultAppSettings().Pipeline
	i := &Indexer{
		source:           source,
		pipeline:         pipeline,
		embedder:         embedder,
		exporter:         exporter,
		tracking:         tracking,
		table:            table,
		workers:          defaults.Workers,
		embedConcurrency: defaults.EmbedConcurrency,
		extractTimeout:   defaults.ExtractTimeout,
		embedTimeout:     defaults.EmbedTimeout,
		callRetries:      defaults.CallRetries,
		storageRetries:   domain.DefaultAppSettings().Storage.MaxRetries,
		policy:           defaults.EmbeddingPolicy,
		debounce:         DefaultDebounce,
		newBackOff:       defaultBackOff,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.extractor = NewCachedExtractor(extractor, i.cache)
	return i
}

// Fingerprint identifies the pipeline configuration a row set was built with.
func (i *Indexer) Fingerprint() domain.Fingerprint {
	return domain.Fingerprint{
		Extractor: i.extractor.Version(),
		Chunker:   i.pipeline.Version(),
		Embedding: i.embedder.Identity(),
	}
}

// TargetSpec describes the export target this indexer writes to.
func (i *Indexer) TargetSpec() domain.TargetSpec {
	return domain.TargetSpec{
		Name:              i.table,
		Dimensions:        i.embedder.Dimensions(),
		Metric:            domain.MetricCosine,
		EmbeddingIdentity: i.embedder.Identity(),
	}
}

// Run performs one incremental pass over the source.
//
// Per-document extraction, chunking and embedding failures are recorded
// in the returned stats and do not stop the run. Storage failures that
// survive retries abort it.
//
//nolint:gocognit // Orchestration function with necessary sequential steps
func (i *Indexer) Run(ctx context.Context) (*driving.RunStats, error) {
	if !i.begin() {
		return nil, domain.ErrRunInProgress
	}
	defer i.finish()

	started := time.Now()
	logger.Section("Indexing " + i.source.Root())

	if err := i.source.Validate(ctx); err != nil {
		return nil, fmt.Errorf("source %s: %w", i.source.Root(), err)
	}

	// 1. Make sure the export target exists with our dimension and identity
	spec := i.TargetSpec()
	if _, err := storageWithRetry(ctx, i.newBackOff(), i.storageRetries, func() (struct{}, error) {
		return struct{}{}, i.exporter.EnsureTarget(ctx, spec)
	}); err != nil {
		return nil, fmt.Errorf("ensure target %s: %w", spec.Name, err)
	}

	// 2. Scan the source and fan documents out to the worker pool
	run := newRunState(i)
	fp := i.Fingerprint()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	docsCh, errsCh := i.source.FullSync(gctx)
scan:
	for {
		select {
		case <-gctx.Done():
			break scan

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			run.scanError(err)

		case doc, ok := <-docsCh:
			if !ok {
				break scan
			}
			run.seen(doc.Filename)
			g.Go(func() error {
				return i.indexDocument(gctx, &doc, fp, run)
			})
		}
	}

	// Drain trailing scan errors so the source goroutine can finish.
	if errsCh != nil {
		for err := range errsCh {
			run.scanError(err)
		}
	}

	if err := g.Wait(); err != nil {
		return run.finish(started), err
	}
	if err := ctx.Err(); err != nil {
		logger.Info("Indexing cancelled; skipping deletion of removed documents")
		return run.finish(started), err
	}

	// 3. Remove documents that disappeared from the source
	if run.scanIncomplete() {
		logger.Warn("Source scan was incomplete; skipping deletion of removed documents")
	} else if err := i.deleteMissing(ctx, run); err != nil {
		return run.finish(started), err
	}

	stats := run.finish(started)
	logger.Info("Indexed %d documents (%d unchanged, %d failed, %d removed) in %s",
		stats.Processed, stats.Skipped, stats.Failed, stats.Deleted, stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// indexDocument processes one document. A non-nil return aborts the run,
// so only fatal errors are returned; per-document failures are recorded.
func (i *Indexer) indexDocument(
	ctx context.Context, doc *domain.Document, fp domain.Fingerprint, run *runState,
) error {
	rec, err := i.tracking.GetRecord(ctx, doc.Filename)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: read tracking record for %s: %w", domain.ErrStorage, doc.Filename, err)
	}

	if rec != nil && rec.Status == domain.StatusIndexed &&
		rec.ContentHash == doc.ContentHash && rec.Fingerprint == fp.String() {
		count, err := storageWithRetry(ctx, i.newBackOff(), i.storageRetries, func() (int, error) {
			return i.exporter.CountRows(ctx, doc.Filename)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("count rows for %s: %w", doc.Filename, err)
		}
		if count == rec.RowCount {
			logger.Debug("Unchanged: %s", doc.Filename)
			run.skipped()
			return nil
		}
		logger.Info("Re-indexing %s: expected %d rows, found %d", doc.Filename, rec.RowCount, count)
	}

	logger.Debug("Processing: %s", doc.Filename)
	rows, dropped, err := i.buildRows(ctx, doc)
	if ctx.Err() != nil {
		// Nothing is written for a document whose run was cancelled.
		return nil
	}
	if err != nil {
		var item *domain.ItemError
		if !errors.As(err, &item) {
			item = &domain.ItemError{Stage: domain.StageExtract, Filename: doc.Filename, Err: err}
		}
		logger.Warn("Failed to index %s: %v", doc.Filename, item)
		run.failed(item)
		return i.saveRecord(ctx, domain.TrackingRecord{
			Filename:    doc.Filename,
			ContentHash: doc.ContentHash,
			Fingerprint: fp.String(),
			Status:      domain.StatusFailed,
			Error:       item.Error(),
		})
	}

	stats, err := storageWithRetry(ctx, i.newBackOff(), i.storageRetries, func() (domain.UpsertStats, error) {
		return i.exporter.ReplaceDocument(ctx, doc.Filename, rows)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("export %s: %w", doc.Filename, err)
	}

	rec = &domain.TrackingRecord{
		Filename:    doc.Filename,
		ContentHash: doc.ContentHash,
		Fingerprint: fp.String(),
		RowCount:    len(rows),
		Status:      domain.StatusIndexed,
	}
	if len(dropped) > 0 {
		// Leave the document eligible for another attempt on the next run.
		rec.Status = domain.StatusFailed
		rec.Error = errors.Join(itemErrs(dropped)...).Error()
	}
	if err := i.saveRecord(ctx, *rec); err != nil {
		return err
	}
	run.processed(stats, dropped)
	logger.Debug("Exported %s: %d rows (+%d ~%d =%d -%d)", doc.Filename, len(rows),
		stats.Inserted, stats.Updated, stats.Unchanged, stats.Deleted)
	return nil
}

// buildRows extracts, chunks and embeds doc. Under the skip_chunk policy
// chunks that fail to embed are returned as dropped instead of failing
// the document.
func (i *Indexer) buildRows(
	ctx context.Context, doc *domain.Document,
) ([]domain.IndexRow, []*domain.ItemError, error) {
	text, err := callWithRetry(ctx, i.newBackOff(), i.extractTimeout, i.callRetries,
		func(ctx context.Context) (*domain.ExtractedText, error) {
			return i.extractor.Extract(ctx, doc)
		})
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) {
			err = fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}
		return nil, nil, &domain.ItemError{Stage: domain.StageExtract, Filename: doc.Filename, Err: err}
	}

	chunks, err := i.pipeline.Process(ctx, text)
	if err != nil {
		return nil, nil, &domain.ItemError{Stage: domain.StageChunk, Filename: doc.Filename, Err: err}
	}

	collector := NewCollector(doc.Filename)
	var (
		mu      sync.Mutex
		dropped []*domain.ItemError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.embedConcurrency)
	for _, chunk := range chunks {
		g.Go(func() error {
			vec, err := callWithRetry(gctx, i.newBackOff(), i.embedTimeout, i.callRetries,
				func(ctx context.Context) ([]float32, error) {
					return i.embedder.Embed(ctx, chunk.Text)
				})
			if err != nil {
				if !errors.Is(err, domain.ErrEmbedding) {
					err = fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
				}
				loc := chunk.Location
				item := &domain.ItemError{Stage: domain.StageEmbed, Filename: doc.Filename, Location: &loc, Err: err}
				if i.policy == domain.PolicySkipChunk && ctx.Err() == nil {
					logger.Warn("Dropping chunk: %v", item)
					mu.Lock()
					dropped = append(dropped, item)
					mu.Unlock()
					return nil
				}
				return item
			}
			collector.Add(chunk, vec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(dropped, func(a, b int) bool {
		return dropped[a].Location.Start < dropped[b].Location.Start
	})
	return collector.Rows(), dropped, nil
}

// deleteMissing removes rows and tracking records of documents that were
// not seen in this run's scan.
func (i *Indexer) deleteMissing(ctx context.Context, run *runState) error {
	records, err := i.tracking.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("%w: list tracking records: %w", domain.ErrStorage, err)
	}

	for _, rec := range records {
		if run.wasSeen(rec.Filename) {
			continue
		}
		n, err := storageWithRetry(ctx, i.newBackOff(), i.storageRetries, func() (int, error) {
			return i.exporter.DeleteDocument(ctx, rec.Filename)
		})
		if err != nil {
			return fmt.Errorf("delete rows of %s: %w", rec.Filename, err)
		}
		if err := i.tracking.DeleteRecord(ctx, rec.Filename); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: delete tracking record for %s: %w", domain.ErrStorage, rec.Filename, err)
		}
		logger.Info("Removed %s (%d rows)", rec.Filename, n)
		run.deleted(n)
	}
	return nil
}

func (i *Indexer) saveRecord(ctx context.Context, rec domain.TrackingRecord) error {
	rec.UpdatedAt = time.Now()
	if err := i.tracking.SaveRecord(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: save tracking record for %s: %w", domain.ErrStorage, rec.Filename, err)
	}
	return nil
}

// Watch indexes once, then re-indexes whenever the source reports changes,
// waiting for the debounce period after the last change. It returns when
// ctx is cancelled or a run fails fatally.
func (i *Indexer) Watch(ctx context.Context) error {
	if _, err := i.Run(ctx); err != nil {
		return err
	}

	changes, err := i.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", i.source.Root(), err)
	}
	logger.Info("Watching %s for changes", i.source.Root())

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("Change: %s %s", change.Type, change.Document.Filename)
			settle = time.After(i.debounce)

		case <-settle:
			settle = nil
			if _, err := i.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Status returns the live counters of the current or last run.
func (i *Indexer) Status() driving.IndexStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Documents returns the tracking records of all known documents.
func (i *Indexer) Documents(ctx context.Context) ([]domain.TrackingRecord, error) {
	records, err := i.tracking.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tracking records: %w", domain.ErrStorage, err)
	}
	return records, nil
}

// PruneCache drops cached extractions made by other extractor versions.
func (i *Indexer) PruneCache(ctx context.Context) (int, error) {
	n, err := i.extractor.Prune(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: prune transform cache: %w", domain.ErrStorage, err)
	}
	return n, nil
}

func (i *Indexer) begin() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.Running {
		return false
	}
	i.status = driving.IndexStatus{Running: true, LastRun: i.status.LastRun}
	return true
}

func (i *Indexer) finish() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status.Running = false
	i.status.LastRun = time.Now()
}

// runState accumulates the stats of one run. Workers update it concurrently.
type runState struct {
	indexer *Indexer

	mu    sync.Mutex
	stats driving.RunStats
	names map[string]struct{}

	// incomplete is set when the scan failed outside any single file.
	incomplete bool
}

func newRunState(i *Indexer) *runState {
	return &runState{indexer: i, names: make(map[string]struct{})}
}

func (r *runState) seen(filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[filename] = struct{}{}
	r.stats.Scanned++
}

func (r *runState) scanIncomplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.incomplete
}

func (r *runState) wasSeen(filename string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[filename]
	return ok
}

// scanError records a source error. A file that failed to read still
// exists, so it is marked seen to keep its rows.
func (r *runState) scanError(err error) {
	var item *domain.ItemError
	if !errors.As(err, &item) {
		item = &domain.ItemError{Stage: domain.StageScan, Err: err}
	}
	logger.Warn("Scan error: %v", item)

	r.mu.Lock()
	if item.Filename != "" {
		r.names[item.Filename] = struct{}{}
	} else {
		r.incomplete = true
	}
	r.stats.Failures = append(r.stats.Failures, item)
	r.mu.Unlock()
	r.bump(0, 1)
}

func (r *runState) skipped() {
	r.mu.Lock()
	r.stats.Skipped++
	r.mu.Unlock()
	r.bump(1, 0)
}

func (r *runState) processed(stats domain.UpsertStats, dropped []*domain.ItemError) {
	r.mu.Lock()
	r.stats.Processed++
	r.stats.Rows.Add(stats)
	r.stats.Failures = append(r.stats.Failures, dropped...)
	r.mu.Unlock()
	r.bump(1, len(dropped))
}

func (r *runState) failed(item *domain.ItemError) {
	r.mu.Lock()
	r.stats.Failed++
	r.stats.Failures = append(r.stats.Failures, item)
	r.mu.Unlock()
	r.bump(0, 1)
}

func (r *runState) deleted(rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Deleted++
	r.stats.Rows.Deleted += rows
}

// bump updates the indexer's live status.
func (r *runState) bump(docs, errs int) {
	r.indexer.mu.Lock()
	defer r.indexer.mu.Unlock()
	r.indexer.status.DocumentsProcessed += docs
	r.indexer.status.ErrorCount += errs
}

func (r *runState) finish(started time.Time) *driving.RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.stats
	stats.Failures = append([]*domain.ItemError(nil), r.stats.Failures...)
	sort.SliceStable(stats.Failures, func(a, b int) bool {
		return stats.Failures[a].Filename < stats.Failures[b].Filename
	})
	stats.Duration = time.Since(started)
	return &stats
}

func itemErrs(items []*domain.ItemError) []error {
	errs := make([]error, len(items))
	for n, item := range items {
		errs[n] = item
	}
	return errs
}
