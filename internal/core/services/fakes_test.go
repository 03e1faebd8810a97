package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// --- Hand-written fakes shared by the service tests ---

// fakeSource implements driven.Source over a fixed document list.
type fakeSource struct {
	mu      sync.Mutex
	docs    []*domain.Document
	errs    []error
	changes chan domain.DocumentChange
}

func newFakeSource(docs ...*domain.Document) *fakeSource {
	return &fakeSource{docs: docs, changes: make(chan domain.DocumentChange, 16)}
}

func (s *fakeSource) set(docs ...*domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docs
}

func (s *fakeSource) Type() string                     { return "fake" }
func (s *fakeSource) Root() string                     { return "/corpus" }
func (s *fakeSource) Validate(_ context.Context) error { return nil }
func (s *fakeSource) Close() error                     { return nil }

func (s *fakeSource) FullSync(ctx context.Context) (<-chan domain.Document, <-chan error) {
	s.mu.Lock()
	docs := append([]*domain.Document(nil), s.docs...)
	errList := append([]error(nil), s.errs...)
	s.mu.Unlock()

	docsCh := make(chan domain.Document)
	errsCh := make(chan error, len(errList))
	go func() {
		defer close(docsCh)
		defer close(errsCh)
		for _, err := range errList {
			errsCh <- err
		}
		for _, doc := range docs {
			select {
			case <-ctx.Done():
				return
			case docsCh <- *doc:
			}
		}
	}()
	return docsCh, errsCh
}

func (s *fakeSource) Watch(_ context.Context) (<-chan domain.DocumentChange, error) {
	return s.changes, nil
}

// fakeExtractor returns the document bytes as text.
type fakeExtractor struct {
	version string

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{version: "fake@v1", calls: make(map[string]int), fail: make(map[string]error)}
}

func (e *fakeExtractor) Name() string                 { return "fake" }
func (e *fakeExtractor) Version() string              { return e.version }
func (e *fakeExtractor) SupportedMIMETypes() []string { return []string{"text/plain"} }

func (e *fakeExtractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractedText, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[doc.Filename]++
	if err := e.fail[doc.Filename]; err != nil {
		return nil, err
	}
	return &domain.ExtractedText{Filename: doc.Filename, Text: string(doc.Content)}, nil
}

func (e *fakeExtractor) callCount(filename string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[filename]
}

func (e *fakeExtractor) failOn(filename string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.fail, filename)
		return
	}
	e.fail[filename] = err
}

// paragraphPipeline splits text on blank lines, keeping byte offsets.
type paragraphPipeline struct{}

var _ driven.PostProcessorPipeline = paragraphPipeline{}

func (paragraphPipeline) Version() string { return "paragraphs@v1" }

func (paragraphPipeline) Process(_ context.Context, text *domain.ExtractedText) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	start := 0
	for _, part := range strings.SplitAfter(text.Text, "\n\n") {
		end := start + len(part)
		if strings.TrimSpace(part) != "" {
			chunks = append(chunks, domain.Chunk{
				Filename: text.Filename,
				Location: domain.Location{Start: start, End: end},
				Text:     part,
			})
		}
		start = end
	}
	return chunks, nil
}

// fakeEmbedder maps text to a deterministic vector.
type fakeEmbedder struct {
	identity string
	dims     int

	mu    sync.Mutex
	calls int
	hangs int
	fail  func(text string) error
	fixed map[string][]float32
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{identity: "fake/model@3", dims: 3}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	hang := f.hangs > 0
	if hang {
		f.hangs--
	}
	fail := f.fail
	vec, fixed := f.fixed[text]
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail != nil {
		if err := fail(text); err != nil {
			return nil, err
		}
	}
	if fixed {
		return vec, nil
	}
	return vectorFor(text, f.dims), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return f.dims }
func (f *fakeEmbedder) ModelName() string            { return "model" }
func (f *fakeEmbedder) Identity() string             { return f.identity }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func vectorFor(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i := range vec {
		sum := 0
		for _, b := range []byte(text) {
			sum += int(b) * (i + 1)
		}
		vec[i] = float32(sum%101 + 1)
	}
	return vec
}

// flakyExporter wraps an Exporter and fails ReplaceDocument a set number
// of times with the given error.
type flakyExporter struct {
	driven.Exporter

	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (e *flakyExporter) ReplaceDocument(
	ctx context.Context, filename string, rows []domain.IndexRow,
) (domain.UpsertStats, error) {
	e.mu.Lock()
	e.calls++
	if e.failures != 0 {
		if e.failures > 0 {
			e.failures--
		}
		e.mu.Unlock()
		return domain.UpsertStats{}, e.err
	}
	e.mu.Unlock()
	return e.Exporter.ReplaceDocument(ctx, filename, rows)
}

func textDoc(name, content string) *domain.Document {
	return domain.NewDocument(name, "text/plain", []byte(content))
}

func paragraphs(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s paragraph %d has some words in it.", prefix, i)
	}
	return strings.Join(parts, "\n\n")
}
