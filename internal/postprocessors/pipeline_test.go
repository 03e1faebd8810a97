package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name    string
	version string
	chunks  []domain.Chunk
	err     error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Version() string {
	if m.version == "" {
		return "v0"
	}
	return m.version
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.ExtractedText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

func sampleText() *domain.ExtractedText {
	return &domain.ExtractedText{Filename: "doc.pdf", Text: "test content"}
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.Len() != 0 {
		t.Errorf("expected 0 processors, got %d", p.Len())
	}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "test"})

	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
}

func TestPipeline_Version(t *testing.T) {
	p := NewPipeline(
		&mockProcessor{name: "chunker", version: "v1/2000/500/character"},
		&mockProcessor{name: "dedupe", version: "v2"},
	)

	want := "chunker@v1/2000/500/character+dedupe@v2"
	if p.Version() != want {
		t.Errorf("expected version %q, got %q", want, p.Version())
	}
}

func TestPipeline_Process_NilText(t *testing.T) {
	p := NewPipeline()

	_, err := p.Process(context.Background(), nil)
	if err == nil {
		t.Error("expected error for nil text")
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	p := NewPipeline()

	chunks, err := p.Process(context.Background(), sampleText())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks from empty pipeline, got %v", chunks)
	}
}

func TestPipeline_Process_SingleProcessor(t *testing.T) {
	expectedChunks := []domain.Chunk{
		{Filename: "doc.pdf", Location: domain.Location{Start: 0, End: 4}, Text: "test"},
	}

	p := NewPipeline(&mockProcessor{
		name:   "chunker",
		chunks: expectedChunks,
	})

	chunks, err := p.Process(context.Background(), sampleText())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != len(expectedChunks) {
		t.Errorf("expected %d chunks, got %d", len(expectedChunks), len(chunks))
	}
}

func TestPipeline_Process_MultipleProcessors(t *testing.T) {
	firstChunks := []domain.Chunk{
		{Filename: "doc.pdf", Text: "first"},
	}
	secondChunks := []domain.Chunk{
		{Filename: "doc.pdf", Text: "modified"},
		{Filename: "doc.pdf", Text: "added"},
	}

	p := NewPipeline(
		&mockProcessor{name: "first", chunks: firstChunks},
		&mockProcessor{name: "second", chunks: secondChunks},
	)

	chunks, err := p.Process(context.Background(), sampleText())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != len(secondChunks) {
		t.Errorf("expected %d chunks, got %d", len(secondChunks), len(chunks))
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")

	p := NewPipeline(&mockProcessor{
		name: "failing",
		err:  expectedErr,
	})

	_, err := p.Process(context.Background(), sampleText())
	if err == nil {
		t.Error("expected error from failing processor")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error, got: %v", err)
	}
}

func TestPipeline_Process_PassthroughProcessor(t *testing.T) {
	initialChunks := []domain.Chunk{
		{Filename: "doc.pdf", Text: "test"},
	}

	p := NewPipeline(
		&mockProcessor{name: "chunker", chunks: initialChunks},
		&mockProcessor{name: "passthrough"}, // Returns received chunks unchanged
	)

	chunks, err := p.Process(context.Background(), sampleText())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != len(initialChunks) {
		t.Errorf("expected %d chunks, got %d", len(initialChunks), len(chunks))
	}
}
