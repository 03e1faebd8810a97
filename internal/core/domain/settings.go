package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ExtractionProvider identifies the backend used to turn documents into text.
type ExtractionProvider string

// Available extraction providers.
const (
	// ExtractionDocumentAI sends documents to Google Cloud Document AI.
	ExtractionDocumentAI ExtractionProvider = "documentai"

	// ExtractionPlaintext reads UTF-8 text files as-is.
	ExtractionPlaintext ExtractionProvider = "plaintext"
)

// IsValid returns true if the provider is recognised.
func (p ExtractionProvider) IsValid() bool {
	return p == ExtractionDocumentAI || p == ExtractionPlaintext
}

// StorageDriver identifies the export target backend.
type StorageDriver string

// Available storage drivers.
const (
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
	StorageMemory   StorageDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StoragePostgres, StorageSQLite, StorageMemory:
		return true
	default:
		return false
	}
}

// EmbeddingPolicy decides what happens to a document when one of its
// chunks cannot be embedded.
type EmbeddingPolicy string

// Available embedding policies.
const (
	// PolicySkipDocument fails the whole document so it is never half-exported.
	PolicySkipDocument EmbeddingPolicy = "skip_document"

	// PolicySkipChunk drops the failing chunk and exports the rest.
	PolicySkipChunk EmbeddingPolicy = "skip_chunk"
)

// IsValid returns true if the policy is recognised.
func (p EmbeddingPolicy) IsValid() bool {
	return p == PolicySkipDocument || p == PolicySkipChunk
}

// SourceSettings locates the document corpus.
type SourceSettings struct {
	// Path is the directory that is scanned for documents.
	Path string
}

// DocumentAISettings holds Google Cloud Document AI configuration.
type DocumentAISettings struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string

	// MIMEType is sent for documents whose type could not be detected.
	MIMEType string

	// RequestsPerSecond paces calls to the processor.
	RequestsPerSecond float64
}

// ExtractionSettings selects and configures the extractor.
type ExtractionSettings struct {
	Provider   ExtractionProvider
	DocumentAI DocumentAISettings
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known vector size.
	Dimensions int

	// MaxInputChars rejects chunks longer than this many characters.
	MaxInputChars int

	// RequestsPerSecond paces calls to the provider. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// StorageSettings configures the export target.
type StorageSettings struct {
	Driver StorageDriver

	// URL is the Postgres connection string.
	URL string

	// DataDir holds the sqlite database file and local state.
	DataDir string

	// Table is the export table name.
	Table string

	MaxOpenConns int
	MaxRetries   int
}

// PipelineSettings bounds concurrency and per-call latency.
type PipelineSettings struct {
	Workers          int
	EmbedConcurrency int
	ExtractTimeout   time.Duration
	EmbedTimeout     time.Duration

	// CallRetries is how many times a timed-out call is retried.
	CallRetries int

	EmbeddingPolicy EmbeddingPolicy
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// AppSettings holds all application settings.
type AppSettings struct {
	Source     SourceSettings
	Extraction ExtractionSettings
	Embedding  EmbeddingSettings
	Storage    StorageSettings
	Pipeline   PipelineSettings
	Processors PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// Document AI's processor ID has no default and must be supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Source: SourceSettings{Path: "pdf_files"},
		Extraction: ExtractionSettings{
			Provider: ExtractionDocumentAI,
			DocumentAI: DocumentAISettings{
				Location:          "us",
				MIMEType:          "application/pdf",
				RequestsPerSecond: 5,
			},
		},
		Embedding: EmbeddingSettings{
			Provider:      AIProviderOllama,
			Model:         "all-minilm",
			BaseURL:       "http://localhost:11434",
			MaxInputChars: 8192,
		},
		Storage: StorageSettings{
			Driver:       StoragePostgres,
			Table:        "doc_embeddings",
			MaxOpenConns: 8,
			MaxRetries:   3,
		},
		Pipeline: PipelineSettings{
			Workers:          4,
			EmbedConcurrency: 4,
			ExtractTimeout:   2 * time.Minute,
			EmbedTimeout:     30 * time.Second,
			CallRetries:      2,
			EmbeddingPolicy:  PolicySkipDocument,
		},
		Processors: DefaultPipelineConfig(),
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
// Markdown-aware chunks of 2000 characters with 500 characters of overlap.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 2000,
				"overlap":    500,
				"min_level":  "character",
			},
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// ResolvedDimensions returns the explicit dimension override, or the known
// size for the configured model, or 0 if neither is available.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

func missing(key, env string) error {
	if env == "" {
		return fmt.Errorf("%w: %s is required", ErrConfiguration, key)
	}
	return fmt.Errorf("%w: %s is required (set %s)", ErrConfiguration, key, env)
}

func invalid(key string, value any) error {
	return fmt.Errorf("%w: %s has invalid value %v", ErrConfiguration, key, value)
}

// Validate reports every missing or invalid setting.
// Each error wraps ErrConfiguration and names the key and environment variable.
func (s AppSettings) Validate() error {
	var errs []error

	if s.Source.Path == "" {
		errs = append(errs, missing("source.path", "DOCINDEX_SOURCE_PATH"))
	}

	switch s.Extraction.Provider {
	case ExtractionDocumentAI:
		d := s.Extraction.DocumentAI
		if d.ProjectID == "" {
			errs = append(errs, missing("documentai.project_id", "GOOGLE_CLOUD_PROJECT_ID"))
		}
		if d.Location == "" {
			errs = append(errs, missing("documentai.location", "GOOGLE_CLOUD_LOCATION"))
		}
		if d.ProcessorID == "" {
			errs = append(errs, missing("documentai.processor_id", "GOOGLE_CLOUD_PROCESSOR_ID"))
		}
	case ExtractionPlaintext:
	default:
		errs = append(errs, invalid("extraction.provider", s.Extraction.Provider))
	}

	if !s.Embedding.Provider.IsValid() {
		errs = append(errs, invalid("embedding.provider", s.Embedding.Provider))
	} else if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		errs = append(errs, missing("embedding.api_key", "OPENAI_API_KEY"))
	}
	if s.Embedding.Model == "" {
		errs = append(errs, missing("embedding.model", ""))
	}

	switch s.Storage.Driver {
	case StoragePostgres:
		if s.Storage.URL == "" {
			errs = append(errs, missing("storage.url", "COCOINDEX_DATABASE_URL"))
		}
	case StorageSQLite, StorageMemory:
	default:
		errs = append(errs, invalid("storage.driver", s.Storage.Driver))
	}
	if s.Storage.Table == "" {
		errs = append(errs, missing("storage.table", ""))
	}

	if s.Pipeline.Workers <= 0 {
		errs = append(errs, invalid("pipeline.workers", s.Pipeline.Workers))
	}
	if s.Pipeline.EmbedConcurrency <= 0 {
		errs = append(errs, invalid("pipeline.embed_concurrency", s.Pipeline.EmbedConcurrency))
	}
	if !s.Pipeline.EmbeddingPolicy.IsValid() {
		errs = append(errs, invalid("pipeline.embedding_policy", s.Pipeline.EmbeddingPolicy))
	}

	return errors.Join(errs...)
}
