package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySourcePath         = "source.path"
	keyExtractionProvider = "extraction.provider"
	keyDocAIProject       = "documentai.project_id"
	keyDocAILocation      = "documentai.location"
	keyDocAIProcessor     = "documentai.processor_id"
	keyDocAIVersion       = "documentai.processor_version"
	keyDocAIMIMEType      = "documentai.mime_type"
	keyDocAIRate          = "documentai.requests_per_second"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDims          = "embedding.dimensions"
	keyEmbedMaxInput      = "embedding.max_input_chars"
	keyEmbedRate          = "embedding.requests_per_second"
	keyChunkSize          = "chunker.chunk_size"
	keyChunkOverlap       = "chunker.chunk_overlap"
	keyChunkMinLevel      = "chunker.min_level"
	keyStorageDriver      = "storage.driver"
	keyStorageURL         = "storage.url"
	keyStorageDataDir     = "storage.data_dir"
	keyStorageTable       = "storage.table"
	keyStorageMaxConns    = "storage.max_open_conns"
	keyStorageRetries     = "storage.max_retries"
	keyWorkers            = "pipeline.workers"
	keyEmbedConcurrency   = "pipeline.embed_concurrency"
	keyExtractTimeout     = "pipeline.extract_timeout"
	keyEmbedTimeout       = "pipeline.embed_timeout"
	keyCallRetries        = "pipeline.call_retries"
	keyEmbeddingPolicy    = "pipeline.embedding_policy"
	keyProcessors         = "pipeline.processors"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

// settingKinds lists every recognised key and how its value is parsed.
var settingKinds = map[string]valueKind{
	keySourcePath:         kindString,
	keyExtractionProvider: kindString,
	keyDocAIProject:       kindString,
	keyDocAILocation:      kindString,
	keyDocAIProcessor:     kindString,
	keyDocAIVersion:       kindString,
	keyDocAIMIMEType:      kindString,
	keyDocAIRate:          kindFloat,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedDims:          kindInt,
	keyEmbedMaxInput:      kindInt,
	keyEmbedRate:          kindFloat,
	keyChunkSize:          kindInt,
	keyChunkOverlap:       kindInt,
	keyChunkMinLevel:      kindString,
	keyStorageDriver:      kindString,
	keyStorageURL:         kindString,
	keyStorageDataDir:     kindString,
	keyStorageTable:       kindString,
	keyStorageMaxConns:    kindInt,
	keyStorageRetries:     kindInt,
	keyWorkers:            kindInt,
	keyEmbedConcurrency:   kindInt,
	keyExtractTimeout:     kindDuration,
	keyEmbedTimeout:       kindDuration,
	keyCallRetries:        kindInt,
	keyEmbeddingPolicy:    kindString,
	keyProcessors:         kindList,
}

// envOverrides maps keys to the environment variables that override them,
// in order of precedence.
var envOverrides = map[string][]string{
	keySourcePath:      {"DOCINDEX_SOURCE_PATH"},
	keyDocAIProject:    {"GOOGLE_CLOUD_PROJECT_ID"},
	keyDocAILocation:   {"GOOGLE_CLOUD_LOCATION"},
	keyDocAIProcessor:  {"GOOGLE_CLOUD_PROCESSOR_ID"},
	keyDocAIVersion:    {"GOOGLE_CLOUD_PROCESSOR_VERSION"},
	keyEmbedProvider:   {"DOCINDEX_EMBEDDING_PROVIDER"},
	keyEmbedModel:      {"DOCINDEX_EMBEDDING_MODEL"},
	keyEmbedBaseURL:    {"DOCINDEX_EMBEDDING_BASE_URL"},
	keyEmbedAPIKey:     {"OPENAI_API_KEY"},
	keyStorageDriver:   {"DOCINDEX_STORAGE_DRIVER"},
	keyStorageURL:      {"COCOINDEX_DATABASE_URL", "DATABASE_URL"},
	keyStorageDataDir:  {"DOCINDEX_DATA_DIR"},
	keyWorkers:         {"DOCINDEX_WORKERS"},
	keyEmbeddingPolicy: {"DOCINDEX_EMBEDDING_POLICY"},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process
// environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup, for tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	r := &reader{s: s}

	settings := &domain.AppSettings{
		Source: domain.SourceSettings{
			Path: r.stringVal(keySourcePath, d.Source.Path),
		},
		Extraction: domain.ExtractionSettings{
			Provider: domain.ExtractionProvider(r.stringVal(keyExtractionProvider, string(d.Extraction.Provider))),
			DocumentAI: domain.DocumentAISettings{
				ProjectID:         r.stringVal(keyDocAIProject, ""),
				Location:          r.stringVal(keyDocAILocation, d.Extraction.DocumentAI.Location),
				ProcessorID:       r.stringVal(keyDocAIProcessor, ""),
				ProcessorVersion:  r.stringVal(keyDocAIVersion, ""),
				MIMEType:          r.stringVal(keyDocAIMIMEType, d.Extraction.DocumentAI.MIMEType),
				RequestsPerSecond: r.floatVal(keyDocAIRate, d.Extraction.DocumentAI.RequestsPerSecond),
			},
		},
		Embedding: domain.EmbeddingSettings{
			Provider:      domain.AIProvider(r.stringVal(keyEmbedProvider, string(d.Embedding.Provider))),
			BaseURL:       r.stringVal(keyEmbedBaseURL, ""),
			APIKey:        r.stringVal(keyEmbedAPIKey, ""),
			Dimensions:    r.intVal(keyEmbedDims, 0),
			MaxInputChars: r.intVal(keyEmbedMaxInput, d.Embedding.MaxInputChars),

			RequestsPerSecond: r.floatVal(keyEmbedRate, d.Embedding.RequestsPerSecond),
		},
		Storage: domain.StorageSettings{
			Driver:       domain.StorageDriver(r.stringVal(keyStorageDriver, string(d.Storage.Driver))),
			URL:          r.stringVal(keyStorageURL, ""),
			DataDir:      r.stringVal(keyStorageDataDir, ""),
			Table:        r.stringVal(keyStorageTable, d.Storage.Table),
			MaxOpenConns: r.intVal(keyStorageMaxConns, d.Storage.MaxOpenConns),
			MaxRetries:   r.intVal(keyStorageRetries, d.Storage.MaxRetries),
		},
		Pipeline: domain.PipelineSettings{
			Workers:          r.intVal(keyWorkers, d.Pipeline.Workers),
			EmbedConcurrency: r.intVal(keyEmbedConcurrency, d.Pipeline.EmbedConcurrency),
			ExtractTimeout:   r.durationVal(keyExtractTimeout, d.Pipeline.ExtractTimeout),
			EmbedTimeout:     r.durationVal(keyEmbedTimeout, d.Pipeline.EmbedTimeout),
			CallRetries:      r.intVal(keyCallRetries, d.Pipeline.CallRetries),
			EmbeddingPolicy:  domain.EmbeddingPolicy(r.stringVal(keyEmbeddingPolicy, string(d.Pipeline.EmbeddingPolicy))),
		},
		Processors: s.pipelineConfig(r),
	}

	// Model and base URL defaults depend on the chosen provider
	provider := settings.Embedding.Provider
	settings.Embedding.Model = r.stringVal(keyEmbedModel, domain.DefaultEmbeddingModels()[provider])
	if settings.Embedding.BaseURL == "" && provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = d.Embedding.BaseURL
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return settings, nil
}

// pipelineConfig returns the post-processor pipeline configuration.
func (s *SettingsService) pipelineConfig(r *reader) domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice(keyProcessors); len(processors) > 0 {
		cfg.Processors = processors
	}

	chunker := cfg.ProcessorConfigs["chunker"]
	if _, ok := r.lookup(keyChunkSize); ok {
		chunker["chunk_size"] = r.intVal(keyChunkSize, 0)
	}
	if _, ok := r.lookup(keyChunkOverlap); ok {
		chunker["overlap"] = r.intVal(keyChunkOverlap, 0)
	}
	if level := r.stringVal(keyChunkMinLevel, ""); level != "" {
		chunker["min_level"] = level
	}
	return cfg
}

// Save writes every setting to the config store. Secrets supplied through
// the environment are not written back.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrInvalidArgument)
	}

	values := map[string]any{
		keySourcePath:         settings.Source.Path,
		keyExtractionProvider: string(settings.Extraction.Provider),
		keyDocAIProject:       settings.Extraction.DocumentAI.ProjectID,
		keyDocAILocation:      settings.Extraction.DocumentAI.Location,
		keyDocAIProcessor:     settings.Extraction.DocumentAI.ProcessorID,
		keyDocAIVersion:       settings.Extraction.DocumentAI.ProcessorVersion,
		keyDocAIMIMEType:      settings.Extraction.DocumentAI.MIMEType,
		keyDocAIRate:          settings.Extraction.DocumentAI.RequestsPerSecond,
		keyEmbedProvider:      string(settings.Embedding.Provider),
		keyEmbedModel:         settings.Embedding.Model,
		keyEmbedBaseURL:       settings.Embedding.BaseURL,
		keyEmbedDims:          settings.Embedding.Dimensions,
		keyEmbedMaxInput:      settings.Embedding.MaxInputChars,
		keyEmbedRate:          settings.Embedding.RequestsPerSecond,
		keyStorageDriver:      string(settings.Storage.Driver),
		keyStorageDataDir:     settings.Storage.DataDir,
		keyStorageTable:       settings.Storage.Table,
		keyStorageMaxConns:    settings.Storage.MaxOpenConns,
		keyStorageRetries:     settings.Storage.MaxRetries,
		keyWorkers:            settings.Pipeline.Workers,
		keyEmbedConcurrency:   settings.Pipeline.EmbedConcurrency,
		keyExtractTimeout:     settings.Pipeline.ExtractTimeout.String(),
		keyEmbedTimeout:       settings.Pipeline.EmbedTimeout.String(),
		keyCallRetries:        settings.Pipeline.CallRetries,
		keyEmbeddingPolicy:    string(settings.Pipeline.EmbeddingPolicy),
	}
	if _, fromEnv := s.env(keyEmbedAPIKey); !fromEnv && settings.Embedding.APIKey != "" {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}
	if _, fromEnv := s.env(keyStorageURL); !fromEnv && settings.Storage.URL != "" {
		values[keyStorageURL] = settings.Storage.URL
	}
	if chunker := settings.Processors.GetProcessorConfig("chunker"); chunker != nil {
		for src, dst := range map[string]string{
			"chunk_size": keyChunkSize,
			"overlap":    keyChunkOverlap,
			"min_level":  keyChunkMinLevel,
		} {
			if v, ok := chunker[src]; ok {
				values[dst] = v
			}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.configStore.Set(k, values[k]); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return s.configStore.Save()
}

// Set parses value according to key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrConfiguration, key)
	}

	var v any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %w", domain.ErrConfiguration, key, err)
		}
		v = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %w", domain.ErrConfiguration, key, err)
		}
		v = f
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration: %w", domain.ErrConfiguration, key, err)
		}
		v = value
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		v = items
	default:
		v = value
	}
	return s.configStore.Set(key, v)
}

// Keys lists every recognised configuration key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigPath returns the config file location.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// env returns the first set environment override for key.
func (s *SettingsService) env(key string) (string, bool) {
	for _, name := range envOverrides[key] {
		if v, ok := s.lookupEnv(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// reader resolves individual keys and collects parse errors.
type reader struct {
	s    *SettingsService
	errs []error
}

// lookup returns the raw value of key: environment first, then config file.
func (r *reader) lookup(key string) (any, bool) {
	if v, ok := r.s.env(key); ok {
		return v, true
	}
	return r.s.configStore.Get(key)
}

func (r *reader) stringVal(key, defaultVal string) string {
	val, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	str, ok := val.(string)
	if !ok || str == "" {
		return defaultVal
	}
	return str
}

func (r *reader) intVal(key string, defaultVal int) int {
	val, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrConfiguration, key, v))
			return defaultVal
		}
		return n
	default:
		r.errs = append(r.errs, fmt.Errorf("%w: %s must be an integer, got %v", domain.ErrConfiguration, key, v))
		return defaultVal
	}
}

func (r *reader) floatVal(key string, defaultVal float64) float64 {
	val, ok := r.lookup(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrConfiguration, key, v))
			return defaultVal
		}
		return f
	default:
		r.errs = append(r.errs, fmt.Errorf("%w: %s must be a number, got %v", domain.ErrConfiguration, key, v))
		return defaultVal
	}
}

func (r *reader) durationVal(key string, defaultVal time.Duration) time.Duration {
	str := r.stringVal(key, "")
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s must be a duration, got %q", domain.ErrConfiguration, key, str))
		return defaultVal
	}
	return d
}
