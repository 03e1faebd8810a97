package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore()).WithEnv(envMap(nil))

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Source, settings.Source)
	assert.Equal(t, defaults.Extraction, settings.Extraction)
	assert.Equal(t, defaults.Embedding, settings.Embedding)
	assert.Equal(t, defaults.Storage, settings.Storage)
	assert.Equal(t, defaults.Pipeline, settings.Pipeline)
	assert.Equal(t, defaults.Processors, settings.Processors)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"source.path":                    "docs",
		"extraction.provider":            "plaintext",
		"embedding.provider":             "openai",
		"documentai.requests_per_second": int64(2),
		"storage.driver":                 "sqlite",
		"pipeline.workers":               int64(8),
		"pipeline.embed_timeout":         "45s",
		"chunker.chunk_size":             int64(1000),
		"chunker.chunk_overlap":          int64(0),
		"chunker.min_level":              "paragraph",
	})
	service := NewSettingsService(store).WithEnv(envMap(nil))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "docs", settings.Source.Path)
	assert.Equal(t, domain.ExtractionPlaintext, settings.Extraction.Provider)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model, "model default follows the provider")
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.InDelta(t, 2.0, settings.Extraction.DocumentAI.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.StorageSQLite, settings.Storage.Driver)
	assert.Equal(t, 8, settings.Pipeline.Workers)
	assert.Equal(t, 45*time.Second, settings.Pipeline.EmbedTimeout)

	chunker := settings.Processors.GetProcessorConfig("chunker")
	assert.Equal(t, 1000, chunker["chunk_size"])
	assert.Equal(t, 0, chunker["overlap"], "an explicit zero overlap is kept")
	assert.Equal(t, "paragraph", chunker["min_level"])
}

func TestSettingsService_Get_EnvironmentOverridesFile(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"documentai.project_id": "from-file",
		"storage.url":           "postgres://file",
	})
	service := NewSettingsService(store).WithEnv(envMap(map[string]string{
		"GOOGLE_CLOUD_PROJECT_ID":   "from-env",
		"GOOGLE_CLOUD_PROCESSOR_ID": "proc-123",
		"DATABASE_URL":              "postgres://fallback",
		"COCOINDEX_DATABASE_URL":    "postgres://primary",
		"OPENAI_API_KEY":            "sk-test",
		"DOCINDEX_WORKERS":          "12",
	}))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.Extraction.DocumentAI.ProjectID)
	assert.Equal(t, "proc-123", settings.Extraction.DocumentAI.ProcessorID)
	assert.Equal(t, "postgres://primary", settings.Storage.URL)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, 12, settings.Pipeline.Workers)
}

func TestSettingsService_Get_MalformedValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"pipeline.extract_timeout": "soon",
		"pipeline.workers":         true,
	})
	service := NewSettingsService(store).WithEnv(envMap(nil))

	_, err := service.Get()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "pipeline.extract_timeout")
	assert.Contains(t, err.Error(), "pipeline.workers")
}

func TestSettingsService_Validate_MissingProcessorID(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore()).WithEnv(envMap(map[string]string{
		"GOOGLE_CLOUD_PROJECT_ID": "p",
		"COCOINDEX_DATABASE_URL":  "postgres://x",
	}))

	settings, err := service.Get()
	require.NoError(t, err)

	err = settings.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROCESSOR_ID")
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store).WithEnv(envMap(nil))

	require.NoError(t, service.Set("pipeline.workers", "6"))
	require.NoError(t, service.Set("documentai.requests_per_second", "1.5"))
	require.NoError(t, service.Set("pipeline.embed_timeout", "1m"))
	require.NoError(t, service.Set("pipeline.processors", "chunker, dedupe"))
	require.NoError(t, service.Set("embedding.model", "nomic-embed-text"))

	assert.Equal(t, 6, store.GetInt("pipeline.workers"))
	assert.InDelta(t, 1.5, store.GetFloat("documentai.requests_per_second"), 1e-9)
	assert.Equal(t, "1m", store.GetString("pipeline.embed_timeout"))
	assert.Equal(t, []string{"chunker", "dedupe"}, store.GetStringSlice("pipeline.processors"))

	assert.ErrorIs(t, service.Set("pipeline.workers", "many"), domain.ErrConfiguration)
	assert.ErrorIs(t, service.Set("pipeline.embed_timeout", "later"), domain.ErrConfiguration)
	assert.ErrorIs(t, service.Set("no.such.key", "x"), domain.ErrConfiguration)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store).WithEnv(envMap(nil))

	settings := domain.DefaultAppSettings()
	settings.Source.Path = "corpus"
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.Model = "text-embedding-3-large"
	settings.Embedding.APIKey = "sk-saved"
	settings.Pipeline.ExtractTimeout = 90 * time.Second

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "corpus", got.Source.Path)
	assert.Equal(t, "text-embedding-3-large", got.Embedding.Model)
	assert.Equal(t, "sk-saved", got.Embedding.APIKey)
	assert.Equal(t, 90*time.Second, got.Pipeline.ExtractTimeout)
	assert.Equal(t, settings.Processors, got.Processors)
}

func TestSettingsService_Save_DoesNotPersistEnvSecrets(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store).WithEnv(envMap(map[string]string{"OPENAI_API_KEY": "sk-env"}))

	settings, err := service.Get()
	require.NoError(t, err)
	require.NoError(t, service.Save(settings))

	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestSettingsService_KeysAndPath(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	keys := service.Keys()
	assert.Contains(t, keys, "storage.url")
	assert.Contains(t, keys, "chunker.chunk_overlap")
	assert.IsIncreasing(t, keys)
	assert.Equal(t, ":memory:", service.ConfigPath())
}
