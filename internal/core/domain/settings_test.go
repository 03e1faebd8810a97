package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() AppSettings {
	s := DefaultAppSettings()
	s.Extraction.DocumentAI.ProjectID = "proj"
	s.Extraction.DocumentAI.ProcessorID = "proc"
	s.Storage.URL = "postgres://localhost/docs"
	return s
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, "pdf_files", s.Source.Path)
	assert.Equal(t, "us", s.Extraction.DocumentAI.Location)
	assert.Empty(t, s.Extraction.DocumentAI.ProcessorID)
	assert.Equal(t, "doc_embeddings", s.Storage.Table)
	assert.Equal(t, PolicySkipDocument, s.Pipeline.EmbeddingPolicy)

	cfg := s.Processors.GetProcessorConfig("chunker")
	require.NotNil(t, cfg)
	assert.Equal(t, 2000, cfg["chunk_size"])
	assert.Equal(t, 500, cfg["overlap"])
}

func TestAppSettings_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validSettings().Validate())
	})

	t.Run("missing processor id names key and env var", func(t *testing.T) {
		s := validSettings()
		s.Extraction.DocumentAI.ProcessorID = ""

		err := s.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), "documentai.processor_id")
		assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROCESSOR_ID")
	})

	t.Run("plaintext needs no google settings", func(t *testing.T) {
		s := validSettings()
		s.Extraction.Provider = ExtractionPlaintext
		s.Extraction.DocumentAI = DocumentAISettings{}
		assert.NoError(t, s.Validate())
	})

	t.Run("postgres requires url", func(t *testing.T) {
		s := validSettings()
		s.Storage.URL = ""
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COCOINDEX_DATABASE_URL")
	})

	t.Run("sqlite does not require url", func(t *testing.T) {
		s := validSettings()
		s.Storage.Driver = StorageSQLite
		s.Storage.URL = ""
		assert.NoError(t, s.Validate())
	})

	t.Run("openai requires api key", func(t *testing.T) {
		s := validSettings()
		s.Embedding.Provider = AIProviderOpenAI
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("reports all problems", func(t *testing.T) {
		s := validSettings()
		s.Pipeline.Workers = 0
		s.Pipeline.EmbeddingPolicy = "sometimes"
		s.Storage.Driver = "mongo"

		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline.workers")
		assert.Contains(t, err.Error(), "pipeline.embedding_policy")
		assert.Contains(t, err.Error(), "storage.driver")
	})
}

func TestEmbeddingSettings_ResolvedDimensions(t *testing.T) {
	assert.Equal(t, 384, EmbeddingSettings{Model: "all-minilm"}.ResolvedDimensions())
	assert.Equal(t, 512, EmbeddingSettings{Model: "all-minilm", Dimensions: 512}.ResolvedDimensions())
	assert.Equal(t, 0, EmbeddingSettings{Model: "custom"}.ResolvedDimensions())
}

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
}
