package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name         string
		settings     *domain.EmbeddingSettings
		wantIdentity string
		wantErr      error
	}{
		{
			name:    "nil settings",
			wantErr: domain.ErrConfiguration,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "anthropic"},
			wantErr:  domain.ErrConfiguration,
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrConfiguration,
		},
		{
			name: "ollama known model",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "nomic-embed-text",
			},
			wantIdentity: "ollama/nomic-embed-text@768",
		},
		{
			name: "ollama dimension override",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOllama,
				Model:      "custom",
				Dimensions: 64,
			},
			wantIdentity: "ollama/custom@64",
		},
		{
			name: "ollama unknown model without dimensions",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "custom",
			},
			wantErr: domain.ErrConfiguration,
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
			wantIdentity: "openai/text-embedding-3-small@1536",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantIdentity, svc.Identity())
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer server.Close()

		svc, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			Model:    "all-minilm",
			BaseURL:  server.URL,
		})
		require.NoError(t, err)
		assert.Equal(t, "ollama/all-minilm@384", svc.Identity())
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "bad",
			BaseURL:  server.URL,
		})
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
		assert.Contains(t, err.Error(), "unreachable")
	})
}
