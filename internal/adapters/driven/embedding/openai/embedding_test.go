package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	if cfg.Dimensions == 0 && cfg.Model == "" {
		cfg.Model = "tiny"
		cfg.Dimensions = 2
	}
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	svc, err := NewEmbeddingService(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, "openai/text-embedding-3-small@1536", svc.Identity())

	_, err = NewEmbeddingService(Config{APIKey: "sk", Model: "mystery"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		// Deliberately out of order
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}, Config{})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, "float", got.EncodingFormat)
	assert.Zero(t, got.Dimensions, "dimensions only sent for text-embedding-3 models")
	require.Len(t, vecs, 2)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, vecs[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 0.4}, vecs[1], 1e-6)
}

func TestEmbedBatch_SendsDimensionsForV3Models(t *testing.T) {
	var got embeddingRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2,3,4]}]}`))
	}, Config{Model: "text-embedding-3-large", Dimensions: 4})

	_, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Dimensions)
	assert.Equal(t, "openai/text-embedding-3-large@4", svc.Identity())
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, domain.ErrAuthInvalid},
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, domain.ErrRateLimited},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota"}}`, domain.ErrQuotaExceeded},
		{"too long", http.StatusBadRequest, `{"error":{"message":"maximum context length is 8192 tokens"}}`, domain.ErrInputTooLarge},
		{"overloaded", http.StatusServiceUnavailable, ``, domain.ErrTransient},
		{"missing row", http.StatusOK, `{"data":[]}`, domain.ErrEmbedding},
		{"bad index", http.StatusOK, `{"data":[{"index":5,"embedding":[1,2]}]}`, domain.ErrEmbedding},
		{"wrong size", http.StatusOK, `{"data":[{"index":0,"embedding":[1,2,3]}]}`, domain.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Config{})

			_, err := svc.Embed(context.Background(), "text")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEmbedding)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbedBatch_InputTooLarge(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}, Config{Model: "tiny", Dimensions: 2, MaxInputChars: 3})

	_, err := svc.Embed(context.Background(), "abcd")
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	}, Config{})
	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrAuthInvalid)
}
