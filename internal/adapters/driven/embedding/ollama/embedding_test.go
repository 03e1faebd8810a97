package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 3
	}
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{})
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", svc.ModelName())
	assert.Equal(t, 384, svc.Dimensions())
	assert.Equal(t, "ollama/all-minilm@384", svc.Identity())
}

func TestNewEmbeddingService_UnknownModelNeedsDimensions(t *testing.T) {
	_, err := NewEmbeddingService(Config{Model: "custom-embedder"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	svc, err := NewEmbeddingService(Config{Model: "custom-embedder", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, "ollama/custom-embedder@256", svc.Identity())
}

func TestEmbedBatch(t *testing.T) {
	var got embedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := embedResponse{}
		for i := range got.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(i), 0.5, -1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, Config{Model: "all-minilm"})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)

	assert.Equal(t, "all-minilm", got.Model)
	assert.Equal(t, []string{"alpha", "beta"}, got.Input)
	assert.False(t, got.Truncate)
	assert.Equal(t, [][]float32{{0, 0.5, -1}, {1, 0.5, -1}}, vecs)
}

func TestEmbed(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}, Config{})

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := newTestService(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}, Config{})

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, domain.ErrTransient},
		{"model missing", http.StatusNotFound, `{"error":"model not found"}`, domain.ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ``, domain.ErrRateLimited},
		{"wrong dimensions", http.StatusOK, `{"embeddings":[[1,2]]}`, domain.ErrDimensionMismatch},
		{"malformed body", http.StatusOK, `{"embeddings":`, domain.ErrTransient},
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
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"embeddings":[[1,2,3]]}`))
	}, Config{MaxInputChars: 10})

	_, err := svc.Embed(context.Background(), strings.Repeat("x", 11))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
	assert.Zero(t, calls.Load(), "oversized input must not be sent")
}

func TestEmbedBatch_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, Config{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Embed(ctx, "slow")
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}, Config{})
	require.NoError(t, svc.Ping(context.Background()))

	down := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Config{})
	assert.ErrorIs(t, down.Ping(context.Background()), domain.ErrTransient)
}
