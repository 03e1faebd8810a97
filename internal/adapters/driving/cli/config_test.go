package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func TestConfigSetAndShow(t *testing.T) {
	env := setupTest(t)

	out, err := execute(t, "", "config", "set", "chunker.chunk_size", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "chunker.chunk_size = 500")

	_, err = execute(t, "", "config", "set", "extraction.provider", "plaintext")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file: "+env.configPath)
	assert.Contains(t, out, "Provider: plaintext")
	assert.Contains(t, out, "Size: 500")
	assert.Equal(t, 0, env.opened, "config commands do not wire the pipeline")
}

func TestConfigShow_ReportsProblems(t *testing.T) {
	setupTest(t)

	// Defaults use Document AI and Postgres, neither of which is configured.
	out, err := execute(t, "", "config")

	require.NoError(t, err)
	assert.Contains(t, out, "Problems:")
	assert.Contains(t, out, "GOOGLE_CLOUD_PROCESSOR_ID")
	assert.Contains(t, out, "COCOINDEX_DATABASE_URL")
}

func TestConfigSet_UnknownKey(t *testing.T) {
	setupTest(t)

	_, err := execute(t, "", "config", "set", "no.such.key", "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestConfigSet_SecretFromStdin(t *testing.T) {
	env := setupTest(t)

	out, err := execute(t, "sk-test-1234567890\n", "config", "set", "embedding.api_key")

	require.NoError(t, err)
	assert.Contains(t, out, "embedding.api_key = sk-t...7890")
	assert.NotContains(t, out, "sk-test-1234567890")

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sk-test-1234567890")
}

func TestConfigSet_ValueRequiredForPlainKeys(t *testing.T) {
	setupTest(t)

	_, err := execute(t, "", "config", "set", "source.path")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a value is required")
}

func TestConfigInit(t *testing.T) {
	env := setupTest(t)

	out, err := execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default settings to "+env.configPath)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "doc_embeddings")

	_, err = execute(t, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "", "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigPathAndKeys(t *testing.T) {
	env := setupTest(t)

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configPath+"\n", out)

	out, err = execute(t, "", "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "storage.url\n")
	assert.Contains(t, out, "pipeline.embedding_policy\n")
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "(not set)"},
		{"abc123", "****"},
		{"12345678", "****"},
		{"sk-1234567890abcdef", "sk-1...cdef"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, maskSecret(tt.input))
	}
}
