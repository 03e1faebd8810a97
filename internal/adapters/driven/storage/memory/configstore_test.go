package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{"embedding.model": "all-minilm"}, map[string]any{"pipeline.workers": 8})

	assert.Equal(t, "all-minilm", store.GetString("embedding.model"))
	assert.Equal(t, 8, store.GetInt("pipeline.workers"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("storage.table", "doc_embeddings"))
	val, ok := store.Get("storage.table")
	assert.True(t, ok)
	assert.Equal(t, "doc_embeddings", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"int":    int64(42),
		"float":  2.5,
		"intf":   7,
		"bool":   true,
		"list":   []any{"chunker", 3, "dedupe"},
		"string": "value",
	})

	assert.Equal(t, 42, store.GetInt("int"))
	assert.Equal(t, 2, store.GetInt("float"))
	assert.Equal(t, 0, store.GetInt("string"))

	assert.InDelta(t, 2.5, store.GetFloat("float"), 1e-9)
	assert.InDelta(t, 7.0, store.GetFloat("intf"), 1e-9)
	assert.Zero(t, store.GetFloat("string"))

	assert.True(t, store.GetBool("bool"))
	assert.False(t, store.GetBool("string"))

	assert.Equal(t, []string{"chunker", "dedupe"}, store.GetStringSlice("list"))
	assert.Nil(t, store.GetStringSlice("string"))
	assert.Empty(t, store.GetString("int"))
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	store := NewConfigStore(map[string]any{"b": 1, "a": 2, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, store.Keys())
}

func TestConfigStore_SaveAndLoadAreNoOps(t *testing.T) {
	store := NewConfigStore(map[string]any{"k": "v"})
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "v", store.GetString("k"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
