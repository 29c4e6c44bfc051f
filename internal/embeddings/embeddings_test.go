package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	backend := NewMockBackend("mock", 8)
	reg.Register(backend)

	got, ok := reg.Resolve(CapabilityTextEmbedding)
	require.True(t, ok)
	assert.Equal(t, "mock", got.Name())

	_, ok = reg.Resolve(CapabilityContextualizedEmbedding)
	assert.False(t, ok, "expected no backend for contextualized-embedding")
}

func TestMockBackendEmbedOrderPreserved(t *testing.T) {
	backend := NewMockBackend("mock", 4)
	result, err := backend.EmbedText(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, result.Embeddings, 3)

	again, err := backend.EmbedText(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, result.Embeddings[0], again.Embeddings[0], "expected deterministic embedding for identical input")
}
