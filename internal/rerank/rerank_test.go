package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/llm"
)

func TestLLMBackendRerank(t *testing.T) {
	mock := llm.NewMockBackend("mock", []byte(`{"results":[{"index":1,"relevance_score":0.9},{"index":0,"relevance_score":0.2}]}`))
	backend := NewLLMBackend(mock)

	results, err := backend.Rerank(context.Background(), "query", []string{"doc0", "doc1"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1, "expected topK=1 result")
	assert.Equal(t, 1, results[0].Index, "expected highest-scoring doc index 1")
}

func TestRegistryAbsentByDefault(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Resolve()
	assert.False(t, ok, "expected no reranker registered by default")
}
