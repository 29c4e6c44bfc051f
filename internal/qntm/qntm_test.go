package qntm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

func TestSanitizeDedupesAndTrims(t *testing.T) {
	in := []string{"  @foo ~ bar  ", "@foo ~ bar", "", "@baz   ~    qux"}
	out := Sanitize(in)
	require.Len(t, out, 2)
	assert.Equal(t, "@foo ~ bar", out[0])
	assert.Equal(t, "@baz ~ qux", out[1])
}

func TestGenerateParsesResponse(t *testing.T) {
	mock := llm.NewMockBackend("mock", []byte(`{"keys":["@a ~ b","@a ~ b"],"reasoning":"why"}`))
	gen := New(mock)

	result, err := gen.Generate(context.Background(), Context{
		Chunk: "some text", FileName: "x.md", ChunkIndex: 0, TotalChunks: 1, Level: chunk.LevelEpisodic,
	})
	require.NoError(t, err)
	require.Len(t, result.Keys, 1)
	assert.Equal(t, "@a ~ b", result.Keys[0])
	assert.Equal(t, "why", result.Reasoning)
}

func TestGenerateMalformedJSON(t *testing.T) {
	mock := llm.NewMockBackend("mock", []byte(`not json`))
	gen := New(mock)
	_, err := gen.Generate(context.Background(), Context{})
	assert.Error(t, err, "expected validation error for malformed JSON")
}
