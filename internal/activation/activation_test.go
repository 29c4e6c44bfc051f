package activation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/internal/search"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store := chunkstore.NewMockStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "atlas", chunkstore.VectorSpec{Name: "text", Dimension: 4}))
	chunks := []*chunk.Chunk{
		{ID: "l0-a", OriginalText: "episodic note", Vector: []float32{1, 0, 0, 0}, CreatedAt: time.Now(), ConsolidationLevel: chunk.LevelEpisodic},
		{ID: "l1-a", OriginalText: "topic summary", Vector: []float32{1, 0, 0, 0}, CreatedAt: time.Now(), ConsolidationLevel: chunk.LevelTopic},
		{ID: "l2-a", OriginalText: "concept synthesis", Vector: []float32{1, 0, 0, 0}, CreatedAt: time.Now(), ConsolidationLevel: chunk.LevelConcept},
	}
	require.NoError(t, store.Upsert(ctx, "atlas", chunks, true))

	embedReg := embeddings.NewRegistry()
	embedReg.Register(embeddings.NewMockBackend("mock", 4))
	searchEngine := search.New(search.Config{
		Store:      store,
		Embeddings: embedReg,
		Collection: "atlas",
	})
	generator := qntm.New(llm.NewMockBackend("mock-qntm", []byte(`{"keys":["@topic ~ note"],"reasoning":"ok"}`)))

	return New(Config{Search: searchEngine, Generator: generator})
}

func TestActivateFansOutAcrossLevels(t *testing.T) {
	engine := newTestEngine(t)
	result, err := engine.Activate(context.Background(), Params{Query: "note", Limit: 8})
	require.NoError(t, err)
	assert.NotEmpty(t, result.L0, "expected L0 results")
	assert.NotEmpty(t, result.L1, "expected L1 results")
	assert.NotEmpty(t, result.L2, "expected L2 results")
	assert.Empty(t, result.L3, "expected no L3 results")
	assert.Equal(t, len(result.L0)+len(result.L1)+len(result.L2), result.TotalResults)
	assert.NotEmpty(t, result.QueryExpansion, "expected query expansion keys")
}

func TestWorkingMemoryFIFOEviction(t *testing.T) {
	wm := NewWorkingMemory(2)
	wm.Append("s1", ConversationTurn{Role: "user", Text: "one"})
	wm.Append("s1", ConversationTurn{Role: "assistant", Text: "two"})
	wm.Append("s1", ConversationTurn{Role: "user", Text: "three"})

	buf := wm.Get("s1")
	require.Len(t, buf, 2, "expected buffer capped at 2")
	assert.Equal(t, "two", buf[0].Text)
	assert.Equal(t, "three", buf[1].Text)
}

func TestActivateIncludesWorkingMemory(t *testing.T) {
	engine := newTestEngine(t)
	engine.WorkingMemory().Append("s1", ConversationTurn{Role: "user", Text: "hello"})

	result, err := engine.Activate(context.Background(), Params{Query: "note", SessionID: "s1", Limit: 8})
	require.NoError(t, err)
	require.Len(t, result.Working, 1)
	assert.Equal(t, "hello", result.Working[0].Text)
}

func TestFormatActivatedMemoryTruncatesLongHits(t *testing.T) {
	longText := strings.Repeat("0123456789", 50)
	result := Result{
		L0: []search.Result{{FilePath: "a.txt", Text: longText}},
	}
	out := FormatActivatedMemory(result)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "...", "expected truncation marker in output")
}

func TestPerLevelLimitsSumsToApproximatelyLimit(t *testing.T) {
	limits := perLevelLimits(20, DefaultWeights)
	total := limits[0] + limits[1] + limits[2] + limits[3]
	assert.GreaterOrEqual(t, total, 20, "expected per-level limits to cover the requested budget")
}
