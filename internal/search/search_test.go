package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

func seedStore(t *testing.T, store *chunkstore.MockStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "atlas", chunkstore.VectorSpec{Name: "text", Dimension: 4}))
	chunks := []*chunk.Chunk{
		{ID: "a", OriginalText: "alpha content about rivers", Vector: []float32{1, 0, 0, 0}, QNTMKeys: []string{"@river ~ topic"}, CreatedAt: time.Now().Add(-time.Hour)},
		{ID: "b", OriginalText: "beta content about mountains", Vector: []float32{0, 1, 0, 0}, CreatedAt: time.Now()},
		{ID: "superseded", OriginalText: "old version", Vector: []float32{1, 0, 0, 0}, SupersededBy: "a", CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "deleted", OriginalText: "soft deleted", Vector: []float32{1, 0, 0, 0}, DeletionEligible: true, CreatedAt: time.Now()},
	}
	require.NoError(t, store.Upsert(ctx, "atlas", chunks, true))
}

func newTestEngine(t *testing.T, store *chunkstore.MockStore) *Engine {
	t.Helper()
	embedReg := embeddings.NewRegistry()
	embedReg.Register(embeddings.NewMockBackend("mock", 4))
	return New(Config{Store: store, Embeddings: embedReg, Collection: "atlas"})
}

func TestSearchExcludesSupersededAndDeleted(t *testing.T) {
	store := chunkstore.NewMockStore()
	seedStore(t, store)
	engine := newTestEngine(t, store)

	results, err := engine.Search(context.Background(), Params{Query: "alpha content about rivers", Limit: 10})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "old version", r.Text)
		assert.NotEqual(t, "soft deleted", r.Text)
	}
	assert.NotEmpty(t, results)
}

func TestSearchQNTMKeyFilter(t *testing.T) {
	store := chunkstore.NewMockStore()
	seedStore(t, store)
	engine := newTestEngine(t, store)

	results, err := engine.Search(context.Background(), Params{Query: "alpha content about rivers", Limit: 10, QNTMKey: "@river ~ topic"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha content about rivers", results[0].Text)
}

func TestHybridSearchFusesDenseAndLexical(t *testing.T) {
	store := chunkstore.NewMockStore()
	seedStore(t, store)
	engine := newTestEngine(t, store)

	results, err := engine.Search(context.Background(), Params{Query: "rivers", Limit: 10, Hybrid: true})
	require.NoError(t, err)
	found := false
	for _, r := range results {
		if r.Text == "alpha content about rivers" {
			found = true
			assert.NotNil(t, r.RerankScore, "expected combined score to be populated")
		}
	}
	assert.True(t, found, "expected the rivers chunk among fused results")
}

func TestTimelineOrdersByCreatedAtAndExcludesHidden(t *testing.T) {
	store := chunkstore.NewMockStore()
	seedStore(t, store)
	engine := newTestEngine(t, store)

	results, err := engine.Timeline(context.Background(), time.Now().Add(-3*time.Hour), 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "old version", r.Text)
		assert.NotEqual(t, "soft deleted", r.Text)
		assert.Equal(t, float32(1.0), r.Score, "expected fixed score 1.0")
	}
	for i := 1; i < len(results); i++ {
		assert.False(t, results[i].CreatedAt.Before(results[i-1].CreatedAt), "expected results ordered by created_at")
	}
}

func TestTrackAccessCreditAppliesToHead(t *testing.T) {
	store := chunkstore.NewMockStore()
	seedStore(t, store)
	engine := newTestEngine(t, store)

	results := []Result{{chunkID: "superseded"}}
	engine.trackAccessCredit(context.Background(), results)

	got, err := store.Retrieve(context.Background(), "atlas", []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0].AccessCount, "expected head access_count incremented to 1")
	assert.NotNil(t, got[0].LastAccessedAt, "expected last_accessed_at to be set")
}
