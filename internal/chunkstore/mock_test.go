package chunkstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

func TestMockStoreUpsertAndRetrieve(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()
	require.NoError(t, store.CreateCollection(ctx, "atlas", VectorSpec{Name: "text", Dimension: 4}))

	c := &chunk.Chunk{ID: "a", OriginalText: "hello", Vector: []float32{1, 0, 0, 0}, CreatedAt: time.Now()}
	require.NoError(t, store.Upsert(ctx, "atlas", []*chunk.Chunk{c}, true))

	got, err := store.Retrieve(ctx, "atlas", []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].OriginalText)
}

func TestMockStoreHeadFilterExcludesSuperseded(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()
	require.NoError(t, store.CreateCollection(ctx, "atlas", VectorSpec{Name: "text", Dimension: 2}))

	head := &chunk.Chunk{ID: "head", Vector: []float32{1, 0}}
	superseded := &chunk.Chunk{ID: "old", SupersededBy: "head", Vector: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, "atlas", []*chunk.Chunk{head, superseded}, true))

	page, err := store.Scroll(ctx, "atlas", ScrollParams{Filter: &Filter{Must: []Condition{HeadFilter()}}})
	require.NoError(t, err)
	require.Len(t, page.Chunks, 1)
	assert.Equal(t, "head", page.Chunks[0].ID)
}

func TestMockStoreDeletionEligibleExcludedFromSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()
	require.NoError(t, store.CreateCollection(ctx, "atlas", VectorSpec{Name: "text", Dimension: 2}))

	visible := &chunk.Chunk{ID: "v", Vector: []float32{1, 0}}
	deleted := &chunk.Chunk{ID: "d", DeletionEligible: true, Vector: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, "atlas", []*chunk.Chunk{visible, deleted}, true))

	results, err := store.Search(ctx, "atlas", SearchParams{
		Vector: []float32{1, 0},
		Limit:  10,
		Filter: &Filter{MustNot: []Condition{NotDeletionEligible()}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v", results[0].Chunk.ID)
}

func TestMockStoreSetPayloadAccessCredit(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()
	require.NoError(t, store.CreateCollection(ctx, "atlas", VectorSpec{Name: "text", Dimension: 2}))
	require.NoError(t, store.Upsert(ctx, "atlas", []*chunk.Chunk{{ID: "a", Vector: []float32{1, 0}}}, true))

	require.NoError(t, store.SetPayload(ctx, "atlas", []string{"a"}, map[string]any{"access_count": int64(3)}))
	got, err := store.Retrieve(ctx, "atlas", []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 3, got[0].AccessCount)
}

func TestMockStoreDeletionEligibleFilterSelectsMarked(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore()
	require.NoError(t, store.CreateCollection(ctx, "atlas", VectorSpec{Name: "text", Dimension: 2}))

	visible := &chunk.Chunk{ID: "v", Vector: []float32{1, 0}}
	deleted := &chunk.Chunk{ID: "d", DeletionEligible: true, Vector: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, "atlas", []*chunk.Chunk{visible, deleted}, true))

	page, err := store.Scroll(ctx, "atlas", ScrollParams{Filter: &Filter{Must: []Condition{DeletionEligible()}}})
	require.NoError(t, err)
	require.Len(t, page.Chunks, 1)
	assert.Equal(t, "d", page.Chunks[0].ID)
}
