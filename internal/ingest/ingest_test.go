package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/capacity"
	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/concurrency"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
)

func newTestPipeline(t *testing.T, store chunkstore.Store) *Pipeline {
	t.Helper()

	embedReg := embeddings.NewRegistry()
	embedReg.Register(embeddings.NewMockBackend("mock", 4))

	llmBackend := llm.NewMockBackend("mock", []byte(`{"keys":["@topic ~ test"],"reasoning":"ok"}`))
	generator := qntm.New(llmBackend)

	controller := concurrency.New(capacity.NewMonitor(), 1, 4, 2)

	return New(Config{
		Store:      store,
		Embeddings: embedReg,
		Generator:  generator,
		Controller: controller,
		Collection: "atlas",
		VectorName: "text",
	})
}

func TestRunIngestsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("first paragraph\n\nsecond paragraph"), 0o600))

	store := chunkstore.NewMockStore()
	pipeline := newTestPipeline(t, store)

	result, err := pipeline.Run(context.Background(), Options{Paths: []string{path}, RootDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 2, result.ChunksStored)
	assert.Empty(t, result.Errors)

	page, err := store.Scroll(context.Background(), "atlas", chunkstore.ScrollParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Chunks, 2)
	for _, c := range page.Chunks {
		require.Len(t, c.QNTMKeys, 1)
		assert.Equal(t, "@topic ~ test", c.QNTMKeys[0])
	}
}

func TestRunIsIdempotentOnReingest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("stable content"), 0o600))

	store := chunkstore.NewMockStore()
	pipeline := newTestPipeline(t, store)
	ctx := context.Background()

	_, err := pipeline.Run(ctx, Options{Paths: []string{path}, RootDir: dir})
	require.NoError(t, err, "first run failed")
	_, err = pipeline.Run(ctx, Options{Paths: []string{path}, RootDir: dir})
	require.NoError(t, err, "second run failed")

	page, err := store.Scroll(ctx, "atlas", chunkstore.ScrollParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Chunks, 1, "expected re-ingestion to upsert in place")
}

type pausedGate struct{}

func (pausedGate) IsPaused() bool      { return true }
func (pausedGate) RegisterInFlight()   {}
func (pausedGate) CompleteInFlight()   {}
func (pausedGate) RecordIngestion(int) {}

func TestRunSkipsFilesWhilePaused(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	store := chunkstore.NewMockStore()
	pipeline := newTestPipeline(t, store)
	pipeline.gate = pausedGate{}

	result, err := pipeline.Run(context.Background(), Options{Paths: []string{path}, RootDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksStored, "expected no chunks stored while paused")
	assert.Len(t, result.Errors, 1, "expected 1 pause-skip error")
}
