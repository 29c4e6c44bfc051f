// Package chunkstore implements the Chunk Store Abstraction: a
// capability interface over a vector collection supporting typed
// filters, named vectors, search, scroll, retrieve-by-id, batch
// upsert, payload patch, delete, collection lifecycle, and full-text
// search.
package chunkstore

import (
	"context"

	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// Filter is a typed condition tree: must/must_not/should branches of
// leaf conditions. An empty Filter matches everything.
type Filter struct {
	Must    []Condition
	MustNot []Condition
	Should  []Condition
}

// Condition is a single leaf predicate. Exactly one of Match, Range, or
// IsNull should be set.
type Condition struct {
	Key   string
	Match *MatchValue
	Range *RangeValue
	// IsNull matches only when the field exists with a null value; an
	// absent field is never matched by IsNull. Callers wanting a
	// "field is absent OR null" test must express it as a `should` of
	// IsNull plus an explicit absence check at the application layer;
	// the store does not infer absence-as-null.
	IsNull bool
}

// MatchValue matches a field against one value or any of several.
type MatchValue struct {
	Value string
	Any   []string
}

// RangeValue matches a field within [Gte, Lte] bounds. A bound applies
// only when its Has flag is set, and its pointer must then be non-nil;
// an unset flag leaves that side unbounded.
type RangeValue struct {
	Gte    *float64
	Lte    *float64
	HasGte bool
	HasLte bool
}

// SearchParams parameters a vector search.
type SearchParams struct {
	VectorName string
	Vector     []float32
	Limit      int
	Filter     *Filter
}

// ScrollParams parameters a scroll (unordered full-table-style) read.
type ScrollParams struct {
	Filter      *Filter
	Limit       int
	WithPayload bool
	WithVector  bool
	Offset      string
}

// ScrollPage is one page of scroll results plus a continuation cursor.
type ScrollPage struct {
	Chunks     []*chunk.Chunk
	NextOffset string
}

// ScoredChunk pairs a chunk with its similarity score from a search.
type ScoredChunk struct {
	Chunk *chunk.Chunk
	Score float32
}

// FullTextResult pairs a chunk id with its keyword-match rank score.
type FullTextResult struct {
	ChunkID string
	Score   float64
}

// VectorSpec describes a named vector's declared dimension at
// collection-creation time. It carries no distance metric; QdrantStore
// always creates the vector with cosine distance.
type VectorSpec struct {
	Name      string
	Dimension int
}

// CollectionInfo reports a collection's current configuration.
type CollectionInfo struct {
	Name       string
	VectorDim  int
	PointCount int64
}

// Store is the Chunk Store Abstraction's full contract.
type Store interface {
	Search(ctx context.Context, collection string, params SearchParams) ([]ScoredChunk, error)
	Scroll(ctx context.Context, collection string, params ScrollParams) (ScrollPage, error)
	Retrieve(ctx context.Context, collection string, ids []string) ([]*chunk.Chunk, error)
	Upsert(ctx context.Context, collection string, chunks []*chunk.Chunk, wait bool) error
	SetPayload(ctx context.Context, collection string, ids []string, patch map[string]any) error
	Delete(ctx context.Context, collection string, ids []string) error

	CollectionExists(ctx context.Context, name string) (bool, error)
	GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	CreateCollection(ctx context.Context, name string, vector VectorSpec) error
	DeleteCollection(ctx context.Context, name string) error
	SetHNSW(ctx context.Context, collection string, enabled bool) error

	FullTextSearch(ctx context.Context, collection, query string, limit int) ([]FullTextResult, error)

	Close() error
}
