// Package search implements the Search Engine: dense vector search
// with typed filter assembly, optional QNTM query expansion, optional
// reranking, asynchronous access-credit propagation along supersession
// chains, chronological timeline scroll, and hybrid (RRF) fusion with
// a full-text index.
package search

import (
	"context"
	"strconv"
	"time"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/events"
	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/internal/rerank"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

// Params parameterizes one search call.
type Params struct {
	Query              string
	Limit              int
	Since              *time.Time
	QNTMKey            string
	ConsolidationLevel *chunk.Level
	ContentType        string
	AgentRole          string
	Temperature        string
	ExpandQuery        bool
	Rerank             bool
	RerankTopK         int
	Hybrid             bool
}

// Result is one formatted hit.
type Result struct {
	Text        string
	FilePath    string
	ChunkIndex  int
	Score       float32
	CreatedAt   time.Time
	QNTMKey     string
	RerankScore *float64

	// chunkID is carried internally for access-credit propagation; it
	// is not part of the formatted display contract.
	chunkID string
}

// Engine wires the collaborators the Search Engine orchestrates.
type Engine struct {
	store      chunkstore.Store
	embeddings *embeddings.Registry
	reranker   *rerank.Registry
	generator  *qntm.Generator
	sink       events.Sink
	logger     logging.Logger
	collection string
}

// Config assembles an Engine.
type Config struct {
	Store      chunkstore.Store
	Embeddings *embeddings.Registry
	Reranker   *rerank.Registry
	Generator  *qntm.Generator
	Sink       events.Sink
	Logger     logging.Logger
	Collection string
}

func New(cfg Config) *Engine {
	sink := cfg.Sink
	if sink == nil {
		sink = events.NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		store:      cfg.Store,
		embeddings: cfg.Embeddings,
		reranker:   cfg.Reranker,
		generator:  cfg.Generator,
		sink:       sink,
		logger:     logger.WithComponent("search"),
		collection: cfg.Collection,
	}
}

// Search executes one dense or hybrid search.
func (e *Engine) Search(ctx context.Context, p Params) ([]Result, error) {
	e.sink.Emit(events.Event{Name: "search.started", Fields: map[string]any{"query": p.Query}})

	if p.Hybrid {
		results, err := e.hybridSearch(ctx, p)
		if err != nil {
			e.sink.Emit(events.Event{Name: "search.error", Fields: map[string]any{"error": err.Error()}})
			return nil, err
		}
		go e.trackAccessCredit(context.Background(), results)
		e.sink.Emit(events.Event{Name: "search.completed", Fields: map[string]any{"count": len(results)}})
		return results, nil
	}

	embedBackend, ok := e.embeddings.Resolve(embeddings.CapabilityTextEmbedding)
	if !ok {
		err := atlaserrors.NoBackend(string(embeddings.CapabilityTextEmbedding))
		e.sink.Emit(events.Event{Name: "search.error", Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}

	var expandedKeys []string
	if p.ExpandQuery && e.generator != nil {
		sample, sampleErr := e.sampleQNTMKeys(ctx, 50)
		if sampleErr == nil {
			if exp, expErr := e.generator.GenerateQueryKeys(ctx, p.Query, sample); expErr == nil {
				expandedKeys = exp.Keys
			} else {
				e.logger.Warn("query expansion failed, continuing without it", "error", expErr)
			}
		}
	}

	embedResult, err := embedBackend.EmbedText(ctx, []string{p.Query})
	if err != nil {
		e.sink.Emit(events.Event{Name: "search.error", Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}

	filter := assembleFilter(p, expandedKeys)

	limit      := p.Limit
	fetchLimit := limit
	if p.Rerank {
		fetchLimit = limit * 3
		if p.RerankTopK > 0 {
			fetchLimit = p.RerankTopK
		}
	}

	scored, err := e.store.Search(ctx, e.collection, chunkstore.SearchParams{
		VectorName: "text",
		Vector:     embedResult.Embeddings[0],
		Limit:      fetchLimit,
		Filter:     filter,
	})
	if err != nil {
		e.sink.Emit(events.Event{Name: "search.error", Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}

	results := formatScored(scored)

	if p.Rerank {
		if backend, ok := e.reranker.Resolve(); ok {
			results, err = e.applyRerank(ctx, backend, p.Query, results, limit)
			if err != nil {
				e.logger.Warn("rerank failed, returning dense-only results", "error", err)
				results = truncateResults(formatScored(scored), limit)
			}
		} else {
			results = truncateResults(results, limit)
		}
	} else {
		results = truncateResults(results, limit)
	}

	go e.trackAccessCredit(context.Background(), results)

	e.sink.Emit(events.Event{Name: "search.completed", Fields: map[string]any{"count": len(results)}})
	return results, nil
}

func (e *Engine) applyRerank(ctx context.Context, backend rerank.Backend, query string, results []Result, limit int) ([]Result, error) {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Text
	}
	scored, err := backend.Rerank(ctx, query, docs, limit)
	if err != nil {
		return nil, err
	}
	reranked := make([]Result, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(results) {
			continue
		}
		r := results[s.Index]
		score := s.RelevanceScore
		r.RerankScore = &score
		reranked = append(reranked, r)
	}
	return reranked, nil
}

func (e *Engine) sampleQNTMKeys(ctx context.Context, limit int) ([]string, error) {
	page, err := e.store.Scroll(ctx, e.collection, chunkstore.ScrollParams{
		Filter:      &chunkstore.Filter{Must: []chunkstore.Condition{chunkstore.HeadFilter()}},
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, c := range page.Chunks {
		for _, k := range c.QNTMKeys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func assembleFilter(p Params, expandedKeys []string) *chunkstore.Filter {
	must    := []chunkstore.Condition{chunkstore.HeadFilter()}
	mustNot := []chunkstore.Condition{chunkstore.NotDeletionEligible()}

	if p.Since != nil {
		gte := float64(p.Since.Unix())
		must = append(must, chunkstore.Condition{Key: "created_at_unix", Range: &chunkstore.RangeValue{Gte: &gte, HasGte: true}})
	}
	if p.QNTMKey != "" {
		must = append(must, chunkstore.Condition{Key: "qntm_keys", Match: &chunkstore.MatchValue{Value: p.QNTMKey}})
	}
	if p.ConsolidationLevel != nil {
		must = append(must, chunkstore.Condition{Key: "consolidation_level", Match: &chunkstore.MatchValue{Value: strconv.Itoa(int(*p.ConsolidationLevel))}})
	}
	if p.ContentType != "" {
		must = append(must, chunkstore.Condition{Key: "content_type", Match: &chunkstore.MatchValue{Value: p.ContentType}})
	}
	if p.AgentRole != "" {
		must = append(must, chunkstore.Condition{Key: "agent_role", Match: &chunkstore.MatchValue{Value: p.AgentRole}})
	}
	if p.Temperature != "" {
		must = append(must, chunkstore.Condition{Key: "temperature", Match: &chunkstore.MatchValue{Value: p.Temperature}})
	}

	var should []chunkstore.Condition
	if len(expandedKeys) > 0 {
		should = append(should, chunkstore.Condition{Key: "qntm_keys", Match: &chunkstore.MatchValue{Any: expandedKeys}})
	}

	return &chunkstore.Filter{Must: must, MustNot: mustNot, Should: should}
}

func formatScored(scored []chunkstore.ScoredChunk) []Result {
	out := make([]Result, len(scored))
	for i, s := range scored {
		out[i] = toResult(s.Chunk, s.Score)
	}
	return out
}

func toResult(c *chunk.Chunk, score float32) Result {
	key := ""
	if len(c.QNTMKeys) > 0 {
		key = c.QNTMKeys[0]
	}
	return Result{
		Text:       c.OriginalText,
		FilePath:   c.FilePath,
		ChunkIndex: c.ChunkIndex,
		Score:      score,
		CreatedAt:  c.CreatedAt,
		QNTMKey:    key,
		chunkID:    c.ID,
	}
}

func truncateResults(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
