package search

import (
	"context"
	"slices"
	"sort"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
)

// hybridSearch fuses dense and full-text search via Reciprocal Rank
// Fusion: each list contributes 1/(k+rank) per hit, summed
// across lists, ranked descending. The combined score is surfaced in
// RerankScore for uniform display. Full-text hits are held to the same
// visibility and selector checks as the dense list once retrieved.
func (e *Engine) hybridSearch(ctx context.Context, p Params) ([]Result, error) {
	embedBackend, ok := e.embeddings.Resolve(embeddings.CapabilityTextEmbedding)
	if !ok {
		return nil, atlaserrors.NoBackend(string(embeddings.CapabilityTextEmbedding))
	}

	fetchLimit := p.Limit * 3
	if fetchLimit <= 0 {
		fetchLimit = 30
	}

	embedResult, err := embedBackend.EmbedText(ctx, []string{p.Query})
	if err != nil {
		return nil, err
	}

	filter := assembleFilter(p, nil)

	dense, err := e.store.Search(ctx, e.collection, chunkstore.SearchParams{
		VectorName: "text",
		Vector:     embedResult.Embeddings[0],
		Limit:      fetchLimit,
		Filter:     filter,
	})
	if err != nil {
		return nil, err
	}

	lexical, err := e.store.FullTextSearch(ctx, e.collection, p.Query, fetchLimit)
	if err != nil {
		return nil, err
	}

	fused := fuseRRF(dense, lexical)

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	chunks, err := e.store.Retrieve(ctx, e.collection, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(chunks))
	for i, c := range chunks {
		if !c.Visible() {
			continue
		}
		if p.Since != nil && c.CreatedAt.Unix() < p.Since.Unix() ||
			p.QNTMKey != "" && !slices.Contains(c.QNTMKeys, p.QNTMKey) ||
			p.ConsolidationLevel != nil && c.ConsolidationLevel != *p.ConsolidationLevel ||
			p.ContentType != "" && c.ContentType != p.ContentType ||
			p.AgentRole != "" && c.AgentRole != p.AgentRole ||
			p.Temperature != "" && c.Temperature != p.Temperature {
			continue
		}
		byID[c.ID] = i
	}

	type ranked struct {
		result Result
		score  float64
		id     string
	}
	var out []ranked
	for id, score := range fused {
		idx, ok := byID[id]
		if !ok {
			continue
		}
		r := toResult(chunks[idx], float32(score))
		r.RerankScore = &score
		out = append(out, ranked{result: r, score: score, id: id})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})

	limit := p.Limit
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	results := make([]Result, len(out))
	for i, r := range out {
		results[i] = r.result
	}
	return results, nil
}

// fuseRRF sums 1/(k+rank) per chunk id across both ranked lists.
func fuseRRF(dense []chunkstore.ScoredChunk, lexical []chunkstore.FullTextResult) map[string]float64 {
	scores := make(map[string]float64)
	for rank, hit := range dense {
		scores[hit.Chunk.ID] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, hit := range lexical {
		scores[hit.ChunkID] += 1.0 / float64(rrfK+rank+1)
	}
	return scores
}
