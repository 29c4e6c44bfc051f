// Package consolidation implements the Consolidation Engine: it scans
// for near-duplicate clusters among un-consolidated head chunks,
// classifies each cluster's merge relationship via the JSON-LLM
// capability, writes a successor chunk, and marks cluster members
// superseded.
package consolidation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// DefaultThreshold is the default near-duplicate similarity bound
//.
const DefaultThreshold = 0.92

// Options parameterizes one consolidation run.
type Options struct {
	Threshold int // percentage 0..100; 0 means DefaultThreshold applies
	Limit     int
	DryRun    bool
}

// Candidate is one unconsumed seed plus the cluster members found
// above threshold (dry-run output, and the working unit for a live
// run).
type Candidate struct {
	SeedID       string
	MemberIDs    []string
	Similarities []float32
}

// Summary is the outcome of one consolidation run.
type Summary struct {
	Consolidated    int
	Deleted         int
	CandidatesFound int
	Candidates      []Candidate
}

// Engine wires the collaborators the Consolidation Engine orchestrates.
type Engine struct {
	store      chunkstore.Store
	embeddings *embeddings.Registry
	generator  *qntm.Generator
	classifier llm.Backend
	logger     logging.Logger
	collection string
}

// Config assembles an Engine.
type Config struct {
	Store      chunkstore.Store
	Embeddings *embeddings.Registry
	Generator  *qntm.Generator
	Classifier llm.Backend
	Logger     logging.Logger
	Collection string
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Engine{
		store:      cfg.Store,
		embeddings: cfg.Embeddings,
		generator:  cfg.Generator,
		classifier: cfg.Classifier,
		logger:     logger.WithComponent("consolidation"),
		collection: cfg.Collection,
	}
}

// eligibilityFilter restricts a scan or cluster search to chunks that
// are un-consolidated heads, not soft-deleted.
func eligibilityFilter() *chunkstore.Filter {
	return &chunkstore.Filter{
		Must: []chunkstore.Condition{
			chunkstore.HeadFilter(),
			{Key: "consolidated", Match: &chunkstore.MatchValue{Value: "false"}},
		},
		MustNot: []chunkstore.Condition{chunkstore.NotDeletionEligible()},
	}
}

// Run executes one consolidation pass. Dry-run mode stops after
// step 2 and returns candidate seeds plus similarities.
func (e *Engine) Run(ctx context.Context, opts Options) (Summary, error) {
	threshold := float32(DefaultThreshold)
	if opts.Threshold > 0 {
		threshold = float32(opts.Threshold) / 100
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}

	seeds, err := e.store.Scroll(ctx, e.collection, chunkstore.ScrollParams{
		Filter:      eligibilityFilter(),
		Limit:       limit,
		WithPayload: true,
		WithVector:  true,
	})
	if err != nil {
		return Summary{}, err
	}

	consumed := make(map[string]struct{})
	var candidates []Candidate

	for _, seed := range seeds.Chunks {
		if _, done := consumed[seed.ID]; done {
			continue
		}
		cluster, similarities, err := e.findCluster(ctx, seed, consumed, threshold)
		if err != nil {
			e.logger.Warn("cluster search failed for seed", "seed", seed.ID, "error", err)
			continue
		}
		if len(cluster) < 2 {
			continue
		}
		candidates = append(candidates, Candidate{SeedID: seed.ID, MemberIDs: idsOf(cluster), Similarities: similarities})
		for _, c := range cluster {
			consumed[c.ID] = struct{}{}
		}
	}

	summary := Summary{CandidatesFound: len(candidates), Candidates: candidates}
	if opts.DryRun {
		return summary, nil
	}

	seedByID := make(map[string]*chunk.Chunk, len(seeds.Chunks))
	for _, s := range seeds.Chunks {
		seedByID[s.ID] = s
	}

	// Candidate clusters are disjoint by construction (the seed loop above
	// marks every member consumed before moving to the next seed), so merges
	// run concurrently without contending on the same chunk ids.
	var mu sync.Mutex
	var g errgroup.Group
	for _, cand := range candidates {
		cand := cand
		g.Go(func() error {
			cluster := make([]*chunk.Chunk, 0, len(cand.MemberIDs))
			for _, id := range cand.MemberIDs {
				if c, ok := seedByID[id]; ok {
					cluster = append(cluster, c)
				}
			}
			if len(cluster) < 2 {
				return nil
			}
			if err := e.mergeCluster(ctx, cluster); err != nil {
				e.logger.Warn("merge failed for cluster", "seed", cand.SeedID, "error", err)
				return nil
			}
			mu.Lock()
			summary.Consolidated++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return summary, nil
}

// findCluster dense-searches for near-duplicates of seed above
// threshold, restricted to the same eligibility criteria, excluding
// already-consumed chunks.
func (e *Engine) findCluster(ctx context.Context, seed *chunk.Chunk, consumed map[string]struct{}, threshold float32) ([]*chunk.Chunk, []float32, error) {
	scored, err := e.store.Search(ctx, e.collection, chunkstore.SearchParams{
		VectorName: "text",
		Vector:     seed.Vector,
		Limit:      20,
		Filter:     eligibilityFilter(),
	})
	if err != nil {
		return nil, nil, err
	}

	cluster      := []*chunk.Chunk{seed}
	similarities := []float32{1.0}
	for _, s := range scored {
		if s.Chunk.ID == seed.ID {
			continue
		}
		if _, done := consumed[s.Chunk.ID]; done {
			continue
		}
		if s.Score < threshold {
			continue
		}
		cluster = append(cluster, s.Chunk)
		similarities = append(similarities, s.Score)
	}
	return cluster, similarities, nil
}

type classification struct {
	Type       string `json:"type"`
	Direction  string `json:"direction"`
	Reasoning  string `json:"reasoning"`
	MergedText string `json:"merged_text"`
}

// mergeCluster classifies cluster via the JSON-LLM, creates a successor
// chunk, and patches every member's superseded_by.
func (e *Engine) mergeCluster(ctx context.Context, cluster []*chunk.Chunk) error {
	cls, err := e.classify(ctx, cluster)
	if err != nil {
		return err
	}

	successor, err := e.buildSuccessor(ctx, cluster, cls)
	if err != nil {
		return err
	}

	if err := e.store.Upsert(ctx, e.collection, []*chunk.Chunk{successor}, true); err != nil {
		return err
	}

	for _, member := range cluster {
		patch := map[string]any{
			"superseded_by": successor.ID,
			"is_head": "false",
		}
		if err := e.store.SetPayload(ctx, e.collection, []string{member.ID}, patch); err != nil {
			e.logger.Warn("failed to mark cluster member superseded", "member", member.ID, "error", err)
		}
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, cluster []*chunk.Chunk) (classification, error) {
	var sb strings.Builder
	sb.WriteString("Classify how the following content clusters relate, then propose a merged synthesis.\n")
	sb.WriteString("Categories: duplicate_work (near-identical, pick one as the canonical base), sequential_iteration (one supersedes another in time), contextual_convergence (distinct contexts converging into one synthesis).\n\n")
	for i, c := range cluster {
		sb.WriteString("Member ")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(":\n")
		sb.WriteString(c.OriginalText)
		sb.WriteString("\n\n")
	}
	sb.WriteString(`Respond with JSON: {"type":"duplicate_work|sequential_iteration|contextual_convergence","direction":"forward|backward|convergent|unknown","reasoning":"short explanation","merged_text":"the synthesized content"}`)

	raw, err := e.classifier.CompleteJSON(ctx, sb.String())
	if err != nil {
		return classification{}, err
	}
	var cls classification
	if err := json.Unmarshal(raw, &cls); err != nil {
		return classification{}, atlaserrors.Validation("consolidation classifier returned malformed JSON: %v", err)
	}
	return cls, nil
}

func (e *Engine) buildSuccessor(ctx context.Context, cluster []*chunk.Chunk, cls classification) (*chunk.Chunk, error) {
	embedBackend, ok := e.embeddings.Resolve(embeddings.CapabilityTextEmbedding)
	if !ok {
		return nil, atlaserrors.NoBackend(string(embeddings.CapabilityTextEmbedding))
	}
	embedResult, err := embedBackend.EmbedText(ctx, []string{cls.MergedText})
	if err != nil {
		return nil, err
	}

	var keys []string
	if e.generator != nil {
		qres, err := e.generator.Generate(ctx, qntm.Context{
			Chunk:       cls.MergedText,
			FileName:    "consolidation",
			TotalChunks: 1,
			Level:       cluster[0].ConsolidationLevel,
		})
		if err != nil {
			e.logger.Warn("qntm generation failed for successor, proceeding with empty keys", "error", err)
		} else {
			keys = qres.Keys
		}
	}

	ids         := idsOf(cluster)
	base        := cluster[0]
	successorID := chunk.DeriveID(strings.Join(ids, "+"), 0)

	return &chunk.Chunk{
		ID:                     successorID,
		Vector:                 embedResult.Embeddings[0],
		OriginalText:           cls.MergedText,
		FilePath:               base.FilePath,
		FileName:               base.FileName,
		FileType:               base.FileType,
		ChunkIndex:             0,
		TotalChunks:            1,
		CharCount:              len(cls.MergedText),
		QNTMKeys:               keys,
		CreatedAt:              time.Now().UTC(),
		Importance:             base.Importance,
		Consolidated:           true,
		ConsolidationLevel:     base.ConsolidationLevel,
		Parents:                ids,
		ConsolidatedFrom:       ids,
		ConsolidationType:      chunk.ConsolidationType(cls.Type),
		ConsolidationDirection: chunk.ConsolidationDirection(cls.Direction),
		ConsolidationReasoning: cls.Reasoning,
	}, nil
}

func idsOf(cluster []*chunk.Chunk) []string {
	ids := make([]string, len(cluster))
	for i, c := range cluster {
		ids[i] = c.ID
	}
	return ids
}
