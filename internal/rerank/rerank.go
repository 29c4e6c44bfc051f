// Package rerank implements the Reranker Registry: an optional
// cross-encoder-shaped backend mapping (query, documents) to relevance
// scores. No dedicated cross-encoder library is available in this
// module's dependency set, so the registered backend scores documents
// through the JSON-LLM capability instead (see DESIGN.md).
package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/llm"
)

// Result is one scored document.
type Result struct {
	Index          int `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Backend maps a query and a set of documents to relevance scores,
// sorted descending, truncated to topK.
type Backend interface {
	Name() string
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)
}

// Registry holds at most one active reranker backend; absent means
// search falls back to dense-only results.
type Registry struct {
	backend Backend
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(backend Backend) { r.backend = backend }

func (r *Registry) Resolve() (Backend, bool) {
	if r.backend == nil {
		return nil, false
	}
	return r.backend, true
}

// LLMBackend implements Backend by prompting a JSON-LLM to score each
// document 0..1 against the query, grounded on the same
// completeJSON<T> contract the QNTM generator and consolidation
// classifier use.
type LLMBackend struct {
	backend   llm.Backend
	backendNm string
}

func NewLLMBackend(backend llm.Backend) *LLMBackend {
	return &LLMBackend{backend: backend, backendNm: "llm-rerank:" + backend.Name()}
}

func (b *LLMBackend) Name() string { return b.backendNm }

type scoreResponse struct {
	Results []Result `json:"results"`
}

func (b *LLMBackend) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Score each document's relevance to the query on a 0.0-1.0 scale.\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, doc := range documents {
		fmt.Fprintf(&sb, "[%d] %s\n", i, truncate(doc, 1000))
	}
	sb.WriteString(`

Respond with JSON: {"results":[{"index":0,"relevance_score":0.0},...]} covering every document index, sorted by relevance_score descending.`)

	raw, err := b.backend.CompleteJSON(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed scoreResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, atlaserrors.Validation("reranker returned malformed JSON: %v", err)
	}

	sort.SliceStable(parsed.Results, func(i, j int) bool {
		return parsed.Results[i].RelevanceScore > parsed.Results[j].RelevanceScore
	})
	if topK > 0 && topK < len(parsed.Results) {
		parsed.Results = parsed.Results[:topK]
	}
	return parsed.Results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
