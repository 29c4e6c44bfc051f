// Package qntm implements the QNTM Generator: level-aware prompt
// construction, invocation of the JSON-LLM capability, and sanitization
// of the returned semantic tags.
package qntm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/llm"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// Context carries the provenance fields used to build a level-aware
// prompt for a single chunk.
type Context struct {
	Chunk        string
	ExistingKeys []string
	FileName     string
	ChunkIndex   int
	TotalChunks  int
	Level        chunk.Level
}

// Result is the sanitized outcome of one generation call.
type Result struct {
	Keys      []string
	Reasoning string
}

// Generator builds prompts and invokes a JSON-LLM backend to produce
// QNTM keys.
type Generator struct {
	backend llm.Backend
}

func New(backend llm.Backend) *Generator {
	return &Generator{backend: backend}
}

const maxExistingKeysInPrompt = 20

var levelGuidance = map[chunk.Level]string{
	chunk.LevelEpisodic:  "Tag this as a concrete, instance-level reference: specific files, functions, or events mentioned.",
	chunk.LevelTopic:     "Tag this as a deduplicated topic: the recurring subject this content is about, independent of a single instance.",
	chunk.LevelConcept:   "Tag this as a decontextualized concept: the general idea, stripped of this specific occurrence's details.",
	chunk.LevelPrinciple: "Tag this as an abstract principle: the durable rule or lesson this content exemplifies.",
}

func buildPrompt(c Context) string {
	existing := c.ExistingKeys
	if len(existing) > maxExistingKeysInPrompt {
		existing = existing[len(existing)-maxExistingKeysInPrompt:]
	}

	var sb strings.Builder
	sb.WriteString("Generate QNTM semantic tags of the form \"@subject ~ relation\" for the following content.\n")
	sb.WriteString(levelGuidance[c.Level])
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "File: %s (chunk %d of %d)\n", c.FileName, c.ChunkIndex+1, c.TotalChunks)
	if len(existing) > 0 {
		fmt.Fprintf(&sb, "Existing keys already in use, prefer reusing vocabulary where apt: %s\n", strings.Join(existing, ", "))
	}
	sb.WriteString("\nContent:\n")
	sb.WriteString(c.Chunk)
	sb.WriteString(`

Respond with JSON: {"keys": ["@subject ~ relation", ...], "reasoning": "short explanation"}`)
	return sb.String()
}

type response struct {
	Keys      []string `json:"keys"`
	Reasoning string   `json:"reasoning"`
}

// Generate produces sanitized QNTM keys for one chunk context. On any
// failure after the backend's own retries, it returns a zero-value
// Result and the error; callers implementing I7's reduced-functionality
// fallback should catch the error and proceed with an empty key list.
func (g *Generator) Generate(ctx context.Context, c Context) (Result, error) {
	prompt := buildPrompt(c)
	raw, err := g.backend.CompleteJSON(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, atlaserrors.Validation("qntm generation returned malformed JSON: %v", err)
	}

	return Result{Keys: Sanitize(parsed.Keys), Reasoning: parsed.Reasoning}, nil
}

// queryExpansionTemplate bridges query vocabulary to stored QNTM keys.
const queryExpansionTemplate = `Given the search query below and a sample of QNTM keys already present in the index, propose additional QNTM-style keys ("@subject ~ relation") that would help bridge the query's vocabulary to related stored content.

Query: %s

Existing keys sample: %s

Respond with JSON: {"keys": ["@subject ~ relation", ...], "reasoning": "short explanation"}`

// GenerateQueryKeys produces query-time expansion keys for search-time
// vocabulary bridging (distinct from per-chunk generation: the prompt
// template and inputs differ).
func (g *Generator) GenerateQueryKeys(ctx context.Context, query string, existingKeys []string) (Result, error) {
	sample := existingKeys
	if len(sample) > maxExistingKeysInPrompt {
		sample = sample[:maxExistingKeysInPrompt]
	}
	prompt := fmt.Sprintf(queryExpansionTemplate, query, strings.Join(sample, ", "))

	raw, err := g.backend.CompleteJSON(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, atlaserrors.Validation("query expansion returned malformed JSON: %v", err)
	}
	return Result{Keys: Sanitize(parsed.Keys), Reasoning: parsed.Reasoning}, nil
}

// Sanitize trims whitespace, normalizes internal runs of whitespace,
// drops empties, and dedupes while preserving first-seen order.
func Sanitize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		k = strings.Join(strings.Fields(k), " ")
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
