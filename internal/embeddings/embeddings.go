// Package embeddings implements the Embedding Backend Registry: a
// capability-indexed mapping from a text/code embedding tag to a
// backend that turns text into fixed-dimension vectors.
package embeddings

import (
	"context"
)

// Capability identifies which kind of content a backend embeds.
type Capability string

const (
	CapabilityTextEmbedding           Capability = "text-embedding"
	CapabilityCodeEmbedding           Capability = "code-embedding"
	CapabilityContextualizedEmbedding Capability = "contextualized-embedding"
)

// Result is the outcome of an embedText call.
type Result struct {
	Embeddings [][]float32
	Model      string
	Dimensions int
	Usage      *Usage
}

// Usage reports token accounting from the provider, when available.
type Usage struct {
	PromptTokens int
	TotalTokens  int
}

// Backend embeds one or more strings into vectors sharing a single
// declared dimension. embeddings.length must equal len(inputs).
type Backend interface {
	Name() string
	Capabilities() []Capability
	EmbedText(ctx context.Context, inputs []string) (*Result, error)
}

// Registry maps a capability to at most one active backend.
type Registry struct {
	backends map[Capability]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Capability]Backend)}
}

// Register installs backend under every capability it declares,
// overwriting any previous backend registered for the same capability.
func (r *Registry) Register(backend Backend) {
	for _, cap := range backend.Capabilities() {
		r.backends[cap] = backend
	}
}

// Resolve returns the backend registered for capability, or
// (nil, false) if none is registered.
func (r *Registry) Resolve(capability Capability) (Backend, bool) {
	b, ok := r.backends[capability]
	return b, ok
}
