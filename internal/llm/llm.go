// Package llm implements the JSON-LLM Backend Registry: a
// capability-indexed mapping from a completion tag to a backend that
// produces well-formed JSON for a caller-supplied prompt, used for
// QNTM key generation, query expansion, and consolidation
// classification.
package llm

import "context"

// Capability identifies what kind of completion a backend performs.
type Capability string

const (
	CapabilityTextCompletion Capability = "text-completion"
	CapabilityJSONCompletion Capability = "json-completion"
	CapabilityQNTMGeneration Capability = "qntm-generation"
)

// Backend produces a raw JSON completion for prompt. Callers unmarshal
// the returned bytes into their own schema; the backend itself is
// schema-agnostic.
type Backend interface {
	Name() string
	Capabilities() []Capability
	CompleteJSON(ctx context.Context, prompt string) ([]byte, error)
}

// Registry maps a capability to at most one active backend.
type Registry struct {
	backends map[Capability]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[Capability]Backend)}
}

func (r *Registry) Register(backend Backend) {
	for _, cap := range backend.Capabilities() {
		r.backends[cap] = backend
	}
}

func (r *Registry) Resolve(capability Capability) (Backend, bool) {
	b, ok := r.backends[capability]
	return b, ok
}
