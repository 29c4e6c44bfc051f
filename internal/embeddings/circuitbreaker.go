package embeddings

import (
	"context"

	"github.com/inherent-design/atlas-sub010/internal/circuitbreaker"
)

// CircuitBreakerBackend wraps a Backend with a circuit breaker so a
// failing remote embedding provider stops absorbing ingest and search
// traffic once it has failed enough in a row, and resumes automatically
// once its cooldown elapses.
type CircuitBreakerBackend struct {
	backend Backend
	breaker *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerBackend wraps backend with cfg's trip thresholds. A
// nil cfg uses circuitbreaker.DefaultConfig().
func NewCircuitBreakerBackend(backend Backend, cfg *circuitbreaker.Config) *CircuitBreakerBackend {
	return &CircuitBreakerBackend{backend: backend, breaker: circuitbreaker.New(cfg)}
}

func (b *CircuitBreakerBackend) Name() string              { return b.backend.Name() }
func (b *CircuitBreakerBackend) Capabilities() []Capability { return b.backend.Capabilities() }

func (b *CircuitBreakerBackend) EmbedText(ctx context.Context, inputs []string) (*Result, error) {
	var out *Result
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		result, err := b.backend.EmbedText(ctx, inputs)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// State reports the breaker's current state, for diagnostics.
func (b *CircuitBreakerBackend) State() circuitbreaker.State { return b.breaker.GetState() }
