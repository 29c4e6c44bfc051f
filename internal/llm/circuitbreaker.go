package llm

import (
	"context"

	"github.com/inherent-design/atlas-sub010/internal/circuitbreaker"
)

// CircuitBreakerBackend wraps a Backend with a circuit breaker so a
// failing remote JSON-LLM provider stops absorbing the retry budget on
// every QNTM-generation, query-expansion, or consolidation-classify
// call once it has failed enough in a row, and trips back to serving
// traffic automatically once its cooldown elapses.
type CircuitBreakerBackend struct {
	backend Backend
	breaker *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerBackend wraps backend with cfg's trip thresholds.
// A nil cfg uses circuitbreaker.DefaultConfig().
func NewCircuitBreakerBackend(backend Backend, cfg *circuitbreaker.Config) *CircuitBreakerBackend {
	return &CircuitBreakerBackend{backend: backend, breaker: circuitbreaker.New(cfg)}
}

func (b *CircuitBreakerBackend) Name() string                   { return b.backend.Name() }
func (b *CircuitBreakerBackend) Capabilities() []Capability      { return b.backend.Capabilities() }

func (b *CircuitBreakerBackend) CompleteJSON(ctx context.Context, prompt string) ([]byte, error) {
	var out []byte
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		result, err := b.backend.CompleteJSON(ctx, prompt)
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
