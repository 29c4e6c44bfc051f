package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/circuitbreaker"
)

type failingBackend struct {
	calls int
}

func (f *failingBackend) Name() string              { return "failing" }
func (f *failingBackend) Capabilities() []Capability { return []Capability{CapabilityTextEmbedding} }
func (f *failingBackend) EmbedText(context.Context, []string) (*Result, error) {
	f.calls++
	return nil, errors.New("backend unavailable")
}

func TestCircuitBreakerBackendPassesThroughOnSuccess(t *testing.T) {
	mock := NewMockBackend("mock", 4)
	wrapped := NewCircuitBreakerBackend(mock, nil)

	result, err := wrapped.EmbedText(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, result.Embeddings, 1)
	assert.Equal(t, circuitbreaker.StateClosed, wrapped.State())
}

func TestCircuitBreakerBackendTripsAfterThreshold(t *testing.T) {
	backend := &failingBackend{}
	wrapped := NewCircuitBreakerBackend(backend, &circuitbreaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := wrapped.EmbedText(context.Background(), []string{"a"})
		require.Error(t, err, "expected error from failing backend")
	}
	assert.Equal(t, circuitbreaker.StateOpen, wrapped.State(), "expected open state after threshold failures")

	_, err := wrapped.EmbedText(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, backend.calls, "expected backend not called while circuit open")
}
