package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inherent-design/atlas-sub010/internal/circuitbreaker"
)

func TestCircuitBreakerBackendPassesThroughOnSuccess(t *testing.T) {
	mock := NewMockBackend("mock", []byte(`{"ok":true}`))
	wrapped := NewCircuitBreakerBackend(mock, nil)

	out, err := wrapped.CompleteJSON(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(out))
	assert.Equal(t, circuitbreaker.StateClosed, wrapped.State())
}

func TestCircuitBreakerBackendTripsAfterThreshold(t *testing.T) {
	mock := NewMockBackend("mock", nil)
	mock.Err = errors.New("backend unavailable")
	wrapped := NewCircuitBreakerBackend(mock, &circuitbreaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := wrapped.CompleteJSON(context.Background(), "prompt")
		assert.Error(t, err, "expected error from failing backend")
	}
	assert.Equal(t, circuitbreaker.StateOpen, wrapped.State())

	_, err := wrapped.CompleteJSON(context.Background(), "prompt")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, mock.Calls, "expected backend not called while circuit open")
}
