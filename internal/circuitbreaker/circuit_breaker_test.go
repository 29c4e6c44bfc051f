package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          1 * time.Second,
	})

	ctx := context.Background()

	// Successful requests should work
	for i := 0; i < 5; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, StateClosed, cb.GetState())

	// Some failures, but below threshold
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	assert.Equal(t, StateClosed, cb.GetState(), "expected state to remain closed")

	// Success should reset failure count
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})

	// More failures should now be counted from zero
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	assert.Equal(t, StateClosed, cb.GetState(), "expected state to remain closed after reset")
}

func TestCircuitBreaker_OpenState(t *testing.T) {
	var stateChanges []string
	cb := New(&Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
		OnStateChange: func(from, to State) {
			stateChanges = append(stateChanges, fmt.Sprintf("%s->%s", from, to))
		},
	})

	ctx := context.Background()

	// Trigger failures to open circuit
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	assert.Equal(t, StateOpen, cb.GetState())

	// Requests should be rejected
	err := cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// Check state change was recorded
	require.Len(t, stateChanges, 1)
	assert.Equal(t, "closed->open", stateChanges[0])

	// Wait for timeout
	time.Sleep(150 * time.Millisecond)

	// Should transition to half-open on next request
	err = cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err, "expected no error in half-open state")

	assert.Equal(t, StateHalfOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenState(t *testing.T) {
	cb := New(&Config{
		FailureThreshold:      3,
		SuccessThreshold:      2,
		Timeout:               50 * time.Millisecond,
		MaxConcurrentRequests: 1,
	})

	ctx := context.Background()

	// Open the circuit
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	// Wait for timeout
	time.Sleep(100 * time.Millisecond)

	// First request should succeed and transition to half-open
	err := cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StateHalfOpen, cb.GetState())

	// Need one more success to close
	err = cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, StateClosed, cb.GetState(), "expected state to be closed after successes")
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	ctx := context.Background()

	// Open the circuit
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	// Wait for timeout
	time.Sleep(100 * time.Millisecond)

	// Failure in half-open should reopen
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		return errTest
	})

	assert.Equal(t, StateOpen, cb.GetState(), "expected state to be open after half-open failure")
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 1,
		Timeout:          1 * time.Second, // Set explicit timeout
	})

	ctx := context.Background()
	fallbackCalled := false

	// Trigger circuit open
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		return errTest
	})

	// Verify circuit is open
	require.Equal(t, StateOpen, cb.GetState())

	// Execute with fallback immediately (should still be open)
	err := cb.ExecuteWithFallback(ctx,
		func(ctx context.Context) error {
			t.Error("Function should not be called when circuit is open")
			return errors.New("should not be called")
		},
		func(ctx context.Context, originalErr error) error {
			fallbackCalled = true
			assert.ErrorIs(t, originalErr, ErrCircuitOpen)
			return nil
		},
	)

	require.NoError(t, err, "expected no error with fallback")
	assert.True(t, fallbackCalled, "expected fallback to be called")
}

func TestCircuitBreaker_ConcurrentRequests(t *testing.T) {
	cb := New(&Config{
		FailureThreshold:      3,
		SuccessThreshold:      2,
		Timeout:               50 * time.Millisecond,
		MaxConcurrentRequests: 2,
	})

	ctx := context.Background()

	// Open the circuit
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	// Wait for timeout
	time.Sleep(100 * time.Millisecond)

	var wg sync.WaitGroup
	var successCount int32
	var rejectCount int32

	// Try 5 concurrent requests in half-open state
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cb.Execute(ctx, func(ctx context.Context) error {
				time.Sleep(20 * time.Millisecond) // Simulate work - increased to ensure concurrency
				return nil
			})
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, ErrTooManyConcurrentRequests):
				atomic.AddInt32(&rejectCount, 1)
			default:
				t.Logf("Unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	// Should have allowed at most MaxConcurrentRequests (2) in half-open
	// But since 2 successes close the circuit, we might get more successes
	// So every request must either succeed or be rejected as too many
	// concurrent requests, and with no rejection all 5 must have succeeded
	t.Logf("Success count: %d, Reject count: %d", successCount, rejectCount)

	assert.NotZero(t, successCount, "expected at least some successful requests")
	if rejectCount == 0 {
		assert.Equal(t, int32(5), successCount, "expected all 5 requests to succeed when none was rejected")
	}
	assert.Equal(t, int32(5), successCount+rejectCount)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 3,
	})

	ctx := context.Background()

	// Execute some requests
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return errTest
		})
	}

	stats := cb.GetStats()

	assert.EqualValues(t, 5, stats.TotalRequests)
	assert.EqualValues(t, 3, stats.TotalSuccesses)
	assert.EqualValues(t, 2, stats.TotalFailures)
	assert.InDelta(t, 0.4, stats.FailureRate, 0.0001)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 1,
	})

	ctx := context.Background()

	// Open the circuit
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		return errTest
	})

	require.Equal(t, StateOpen, cb.GetState())

	// Reset
	cb.Reset()

	assert.Equal(t, StateClosed, cb.GetState(), "expected circuit to be closed after reset")

	// Should be able to execute again
	err := cb.Execute(ctx, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestCircuitBreaker_RaceConditions(t *testing.T) {
	cb := New(&Config{
		FailureThreshold: 10,
		SuccessThreshold: 5,
		Timeout:          10 * time.Millisecond,
	})

	ctx := context.Background()
	done := make(chan bool)

	// Concurrent executions
	go func() {
		for i := 0; i < 100; i++ {
			_ = cb.Execute(ctx, func(ctx context.Context) error {
				if i%3 == 0 {
					return errTest
				}
				return nil
			})
		}
		done <- true
	}()

	// Concurrent stats reading
	go func() {
		for i := 0; i < 100; i++ {
			_ = cb.GetStats()
			_ = cb.GetState()
		}
		done <- true
	}()

	// Concurrent state transitions
	go func() {
		for i := 0; i < 10; i++ {
			time.Sleep(15 * time.Millisecond)
			if cb.GetState() == StateOpen {
				time.Sleep(15 * time.Millisecond) // Wait for timeout
			}
		}
		done <- true
	}()

	// Wait for all goroutines
	for i := 0; i < 3; i++ {
		<-done
	}

	// Circuit should still be in a valid state
	state := cb.GetState()
	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, state, "invalid state after race test")
}
