package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inherent-design/atlas-sub010/internal/capacity"
)

func TestRunRespectsLimit(t *testing.T) {
	ctrl := New(capacity.NewMonitor(), 1, 2, 2)

	var active int32
	var maxSeen int32
	done := make(chan struct{})

	for i := 0; i < 6; i++ {
		go func() {
			_, _ = ctrl.Run(context.Background(), func(ctx context.Context) (any, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxSeen)
					if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				done <- struct{}{}
				return nil, nil
			})
		}()
	}

	for i := 0; i < 6; i++ {
		<-done
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2), "expected concurrency never to exceed 2")
}

func TestGetStateReflectsLimit(t *testing.T) {
	ctrl := New(capacity.NewMonitor(), 1, 5, 3)
	state := ctrl.GetState()
	assert.Equal(t, 3, state.CurrentConcurrency, "expected initial concurrency 3")
}

func TestStartStopWatchdog(t *testing.T) {
	ctrl := New(capacity.NewMonitor(), 1, 5, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.StartWatchdog(ctx, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	ctrl.StopWatchdog()
}
