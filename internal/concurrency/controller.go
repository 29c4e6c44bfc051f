// Package concurrency implements the Adaptive Concurrency Controller:
// a bounded task executor whose parallelism floats between [min,max]
// under a watchdog tied to the System Capacity Monitor.
package concurrency

import (
	"context"
	"sync"
	"time"

	"github.com/inherent-design/atlas-sub010/internal/capacity"
)

// State is a snapshot of the controller's observable counters.
type State struct {
	Active             int
	Pending            int
	CurrentConcurrency int
}

// Task is a unit of work submitted to Run.
type Task func(ctx context.Context) (any, error)

// Controller bounds concurrent execution of submitted tasks, shrinking
// or growing its limit in response to capacity.Monitor samples without
// ever cancelling already-running tasks.
type Controller struct {
	min, max int
	monitor  *capacity.Monitor
	static   int

	mu        sync.Mutex
	limit     int
	active    int
	pending   int
	waiters   []chan struct{}
	stopWatch chan struct{}
	wg        sync.WaitGroup
}

// New builds a controller whose concurrency floats in [min,max],
// starting at the static limit (clamped into range).
func New(monitor *capacity.Monitor, min, max, static int) *Controller {
	if static < min {
		static = min
	}
	if static > max {
		static = max
	}
	return &Controller{
		min:     min,
		max:     max,
		monitor: monitor,
		static:  static,
		limit:   static,
	}
}

// GetState returns a snapshot of the controller's counters.
func (c *Controller) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Active: c.active, Pending: c.pending, CurrentConcurrency: c.limit}
}

// Run executes task, blocking (FIFO) until a slot under the current
// concurrency limit is available, then runs task and returns its
// result.
func (c *Controller) Run(ctx context.Context, task Task) (any, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return task(ctx)
}

func (c *Controller) acquire(ctx context.Context) (func(), error) {
	c.mu.Lock()
	if c.active < c.limit {
		c.active++
		c.mu.Unlock()
		return c.releaseFunc(), nil
	}

	wait := make(chan struct{})
	c.pending++
	c.waiters = append(c.waiters, wait)
	c.mu.Unlock()

	select {
	case <-wait:
		return c.releaseFunc(), nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

func (c *Controller) releaseFunc() func() {
	return func() {
		c.mu.Lock()
		c.active--
		c.wakeLocked()
		c.mu.Unlock()
	}
}

// wakeLocked releases waiting tasks up to the current limit. Caller
// must hold c.mu.
func (c *Controller) wakeLocked() {
	for c.active < c.limit && len(c.waiters) > 0 {
		next := c.waiters[0]
		c.waiters = c.waiters[1:]
		c.pending--
		c.active++
		close(next)
	}
}

// StartWatchdog polls the capacity monitor every pollInterval,
// shrinking or growing the concurrency limit per its recommendation.
// Shrinking never cancels running tasks; it only withholds new slots
// until active drops to the new limit. A failed sample does not leave
// the limit unchanged: capacity.Monitor fails open and reports it as a
// nominal sample, so that poll moves the limit to the static limit.
func (c *Controller) StartWatchdog(ctx context.Context, pollInterval time.Duration) {
	c.mu.Lock()
	if c.stopWatch != nil {
		c.mu.Unlock()
		return
	}
	c.stopWatch = make(chan struct{})
	stop := c.stopWatch
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sample := c.monitor.Sample(ctx)
				recommended := sample.RecommendedConcurrency(c.static, c.min, c.max)
				c.mu.Lock()
				c.limit = recommended
				c.wakeLocked()
				c.mu.Unlock()
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopWatchdog stops the background polling goroutine, if running, and
// waits for it to exit.
func (c *Controller) StopWatchdog() {
	c.mu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	c.wg.Wait()
}
