// Package watchdog implements the Consolidation Watchdog & Pause
// Controller: it tracks in-flight ingestion, trips a pause once either
// the ingest-count or elapsed-time trigger fires, drains in-flight work,
// runs one consolidation pass, and resumes.
package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/inherent-design/atlas-sub010/internal/consolidation"
	"github.com/inherent-design/atlas-sub010/internal/logging"
)

// Config tunes the watchdog's triggers and the consolidation pass it
// invokes once tripped.
type Config struct {
	Engine                 *consolidation.Engine
	Logger                 logging.Logger
	IngestThreshold        int
	TimeThreshold          time.Duration
	DrainTimeout           time.Duration
	PollInterval           time.Duration
	ConsolidationThreshold int // percentage 0..100; 0 means the engine's default
}

// Watchdog implements ingest.PauseGate and drives the background
// consolidation scheduler.
type Watchdog struct {
	engine *consolidation.Engine
	logger logging.Logger

	ingestThreshold        int
	timeThreshold          time.Duration
	drainTimeout           time.Duration
	pollInterval           time.Duration
	consolidationThreshold int

	mu                sync.Mutex
	paused            bool
	inFlight          int
	ingestedSinceLast int
	lastRun           time.Time
	drained           chan struct{}

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config) *Watchdog {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	drainTimeout := cfg.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}
	return &Watchdog{
		engine:                 cfg.Engine,
		logger:                 logger.WithComponent("watchdog"),
		ingestThreshold:        cfg.IngestThreshold,
		timeThreshold:          cfg.TimeThreshold,
		drainTimeout:           drainTimeout,
		pollInterval:           pollInterval,
		consolidationThreshold: cfg.ConsolidationThreshold,
		lastRun:                time.Now(),
	}
}

// IsPaused reports whether ingestion should be skipped right now.
func (w *Watchdog) IsPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// RegisterInFlight records the start of one ingest operation.
func (w *Watchdog) RegisterInFlight() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight++
}

// CompleteInFlight records the end of one ingest operation, waking the
// drain waiter if this was the last one outstanding.
func (w *Watchdog) CompleteInFlight() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight--
	if w.inFlight <= 0 && w.drained != nil {
		close(w.drained)
		w.drained = nil
	}
}

// RecordIngestion accounts for n freshly stored chunks toward the
// ingest-count trigger.
func (w *Watchdog) RecordIngestion(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ingestedSinceLast += n
}

// shouldTrip reports whether either trigger has fired.
func (w *Watchdog) shouldTrip() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused {
		return false
	}
	if w.ingestThreshold > 0 && w.ingestedSinceLast >= w.ingestThreshold {
		return true
	}
	if w.timeThreshold > 0 && time.Since(w.lastRun) >= w.timeThreshold {
		return true
	}
	return false
}

// Start launches the background scheduler goroutine.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	if w.stop == nil {
		w.stop = make(chan struct{})
	}
	stop := w.stop
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if w.shouldTrip() {
					w.runCycle(ctx)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background scheduler and waits for it to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	stop := w.stop
	w.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	w.wg.Wait()
}

// runCycle performs the pause/drain/consolidate/resume sequence
//.
func (w *Watchdog) runCycle(ctx context.Context) {
	w.mu.Lock()
	w.paused = true
	drained := make(chan struct{})
	if w.inFlight <= 0 {
		close(drained)
	} else {
		w.drained = drained
	}
	w.mu.Unlock()

	select {
	case <-drained:
	case <-time.After(w.drainTimeout):
		w.logger.Warn("drain timeout elapsed with in-flight ingestion outstanding, consolidating anyway")
	case <-ctx.Done():
		w.mu.Lock()
		w.paused = false
		w.mu.Unlock()
		return
	}

	summary, err := w.engine.Run(ctx, consolidation.Options{Threshold: w.consolidationThreshold})
	if err != nil {
		w.logger.Warn("consolidation pass failed", "error", err)
	} else {
		w.logger.Info("consolidation pass complete", "consolidated", summary.Consolidated, "candidates", summary.CandidatesFound)
	}

	w.mu.Lock()
	w.ingestedSinceLast = 0
	w.lastRun = time.Now()
	w.paused = false
	w.mu.Unlock()
}

// RunNow forces one consolidation cycle immediately, bypassing the
// trigger check. The cycle engages the pause gate and drains in-flight
// work just as a triggered one does.
func (w *Watchdog) RunNow(ctx context.Context) {
	w.runCycle(ctx)
}
