// Package activation implements Multi-Level Activation: a weighted
// fan-out search across consolidation levels L0-L3 plus a per-session
// working-memory buffer, and a plain-text renderer for the combined
// result.
package activation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/internal/search"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// DefaultLimit is the default total result budget across all levels.
const DefaultLimit = 20

// DefaultWeights is the default per-level weighting.
var DefaultWeights = LevelWeights{L0: 0.4, L1: 0.3, L2: 0.2, L3: 0.1}

// LevelWeights assigns a relative share of the result budget to each
// consolidation level.
type LevelWeights struct {
	L0, L1, L2, L3 float64
}

// ConversationTurn is one exchange held in a session's working-memory
// buffer.
type ConversationTurn struct {
	Role string
	Text string
}

// Params parameterizes one activation call.
type Params struct {
	Query     string
	SessionID string
	Limit     int
	Weights   LevelWeights
}

// Result is the combined output of one activation call.
type Result struct {
	Working        []ConversationTurn
	L0             []search.Result
	L1             []search.Result
	L2             []search.Result
	L3             []search.Result
	TotalResults   int
	QueryExpansion []string
}

// WorkingMemory is a bounded, per-session FIFO buffer of recent
// conversation turns. It is held entirely in process memory and is not
// persisted to the chunk store.
type WorkingMemory struct {
	mu       sync.Mutex
	capacity int
	buffers  map[string][]ConversationTurn
}

// NewWorkingMemory builds a buffer holding up to capacity turns per
// session.
func NewWorkingMemory(capacity int) *WorkingMemory {
	if capacity <= 0 {
		capacity = 20
	}
	return &WorkingMemory{capacity: capacity, buffers: make(map[string][]ConversationTurn)}
}

// Append adds a turn to sessionID's buffer, evicting the oldest turn if
// the buffer is at capacity.
func (w *WorkingMemory) Append(sessionID string, turn ConversationTurn) {
	if sessionID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	buf := append(w.buffers[sessionID], turn)
	if len(buf) > w.capacity {
		buf = buf[len(buf)-w.capacity:]
	}
	w.buffers[sessionID] = buf
}

// Get returns a copy of sessionID's current buffer.
func (w *WorkingMemory) Get(sessionID string) []ConversationTurn {
	if sessionID == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	buf := w.buffers[sessionID]
	out := make([]ConversationTurn, len(buf))
	copy(out, buf)
	return out
}

// Clear drops sessionID's buffer.
func (w *WorkingMemory) Clear(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.buffers, sessionID)
}

// Engine wires the collaborators Multi-Level Activation orchestrates.
type Engine struct {
	search  *search.Engine
	working *WorkingMemory
	gen     *qntm.Generator
	logger  logging.Logger
}

// Config assembles an Engine.
type Config struct {
	Search        *search.Engine
	WorkingMemory *WorkingMemory
	Generator     *qntm.Generator
	Logger        logging.Logger
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	working := cfg.WorkingMemory
	if working == nil {
		working = NewWorkingMemory(20)
	}
	return &Engine{
		search:  cfg.Search,
		working: working,
		gen:     cfg.Generator,
		logger:  logger.WithComponent("activation"),
	}
}

// WorkingMemory exposes the engine's session buffer so callers can
// append turns as a conversation progresses.
func (e *Engine) WorkingMemory() *WorkingMemory { return e.working }

// Activate executes one multi-level activation.
func (e *Engine) Activate(ctx context.Context, p Params) (Result, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	weights := p.Weights
	if weights == (LevelWeights{}) {
		weights = DefaultWeights
	}

	working := e.working.Get(p.SessionID)

	var queryExpansion []string
	if e.gen != nil {
		if exp, err := e.gen.GenerateQueryKeys(ctx, p.Query, nil); err == nil {
			queryExpansion = exp.Keys
		} else {
			e.logger.Warn("query expansion failed during activation, proceeding without it", "error", err)
		}
	}

	limits := perLevelLimits(limit, weights)

	type levelResult struct {
		level chunk.Level
		hits []search.Result
		err error
	}

	levels := []chunk.Level{chunk.LevelEpisodic, chunk.LevelTopic, chunk.LevelConcept, chunk.LevelPrinciple}
	out    := make([]levelResult, len(levels))
	var g errgroup.Group
	for i, lvl := range levels {
		i, lvl := i, lvl
		g.Go(func() error {
			level := lvl
			hits, err := e.search.Search(ctx, search.Params{
				Query:              p.Query,
				Limit:              limits[i],
				ConsolidationLevel: &level,
			})
			out[i] = levelResult{level: lvl, hits: hits, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Working: working, QueryExpansion: queryExpansion}
	for _, lr := range out {
		if lr.err != nil {
			e.logger.Warn("activation level search failed", "level", int(lr.level), "error", lr.err)
			continue
		}
		switch lr.level {
		case chunk.LevelEpisodic:
			result.L0 = lr.hits
		case chunk.LevelTopic:
			result.L1 = lr.hits
		case chunk.LevelConcept:
			result.L2 = lr.hits
		case chunk.LevelPrinciple:
			result.L3 = lr.hits
		}
		result.TotalResults += len(lr.hits)
	}
	return result, nil
}

// perLevelLimits computes ⌈limit·w_i/Σw⌉ for each of the four levels,
// never less than 1.
func perLevelLimits(limit int, w LevelWeights) [4]int {
	sum := w.L0 + w.L1 + w.L2 + w.L3
	if sum <= 0 {
		sum = 1
	}
	ceil := func(w float64) int {
		n := float64(limit) * w / sum
		i := int(n)
		if n > float64(i) {
			i++
		}
		if i < 1 {
			i = 1
		}
		return i
	}
	return [4]int{ceil(w.L0), ceil(w.L1), ceil(w.L2), ceil(w.L3)}
}

// FormatActivatedMemory renders a Result to a plain-text context block
// with section headers, truncating each hit to roughly 200 characters.
func FormatActivatedMemory(r Result) string {
	var sb strings.Builder

	if len(r.Working) > 0 {
		sb.WriteString("## Working Memory\n")
		for _, t := range r.Working {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", t.Role, truncate(t.Text, 200)))
		}
		sb.WriteString("\n")
	}

	writeLevel(&sb, "L0 (Episodic)", r.L0)
	writeLevel(&sb, "L1 (Topic)", r.L1)
	writeLevel(&sb, "L2 (Concept)", r.L2)
	writeLevel(&sb, "L3 (Principle)", r.L3)

	if len(r.QueryExpansion) > 0 {
		sb.WriteString("## Query Expansion\n")
		sb.WriteString(strings.Join(r.QueryExpansion, ", "))
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeLevel(sb *strings.Builder, header string, hits []search.Result) {
	if len(hits) == 0 {
		return
	}
	sb.WriteString("## ")
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, h := range hits {
		sb.WriteString(fmt.Sprintf("- (%s) %s\n", h.FilePath, truncate(h.Text, 200)))
	}
	sb.WriteString("\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
