// Package chunk defines the core data model persisted by the context
// engine: a Chunk, its supersession DAG, and the invariants that must
// hold across ingest, search, and consolidation.
package chunk

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Namespace is the fixed UUID v5 namespace chunk ids are derived under.
// Using a fixed namespace (rather than the ingestion root) keeps ids
// stable across re-ingestion from different working directories as long
// as the relative path is unchanged.
var Namespace = uuid.NewSHA1(uuid.Nil, []byte("atlas-chunk-namespace"))

// Importance is a coarse priority bucket carried on every chunk.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// Level is the consolidation abstraction level, L0 (episodic) through
// L3 (abstract principle).
type Level int

const (
	LevelEpisodic Level = iota
	LevelTopic
	LevelConcept
	LevelPrinciple
)

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelEpisodic && l <= LevelPrinciple
}

// ConsolidationType classifies how a successor chunk was produced.
type ConsolidationType string

const (
	ConsolidationDuplicateWork        ConsolidationType = "duplicate_work"
	ConsolidationSequentialIteration  ConsolidationType = "sequential_iteration"
	ConsolidationContextualConverge   ConsolidationType = "contextual_convergence"
)

// ConsolidationDirection records the temporal/semantic relation a merge
// establishes between predecessors and their successor.
type ConsolidationDirection string

const (
	DirectionForward    ConsolidationDirection = "forward"
	DirectionBackward   ConsolidationDirection = "backward"
	DirectionConvergent ConsolidationDirection = "convergent"
	DirectionUnknown    ConsolidationDirection = "unknown"
)

// Chunk is the unit of persisted context: a dense vector plus the
// payload fields described by the data model. Vectors are immutable
// after creation; only payload patches (access counters, soft-delete
// flags, supersession links) mutate a chunk post-ingest.
type Chunk struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"-"`

	OriginalText string `json:"original_text"`
	FilePath     string `json:"file_path"`
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`

	ChunkIndex  int `json:"chunk_index"`
	TotalChunks int `json:"total_chunks"`
	CharCount   int `json:"char_count"`

	QNTMKeys  []string  `json:"qntm_keys"`
	CreatedAt time.Time `json:"created_at"`

	Importance Importance `json:"importance"`

	Consolidated       bool  `json:"consolidated"`
	ConsolidationLevel Level `json:"consolidation_level"`

	ContentType string `json:"content_type,omitempty"`
	AgentRole   string `json:"agent_role,omitempty"`
	Temperature string `json:"temperature,omitempty"`

	// Supersession fields.
	SupersededBy           string                 `json:"superseded_by,omitempty"`
	Parents                []string               `json:"parents,omitempty"`
	ConsolidatedFrom       []string               `json:"consolidated_from,omitempty"`
	ConsolidationType      ConsolidationType       `json:"consolidation_type,omitempty"`
	ConsolidationDirection ConsolidationDirection  `json:"consolidation_direction,omitempty"`
	ConsolidationReasoning string                 `json:"consolidation_reasoning,omitempty"`

	// Soft delete.
	DeletionEligible bool       `json:"deletion_eligible"`
	DeletionMarkedAt *time.Time `json:"deletion_marked_at,omitempty"`

	// Access tracking.
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// DeriveID computes the deterministic chunk id for a given relative
// path and chunk index: the same (relativePath, chunkIndex) pair
// always yields the same id, making re-ingestion idempotent at the
// point level.
func DeriveID(relativePath string, chunkIndex int) string {
	name := relativePath + "#" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}

// IsHead reports whether c is the current canonical version of its
// lineage: it has not been superseded.
func (c *Chunk) IsHead() bool {
	return c.SupersededBy == ""
}

// Visible reports whether c should be considered by search and
// consolidation: it must be a head and not soft-deleted.
func (c *Chunk) Visible() bool {
	return c.IsHead() && !c.DeletionEligible
}
