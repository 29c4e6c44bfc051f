package chunkstore

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// MockStore is a full in-memory Store implementation for tests: it
// supports the same filter semantics as QdrantStore (via evalFilter)
// without a network dependency.
type MockStore struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string]map[string]*chunk.Chunk
}

func NewMockStore() *MockStore {
	return &MockStore{
		collections: make(map[string]int),
		points:      make(map[string]map[string]*chunk.Chunk),
	}
}

func (m *MockStore) CollectionExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MockStore) CreateCollection(_ context.Context, name string, vector VectorSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil
	}
	m.collections[name] = vector.Dimension
	m.points[name] = make(map[string]*chunk.Chunk)
	return nil
}

func (m *MockStore) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	delete(m.points, name)
	return nil
}

func (m *MockStore) GetCollectionInfo(_ context.Context, name string) (CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dim := m.collections[name]
	return CollectionInfo{Name: name, VectorDim: dim, PointCount: int64(len(m.points[name]))}, nil
}

func (m *MockStore) SetHNSW(_ context.Context, _ string, _ bool) error { return nil }

func (m *MockStore) Upsert(_ context.Context, collection string, chunks []*chunk.Chunk, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.points[collection] == nil {
		m.points[collection] = make(map[string]*chunk.Chunk)
	}
	for _, c := range chunks {
		cp := *c
		m.points[collection][c.ID] = &cp
	}
	return nil
}

func (m *MockStore) SetPayload(_ context.Context, collection string, ids []string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		c, ok := m.points[collection][id]
		if !ok {
			continue
		}
		applyPatch(c, patch)
	}
	return nil
}

func (m *MockStore) Delete(_ context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points[collection], id)
	}
	return nil
}

func (m *MockStore) Retrieve(_ context.Context, collection string, ids []string) ([]*chunk.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*chunk.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.points[collection][id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStore) Scroll(_ context.Context, collection string, params ScrollParams) (ScrollPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*chunk.Chunk
	for _, c := range m.points[collection] {
		if evalFilter(c, params.Filter) {
			cp := *c
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if params.Limit > 0 && len(matched) > params.Limit {
		matched = matched[:params.Limit]
	}
	return ScrollPage{Chunks: matched}, nil
}

func (m *MockStore) Search(_ context.Context, collection string, params SearchParams) ([]ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []ScoredChunk
	for _, c := range m.points[collection] {
		if !evalFilter(c, params.Filter) {
			continue
		}
		results = append(results, ScoredChunk{Chunk: func() *chunk.Chunk { cp := *c; return &cp }(), Score: cosineSimilarity(params.Vector, c.Vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

func (m *MockStore) FullTextSearch(_ context.Context, collection, query string, limit int) ([]FullTextResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	terms := strings.Fields(strings.ToLower(query))
	var results []FullTextResult
	for id, c := range m.points[collection] {
		text := strings.ToLower(c.OriginalText)
		score := 0.0
		for _, t := range terms {
			if strings.Contains(text, t) {
				score++
			}
		}
		if score > 0 {
			results = append(results, FullTextResult{ChunkID: id, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockStore) Close() error { return nil }

func applyPatch(c *chunk.Chunk, patch map[string]any) {
	for k, v := range patch {
		switch k {
		case "access_count":
			c.AccessCount = toInt64(v)
		case "last_accessed_at":
			if t, err := time.Parse(time.RFC3339, toString(v)); err == nil {
				c.LastAccessedAt = &t
			}
		case "superseded_by":
			c.SupersededBy = toString(v)
		case "deletion_eligible":
			c.DeletionEligible = toBool(v)
		case "deletion_marked_at":
			if t, err := time.Parse(time.RFC3339, toString(v)); err == nil {
				c.DeletionMarkedAt = &t
			}
		case "consolidated":
			c.Consolidated = toBool(v)
		case "parents":
			c.Parents = toStringList(v)
		case "consolidated_from":
			c.ConsolidatedFrom = toStringList(v)
		case "consolidation_type":
			c.ConsolidationType = chunk.ConsolidationType(toString(v))
		case "consolidation_direction":
			c.ConsolidationDirection = chunk.ConsolidationDirection(toString(v))
		case "consolidation_reasoning":
			c.ConsolidationReasoning = toString(v)
		}
	}
}

func toStringList(v any) []string {
	ss, _ := v.([]string)
	return ss
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// evalFilter applies Filter semantics against a single chunk, mirroring
// Qdrant's must/must_not/should evaluation for test purposes.
func evalFilter(c *chunk.Chunk, f *Filter) bool {
	if f == nil {
		return true
	}
	for _, cond := range f.Must {
		if !evalCondition(c, cond) {
			return false
		}
	}
	for _, cond := range f.MustNot {
		if evalCondition(c, cond) {
			return false
		}
	}
	if len(f.Should) > 0 {
		any := false
		for _, cond := range f.Should {
			if evalCondition(c, cond) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func evalCondition(c *chunk.Chunk, cond Condition) bool {
	value := fieldValue(c, cond.Key)
	switch {
	case cond.Match != nil && len(cond.Match.Any) > 0:
		for _, v := range cond.Match.Any {
			if value == v {
				return true
			}
		}
		if cond.Key == "qntm_keys" {
			for _, k := range c.QNTMKeys {
				for _, v := range cond.Match.Any {
					if k == v {
						return true
					}
				}
			}
		}
		return false
	case cond.Match != nil:
		if cond.Key == "qntm_keys" {
			for _, k := range c.QNTMKeys {
				if k == cond.Match.Value {
					return true
				}
			}
			return false
		}
		return value == cond.Match.Value
	case cond.Range != nil:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		if cond.Range.HasGte && n < *cond.Range.Gte {
			return false
		}
		if cond.Range.HasLte && n > *cond.Range.Lte {
			return false
		}
		return true
	case cond.IsNull:
		return false // fields modeled here are never explicitly null
	}
	return true
}

func fieldValue(c *chunk.Chunk, key string) string {
	switch key {
	case "is_head":
		return headString(c.SupersededBy == "")
	case "deletion_eligible":
		return headString(c.DeletionEligible)
	case "consolidated":
		return headString(c.Consolidated)
	case "file_path":
		return c.FilePath
	case "consolidation_level":
		return strconv.Itoa(int(c.ConsolidationLevel))
	case "content_type":
		return c.ContentType
	case "agent_role":
		return c.AgentRole
	case "temperature":
		return c.Temperature
	case "created_at_unix":
		return strconv.FormatInt(c.CreatedAt.Unix(), 10)
	default:
		return ""
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
