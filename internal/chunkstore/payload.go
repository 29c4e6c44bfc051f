package chunkstore

import (
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

func chunkToPoint(c *chunk.Chunk) *qdrant.PointStruct {
	payload := map[string]*qdrant.Value{
		"original_text": strValue(c.OriginalText),
		"file_path": strValue(c.FilePath),
		"file_name": strValue(c.FileName),
		"file_type": strValue(c.FileType),
		"chunk_index": intValue(int64(c.ChunkIndex)),
		"total_chunks": intValue(int64(c.TotalChunks)),
		"char_count": intValue(int64(c.CharCount)),
		"qntm_keys": strListValue(c.QNTMKeys),
		"created_at": strValue(c.CreatedAt.UTC().Format(time.RFC3339)),
		"created_at_unix": intValue(c.CreatedAt.Unix()),
		"importance": strValue(string(c.Importance)),
		// consolidated is stored as a matchable string rather than a
		// boolean for the same reason as is_head/deletion_eligible: the
		// filter algebra's Condition only supports keyword matching.
		"consolidated": strValue(headString(c.Consolidated)),
		"consolidation_level": intValue(int64(c.ConsolidationLevel)),
		"content_type": strValue(c.ContentType),
		"agent_role": strValue(c.AgentRole),
		"temperature": strValue(c.Temperature),
		"access_count": intValue(c.AccessCount),
		// deletion_eligible and is_head are stored as matchable strings
		// rather than booleans: Qdrant's is_null only matches a field
		// present with an explicit null, never an absent field, so a
		// head-test (or a deletion-eligibility test) cannot rely on
		// is_null over an unset field — it needs a positive keyword
		// match instead.
		"deletion_eligible": strValue(headString(c.DeletionEligible)),
		"is_head": strValue(headString(c.SupersededBy == "")),
	}
	if c.SupersededBy != "" {
		payload["superseded_by"] = strValue(c.SupersededBy)
	}
	if len(c.Parents) > 0 {
		payload["parents"] = strListValue(c.Parents)
	}
	if len(c.ConsolidatedFrom) > 0 {
		payload["consolidated_from"] = strListValue(c.ConsolidatedFrom)
	}
	if c.ConsolidationType != "" {
		payload["consolidation_type"] = strValue(string(c.ConsolidationType))
	}
	if c.ConsolidationDirection != "" {
		payload["consolidation_direction"] = strValue(string(c.ConsolidationDirection))
	}
	if c.ConsolidationReasoning != "" {
		payload["consolidation_reasoning"] = strValue(c.ConsolidationReasoning)
	}
	if c.DeletionMarkedAt != nil {
		payload["deletion_marked_at"] = strValue(c.DeletionMarkedAt.UTC().Format(time.RFC3339))
	}
	if c.LastAccessedAt != nil {
		payload["last_accessed_at"] = strValue(c.LastAccessedAt.UTC().Format(time.RFC3339))
	}

	return &qdrant.PointStruct{
		Id:      stringToPointID(c.ID),
		Payload: payload,
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{"text": qdrant.NewVector(c.Vector...)}),
	}
}

func retrievedPointToChunk(p *qdrant.RetrievedPoint) *chunk.Chunk {
	c := payloadToChunk(pointIDToString(p.Id), p.Payload)
	if vecs := p.GetVectors(); vecs != nil {
		if named := vecs.GetVectors(); named != nil {
			if v, ok := named.GetVectors()["text"]; ok {
				c.Vector = v.GetData()
			}
		}
	}
	return c
}

func scoredPointToChunk(p *qdrant.ScoredPoint) *chunk.Chunk {
	c := payloadToChunk(pointIDToString(p.Id), p.Payload)
	if vecs := p.GetVectors(); vecs != nil {
		if named := vecs.GetVectors(); named != nil {
			if v, ok := named.GetVectors()["text"]; ok {
				c.Vector = v.GetData()
			}
		}
	}
	return c
}

func payloadToChunk(id string, payload map[string]*qdrant.Value) *chunk.Chunk {
	c := &chunk.Chunk{ID: id}
	c.OriginalText = getString(payload, "original_text")
	c.FilePath = getString(payload, "file_path")
	c.FileName = getString(payload, "file_name")
	c.FileType = getString(payload, "file_type")
	c.ChunkIndex = int(getInt(payload, "chunk_index"))
	c.TotalChunks = int(getInt(payload, "total_chunks"))
	c.CharCount = int(getInt(payload, "char_count"))
	c.QNTMKeys = getStringList(payload, "qntm_keys")
	if t, err := time.Parse(time.RFC3339, getString(payload, "created_at")); err == nil {
		c.CreatedAt = t
	}
	c.Importance = chunk.Importance(getString(payload, "importance"))
	c.Consolidated = getString(payload, "consolidated") == "true"
	c.ConsolidationLevel = chunk.Level(getInt(payload, "consolidation_level"))
	c.ContentType = getString(payload, "content_type")
	c.AgentRole = getString(payload, "agent_role")
	c.Temperature = getString(payload, "temperature")
	c.SupersededBy = getString(payload, "superseded_by")
	c.Parents = getStringList(payload, "parents")
	c.ConsolidatedFrom = getStringList(payload, "consolidated_from")
	c.ConsolidationType = chunk.ConsolidationType(getString(payload, "consolidation_type"))
	c.ConsolidationDirection = chunk.ConsolidationDirection(getString(payload, "consolidation_direction"))
	c.ConsolidationReasoning = getString(payload, "consolidation_reasoning")
	c.DeletionEligible = getString(payload, "deletion_eligible") == "true"
	if raw := getString(payload, "deletion_marked_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			c.DeletionMarkedAt = &t
		}
	}
	c.AccessCount = getInt(payload, "access_count")
	if raw := getString(payload, "last_accessed_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			c.LastAccessedAt = &t
		}
	}
	return c
}

func headString(isHead bool) string {
	if isHead {
		return "true"
	}
	return "false"
}

func strValue(s string) *qdrant.Value { return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}} }
func intValue(i int64) *qdrant.Value { return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}} }
func boolValue(b bool) *qdrant.Value { return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: b}} }

func strListValue(ss []string) *qdrant.Value {
	values := make([]*qdrant.Value, len(ss))
	for i, s := range ss {
		values[i] = strValue(s)
	}
	return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
}

func toQdrantValue(v any) *qdrant.Value {
	switch x := v.(type) {
	case string:
		return strValue(x)
	case int:
		return intValue(int64(x))
	case int64:
		return intValue(x)
	case bool:
		return boolValue(x)
	case []string:
		return strListValue(x)
	case time.Time:
		return strValue(x.UTC().Format(time.RFC3339))
	default:
		return strValue("")
	}
}

func getString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getInt(payload map[string]*qdrant.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func getStringList(payload map[string]*qdrant.Value, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil
	}
	out := make([]string, 0, len(lv.Values))
	for _, item := range lv.Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

func stringToPointID(s string) *qdrant.PointId {
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: s}}
}

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	return id.GetUuid()
}
