package chunkstore

import "github.com/qdrant/go-client/qdrant"

// toQdrantFilter translates the Store's typed Filter into Qdrant's
// condition tree. is_null conditions are passed through as-is: Qdrant's
// IsNull matches only a field explicitly present with a null value, an
// absent field is not matched — so callers needing a positive
// head-test (is superseded_by unset) must express it as a condition
// elsewhere in the tree, not rely on is_null matching absence.
func toQdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	return &qdrant.Filter{
		Must:    toConditions(f.Must),
		MustNot: toConditions(f.MustNot),
		Should:  toConditions(f.Should),
	}
}

func toConditions(conds []Condition) []*qdrant.Condition {
	if len(conds) == 0 {
		return nil
	}
	out := make([]*qdrant.Condition, 0, len(conds))
	for _, c := range conds {
		out = append(out, toCondition(c))
	}
	return out
}

func toCondition(c Condition) *qdrant.Condition {
	field := &qdrant.FieldCondition{Key: c.Key}

	switch {
	case c.Match != nil && len(c.Match.Any) > 0:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: c.Match.Any}}}
	case c.Match != nil:
		field.Match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: c.Match.Value}}
	case c.Range != nil:
		r := &qdrant.Range{}
		if c.Range.HasGte {
			r.Gte = c.Range.Gte
		}
		if c.Range.HasLte {
			r.Lte = c.Range.Lte
		}
		field.Range = r
	case c.IsNull:
		return &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_IsNull{
				IsNull: &qdrant.IsNullCondition{Key: c.Key},
			},
		}
	}

	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{Field: field},
	}
}

// HeadFilter builds the positive must-condition restricting results to
// head chunks: a match on the explicitly-stored "is_head" field rather
// than an is_null test on "superseded_by", since Qdrant's is_null never
// matches an absent field.
func HeadFilter() Condition {
	return Condition{Key: "is_head", Match: &MatchValue{Value: "true"}}
}

// NotDeletionEligible builds the must_not condition excluding
// soft-deleted chunks from search and consolidation.
func NotDeletionEligible() Condition {
	return Condition{Key: "deletion_eligible", Match: &MatchValue{Value: "true"}}
}

// DeletionEligible builds the must condition selecting chunks marked
// for soft deletion, for callers (e.g. reclamation) that want them
// rather than exclude them.
func DeletionEligible() Condition {
	return Condition{Key: "deletion_eligible", Match: &MatchValue{Value: "true"}}
}
