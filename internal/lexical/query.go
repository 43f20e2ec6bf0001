package lexical

import "encoding/json"

// Clause is a single leaf of a bool query — a match, range, or terms filter
// rendered straight to the lexical engine's native JSON query DSL.
type Clause map[string]any

// AutoFuzziness is the fuzziness level the spec requires for skill/location
// matching — the lexical engine tolerates small typos without an explicit
// edit-distance budget.
const AutoFuzziness = "AUTO"

// MatchClause builds a fuzzy match clause against a single field.
func MatchClause(field, value string) Clause {
	return Clause{
		"match": map[string]any{
			field: map[string]any{
				"query":     value,
				"fuzziness": AutoFuzziness,
			},
		},
	}
}

// TermsClause builds an exact-match filter against one or more values.
func TermsClause(field string, values []string) Clause {
	return Clause{
		"terms": map[string]any{
			field: values,
		},
	}
}

// RangeClause builds a numeric range clause. Either bound may be nil.
func RangeClause(field string, gte, lte *float64) Clause {
	bounds := map[string]any{}
	if gte != nil {
		bounds["gte"] = *gte
	}
	if lte != nil {
		bounds["lte"] = *lte
	}
	return Clause{
		"range": map[string]any{
			field: bounds,
		},
	}
}

// IDsClause excludes (or includes) a set of document ids.
func IDsClause(ids []string) Clause {
	return Clause{
		"ids": map[string]any{
			"values": ids,
		},
	}
}

// Query is a boolean query: must/should/must_not clauses, falling back to
// match_all when every list is empty.
type Query struct {
	Must               []Clause
	Should             []Clause
	MustNot            []Clause
	MinimumShouldMatch int
}

// IsEmpty reports whether the query has no clauses at all, in which case it
// must be rendered as match_all rather than an empty bool query.
func (q Query) IsEmpty() bool {
	return len(q.Must) == 0 && len(q.Should) == 0 && len(q.MustNot) == 0
}

// MarshalJSON renders the query clause itself — either match_all or a bool
// query — for embedding in a search request body's "query" field.
func (q Query) MarshalJSON() ([]byte, error) {
	if q.IsEmpty() {
		return json.Marshal(map[string]any{
			"match_all": map[string]any{},
		})
	}

	boolBody := map[string]any{}
	if len(q.Must) > 0 {
		boolBody["must"] = q.Must
	}
	if len(q.Should) > 0 {
		boolBody["should"] = q.Should
		boolBody["minimum_should_match"] = q.MinimumShouldMatch
	}
	if len(q.MustNot) > 0 {
		boolBody["must_not"] = q.MustNot
	}

	return json.Marshal(map[string]any{
		"bool": boolBody,
	})
}
