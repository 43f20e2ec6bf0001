// Package search fuses the lexical filter stage and the semantic rerank
// stage of a candidate query using Reciprocal Rank Fusion (RRF).
package search

import "sort"

// DefaultRRFConstant is the RRF smoothing constant fixed by spec §4.7.
const DefaultRRFConstant = 60

// FusedResult is a single candidate after RRF fusion of the lexical (L) and
// semantic (V) rankings.
type FusedResult struct {
	CandidateID string
	RRFScore    float64
	LexicalRank int // 1-indexed position in L, 0 if absent
	VectorRank  int // 1-indexed position in V, 0 if absent
}

// RRFFusion combines a lexical ranking and a vector reranking using
// Reciprocal Rank Fusion: RRF_score(d) = Σ 1 / (k + rank_i + 1), rank_i
// zero-based per spec §4.7, summed over every list d appears in.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates an RRF fusion instance with the default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion instance with a custom k. If
// k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines the lexical ranking L and the semantic ranking V. Only ids
// with a nonzero score are returned, sorted by score descending, ties
// broken by lexicographically smaller id.
func (f *RRFFusion) Fuse(lexicalOrder, vectorOrder []string) []*FusedResult {
	if len(lexicalOrder) == 0 && len(vectorOrder) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(lexicalOrder)+len(vectorOrder))

	for rank, id := range lexicalOrder {
		r := f.getOrCreate(scores, id)
		r.LexicalRank = rank + 1
		r.RRFScore += 1.0 / float64(f.K+rank+1)
	}

	for rank, id := range vectorOrder {
		r := f.getOrCreate(scores, id)
		r.VectorRank = rank + 1
		r.RRFScore += 1.0 / float64(f.K+rank+1)
	}

	return f.toSortedSlice(scores)
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{CandidateID: id}
	m[id] = r
	return r
}

func (f *RRFFusion) toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	return results
}
