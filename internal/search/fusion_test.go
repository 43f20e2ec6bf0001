package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRRFFusion_Fuse_EmptyInputsReturnEmptySlice(t *testing.T) {
	f := NewRRFFusion()
	results := f.Fuse(nil, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRRFFusion_Fuse_LexicalOnlyPreservesOrder(t *testing.T) {
	f := NewRRFFusion()
	results := f.Fuse([]string{"a", "b", "c"}, nil)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].CandidateID)
	assert.Equal(t, "b", results[1].CandidateID)
	assert.Equal(t, "c", results[2].CandidateID)
	assert.Greater(t, results[0].RRFScore, results[1].RRFScore)
	assert.Greater(t, results[1].RRFScore, results[2].RRFScore)
}

func TestRRFFusion_Fuse_BoostsIdsInBothLists(t *testing.T) {
	f := NewRRFFusion()
	// "b" ranks lower in L but appears in V too, so it should catch up to
	// or pass an id that is lexical-only.
	results := f.Fuse([]string{"a", "b"}, []string{"b"})

	var scoreA, scoreB float64
	for _, r := range results {
		switch r.CandidateID {
		case "a":
			scoreA = r.RRFScore
		case "b":
			scoreB = r.RRFScore
		}
	}
	assert.Greater(t, scoreB, scoreA)
}

func TestRRFFusion_Fuse_TiesBreakByLexicographicID(t *testing.T) {
	f := NewRRFFusionWithK(60)
	// Both ids appear at the same rank in disjoint single-element lists,
	// producing equal scores.
	results := f.Fuse([]string{"zebra"}, []string{"apple"})
	require.Len(t, results, 2)
	assert.Equal(t, "apple", results[0].CandidateID)
	assert.Equal(t, "zebra", results[1].CandidateID)
}

func TestRRFFusion_NewRRFFusionWithK_DefaultsWhenNonPositive(t *testing.T) {
	f := NewRRFFusionWithK(0)
	assert.Equal(t, DefaultRRFConstant, f.K)
}
