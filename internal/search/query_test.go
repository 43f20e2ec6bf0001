package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(f float64) *float64 { return &f }

func TestBuildFilterQuery_EmptyFiltersProducesEmptyQuery(t *testing.T) {
	q := buildFilterQuery(Filters{})
	assert.True(t, q.IsEmpty())
}

func TestBuildFilterQuery_MustClausesFromExperienceLocationSkillsWorkModes(t *testing.T) {
	q := buildFilterQuery(Filters{
		ExperienceMin: float64Ptr(2),
		Location:      "Berlin",
		MustSkills:    []string{"go", "kubernetes"},
		WorkModes:     []string{"remote"},
	})

	require.Len(t, q.Must, 5)
	assert.False(t, q.IsEmpty())
}

func TestBuildFilterQuery_NiceSkillsGoToShouldWithZeroMinimumShouldMatch(t *testing.T) {
	q := buildFilterQuery(Filters{NiceSkills: []string{"rust"}})
	require.Len(t, q.Should, 1)
	assert.Equal(t, 0, q.MinimumShouldMatch)
}

func TestBuildFilterQuery_ExcludeIDsBecomeMustNot(t *testing.T) {
	q := buildFilterQuery(Filters{ExcludeIDs: []string{"c1", "c2"}})
	require.Len(t, q.MustNot, 1)
}

func TestBuildSemanticQueryText_JoinsRoleThenNiceSkills(t *testing.T) {
	text := buildSemanticQueryText(Filters{
		Role:       "Backend Engineer",
		NiceSkills: []string{"rust", "grpc"},
	})
	assert.Equal(t, "Backend Engineer, rust, grpc", text)
}

func TestBuildSemanticQueryText_EmptyWhenNoRoleOrNiceSkills(t *testing.T) {
	text := buildSemanticQueryText(Filters{MustSkills: []string{"go"}})
	assert.Empty(t, text)
}
