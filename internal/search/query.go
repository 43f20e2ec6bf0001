package search

import "github.com/itrecruiter/candidatesearch/internal/lexical"

// StageOneSize is the number of candidate ids fetched from the lexical
// filter stage before semantic rerank narrows them down.
const StageOneSize = 500

// buildFilterQuery renders the spec §4.7 stage-one structured filter: a
// boolean query over experience range, location, must/nice skills, work
// modes, and excluded ids. Nice skills land in `should` with
// minimum_should_match=0 so they only influence ranking, never exclude a
// candidate that lacks them.
func buildFilterQuery(f Filters) lexical.Query {
	var q lexical.Query

	if f.ExperienceMin != nil || f.ExperienceMax != nil {
		q.Must = append(q.Must, lexical.RangeClause("experience_years", f.ExperienceMin, f.ExperienceMax))
	}
	if f.Location != "" {
		q.Must = append(q.Must, lexical.MatchClause("location", f.Location))
	}
	for _, skill := range f.MustSkills {
		q.Must = append(q.Must, lexical.MatchClause("skills", skill))
	}
	if len(f.WorkModes) > 0 {
		q.Must = append(q.Must, lexical.TermsClause("work_modes", f.WorkModes))
	}

	for _, skill := range f.NiceSkills {
		q.Should = append(q.Should, lexical.MatchClause("skills", skill))
	}
	q.MinimumShouldMatch = 0

	if len(f.ExcludeIDs) > 0 {
		q.MustNot = append(q.MustNot, lexical.IDsClause(f.ExcludeIDs))
	}

	return q
}

// buildSemanticQueryText joins role and nice skills into the text encoded
// for stage two. An empty result means stage two is skipped entirely.
func buildSemanticQueryText(f Filters) string {
	var parts []string
	if f.Role != "" {
		parts = append(parts, f.Role)
	}
	parts = append(parts, f.NiceSkills...)

	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
