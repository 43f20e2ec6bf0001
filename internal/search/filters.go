package search

import "strings"

// Filters is a candidate search request (spec §3 SearchFilters). All fields
// are optional; a zero-value Filters matches everything.
type Filters struct {
	Role          string
	MustSkills    []string
	NiceSkills    []string
	ExperienceMin *float64
	ExperienceMax *float64
	Location      string
	WorkModes     []string
	ExcludeIDs    []string
}

// Normalize trims and lowercases skill lists, dropping empty entries, the
// way the lexical store's skill keywords are normalized on write.
func (f Filters) Normalize() Filters {
	f.MustSkills = normalizeSkills(f.MustSkills)
	f.NiceSkills = normalizeSkills(f.NiceSkills)
	f.Role = strings.TrimSpace(f.Role)
	f.Location = strings.TrimSpace(f.Location)
	return f
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
