package candidate

import (
	"fmt"
	"strings"
)

// SearchFilters is the structured request body for POST /v1/search/ (spec §3, §6).
type SearchFilters struct {
	Role           *string  `json:"role"`
	MustSkills     []string `json:"must_skills"`
	NiceSkills     []string `json:"nice_skills"`
	ExperienceMin  *float64 `json:"experience_min"`
	ExperienceMax  *float64 `json:"experience_max"`
	Location       *string  `json:"location"`
	WorkModes      []string `json:"work_modes"`
	ExcludeIDs     []string `json:"exclude_ids"`
}

// Normalize trims/lowercases skill lists and drops empties, matching the
// upstream pydantic validator's normalize_skills behavior. It mutates and
// returns the receiver for convenient chaining.
func (f *SearchFilters) Normalize() *SearchFilters {
	f.MustSkills = normalizeSkills(f.MustSkills)
	f.NiceSkills = normalizeSkills(f.NiceSkills)
	return f
}

func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate enforces the experience range invariant and non-negativity from
// spec §3/§7. Call after Normalize.
func (f *SearchFilters) Validate() error {
	if f.ExperienceMin != nil && *f.ExperienceMin < 0 {
		return fmt.Errorf("search filters: experience_min must be non-negative")
	}
	if f.ExperienceMax != nil && *f.ExperienceMax < 0 {
		return fmt.Errorf("search filters: experience_max must be non-negative")
	}
	if f.ExperienceMin != nil && f.ExperienceMax != nil && *f.ExperienceMin > *f.ExperienceMax {
		return fmt.Errorf("search filters: experience_min (%.2f) must be <= experience_max (%.2f)", *f.ExperienceMin, *f.ExperienceMax)
	}
	return nil
}

// IsEmpty reports whether every filter field is unset — the boundary case
// that must execute as match_all (spec §4.7, §8).
func (f *SearchFilters) IsEmpty() bool {
	return f.Role == nil &&
		len(f.MustSkills) == 0 &&
		len(f.NiceSkills) == 0 &&
		f.ExperienceMin == nil &&
		f.ExperienceMax == nil &&
		f.Location == nil &&
		len(f.WorkModes) == 0 &&
		len(f.ExcludeIDs) == 0
}
