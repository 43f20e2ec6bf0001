// Package candidate defines the data model shared by every component of the
// hybrid search pipeline: the external Candidate record fetched from the
// upstream source-of-truth API, and the two projections derived from it.
package candidate

import "fmt"

// Skill is a single entry in Candidate.Skills. Only the Skill field is
// projected into LexicalDoc and the semantic text; any other fields in an
// upstream skill object are dropped on decode.
type Skill struct {
	Skill string `json:"skill"`
}

// Project is a single entry in Candidate.Projects.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Experience is a single entry in Candidate.Experiences.
type Experience struct {
	Position         string `json:"position"`
	Company          string `json:"company"`
	Responsibilities string `json:"responsibilities"`
}

// Candidate is the external, read-only record returned by the upstream
// candidate API. Field set per spec §3.
type Candidate struct {
	ID              string       `json:"id"`
	TelegramID      int64        `json:"telegram_id"`
	HeadlineRole    *string      `json:"headline_role"`
	ExperienceYears *float64     `json:"experience_years"`
	Location        *string      `json:"location"`
	WorkModes       []string     `json:"work_modes"`
	Skills          []Skill      `json:"skills"`
	Projects        []Project    `json:"projects"`
	Experiences     []Experience `json:"experiences"`
	DisplayName     *string      `json:"display_name"`
}

// Validate enforces the minimal shape the rest of the pipeline depends on.
// A Candidate without an id cannot be projected, indexed, or deleted.
func (c Candidate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("candidate: missing id")
	}
	return nil
}

// LexicalDoc is the projection stored in the lexical store (§3). The field
// set is closed: unknown fields on the source Candidate are dropped. Skills
// are lowercased and trimmed with empty entries dropped; WorkModes are copied
// as given.
type LexicalDoc struct {
	ID              string   `json:"id"`
	TelegramID      int64    `json:"telegram_id"`
	HeadlineRole    *string  `json:"headline_role,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	Location        *string  `json:"location,omitempty"`
	WorkModes       []string `json:"work_modes"`
	Skills          []string `json:"skills"`
}

// Vector is the record stored in the ANN store (§3): one 768-dimensional
// embedding per candidate, keyed by CandidateID.
type Vector struct {
	CandidateID string
	Embedding   []float32
}

// Dimensions is the fixed embedding width the whole system is built around.
// Every Vector written must satisfy len(Embedding) == Dimensions.
const Dimensions = 768
