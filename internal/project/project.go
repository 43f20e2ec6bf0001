// Package project turns an upstream Candidate record into the two
// projections the rest of the pipeline indexes: a LexicalDoc for the
// keyword/filter store, and a semantic text string for embedding.
package project

import (
	"fmt"
	"strings"

	"github.com/itrecruiter/candidatesearch/internal/candidate"
	"github.com/itrecruiter/candidatesearch/internal/errors"
)

// ToLexical projects a Candidate into its LexicalDoc form. Candidates
// without an id are rejected — the lexical store cannot address them.
// Skill strings are lowercased and trimmed; empty skills are dropped.
func ToLexical(c candidate.Candidate) (candidate.LexicalDoc, error) {
	if c.ID == "" {
		return candidate.LexicalDoc{}, errors.ValidationError("candidate missing id, cannot project to lexical doc", nil)
	}

	skills := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		s := strings.ToLower(strings.TrimSpace(s.Skill))
		if s != "" {
			skills = append(skills, s)
		}
	}

	workModes := c.WorkModes
	if workModes == nil {
		workModes = []string{}
	}

	return candidate.LexicalDoc{
		ID:              c.ID,
		TelegramID:      c.TelegramID,
		HeadlineRole:    c.HeadlineRole,
		ExperienceYears: c.ExperienceYears,
		Location:        c.Location,
		WorkModes:       workModes,
		Skills:          skills,
	}, nil
}

// ToSemanticText concatenates field-prefixed segments into the single string
// that gets embedded: "Должность: <role>. Навыки: s1, s2. Проекты: t1: d1.
// t2: d2. Опыт: pos в company: resp. ...". Empty segments are dropped. An
// additional "Имя: <display_name>." segment is appended when present — this
// supplements the distilled format with a field the original projector also
// folds into its embedding input.
//
// This format is stable: it is part of the model-input contract. Changing it
// requires a full reindex, since existing vectors were embedded against the
// old text.
func ToSemanticText(c candidate.Candidate) string {
	var segments []string

	if c.HeadlineRole != nil && strings.TrimSpace(*c.HeadlineRole) != "" {
		segments = append(segments, fmt.Sprintf("Должность: %s", strings.TrimSpace(*c.HeadlineRole)))
	}

	if skills := skillSegment(c.Skills); skills != "" {
		segments = append(segments, fmt.Sprintf("Навыки: %s", skills))
	}

	if projects := projectSegment(c.Projects); projects != "" {
		segments = append(segments, fmt.Sprintf("Проекты: %s", projects))
	}

	if experiences := experienceSegment(c.Experiences); experiences != "" {
		segments = append(segments, fmt.Sprintf("Опыт: %s", experiences))
	}

	if c.DisplayName != nil && strings.TrimSpace(*c.DisplayName) != "" {
		segments = append(segments, fmt.Sprintf("Имя: %s", strings.TrimSpace(*c.DisplayName)))
	}

	return strings.Join(segments, ". ")
}

func skillSegment(skills []candidate.Skill) string {
	parts := make([]string, 0, len(skills))
	for _, s := range skills {
		s := strings.TrimSpace(s.Skill)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func projectSegment(projects []candidate.Project) string {
	parts := make([]string, 0, len(projects))
	for _, p := range projects {
		title := strings.TrimSpace(p.Title)
		desc := strings.TrimSpace(p.Description)
		switch {
		case title == "" && desc == "":
			continue
		case desc == "":
			parts = append(parts, title)
		case title == "":
			parts = append(parts, desc)
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", title, desc))
		}
	}
	return strings.Join(parts, ". ")
}

func experienceSegment(experiences []candidate.Experience) string {
	parts := make([]string, 0, len(experiences))
	for _, e := range experiences {
		position := strings.TrimSpace(e.Position)
		company := strings.TrimSpace(e.Company)
		resp := strings.TrimSpace(e.Responsibilities)

		var head string
		switch {
		case position == "" && company == "":
			head = ""
		case company == "":
			head = position
		case position == "":
			head = company
		default:
			head = fmt.Sprintf("%s в %s", position, company)
		}

		switch {
		case head == "" && resp == "":
			continue
		case resp == "":
			parts = append(parts, head)
		case head == "":
			parts = append(parts, resp)
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", head, resp))
		}
	}
	return strings.Join(parts, ". ")
}
