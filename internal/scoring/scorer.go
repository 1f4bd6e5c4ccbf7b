// Package scoring turns a finished attempt's answers into a scored result.
// Everything here is pure: callers pass the full test definition (with answer
// keys) and the raw answer values; nothing is read or written elsewhere.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/edvisory/exam-engine/internal/catalog"
)

// SectionScore is the per-section breakdown attached to a completed attempt.
type SectionScore struct {
	SectionID string  `json:"section_id"`
	Name      string  `json:"name"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Answered  int     `json:"answered"`
	Ungraded  int     `json:"ungraded"`
}

// Result is the outcome of scoring one attempt.
type Result struct {
	RawPoints float64        `json:"raw_points"`
	MaxPoints float64        `json:"max_points"`
	Scaled    float64        `json:"scaled"` // RawPoints normalized to the test's ScoreScale
	Passed    bool           `json:"passed"`
	Ungraded  int            `json:"ungraded"` // free-text/speaking answers awaiting review
	Sections  []SectionScore `json:"sections"`
}

// Score grades every question in the test against the submitted values.
// A question with no submitted answer contributes 0 and never errors; a test
// with zero questions scores 0. Free-text and speaking responses are excluded
// from automatic totals and counted as ungraded.
func Score(t catalog.Test, answers map[string]json.RawMessage) (Result, error) {
	res := Result{Sections: make([]SectionScore, 0, len(t.Sections))}

	for _, sec := range t.Sections {
		ss := SectionScore{SectionID: sec.ID, Name: sec.Name}
		for _, q := range sec.Questions {
			ss.MaxPoints += q.Points
			raw, ok := answers[q.ID]
			if !ok || len(raw) == 0 {
				continue
			}
			ss.Answered++

			pts, ungraded, err := gradeOne(q, raw)
			if err != nil {
				return Result{}, fmt.Errorf("grade question %s: %w", q.ID, err)
			}
			if ungraded {
				ss.Ungraded++
				continue
			}
			ss.Points += pts
		}
		res.RawPoints += ss.Points
		res.MaxPoints += ss.MaxPoints
		res.Ungraded += ss.Ungraded
		res.Sections = append(res.Sections, ss)
	}

	if res.MaxPoints > 0 {
		scale := t.ScoreScale
		if scale <= 0 {
			scale = 100
		}
		res.Scaled = round2(res.RawPoints / res.MaxPoints * scale)
		res.Passed = res.Scaled >= t.PassingScore
	}
	return res, nil
}

// gradeOne applies type-specific equality. Malformed values score 0 rather
// than failing the whole attempt; the submit path already validated shape,
// so anything malformed here predates that validation.
func gradeOne(q catalog.Question, raw json.RawMessage) (points float64, ungraded bool, err error) {
	switch q.Type {
	case catalog.TypeSingleChoice:
		var v string
		if json.Unmarshal(raw, &v) != nil {
			return 0, false, nil
		}
		if len(q.CorrectAnswer) > 0 && v == q.CorrectAnswer[0] {
			return q.Points, false, nil
		}
		return 0, false, nil

	case catalog.TypeFillBlank:
		var v string
		if json.Unmarshal(raw, &v) != nil {
			return 0, false, nil
		}
		nv := normalize(v)
		for _, k := range q.CorrectAnswer {
			if normalize(k) == nv {
				return q.Points, false, nil
			}
		}
		return 0, false, nil

	case catalog.TypeMultiChoice:
		var v []string
		if json.Unmarshal(raw, &v) != nil {
			return 0, false, nil
		}
		if len(q.CorrectAnswer) > 0 && equalStringSets(v, q.CorrectAnswer) {
			return q.Points, false, nil
		}
		return 0, false, nil

	case catalog.TypeFreeText, catalog.TypeSpeaking:
		return 0, true, nil

	default:
		return 0, false, fmt.Errorf("unknown question type %q", q.Type)
	}
}

func equalStringSets(a, b []string) bool {
	seen := map[string]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
