package attempt

import (
	"encoding/json"
	"time"

	"github.com/edvisory/exam-engine/internal/scoring"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Answer is one entry in the attempt's answer map. Re-submitting the same
// question overwrites the whole entry (last write wins).
type Answer struct {
	QuestionID   string          `json:"question_id"`
	Value        json.RawMessage `json:"value"`
	TimeSpentSec int64           `json:"time_spent_sec"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// Attempt is one candidate's run at a test, from start to a terminal state.
// TestID never changes after creation; CompletedAt and Score are set exactly
// when the attempt completes.
type Attempt struct {
	ID              string                 `json:"id"`
	TestID          string                 `json:"test_id"`
	UserID          string                 `json:"user_id"`
	Status          Status                 `json:"status"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	TimeSpentSec    int64                  `json:"time_spent_sec"`
	CurrentSection  int                    `json:"current_section"`
	CurrentQuestion int                    `json:"current_question"`
	Answers         map[string]Answer      `json:"answers"`
	Score           *float64               `json:"score,omitempty"`
	SectionScores   []scoring.SectionScore `json:"section_scores,omitempty"`
}

// AnswerValues flattens the answer map into the form the scorer consumes.
func (a Attempt) AnswerValues() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(a.Answers))
	for id, ans := range a.Answers {
		out[id] = ans.Value
	}
	return out
}
