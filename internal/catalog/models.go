package catalog

// Question types understood by the engine. The type decides how a submitted
// value is validated and scored.
const (
	TypeSingleChoice = "single_choice"
	TypeMultiChoice  = "multi_choice"
	TypeFillBlank    = "fill_blank"
	TypeFreeText     = "free_text"
	TypeSpeaking     = "speaking"
)

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Question struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Prompt     string   `json:"prompt"`
	Options    []Option `json:"options,omitempty"`
	Points     float64  `json:"points"`
	OrderIndex int      `json:"order_index"`
	AudioKey   string   `json:"audio_key,omitempty"` // blob key, served via /assets
	ImageKey   string   `json:"image_key,omitempty"`

	// Privileged fields, stripped from the candidate-safe view.
	CorrectAnswer []string `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Section struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	OrderIndex       int        `json:"order_index"`
	TimeLimitMinutes int        `json:"time_limit_minutes,omitempty"`
	Questions        []Question `json:"questions"`
}

type Test struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PassingScore    float64   `json:"passing_score"`
	ScoreScale      float64   `json:"score_scale"` // e.g. 100 for percent, 9 for band
	Published       bool      `json:"published"`
	Sections        []Section `json:"sections"`
	CreatedAt       int64     `json:"created_at,omitempty"`
}

type TestSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	TotalQuestions  int    `json:"total_questions"`
}

// TotalQuestions counts questions across all sections.
func (t Test) TotalQuestions() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Questions)
	}
	return n
}

// MaxPoints sums point values across all questions.
func (t Test) MaxPoints() float64 {
	var p float64
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			p += q.Points
		}
	}
	return p
}

// FindQuestion locates a question by ID; ok is false if absent.
func (t Test) FindQuestion(questionID string) (Question, bool) {
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return Question{}, false
}

// Sanitized returns a copy safe to serve to candidates mid-attempt: correct
// answers and explanations removed, structure untouched.
func (t Test) Sanitized() Test {
	out := t
	out.Sections = make([]Section, len(t.Sections))
	for i, s := range t.Sections {
		cs := s
		cs.Questions = make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			cq := q
			cq.CorrectAnswer = nil
			cq.Explanation = ""
			cs.Questions[j] = cq
		}
		out.Sections[i] = cs
	}
	return out
}
