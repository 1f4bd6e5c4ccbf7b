package attempt

import (
	"encoding/json"
	"fmt"

	"github.com/edvisory/exam-engine/internal/catalog"
)

// validateAnswerValue rejects payloads whose shape does not match the
// question type before anything is persisted. Choice answers must reference
// declared options; text answers must be JSON strings.
func validateAnswerValue(q catalog.Question, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidAnswer)
	}

	switch q.Type {
	case catalog.TypeSingleChoice:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%w: %s expects a string option id", ErrInvalidAnswer, q.Type)
		}
		if len(q.Options) > 0 && !hasOption(q.Options, v) {
			return fmt.Errorf("%w: %q is not an option of question %s", ErrInvalidAnswer, v, q.ID)
		}

	case catalog.TypeMultiChoice:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%w: %s expects an array of option ids", ErrInvalidAnswer, q.Type)
		}
		if len(v) == 0 {
			return fmt.Errorf("%w: %s expects at least one selection", ErrInvalidAnswer, q.Type)
		}
		for _, id := range v {
			if len(q.Options) > 0 && !hasOption(q.Options, id) {
				return fmt.Errorf("%w: %q is not an option of question %s", ErrInvalidAnswer, id, q.ID)
			}
		}

	case catalog.TypeFillBlank, catalog.TypeFreeText, catalog.TypeSpeaking:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%w: %s expects a string", ErrInvalidAnswer, q.Type)
		}

	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswer, q.Type)
	}
	return nil
}

func hasOption(opts []catalog.Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}
