package attempt

import (
	"context"
	"time"

	"github.com/edvisory/exam-engine/internal/scoring"
)

type ListOpts struct {
	TestID string
	UserID string
	Status Status
	Limit  int
	Offset int
}

// Store is the durable record of attempts. Mutating methods that require the
// attempt to still be in progress carry that guard atomically in the store
// (single-statement WHERE, not application-level read-modify-write) and
// return ErrFinished when it fails, ErrNotFound when the row is absent.
type Store interface {
	Create(ctx context.Context, a Attempt) error
	Get(ctx context.Context, id string) (Attempt, error)
	List(ctx context.Context, opts ListOpts) ([]Attempt, error)

	// SaveAnswer upserts one answer entry (last write wins per question) and
	// increments the attempt's cumulative time spent in the same transaction.
	SaveAnswer(ctx context.Context, attemptID string, ans Answer) error

	// SetPointers updates the resume position; nil leaves a field unchanged.
	SetPointers(ctx context.Context, attemptID string, section, question *int) error

	Complete(ctx context.Context, attemptID string, at time.Time, score float64, sections []scoring.SectionScore) error
	Abandon(ctx context.Context, attemptID string) error
	Delete(ctx context.Context, attemptID string) error
}
