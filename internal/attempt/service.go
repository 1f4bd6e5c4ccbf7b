package attempt

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/edvisory/exam-engine/internal/catalog"
	"github.com/edvisory/exam-engine/internal/scoring"
	"github.com/google/uuid"
)

// Catalog is the slice of the test catalog the engine consumes. The catalog
// is read-only from here; the engine never mutates test content.
type Catalog interface {
	GetTest(ctx context.Context, id string) (catalog.Test, error)      // candidate-safe
	GetTestAdmin(ctx context.Context, id string) (catalog.Test, error) // with answer keys
}

// Recorder receives lifecycle events, best-effort. A nil Recorder is valid.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data interface{})
}

// Event types appended to the audit log.
const (
	EventStarted   = "AttemptStarted"
	EventAnswer    = "AnswerSaved"
	EventCompleted = "AttemptCompleted"
	EventAbandoned = "AttemptAbandoned"
	EventDeleted   = "AttemptDeleted"
)

// Service is the attempt lifecycle controller: it owns the state machine,
// the ownership checks and the finalize/scoring path. It is stateless; all
// durable state lives in the Store.
type Service struct {
	store   Store
	catalog Catalog
	events  Recorder
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithEvents(r Recorder) ServiceOption {
	return func(s *Service) { s.events = r }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, cat Catalog, opts ...ServiceOption) *Service {
	s := &Service{store: store, catalog: cat, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View is an attempt merged with the structural test data a client needs to
// render the remaining exam, plus derived progress and advisory timing.
type View struct {
	Attempt
	Test         catalog.Test `json:"test"`
	ProgressPct  int          `json:"progress_pct"`
	RemainingSec int64        `json:"remaining_sec"`
	Expired      bool         `json:"expired"` // advisory; nothing force-finalizes
}

// Start creates a new in-progress attempt at a published test.
func (s *Service) Start(ctx context.Context, userID, testID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, ErrUnauthenticated
	}
	if _, err := s.catalog.GetTest(ctx, testID); err != nil {
		return Attempt{}, err
	}

	a := Attempt{
		ID:        uuid.NewString(),
		TestID:    testID,
		UserID:    userID,
		Status:    StatusInProgress,
		StartedAt: s.now().UTC(),
		Answers:   map[string]Answer{},
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.record(ctx, EventStarted, a.ID, map[string]string{"test_id": testID, "user_id": userID})
	return a, nil
}

// Get returns the attempt merged with the candidate-safe test structure.
// Owner or administrator only.
func (s *Service) Get(ctx context.Context, attemptID, callerID, callerRole string) (View, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return View{}, err
	}
	if err := authorize(a, callerID, callerRole, accessRead); err != nil {
		return View{}, err
	}

	// Admin fetch then sanitize: the merged view must keep working even if
	// the test was unpublished after the attempt started.
	t, err := s.catalog.GetTestAdmin(ctx, a.TestID)
	if err != nil {
		return View{}, err
	}

	v := View{Attempt: a, Test: t.Sanitized()}
	if total := t.TotalQuestions(); total > 0 {
		v.ProgressPct = int(math.Round(float64(len(a.Answers)) / float64(total) * 100))
	}
	if a.Status == StatusInProgress && t.DurationMinutes > 0 {
		deadline := a.StartedAt.Add(time.Duration(t.DurationMinutes) * time.Minute)
		if rem := deadline.Sub(s.now()); rem > 0 {
			v.RemainingSec = int64(rem.Seconds())
		} else {
			v.Expired = true
		}
	}
	return v, nil
}

// List returns attempt summaries (no answer maps). Callers are responsible
// for scoping UserID; the HTTP layer forces it to the subject for candidates.
func (s *Service) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	return s.store.List(ctx, opts)
}

type SubmitAnswerInput struct {
	QuestionID   string
	Value        []byte
	TimeSpentSec int64
}

// SubmitAnswer upserts one answer (last write wins per question) and adds the
// reported time delta to the attempt's cumulative time. Owner only, and only
// while the attempt is in progress. Safe under duplicate submission: the
// final state is a pure overwrite keyed by question id.
func (s *Service) SubmitAnswer(ctx context.Context, attemptID, callerID string, in SubmitAnswerInput) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if err := authorize(a, callerID, "", accessMutate); err != nil {
		return Attempt{}, err
	}
	if a.Status.Terminal() {
		return Attempt{}, ErrFinished
	}
	if in.TimeSpentSec < 0 {
		return Attempt{}, fmt.Errorf("%w: negative time delta", ErrInvalidAnswer)
	}

	t, err := s.catalog.GetTestAdmin(ctx, a.TestID)
	if err != nil {
		return Attempt{}, err
	}
	q, ok := t.FindQuestion(in.QuestionID)
	if !ok {
		return Attempt{}, ErrQuestionNotFound
	}
	if err := validateAnswerValue(q, in.Value); err != nil {
		return Attempt{}, err
	}

	ans := Answer{
		QuestionID:   in.QuestionID,
		Value:        in.Value,
		TimeSpentSec: in.TimeSpentSec,
		SubmittedAt:  s.now().UTC(),
	}
	if err := s.retryOnce(func() error { return s.store.SaveAnswer(ctx, attemptID, ans) }); err != nil {
		return Attempt{}, err
	}
	s.record(ctx, EventAnswer, attemptID, map[string]interface{}{
		"question_id": in.QuestionID, "time_spent_sec": in.TimeSpentSec,
	})
	return s.store.Get(ctx, attemptID)
}

type UpdateProgressInput struct {
	CurrentSection  *int
	CurrentQuestion *int
	Status          *Status
}

// UpdateProgress moves the resume pointers and/or requests a status
// transition. The only legal transitions are in_progress→completed (scores,
// then persists) and in_progress→abandoned; requesting any other target is
// InvalidTransition, and any change against a finished attempt is Conflict.
func (s *Service) UpdateProgress(ctx context.Context, attemptID, callerID string, in UpdateProgressInput) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if err := authorize(a, callerID, "", accessMutate); err != nil {
		return Attempt{}, err
	}
	if a.Status.Terminal() {
		return Attempt{}, ErrFinished
	}

	if in.Status != nil {
		switch *in.Status {
		case StatusCompleted, StatusAbandoned:
			// legal targets
		default:
			return Attempt{}, ErrInvalidTransition
		}
	}

	if in.CurrentSection != nil || in.CurrentQuestion != nil {
		if err := validatePointers(in.CurrentSection, in.CurrentQuestion); err != nil {
			return Attempt{}, err
		}
		if err := s.retryOnce(func() error {
			return s.store.SetPointers(ctx, attemptID, in.CurrentSection, in.CurrentQuestion)
		}); err != nil {
			return Attempt{}, err
		}
	}

	if in.Status != nil {
		switch *in.Status {
		case StatusCompleted:
			return s.finalize(ctx, attemptID)
		case StatusAbandoned:
			return s.abandon(ctx, attemptID)
		}
	}
	return s.store.Get(ctx, attemptID)
}

// Finalize transitions the attempt to completed, scoring it first. A scoring
// failure aborts the transition; the attempt is never completed scoreless.
func (s *Service) Finalize(ctx context.Context, attemptID, callerID string) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if err := authorize(a, callerID, "", accessMutate); err != nil {
		return Attempt{}, err
	}
	if a.Status.Terminal() {
		return Attempt{}, ErrFinished
	}
	return s.finalize(ctx, attemptID)
}

func (s *Service) finalize(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	t, err := s.catalog.GetTestAdmin(ctx, a.TestID)
	if err != nil {
		return Attempt{}, err
	}
	res, err := scoring.Score(t, a.AnswerValues())
	if err != nil {
		return Attempt{}, fmt.Errorf("score attempt: %w", err)
	}

	if err := s.retryOnce(func() error {
		return s.store.Complete(ctx, attemptID, s.now().UTC(), res.Scaled, res.Sections)
	}); err != nil {
		return Attempt{}, err
	}
	s.record(ctx, EventCompleted, attemptID, map[string]interface{}{
		"score": res.Scaled, "raw_points": res.RawPoints, "ungraded": res.Ungraded,
	})
	return s.store.Get(ctx, attemptID)
}

func (s *Service) abandon(ctx context.Context, attemptID string) (Attempt, error) {
	if err := s.retryOnce(func() error { return s.store.Abandon(ctx, attemptID) }); err != nil {
		return Attempt{}, err
	}
	s.record(ctx, EventAbandoned, attemptID, nil)
	return s.store.Get(ctx, attemptID)
}

// Delete removes an attempt. Administrators may delete any attempt; owners
// only while it is still in progress.
func (s *Service) Delete(ctx context.Context, attemptID, callerID, callerRole string) error {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return err
	}
	if err := authorize(a, callerID, callerRole, accessDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, attemptID); err != nil {
		return err
	}
	s.record(ctx, EventDeleted, attemptID, map[string]string{"deleted_by": callerID})
	return nil
}

// retryOnce re-runs a store write a single time on transient contention.
// Authorization and validation failures are never retried.
func (s *Service) retryOnce(f func() error) error {
	err := f()
	if err != nil && IsTransient(err) {
		return f()
	}
	return err
}

func (s *Service) record(ctx context.Context, typ, key string, data interface{}) {
	if s.events != nil {
		s.events.Record(ctx, typ, key, data)
	}
}

func validatePointers(section, question *int) error {
	if section != nil && *section < 0 {
		return fmt.Errorf("%w: negative section pointer", ErrInvalidAnswer)
	}
	if question != nil && *question < 0 {
		return fmt.Errorf("%w: negative question pointer", ErrInvalidAnswer)
	}
	return nil
}
