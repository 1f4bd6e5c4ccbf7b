package attempt_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edvisory/exam-engine/internal/attempt"
	"github.com/edvisory/exam-engine/internal/catalog"
	"github.com/edvisory/exam-engine/internal/db"
	"github.com/edvisory/exam-engine/internal/events"
)

// End-to-end store tests against an in-memory sqlite, covering the pieces the
// fake store cannot: SQL upserts, the in-statement status guards and the
// cumulative time increment under concurrent writers.

var dbSeq int64

func openTestDB(t *testing.T) (*testDeps, context.Context) {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:itest%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		atomic.AddInt64(&dbSeq, 1))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	cat := catalog.NewSQLStore(dbh)
	store := attempt.NewSQLStore(dbh)
	svc := attempt.NewService(store, cat, attempt.WithEvents(events.NewLog(dbh)))
	return &testDeps{cat: cat, store: store, svc: svc}, ctx
}

type testDeps struct {
	cat   *catalog.SQLStore
	store *attempt.SQLStore
	svc   *attempt.Service
}

func (d *testDeps) seed(t *testing.T, ctx context.Context, tc catalog.Test) {
	t.Helper()
	if err := d.cat.PutTest(ctx, tc); err != nil {
		t.Fatalf("seed test: %v", err)
	}
}

func TestSQLStore_AttemptRoundTrip(t *testing.T) {
	d, ctx := openTestDB(t)
	d.seed(t, ctx, twoQuestionTest())

	a := start(t, d.svc, "u1", "test-1")
	submit(t, d.svc, a.ID, "u1", "q1", "A", 10)
	submit(t, d.svc, a.ID, "u1", "q2", "C", 20)
	// overwrite q1; q2 must survive untouched
	submit(t, d.svc, a.ID, "u1", "q1", "B", 5)

	got, err := d.store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}
	var q1, q2 string
	if err := json.Unmarshal(got.Answers["q1"].Value, &q1); err != nil || q1 != "B" {
		t.Fatalf("q1 overwrite lost: %s (err=%v)", got.Answers["q1"].Value, err)
	}
	if err := json.Unmarshal(got.Answers["q2"].Value, &q2); err != nil || q2 != "C" {
		t.Fatalf("q2 mutated by q1 write: %s (err=%v)", got.Answers["q2"].Value, err)
	}
	if got.TimeSpentSec != 35 {
		t.Fatalf("expected cumulative 35s, got %d", got.TimeSpentSec)
	}

	sec, qp := 0, 1
	if _, err := d.svc.UpdateProgress(ctx, a.ID, "u1", attempt.UpdateProgressInput{
		CurrentSection: &sec, CurrentQuestion: &qp,
	}); err != nil {
		t.Fatalf("update pointers: %v", err)
	}

	final, err := d.svc.Finalize(ctx, a.ID, "u1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != attempt.StatusCompleted || final.CompletedAt == nil || final.Score == nil {
		t.Fatalf("completion fields not persisted: %+v", final)
	}
	// q1=B (2 pts) and q2=C (3 pts) out of 5, scale 100
	if *final.Score != 100 {
		t.Fatalf("expected perfect score, got %v", *final.Score)
	}
	if final.CurrentQuestion != 1 {
		t.Fatalf("resume pointer lost across finalize: %+v", final)
	}
	if len(final.SectionScores) != 1 || final.SectionScores[0].Points != 5 {
		t.Fatalf("section scores not persisted: %+v", final.SectionScores)
	}
}

func TestSQLStore_ConcurrentAnswerWrites(t *testing.T) {
	d, ctx := openTestDB(t)
	d.seed(t, ctx, twoQuestionTest())
	a := start(t, d.svc, "u1", "test-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, in := range []attempt.SubmitAnswerInput{
		{QuestionID: "q1", Value: []byte(`"B"`), TimeSpentSec: 10},
		{QuestionID: "q2", Value: []byte(`"C"`), TimeSpentSec: 20},
	} {
		wg.Add(1)
		go func(i int, in attempt.SubmitAnswerInput) {
			defer wg.Done()
			_, errs[i] = d.svc.SubmitAnswer(ctx, a.ID, "u1", in)
		}(i, in)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit %d: %v", i, err)
		}
	}

	got, err := d.store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("a concurrent write was lost: %+v", got.Answers)
	}
	if got.TimeSpentSec != 30 {
		t.Fatalf("time increments lost under concurrency: got %d, want 30", got.TimeSpentSec)
	}
}

func TestSQLStore_GuardDisambiguation(t *testing.T) {
	d, ctx := openTestDB(t)
	d.seed(t, ctx, twoQuestionTest())

	ans := attempt.Answer{QuestionID: "q1", Value: []byte(`"B"`), SubmittedAt: time.Now()}

	if err := d.store.SaveAnswer(ctx, "no-such-attempt", ans); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing attempt, got %v", err)
	}

	a := start(t, d.svc, "u1", "test-1")
	if _, err := d.svc.Finalize(ctx, a.ID, "u1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := d.store.SaveAnswer(ctx, a.ID, ans); !errors.Is(err, attempt.ErrFinished) {
		t.Fatalf("expected ErrFinished on completed attempt, got %v", err)
	}
	if err := d.store.Abandon(ctx, a.ID); !errors.Is(err, attempt.ErrFinished) {
		t.Fatalf("expected ErrFinished on re-transition, got %v", err)
	}
	sec := 1
	if err := d.store.SetPointers(ctx, a.ID, &sec, nil); !errors.Is(err, attempt.ErrFinished) {
		t.Fatalf("expected ErrFinished for pointer move, got %v", err)
	}
}

func TestSQLStore_ListFilters(t *testing.T) {
	d, ctx := openTestDB(t)
	d.seed(t, ctx, twoQuestionTest())

	a1 := start(t, d.svc, "u1", "test-1")
	start(t, d.svc, "u2", "test-1")
	if _, err := d.svc.Finalize(ctx, a1.ID, "u1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	mine, err := d.svc.List(ctx, attempt.ListOpts{UserID: "u1"})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != "u1" {
		t.Fatalf("user filter broken: %+v", mine)
	}

	done, err := d.svc.List(ctx, attempt.ListOpts{Status: attempt.StatusCompleted})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(done) != 1 || done[0].ID != a1.ID {
		t.Fatalf("status filter broken: %+v", done)
	}
	if done[0].Score == nil || done[0].CompletedAt == nil {
		t.Fatalf("summaries missing completion fields: %+v", done[0])
	}

	all, err := d.svc.List(ctx, attempt.ListOpts{TestID: "test-1"})
	if err != nil {
		t.Fatalf("list by test: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(all))
	}
}

func TestSQLStore_DeleteCascadesAnswers(t *testing.T) {
	d, ctx := openTestDB(t)
	d.seed(t, ctx, twoQuestionTest())

	a := start(t, d.svc, "u1", "test-1")
	submit(t, d.svc, a.ID, "u1", "q1", "B", 10)

	if err := d.svc.Delete(ctx, a.ID, "u1", "candidate"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.store.Get(ctx, a.ID); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := d.store.Delete(ctx, a.ID); !errors.Is(err, attempt.ErrNotFound) {
		t.Fatalf("double delete should be ErrNotFound, got %v", err)
	}
}
