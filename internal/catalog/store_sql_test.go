package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/edvisory/exam-engine/internal/catalog"
	"github.com/edvisory/exam-engine/internal/db"
)

var dbSeq int64

func openStore(t *testing.T) (*catalog.SQLStore, context.Context) {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:cattest%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		atomic.AddInt64(&dbSeq, 1))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return catalog.NewSQLStore(dbh), ctx
}

func sampleTest(published bool) catalog.Test {
	return catalog.Test{
		ID:              "ielts-mock-1",
		Title:           "IELTS Mock 1",
		Slug:            "ielts-mock-1",
		DurationMinutes: 60,
		PassingScore:    6.5,
		ScoreScale:      9,
		Published:       published,
		Sections: []catalog.Section{{
			ID: "reading", Name: "Reading",
			Questions: []catalog.Question{{
				ID:     "r1",
				Type:   catalog.TypeSingleChoice,
				Prompt: "Pick one",
				Options: []catalog.Option{
					{ID: "A", Label: "first"}, {ID: "B", Label: "second"},
				},
				CorrectAnswer: []string{"B"},
				Explanation:   "B because the passage says so",
				Points:        1,
			}},
		}},
	}
}

func TestSQLStore_PublishGate(t *testing.T) {
	st, ctx := openStore(t)
	if err := st.PutTest(ctx, sampleTest(false)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := st.GetTest(ctx, "ielts-mock-1"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("unpublished test must be invisible to candidates, got %v", err)
	}
	if _, err := st.GetTestAdmin(ctx, "ielts-mock-1"); err != nil {
		t.Fatalf("admin read of unpublished test: %v", err)
	}

	// publish via upsert
	if err := st.PutTest(ctx, sampleTest(true)); err != nil {
		t.Fatalf("republish: %v", err)
	}
	got, err := st.GetTest(ctx, "ielts-mock-1")
	if err != nil {
		t.Fatalf("get published: %v", err)
	}
	if got.ScoreScale != 9 || got.PassingScore != 6.5 {
		t.Fatalf("scoring metadata lost in round trip: %+v", got)
	}
}

func TestSQLStore_CandidateViewStripsKeys(t *testing.T) {
	st, ctx := openStore(t)
	if err := st.PutTest(ctx, sampleTest(true)); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.GetTest(ctx, "ielts-mock-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	q := got.Sections[0].Questions[0]
	if len(q.CorrectAnswer) != 0 || q.Explanation != "" {
		t.Fatalf("answer key leaked: %+v", q)
	}
	if len(q.Options) != 2 || q.Prompt == "" {
		t.Fatalf("candidate view over-stripped: %+v", q)
	}

	admin, err := st.GetTestAdmin(ctx, "ielts-mock-1")
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if len(admin.Sections[0].Questions[0].CorrectAnswer) == 0 {
		t.Fatalf("admin view lost the key: %+v", admin.Sections[0].Questions[0])
	}
}

func TestSQLStore_ListTests(t *testing.T) {
	st, ctx := openStore(t)
	pub := sampleTest(true)
	if err := st.PutTest(ctx, pub); err != nil {
		t.Fatalf("put: %v", err)
	}
	hidden := sampleTest(false)
	hidden.ID, hidden.Title = "draft-1", "Draft"
	if err := st.PutTest(ctx, hidden); err != nil {
		t.Fatalf("put draft: %v", err)
	}

	out, err := st.ListTests(ctx, catalog.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != pub.ID {
		t.Fatalf("drafts must not be listed: %+v", out)
	}
	if out[0].TotalQuestions != 1 {
		t.Fatalf("expected 1 question in summary, got %d", out[0].TotalQuestions)
	}

	none, err := st.ListTests(ctx, catalog.ListOpts{Q: "TOEFL"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("title filter broken: %+v", none)
	}
}
