package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edvisory/exam-engine/internal/scoring"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, test_id, user_id, status, started_at, time_spent_sec, current_section, current_question)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.TestID, a.UserID, string(a.Status), a.StartedAt.Unix(),
		a.TimeSpentSec, a.CurrentSection, a.CurrentQuestion)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, test_id, user_id, status, started_at, completed_at,
		       time_spent_sec, current_section, current_question, score, section_scores_json
		FROM attempts WHERE id=$1`, id)

	var (
		a           Attempt
		status      string
		startedAt   int64
		completedAt sql.NullInt64
		score       sql.NullFloat64
		sectionsJSON sql.NullString
	)
	if err := row.Scan(&a.ID, &a.TestID, &a.UserID, &status, &startedAt, &completedAt,
		&a.TimeSpentSec, &a.CurrentSection, &a.CurrentQuestion, &score, &sectionsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	a.Status = Status(status)
	a.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	if sectionsJSON.Valid && sectionsJSON.String != "" {
		if err := json.Unmarshal([]byte(sectionsJSON.String), &a.SectionScores); err != nil {
			return Attempt{}, fmt.Errorf("decode section scores: %w", err)
		}
	}

	answers, err := s.loadAnswers(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	a.Answers = answers
	return a, nil
}

func (s *SQLStore) loadAnswers(ctx context.Context, attemptID string) (map[string]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, value_json, time_spent_sec, submitted_at
		FROM attempt_answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	out := map[string]Answer{}
	for rows.Next() {
		var (
			ans         Answer
			value       string
			submittedAt int64
		)
		if err := rows.Scan(&ans.QuestionID, &value, &ans.TimeSpentSec, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		ans.Value = json.RawMessage(value)
		ans.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		out[ans.QuestionID] = ans
	}
	return out, rows.Err()
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	where := []string{"1=1"}
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.TestID != "" {
		add("test_id=$%d", opts.TestID)
	}
	if opts.UserID != "" {
		add("user_id=$%d", opts.UserID)
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	args = append(args, limit, opts.Offset)

	q := fmt.Sprintf(`
		SELECT id, test_id, user_id, status, started_at, completed_at, time_spent_sec, score
		FROM attempts
		WHERE %s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]Attempt, 0)
	for rows.Next() {
		var (
			a           Attempt
			status      string
			startedAt   int64
			completedAt sql.NullInt64
			score       sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.TestID, &a.UserID, &status, &startedAt,
			&completedAt, &a.TimeSpentSec, &score); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Status = Status(status)
		a.StartedAt = time.Unix(startedAt, 0).UTC()
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0).UTC()
			a.CompletedAt = &t
		}
		if score.Valid {
			v := score.Float64
			a.Score = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAnswer upserts the answer row and bumps time_spent_sec in one
// transaction. Both statements carry the in-progress guard so a concurrent
// finalize cannot interleave a stale write; time is incremented in SQL, never
// assigned from a value read earlier.
func (s *SQLStore) SaveAnswer(ctx context.Context, attemptID string, ans Answer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save answer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attempt_answers (attempt_id, question_id, value_json, time_spent_sec, submitted_at)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM attempts WHERE id=$1 AND status='in_progress')
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			value_json=EXCLUDED.value_json,
			time_spent_sec=EXCLUDED.time_spent_sec,
			submitted_at=EXCLUDED.submitted_at`,
		attemptID, ans.QuestionID, string(ans.Value), ans.TimeSpentSec, ans.SubmittedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.guardError(ctx, attemptID)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE attempts SET time_spent_sec = time_spent_sec + $2
		WHERE id=$1 AND status='in_progress'`,
		attemptID, ans.TimeSpentSec); err != nil {
		return fmt.Errorf("increment time spent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save answer: %w", err)
	}
	return nil
}

func (s *SQLStore) SetPointers(ctx context.Context, attemptID string, section, question *int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET
			current_section  = COALESCE($2, current_section),
			current_question = COALESCE($3, current_question)
		WHERE id=$1 AND status='in_progress'`,
		attemptID, nullableInt(section), nullableInt(question))
	if err != nil {
		return fmt.Errorf("update pointers: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.guardError(ctx, attemptID)
	}
	return nil
}

func (s *SQLStore) Complete(ctx context.Context, attemptID string, at time.Time, score float64, sections []scoring.SectionScore) error {
	sj, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode section scores: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET status='completed', completed_at=$2, score=$3, section_scores_json=$4
		WHERE id=$1 AND status='in_progress'`,
		attemptID, at.Unix(), score, string(sj))
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.guardError(ctx, attemptID)
	}
	return nil
}

func (s *SQLStore) Abandon(ctx context.Context, attemptID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts SET status='abandoned'
		WHERE id=$1 AND status='in_progress'`, attemptID)
	if err != nil {
		return fmt.Errorf("abandon attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.guardError(ctx, attemptID)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, attemptID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE id=$1`, attemptID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// guardError distinguishes "attempt gone" from "attempt already finished"
// after a guarded statement touched zero rows.
func (s *SQLStore) guardError(ctx context.Context, attemptID string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM attempts WHERE id=$1`, attemptID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect attempt status: %w", err)
	}
	return ErrFinished
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// IsTransient reports whether a store error is worth one internal retry
// (lock contention or a serialization failure, not a semantic rejection).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFinished) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || // sqlite
		strings.Contains(msg, "locked") || // sqlite
		strings.Contains(msg, "deadlock") || // postgres
		strings.Contains(msg, "serialization") // postgres
}
