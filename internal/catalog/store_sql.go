package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	if t.ID == "" {
		return errors.New("test id required")
	}
	if t.ScoreScale <= 0 {
		t.ScoreScale = 100
	}
	sj, err := json.Marshal(t.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tests (id, title, slug, duration_minutes, passing_score, score_scale, published, sections_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			slug=EXCLUDED.slug,
			duration_minutes=EXCLUDED.duration_minutes,
			passing_score=EXCLUDED.passing_score,
			score_scale=EXCLUDED.score_scale,
			published=EXCLUDED.published,
			sections_json=EXCLUDED.sections_json`,
		t.ID, t.Title, t.Slug, t.DurationMinutes, t.PassingScore, t.ScoreScale, t.Published, string(sj), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}
	return nil
}

// GetTest returns the candidate-safe view: published tests only, answer keys
// and explanations stripped.
func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	t, err := s.get(ctx, id)
	if err != nil {
		return Test{}, err
	}
	if !t.Published {
		return Test{}, ErrNotFound
	}
	return t.Sanitized(), nil
}

// GetTestAdmin returns the full definition including correct answers.
func (s *SQLStore) GetTestAdmin(ctx context.Context, id string) (Test, error) {
	return s.get(ctx, id)
}

func (s *SQLStore) get(ctx context.Context, id string) (Test, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, duration_minutes, passing_score, score_scale, published, sections_json, created_at
		FROM tests WHERE id=$1`, id)
	var t Test
	var sj string
	if err := row.Scan(&t.ID, &t.Title, &t.Slug, &t.DurationMinutes, &t.PassingScore,
		&t.ScoreScale, &t.Published, &sj, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, fmt.Errorf("load test: %w", err)
	}
	if err := json.Unmarshal([]byte(sj), &t.Sections); err != nil {
		return Test{}, fmt.Errorf("decode sections: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args := []interface{}{}
	where := `WHERE published = TRUE`
	if opts.Q != "" {
		args = append(args, "%"+opts.Q+"%")
		where += fmt.Sprintf(` AND title LIKE $%d`, len(args))
	}
	args = append(args, limit, opts.Offset)
	q := fmt.Sprintf(`
		SELECT id, title, slug, duration_minutes, sections_json
		FROM tests %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	out := make([]TestSummary, 0)
	for rows.Next() {
		var sum TestSummary
		var sj string
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Slug, &sum.DurationMinutes, &sj); err != nil {
			return nil, fmt.Errorf("scan test summary: %w", err)
		}
		var sections []Section
		if err := json.Unmarshal([]byte(sj), &sections); err == nil {
			for _, sec := range sections {
				sum.TotalQuestions += len(sec.Questions)
			}
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
