// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresStore reads published cases from the platform's Postgres database.
// It only ever issues SELECTs; case authoring and answer counting belong to
// the main platform backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the platform database.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ListPublished(ctx context.Context, filter ListFilter) ([]Summary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, title, difficulty, solve_count, correct_count, created_at
FROM cases WHERE is_published = true`
	args := []any{}
	if filter.Difficulty != "" {
		args = append(args, string(filter.Difficulty))
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0, limit)
	for rows.Next() {
		var sm Summary
		var difficulty string
		if err := rows.Scan(&sm.ID, &sm.Title, &difficulty, &sm.Attempts, &sm.Correct, &sm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case row: %w", err)
		}
		sm.Difficulty = Difficulty(difficulty)
		summaries = append(summaries, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case rows: %w", err)
	}

	return summaries, nil
}

func (s *PostgresStore) GetPublished(ctx context.Context, id string) (*Case, error) {
	const q = `SELECT c.id, c.title, c.description, c.difficulty, c.body, c.answer_explanation,
	c.solve_count, c.correct_count, c.is_daily, c.created_at,
	COALESCE(p.username, ''), COALESCE(p.display_name, '')
FROM cases c
LEFT JOIN profiles p ON p.id = c.author_id
WHERE c.id = $1 AND c.is_published = true`

	var out Case
	var difficulty string
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&out.ID, &out.Title, &out.Description, &difficulty, &out.Body, &out.AnswerExplanation,
		&out.Attempts, &out.Correct, &out.IsDaily, &out.CreatedAt,
		&out.Author.Username, &out.Author.DisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %s: %w", id, err)
	}
	out.Difficulty = Difficulty(difficulty)

	options, err := s.loadOptions(ctx, id)
	if err != nil {
		return nil, err
	}
	out.Options = options

	return &out, nil
}

func (s *PostgresStore) loadOptions(ctx context.Context, caseID string) ([]Option, error) {
	const q = `SELECT id, letter, text FROM case_options WHERE case_id = $1 ORDER BY letter`

	rows, err := s.pool.Query(ctx, q, caseID)
	if err != nil {
		return nil, fmt.Errorf("load options for %s: %w", caseID, err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.ID, &opt.Letter, &opt.Text); err != nil {
			return nil, fmt.Errorf("scan option row: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option rows: %w", err)
	}

	return options, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
