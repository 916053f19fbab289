// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

// Package cases exposes read-only access to the platform's published
// clinical cases. The agent's case tools are the only consumers; writes
// happen elsewhere in the platform.
package cases

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNotFound indicates no published case exists under the requested id.
var ErrNotFound = errors.New("case not found")

// Difficulty grades a clinical case.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// DefaultListLimit bounds list queries when the caller gives no limit.
const DefaultListLimit = 5

// Summary is one published case as shown in a bounded listing.
type Summary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Attempts   int        `json:"solve_count"`
	Correct    int        `json:"correct_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Accuracy derives the solve rate as a rounded percentage.
// Nil when the case has never been attempted.
func (s Summary) Accuracy() *int {
	if s.Attempts <= 0 {
		return nil
	}
	pct := int(math.Round(100 * float64(s.Correct) / float64(s.Attempts)))
	return &pct
}

// Option is one answer option of a case.
type Option struct {
	ID     string `json:"id"`
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Author identifies the case's author.
type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Case is the full published case, including answer options.
type Case struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Difficulty        Difficulty `json:"difficulty"`
	Body              string     `json:"body"`
	AnswerExplanation string     `json:"answer_explanation"`
	Attempts          int        `json:"solve_count"`
	Correct           int        `json:"correct_count"`
	IsDaily           bool       `json:"is_daily"`
	Author            Author     `json:"author"`
	Options           []Option   `json:"options"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ListFilter narrows a listing query.
type ListFilter struct {
	// Difficulty filters by grade when set.
	Difficulty Difficulty
	// Limit bounds the result; zero or negative means DefaultListLimit.
	Limit int
}

// Store is the read-only contract against the platform's case tables.
type Store interface {
	// ListPublished returns published case summaries, newest first,
	// bounded by the filter's limit.
	ListPublished(ctx context.Context, filter ListFilter) ([]Summary, error)

	// GetPublished returns one published case by id, or ErrNotFound.
	GetPublished(ctx context.Context, id string) (*Case, error)

	Close() error
}
