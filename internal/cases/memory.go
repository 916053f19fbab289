// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package cases

import (
	"context"
	"sort"
	"sync"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore serves cases from a fixed in-process slice. It backs tests and
// deployments without a case database, where the agent still answers from
// its static tools.
type MemoryStore struct {
	mu    sync.RWMutex
	cases []Case
}

// NewMemoryStore returns a MemoryStore preloaded with the given cases.
func NewMemoryStore(preload ...Case) *MemoryStore {
	s := &MemoryStore{}
	s.cases = append(s.cases, preload...)
	return s
}

func (s *MemoryStore) ListPublished(_ context.Context, filter ListFilter) ([]Summary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	matched := make([]Case, 0, len(s.cases))
	for _, c := range s.cases {
		if filter.Difficulty != "" && c.Difficulty != filter.Difficulty {
			continue
		}
		matched = append(matched, c)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	summaries := make([]Summary, len(matched))
	for i, c := range matched {
		summaries[i] = Summary{
			ID:         c.ID,
			Title:      c.Title,
			Difficulty: c.Difficulty,
			Attempts:   c.Attempts,
			Correct:    c.Correct,
			CreatedAt:  c.CreatedAt,
		}
	}
	return summaries, nil
}

func (s *MemoryStore) GetPublished(_ context.Context, id string) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.cases {
		if c.ID == id {
			out := c
			out.Options = append([]Option(nil), c.Options...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Close() error { return nil }
