// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/mediameter/internal/platform/dberr"
	"github.com/taibuivan/mediameter/internal/savedsearch"
)

// memoryRepository mimics the Postgres store, including its error mapping.
type memoryRepository struct {
	mu       sync.Mutex
	searches []*savedsearch.SavedSearch
	clock    time.Time
	creates  int
}

func (m *memoryRepository) Create(_ context.Context, search *savedsearch.SavedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	for _, existing := range m.searches {
		if existing.Shortcode == search.Shortcode {
			return dberr.Wrap(&pgconn.PgError{Code: "23505"}, "Saved search")
		}
	}
	m.clock = m.clock.Add(time.Minute)
	search.Timestamp = m.clock
	m.searches = append(m.searches, search)
	return nil
}

func (m *memoryRepository) List(_ context.Context, limit, offset int) ([]*savedsearch.SavedSearch, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newest := slices.Clone(m.searches)
	slices.Reverse(newest)
	if offset >= len(newest) {
		return nil, len(newest), nil
	}
	return newest[offset:min(offset+limit, len(newest))], len(newest), nil
}

func (m *memoryRepository) FindByShortcode(_ context.Context, shortcode string) (*savedsearch.SavedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, search := range m.searches {
		if search.Shortcode == shortcode {
			return search, nil
		}
	}
	return nil, dberr.Wrap(pgx.ErrNoRows, "Saved search")
}

func (m *memoryRepository) Delete(_ context.Context, shortcode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, search := range m.searches {
		if search.Shortcode == shortcode {
			m.searches = slices.Delete(m.searches, i, i+1)
			return nil
		}
	}
	return dberr.Wrap(pgx.ErrNoRows, "Saved search")
}

const validPath = "query/%5B%22rain%22%5D/%5B%7B%7D%5D/%5B%222015-01-01%22%5D/%5B%222015-01-31%22%5D/%5B%7B%22uid%22%3A1%2C%22color%22%3A%221f77b4%22%7D%5D"

func newService(suffixes ...string) (*savedsearch.Service, *memoryRepository) {
	repo := &memoryRepository{clock: time.Date(2016, time.March, 1, 0, 0, 0, 0, time.UTC)}
	service := savedsearch.NewService(repo, nil)
	if len(suffixes) > 0 {
		next := 0
		service.SetSuffixFunc(func() string {
			suffix := suffixes[min(next, len(suffixes)-1)]
			next++
			return suffix
		})
	}
	return service, repo
}
