// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/mediameter/internal/platform/dberr"
	"github.com/taibuivan/mediameter/internal/platform/validate"
	"github.com/taibuivan/mediameter/pkg/slug"
	"github.com/taibuivan/mediameter/pkg/uuid"
)

const (
	maxNameLength = 200

	// slugLength bounds the readable part of a shortcode.
	slugLength = 40
	// suffixLength is the random part of a shortcode.
	suffixLength = 6
	// createAttempts bounds retries on shortcode collisions.
	createAttempts = 3

	fallbackSlug = "search"
)

// pathRoots are the dashboard roots a saved path may start with.
var pathRoots = []string{"query/", "demo-query/"}

// # Service Layer

// Service orchestrates business rules for saved searches.
type Service struct {
	repo   Repository
	logger *slog.Logger
	// newSuffix mints the random tail of a shortcode.
	newSuffix func() string
}

// NewService constructs a new saved search [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		logger:    logger,
		newSuffix: func() string { return uuid.Short(suffixLength) },
	}
}

/*
Create validates and stores a named dashboard path.

Description: The shortcode is the slug of the name (cut to 40 characters)
followed by a random suffix. A collision on the shortcode is retried with a
new suffix a bounded number of times.

Parameters:
  - context: context.Context
  - name: display name
  - path: the canonical dashboard path, "query/..." or "demo-query/..."
  - createdBy: the session user, nil for anonymous callers

Returns:
  - *SavedSearch: the stored record
  - error: validation or persistence failures
*/
func (service *Service) Create(context context.Context, name, path string, createdBy *string) (*SavedSearch, error) {
	name = strings.TrimSpace(name)
	path = strings.Trim(strings.TrimSpace(path), "/")

	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, maxNameLength)
	validator.Required(FieldPath, path).Custom(FieldPath, path != "" && !isDashboardPath(path),
		"Must be a dashboard path starting with query/ or demo-query/")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	base := shortSlug(name)

	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		search := &SavedSearch{
			ID:        uuid.New(),
			Shortcode: base + "-" + service.newSuffix(),
			Name:      name,
			Path:      path,
			CreatedBy: createdBy,
		}

		err = service.repo.Create(context, search)
		if err == nil {
			service.logger.Info("saved_search_created",
				slog.String("saved_search_id", search.ID),
				slog.String("shortcode", search.Shortcode),
			)
			return search, nil
		}
		if !dberr.IsUniqueViolation(err) {
			return nil, err
		}

		service.logger.Warn("saved_search_shortcode_collision",
			slog.String("shortcode", search.Shortcode),
			slog.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("savedsearch: no free shortcode after %d attempts: %w", createAttempts, err)
}

// List returns a page of saved searches, newest first, and the total count.
func (service *Service) List(context context.Context, limit, offset int) ([]*SavedSearch, int, error) {
	return service.repo.List(context, limit, offset)
}

// GetByShortcode retrieves one saved search.
func (service *Service) GetByShortcode(context context.Context, shortcode string) (*SavedSearch, error) {
	if err := (&validate.Validator{}).Slug("shortcode", shortcode).Err(); err != nil {
		return nil, err
	}
	return service.repo.FindByShortcode(context, shortcode)
}

// Delete removes a saved search.
func (service *Service) Delete(context context.Context, shortcode string) error {
	if err := service.repo.Delete(context, shortcode); err != nil {
		return err
	}
	service.logger.Info("saved_search_deleted", slog.String("shortcode", shortcode))
	return nil
}

func isDashboardPath(path string) bool {
	for _, root := range pathRoots {
		if rest, ok := strings.CutPrefix(path, root); ok {
			// Five segments follow the root.
			return strings.Count(rest, "/") == 4
		}
	}
	return false
}

// shortSlug slugs name and cuts it to slugLength without a trailing hyphen.
func shortSlug(name string) string {
	value := slug.Truncate(slug.From(name), slugLength)
	if value == "" {
		return fallbackSlug
	}
	return value
}
