// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/platform/apperr"
	"github.com/taibuivan/mediameter/internal/platform/constants"
	"github.com/taibuivan/mediameter/internal/platform/ctxutil"
	"github.com/taibuivan/mediameter/internal/platform/validate"
	"github.com/taibuivan/mediameter/internal/query"
	"github.com/taibuivan/mediameter/internal/results"
	"github.com/taibuivan/mediameter/internal/upstream"
)

// Request identifies the dashboard a call acts on.
type Request struct {
	Segments query.Segments
	// Demo serves keyword-only demo categories and the demo path.
	Demo bool
	// Session decides whether sentences or stories are listed. Nil is
	// anonymous.
	Session results.Session
}

// SubqueryOverrides are the parameters a subquery replaces. Media ids are
// resolved through the catalog.
type SubqueryOverrides struct {
	Keywords *string          `json:"keywords,omitempty"`
	Start    *string          `json:"start,omitempty"`
	End      *string          `json:"end,omitempty"`
	Media    *media.QueryParam `json:"media,omitempty"`
}

// # Service Layer

// Service runs dashboards against the upstream API.
type Service struct {
	catalog   *media.Catalog
	transport results.Transport
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock sets the clock used for default date ranges.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// NewService constructs a dashboard [Service]. catalog resolves media ids
// and transport fetches result categories.
func NewService(catalog *media.Catalog, transport results.Transport, logger *slog.Logger, options ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	service := &Service{catalog: catalog, transport: transport, logger: logger, now: time.Now}
	for _, option := range options {
		option(service)
	}
	return service
}

/*
Run parses a dashboard, auto-names its queries and executes them.

Description: The call waits until every category of every query has settled.
Category failures do not fail the call; they are reported per category in
the snapshot.

Returns:
  - *Snapshot: names, parameters and results of every query
  - error: VALIDATION_ERROR for a malformed or oversized path
*/
func (service *Service) Run(context context.Context, request Request) (*Snapshot, error) {
	set, err := service.open(context, request)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	source := set.AutoNameAll(context)
	service.execute(context, set)
	return snapshotSet(set, source, request.Demo), nil
}

/*
Refine applies refinement to every query of the dashboard and executes it.

Description: A refinement is either a keyword term, ANDed onto each query's
keywords, or a complete date range replacing each query's range.

Returns:
  - *Snapshot: the refined dashboard, whose Path encodes the refinement
  - error: VALIDATION_ERROR for a malformed path or refinement
*/
func (service *Service) Refine(context context.Context, request Request, refinement query.Refinement) (*Snapshot, error) {
	if err := validateRefinement(refinement); err != nil {
		return nil, err
	}

	set, err := service.open(context, request)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	if err := set.Refine(context, refinement); err != nil {
		return nil, translate(err)
	}
	source := set.AutoNameAll(context)
	return snapshotSet(set, source, request.Demo), nil
}

/*
Subquery derives one query from member uid with overrides and executes it.

Description: Only the subquery is executed; members are returned with their
parameters but without fetched results.

Returns:
  - *Snapshot: the dashboard with Subquery set
  - error: NOT_FOUND when uid is not a member, VALIDATION_ERROR for bad input
*/
func (service *Service) Subquery(context context.Context, request Request, uid int, overrides SubqueryOverrides) (*Snapshot, error) {
	if err := validateOverrides(overrides); err != nil {
		return nil, err
	}

	set, err := service.open(context, request)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	resolved := query.Overrides{Keywords: overrides.Keywords, Start: overrides.Start, End: overrides.End}
	if overrides.Media != nil {
		selection, err := service.catalog.Load(context, *overrides.Media)
		if err != nil {
			ctxutil.GetLogger(context).Warn("dashboard_subquery_media_unresolved", slog.Any("error", err))
		}
		resolved.Media = selection
	}

	subquery, err := set.SpawnSubquery(context, uid, resolved)
	if err != nil {
		return nil, translate(err)
	}

	source := set.AutoNameAll(context)
	snapshot := snapshotSet(set, source, request.Demo)
	subquerySnapshot := snapshotQuery(subquery)
	snapshot.Subquery = &subquerySnapshot
	return snapshot, nil
}

// # Helpers

// open builds the set for one request.
func (service *Service) open(context context.Context, request Request) (*query.Set, error) {
	if err := checkSize(request.Segments); err != nil {
		return nil, err
	}

	logger := ctxutil.GetLogger(context)
	factory := &results.Factory{
		Transport: service.transport,
		Session:   request.Session,
		Demo:      request.Demo,
		Logger:    logger,
	}

	set, err := query.ParsePath(context, request.Segments, service.catalog, factory,
		query.WithLogger(logger),
		query.WithClock(service.now),
	)
	if err != nil {
		return nil, translate(err)
	}
	return set, nil
}

func (service *Service) execute(context context.Context, set *query.Set) {
	started := time.Now()
	err := set.Execute(context)

	logger := ctxutil.GetLogger(context)
	attrs := []any{
		slog.String("queries", set.Summary()),
		slog.Int64("latency_ms", time.Since(started).Milliseconds()),
	}
	if err != nil {
		logger.Warn("dashboard_results_incomplete", append(attrs, slog.Any("error", err))...)
		return
	}
	logger.Info("dashboard_executed", attrs...)
}

// checkSize rejects paths describing more queries than a dashboard holds,
// before any media is resolved.
func checkSize(segments query.Segments) error {
	var keywords []json.RawMessage
	if err := json.Unmarshal([]byte(segments.Keywords), &keywords); err != nil {
		return apperr.ValidationError("Malformed dashboard path")
	}
	if len(keywords) > constants.MaxQueriesPerDashboard {
		return validate.RequiredError("keywords", "Too many queries in one dashboard")
	}
	return nil
}

func validateRefinement(refinement query.Refinement) error {
	validator := &validate.Validator{}
	if refinement.Term != nil {
		validator.Required("term", *refinement.Term).MaxLen("term", *refinement.Term, 1000)
	}
	validateDates(validator, refinement.Start, refinement.End)
	return validator.Err()
}

func validateOverrides(overrides SubqueryOverrides) error {
	validator := &validate.Validator{}
	validateDates(validator, overrides.Start, overrides.End)
	return validator.Err()
}

func validateDates(validator *validate.Validator, start, end *string) {
	if start != nil {
		validator.Date("start", *start)
	}
	if end != nil {
		validator.Date("end", *end)
	}
	if start != nil && end != nil {
		validator.DateRange("start", *start, *end)
	}
}

// translate maps query and upstream errors onto API errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, query.ErrMalformedPath):
		return validate.RequiredError("path", err.Error())
	case errors.Is(err, query.ErrInvalidRefinement):
		return apperr.ValidationError("A refinement needs either a term or both start and end dates")
	case errors.Is(err, query.ErrNotMember):
		return apperr.NotFound("Query")
	case upstream.IsNotFound(err):
		return apperr.NotFound("Media")
	case isUpstream(err):
		return apperr.BadGateway("The analytics service is unavailable", err)
	default:
		return apperr.Internal(err)
	}
}

func isUpstream(err error) bool {
	var statusErr *upstream.StatusError
	return errors.As(err, &statusErr)
}
