// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mediameter/internal/platform/apperr"
	requestutil "github.com/taibuivan/mediameter/internal/platform/request"
	"github.com/taibuivan/mediameter/internal/platform/respond"
	"github.com/taibuivan/mediameter/internal/platform/validate"
	"github.com/taibuivan/mediameter/internal/query"
)

// pathParts is the root plus the five segments of a dashboard path.
const pathParts = 6

// # Handler Implementation

// Handler implements the HTTP layer for dashboards.
type Handler struct {
	service *Service
	demo    bool
}

// NewHandler constructs a new dashboard [Handler]. demo enables the
// demo-query routes.
func NewHandler(service *Service, demo bool) *Handler {
	return &Handler{service: service, demo: demo}
}

// Routes returns a [chi.Router] configured with dashboard endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/query/*", handler.runDashboard)
	if handler.demo {
		router.Get("/demo-query/*", handler.runDashboard)
	}
	router.Post("/refine", handler.refineDashboard)
	router.Post("/subquery", handler.subqueryDashboard)

	return router
}

// refineRequest is the body of POST /api/v1/dashboard/refine.
type refineRequest struct {
	Path string `json:"path"`
	query.Refinement
}

// subqueryRequest is the body of POST /api/v1/dashboard/subquery.
type subqueryRequest struct {
	Path      string            `json:"path"`
	UID       int               `json:"uid"`
	Overrides SubqueryOverrides `json:"overrides"`
}

/*
GET /api/v1/dashboard/query/{keywords}/{media}/{start}/{end}/{info}.

Description: Each segment is a percent-encoded JSON array, one entry per
query. The demo-query root is served only in demo mode.

Response:
  - 200: Snapshot
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) runDashboard(writer http.ResponseWriter, request *http.Request) {
	path, err := requestutil.TailPath(request, pathParts)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	dashboard, err := handler.parse(request, path)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := handler.service.Run(request.Context(), dashboard)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, snapshot)
}

/*
POST /api/v1/dashboard/refine.

Request (Body):
  - path: string (query/... or demo-query/...)
  - term: string, or
  - start, end: string (YYYY-MM-DD)

Response:
  - 200: Snapshot of the refined dashboard
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) refineDashboard(writer http.ResponseWriter, request *http.Request) {
	var body refineRequest
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	dashboard, err := handler.parse(request, body.Path)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := handler.service.Refine(request.Context(), dashboard, body.Refinement)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, snapshot)
}

/*
POST /api/v1/dashboard/subquery.

Request (Body):
  - path: string
  - uid: int (member the subquery derives from)
  - overrides: {keywords, start, end, media}

Response:
  - 200: Snapshot with subquery set
  - 400: VALIDATION_ERROR
  - 404: NOT_FOUND
*/
func (handler *Handler) subqueryDashboard(writer http.ResponseWriter, request *http.Request) {
	var body subqueryRequest
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if body.UID < 1 {
		respond.Error(writer, request, validate.RequiredError("uid", "Must be a positive integer"))
		return
	}

	dashboard, err := handler.parse(request, body.Path)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := handler.service.Subquery(request.Context(), dashboard, body.UID, body.Overrides)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, snapshot)
}

// parse splits an escaped dashboard path and binds the caller's session.
func (handler *Handler) parse(request *http.Request, path string) (Request, error) {
	segments, demo, err := query.SplitPath(path)
	if err != nil {
		return Request{}, translate(err)
	}
	if demo && !handler.demo {
		return Request{}, apperr.NotFound("Demo dashboard")
	}

	dashboard := Request{Segments: segments, Demo: demo}
	if claims := requestutil.Session(request); claims != nil {
		dashboard.Session = claims
	}
	return dashboard, nil
}
