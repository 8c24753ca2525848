// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mediameter/internal/platform/middleware"
	requestutil "github.com/taibuivan/mediameter/internal/platform/request"
	"github.com/taibuivan/mediameter/internal/platform/respond"
	"github.com/taibuivan/mediameter/internal/platform/sec"
	"github.com/taibuivan/mediameter/pkg/pagination"
	"github.com/taibuivan/mediameter/pkg/pointer"
	"github.com/taibuivan/mediameter/pkg/slice"
)

// # Handler Implementation

// Handler implements the HTTP layer for saved searches.
type Handler struct {
	service *Service
	baseURL string
}

// NewHandler constructs a new saved search [Handler]. baseURL prefixes the
// short links in responses.
func NewHandler(service *Service, baseURL string) *Handler {
	return &Handler{service: service, baseURL: baseURL}
}

// view is the response form of a saved search.
type view struct {
	*SavedSearch
	ShortURL string `json:"short_url"`
}

func (handler *Handler) present(search *SavedSearch) view {
	return view{SavedSearch: search, ShortURL: search.ShortURL(handler.baseURL)}
}

// Routes returns a [chi.Router] configured with saved search endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/list", handler.listSearches)
	router.Post("/", handler.createSearch)
	router.Get("/{shortcode}", handler.getSearch)
	router.With(middleware.RequireRole(sec.RoleAdmin)).Delete("/{shortcode}", handler.deleteSearch)

	return router
}

// createRequest is the body of POST /api/v1/queries.
type createRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

/*
GET /api/v1/queries/list.

Request:
  - limit: int
  - page: int

Response:
  - 200: []SavedSearch: Paginated list, newest first
*/
func (handler *Handler) listSearches(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	searches, total, err := handler.service.List(request.Context(), paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, slice.Map(searches, handler.present), pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
POST /api/v1/queries.

Request (Body):
  - name: string
  - path: string (query/... or demo-query/...)

Response:
  - 201: SavedSearch with its short_url
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) createSearch(writer http.ResponseWriter, request *http.Request) {
	var body createRequest
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var createdBy *string
	if claims := requestutil.Session(request); claims != nil {
		createdBy = pointer.To(claims.UserID)
	}

	search, err := handler.service.Create(request.Context(), body.Name, body.Path, createdBy)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, handler.present(search))
}

/*
GET /api/v1/queries/{shortcode}.

Response:
  - 200: SavedSearch
  - 404: NOT_FOUND
*/
func (handler *Handler) getSearch(writer http.ResponseWriter, request *http.Request) {
	search, err := handler.service.GetByShortcode(request.Context(), chi.URLParam(request, "shortcode"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, handler.present(search))
}

/*
DELETE /api/v1/queries/{shortcode}.

Description: Admin only.

Response:
  - 204: Deleted
  - 404: NOT_FOUND
*/
func (handler *Handler) deleteSearch(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), chi.URLParam(request, "shortcode")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
