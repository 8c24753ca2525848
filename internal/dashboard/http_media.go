// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dashboard

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/platform/apperr"
	requestutil "github.com/taibuivan/mediameter/internal/platform/request"
	"github.com/taibuivan/mediameter/internal/platform/respond"
	"github.com/taibuivan/mediameter/internal/platform/validate"
	"github.com/taibuivan/mediameter/pkg/qparam"
)

// maxLookupIDs bounds one batch lookup.
const maxLookupIDs = 100

// MediaHandler serves lookups against the shared media catalog.
type MediaHandler struct {
	catalog *media.Catalog
}

// NewMediaHandler constructs a new [MediaHandler].
func NewMediaHandler(catalog *media.Catalog) *MediaHandler {
	return &MediaHandler{catalog: catalog}
}

// Routes returns a [chi.Router] configured with media endpoints.
func (handler *MediaHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/sources", handler.findSources)
	router.Get("/sources/{id}", handler.getSource)
	router.Get("/tags", handler.findTags)
	router.Get("/tags/{id}", handler.getTag)

	return router
}

/*
GET /api/v1/media/sources/{id}.

Response:
  - 200: Source
  - 404: NOT_FOUND
*/
func (handler *MediaHandler) getSource(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	source, err := handler.catalog.Source(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, translate(err))
		return
	}

	respond.OK(writer, source)
}

/*
GET /api/v1/media/tags/{id}.

Response:
  - 200: Tag
  - 404: NOT_FOUND
*/
func (handler *MediaHandler) getTag(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	tag, err := handler.catalog.Tag(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, translate(err))
		return
	}

	respond.OK(writer, tag)
}

/*
GET /api/v1/media/sources.

Request:
  - ids: comma-separated source ids, or
  - name: exact source name among sources already known

Response:
  - 200: []Source
  - 400: VALIDATION_ERROR
  - 404: NOT_FOUND (name lookups only)
*/
func (handler *MediaHandler) findSources(writer http.ResponseWriter, request *http.Request) {
	if name := strings.TrimSpace(request.URL.Query().Get("name")); name != "" {
		source, ok := handler.catalog.Sources.ByName(name)
		if !ok {
			respond.Error(writer, request, apperr.NotFound("Source"))
			return
		}
		respond.OK(writer, []*media.Source{source})
		return
	}

	ids, err := lookupIDs(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	selection, err := handler.catalog.Load(request.Context(), media.QueryParam{Sources: ids})
	if err != nil {
		respond.Error(writer, request, translate(err))
		return
	}

	respond.OK(writer, selection.Sources.All())
}

/*
GET /api/v1/media/tags.

Request:
  - ids: comma-separated tag ids

Response:
  - 200: []Tag
  - 400: VALIDATION_ERROR
*/
func (handler *MediaHandler) findTags(writer http.ResponseWriter, request *http.Request) {
	ids, err := lookupIDs(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	selection, err := handler.catalog.Load(request.Context(), media.QueryParam{Sets: ids})
	if err != nil {
		respond.Error(writer, request, translate(err))
		return
	}

	respond.OK(writer, selection.Tags.All())
}

func lookupIDs(request *http.Request) ([]int, error) {
	ids := qparam.Ints(request.URL.Query().Get("ids"))

	validator := &validate.Validator{}
	validator.Custom("ids", len(ids) == 0, "At least one numeric id is required")
	validator.Custom("ids", len(ids) > maxLookupIDs, "Too many ids in one lookup")
	if err := validator.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
