// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/dashboard"
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/platform/apperr"
	"github.com/taibuivan/mediameter/internal/query"
	"github.com/taibuivan/mediameter/internal/results"
	"github.com/taibuivan/mediameter/pkg/pointer"
)

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError), "want an AppError, got %v", err)
	assert.Equal(t, status, appError.HTTPStatus)
}

func countPrefix(paths []string, prefix string) int {
	n := 0
	for _, path := range paths {
		if strings.HasPrefix(path, prefix) {
			n++
		}
	}
	return n
}

/*
TestService_Run verifies that a shared dashboard is parsed, auto-named and
executed with every category loaded.
*/
func TestService_Run(t *testing.T) {
	service, _, transport := newService()

	snapshot, err := service.Run(context.Background(), dashboard.Request{Segments: weather})
	require.NoError(t, err)

	assert.Equal(t, "keywords", snapshot.NameSource)
	assert.True(t, strings.HasPrefix(snapshot.Path, "query/"))
	require.Len(t, snapshot.Queries, 2)

	rain, snow := snapshot.Queries[0], snapshot.Queries[1]
	assert.Equal(t, 1, rain.UID)
	assert.Equal(t, "rain", rain.Name)
	assert.Equal(t, "#1f77b4", rain.Color)
	assert.Equal(t, "2016-03-05", rain.Start)
	require.Len(t, rain.Sources, 1)
	assert.Equal(t, "Source 7", rain.Sources[0].Name)

	assert.Equal(t, "Snowfall", snow.Name)
	require.Len(t, snow.Tags, 1)
	assert.Equal(t, "collection-9", snow.Tags[0].Tag)

	for _, state := range snapshot.Queries {
		require.Len(t, state.Results, 4)
		for _, category := range state.Results {
			assert.True(t, category.Loaded, category.Name)
			assert.Empty(t, category.Error, category.Name)
		}
	}

	paths := transport.requested()
	assert.Len(t, paths, 8)
	assert.Equal(t, 2, countPrefix(paths, "/api/stories/public/docs/"))
	assert.Zero(t, countPrefix(paths, "/api/sentences/docs/"))
}

/*
TestService_RunWithSentences verifies that a session allowed to list
sentences gets the sentence category instead of stories.
*/
func TestService_RunWithSentences(t *testing.T) {
	service, _, transport := newService()

	snapshot, err := service.Run(context.Background(), dashboard.Request{Segments: weather, Session: allowSentences{}})
	require.NoError(t, err)

	names := make([]string, 0, 4)
	for _, category := range snapshot.Queries[0].Results {
		names = append(names, category.Name)
	}
	assert.Contains(t, names, results.Sentences)
	assert.NotContains(t, names, results.Stories)
	assert.Equal(t, 2, countPrefix(transport.requested(), "/api/sentences/docs/"))
}

type allowSentences struct{}

func (allowSentences) CanListSentences() bool { return true }

/*
TestService_RunReportsCategoryFailures verifies that a failing category is
reported in the snapshot without failing the dashboard.
*/
func TestService_RunReportsCategoryFailures(t *testing.T) {
	service, _, transport := newService()
	transport.fail("/api/geotagcount/", errors.New("upstream timeout"))

	snapshot, err := service.Run(context.Background(), dashboard.Request{Segments: weather})
	require.NoError(t, err)

	for _, state := range snapshot.Queries {
		for _, category := range state.Results {
			if category.Name == results.TagCounts {
				assert.Contains(t, category.Error, "upstream timeout")
			} else {
				assert.Empty(t, category.Error)
			}
		}
	}
}

/*
TestService_RunDemo verifies that demo dashboards hit the keyword-only
endpoints and render the demo path.
*/
func TestService_RunDemo(t *testing.T) {
	service, _, transport := newService()

	snapshot, err := service.Run(context.Background(), dashboard.Request{Segments: weather, Demo: true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(snapshot.Path, "demo-query/"))
	paths := transport.requested()
	assert.Len(t, paths, 8)
	assert.Equal(t, 8, countPrefix(paths, "/api/demo/"))
}

/*
TestService_RunRejectsBadPaths describes dashboards refused before any
upstream call.
*/
func TestService_RunRejectsBadPaths(t *testing.T) {
	many := query.Segments{
		Keywords: `[` + strings.Repeat(`"a",`, 20) + `"a"]`,
		Media:    `[]`,
		Start:    `[]`,
		End:      `[]`,
		Info:     `[]`,
	}
	misaligned := weather
	misaligned.Start = `["2016-03-05"]`
	broken := weather
	broken.Keywords = `not json`

	tests := []struct {
		name     string
		segments query.Segments
	}{
		{name: "too many queries", segments: many},
		{name: "misaligned segments", segments: misaligned},
		{name: "broken keywords", segments: broken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, transport := newService()
			_, err := service.Run(context.Background(), dashboard.Request{Segments: tt.segments})
			requireStatus(t, err, http.StatusBadRequest)
			assert.Empty(t, transport.requested())
		})
	}
}

/*
TestService_RefineTerm verifies that a term is ANDed onto every query and
the refined dashboard is executed once.
*/
func TestService_RefineTerm(t *testing.T) {
	service, _, transport := newService()

	snapshot, err := service.Refine(context.Background(), dashboard.Request{Segments: weather}, query.Refinement{Term: pointer.To("flood")})
	require.NoError(t, err)

	assert.Equal(t, "(rain) AND flood", snapshot.Queries[0].Keywords)
	assert.Equal(t, "(snow) AND flood", snapshot.Queries[1].Keywords)
	assert.Equal(t, "(rain) AND flood", snapshot.Queries[0].Name)
	assert.Equal(t, "Snowfall", snapshot.Queries[1].Name)
	assert.Len(t, transport.requested(), 8)

	segments, demo, err := query.SplitPath(snapshot.Path)
	require.NoError(t, err)
	assert.False(t, demo)
	assert.Contains(t, segments.Keywords, "(rain) AND flood")
}

/*
TestService_RefineSharedPath verifies that names auto-generated by one call
are re-derived by a refinement applied to the path it returned.
*/
func TestService_RefineSharedPath(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	first, err := service.Run(ctx, dashboard.Request{Segments: weather})
	require.NoError(t, err)
	require.Equal(t, "rain", first.Queries[0].Name)

	segments, _, err := query.SplitPath(first.Path)
	require.NoError(t, err)

	refined, err := service.Refine(ctx, dashboard.Request{Segments: segments}, query.Refinement{Term: pointer.To("flood")})
	require.NoError(t, err)
	assert.Equal(t, "(rain) AND flood", refined.Queries[0].Name)
	assert.Equal(t, "Snowfall", refined.Queries[1].Name)

	segments, _, err = query.SplitPath(refined.Path)
	require.NoError(t, err)
	again, err := service.Refine(ctx, dashboard.Request{Segments: segments}, query.Refinement{Term: pointer.To("coast")})
	require.NoError(t, err)
	assert.Equal(t, "((rain) AND flood) AND...", again.Queries[0].Name)
}

/*
TestService_RefineDates verifies that a date range replaces every range.
*/
func TestService_RefineDates(t *testing.T) {
	service, _, _ := newService()

	snapshot, err := service.Refine(context.Background(), dashboard.Request{Segments: weather},
		query.Refinement{Start: pointer.To("2016-03-10"), End: pointer.To("2016-03-12")})
	require.NoError(t, err)

	for _, state := range snapshot.Queries {
		assert.Equal(t, "2016-03-10", state.Start)
		assert.Equal(t, "2016-03-12", state.End)
	}
}

/*
TestService_RefineRejects describes refinements refused without any
upstream call.
*/
func TestService_RefineRejects(t *testing.T) {
	tests := []struct {
		name       string
		refinement query.Refinement
	}{
		{name: "empty", refinement: query.Refinement{}},
		{name: "blank term", refinement: query.Refinement{Term: pointer.To("  ")}},
		{name: "term and dates", refinement: query.Refinement{Term: pointer.To("x"), Start: pointer.To("2016-03-10"), End: pointer.To("2016-03-12")}},
		{name: "start only", refinement: query.Refinement{Start: pointer.To("2016-03-10")}},
		{name: "bad date", refinement: query.Refinement{Start: pointer.To("2016-13-10"), End: pointer.To("2016-03-12")}},
		{name: "reversed range", refinement: query.Refinement{Start: pointer.To("2016-03-12"), End: pointer.To("2016-03-10")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, transport := newService()
			_, err := service.Refine(context.Background(), dashboard.Request{Segments: weather}, tt.refinement)
			requireStatus(t, err, http.StatusBadRequest)
			assert.Empty(t, transport.requested())
		})
	}
}

/*
TestService_Subquery verifies that only the subquery is executed and that
its media overrides are resolved through the catalog.
*/
func TestService_Subquery(t *testing.T) {
	service, _, transport := newService()

	overrides := dashboard.SubqueryOverrides{
		Keywords: pointer.To("hail"),
		Media:    &media.QueryParam{Sources: []int{12}},
	}
	snapshot, err := service.Subquery(context.Background(), dashboard.Request{Segments: weather}, 2, overrides)
	require.NoError(t, err)

	require.NotNil(t, snapshot.Subquery)
	subquery := snapshot.Subquery
	assert.Equal(t, "hail", subquery.Keywords)
	assert.Equal(t, "2016-03-05", subquery.Start)
	require.Len(t, subquery.Sources, 1)
	assert.Equal(t, "Source 12", subquery.Sources[0].Name)
	assert.Empty(t, subquery.Tags)

	for _, state := range snapshot.Queries {
		assert.NotEqual(t, subquery.UID, state.UID)
		for _, category := range state.Results {
			assert.False(t, category.Loaded)
		}
	}
	assert.Len(t, transport.requested(), 4)
}

/*
TestService_SubqueryUnknownMember verifies that a uid outside the dashboard
is not found.
*/
func TestService_SubqueryUnknownMember(t *testing.T) {
	service, _, transport := newService()

	_, err := service.Subquery(context.Background(), dashboard.Request{Segments: weather}, 9, dashboard.SubqueryOverrides{})
	requireStatus(t, err, http.StatusNotFound)
	assert.Empty(t, transport.requested())
}
