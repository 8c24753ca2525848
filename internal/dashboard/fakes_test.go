// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/taibuivan/mediameter/internal/dashboard"
	"github.com/taibuivan/mediameter/internal/keyed"
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/query"
	"github.com/taibuivan/mediameter/internal/upstream"
)

// routeTransport answers upstream calls by path prefix and records them.
type routeTransport struct {
	mu       sync.Mutex
	paths    []string
	failures map[string]error
}

var routeBodies = []struct {
	prefix string
	body   string
}{
	{"/api/wordcount/", `[{"term": "rain", "count": 3}]`},
	{"/api/sentences/numfound/", `[{"date": "2016-03-05 00:00:00", "numFound": 2}]`},
	{"/api/geotagcount/", `[{"alpha3": "USA", "count": 1}]`},
	{"/api/stories/public/docs/", `{"total": 1, "stories": [{"stories_id": 11}]}`},
	{"/api/sentences/docs/", `{"total": 1, "totalStories": 1, "sentences": [{"sentence": "It rained."}]}`},
	{"/api/demo/", `[]`},
}

func newTransport() *routeTransport {
	return &routeTransport{failures: map[string]error{}}
}

func (r *routeTransport) Get(_ context.Context, path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)

	for prefix, err := range r.failures {
		if strings.HasPrefix(path, prefix) {
			return nil, err
		}
	}
	for _, route := range routeBodies {
		if strings.HasPrefix(path, route.prefix) {
			if strings.Contains(path, "/docs/") && route.prefix == "/api/demo/" {
				return []byte(`{"total": 0, "stories": []}`), nil
			}
			return []byte(route.body), nil
		}
	}
	return nil, errors.New("unexpected path " + path)
}

func (r *routeTransport) fail(prefix string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[prefix] = err
}

func (r *routeTransport) requested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// newCatalog serves sources and tags whose names derive from their id. Id
// 404 answers like a missing upstream entity.
func newCatalog() *media.Catalog {
	sources := keyed.FetcherFunc[int, *media.Source](func(_ context.Context, id int) (*media.Source, error) {
		if id == 404 {
			return nil, &upstream.StatusError{Path: "/api/media/sources/single/404", Status: http.StatusNotFound}
		}
		return &media.Source{ID: id, Name: "Source " + strconv.Itoa(id)}, nil
	})
	tags := keyed.FetcherFunc[int, *media.Tag](func(_ context.Context, id int) (*media.Tag, error) {
		if id == 404 {
			return nil, &upstream.StatusError{Path: "/api/media/tags/single/404", Status: http.StatusNotFound}
		}
		return &media.Tag{ID: id, Tag: "collection-" + strconv.Itoa(id)}, nil
	})
	return media.NewCatalog(sources, tags, nil)
}

func newService() (*dashboard.Service, *media.Catalog, *routeTransport) {
	transport := newTransport()
	catalog := newCatalog()
	return dashboard.NewService(catalog, transport, nil), catalog, transport
}

// weather is a two-query dashboard: "rain" over source 7 and "snow",
// named Snowfall, over collection 9.
var weather = query.Segments{
	Keywords: `["rain","snow"]`,
	Media:    `[{"sources":[7]},{"sets":[9]}]`,
	Start:    `["2016-03-05","2016-03-05"]`,
	End:      `["2016-03-19","2016-03-19"]`,
	Info:     `[{"uid":1,"color":"1f77b4"},{"uid":2,"name":"Snowfall","color":"ff7f0e"}]`,
}
