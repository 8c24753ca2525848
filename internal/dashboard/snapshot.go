// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package dashboard serves dashboards described by shareable paths.

# Flow

  - Parse: the five path segments become a query.Set whose media ids are
    resolved through the shared media catalog.
  - Execute: every member fetches its result categories concurrently and the
    request waits for all of them.
  - Snapshot: names, colors, parameters and per-category results are
    returned with the canonical path of the set.

A set lives for one request only; the catalog and its cache are shared.
*/
package dashboard

import (
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/query"
	"github.com/taibuivan/mediameter/internal/results"
	"github.com/taibuivan/mediameter/pkg/slice"
)

// # Snapshots

// Snapshot is the rendered state of a dashboard.
type Snapshot struct {
	// Path is the canonical path of the set after any refinement.
	Path       string          `json:"path"`
	NameSource string          `json:"name_source"`
	GeoTagged  bool            `json:"geo_tagged"`
	Queries    []QuerySnapshot `json:"queries"`
	Subquery   *QuerySnapshot  `json:"subquery,omitempty"`
}

// QuerySnapshot is the rendered state of one query.
type QuerySnapshot struct {
	UID       int                `json:"uid"`
	Name      string             `json:"name"`
	Color     string             `json:"color"`
	Keywords  string             `json:"keywords"`
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Media     media.QueryParam   `json:"media"`
	Sources   []*media.Source    `json:"sources"`
	Tags      []*media.Tag       `json:"tags"`
	GeoTagged bool               `json:"geo_tagged"`
	Results   []results.Snapshot `json:"results"`
}

func snapshotQuery(state *query.State) QuerySnapshot {
	params := state.Params()
	return QuerySnapshot{
		UID:       state.UID(),
		Name:      state.Name(),
		Color:     state.Color(),
		Keywords:  params.Keywords,
		Start:     params.Start,
		End:       params.End,
		Media:     params.Media.QueryParam(),
		Sources:   params.Media.Sources.All(),
		Tags:      params.Media.Tags.All(),
		GeoTagged: state.IsGeoTagged(),
		Results:   state.Results().Snapshot(),
	}
}

func snapshotSet(set *query.Set, source query.NameSource, demo bool) *Snapshot {
	path := set.Path()
	if demo {
		path = set.DemoPath()
	}
	return &Snapshot{
		Path:       path,
		NameSource: source.String(),
		GeoTagged:  set.IsGeoTagged(),
		Queries:    slice.Map(set.Members(), snapshotQuery),
	}
}
