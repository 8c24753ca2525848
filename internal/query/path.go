// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/results"
)

const (
	dashboardRoot = "query"
	demoRoot      = "demo-query"
)

// ErrMalformedPath is returned for dashboard paths that cannot be decoded.
var ErrMalformedPath = errors.New("query: malformed dashboard path")

// Segments are the five JSON arrays that make up a shareable dashboard
// path, aligned by member position.
type Segments struct {
	Keywords string
	Media    string
	Start    string
	End      string
	Info     string
}

// List returns the segments in path order.
func (segments Segments) List() []string {
	return []string{segments.Keywords, segments.Media, segments.Start, segments.End, segments.Info}
}

// Segments serialises the set into its path segments.
func (set *Set) Segments() Segments {
	return Segments{
		Keywords: mustJSON(set.Keywords()),
		Media:    mustJSON(set.Media()),
		Start:    mustJSON(set.Start()),
		End:      mustJSON(set.End()),
		Info:     mustJSON(set.Info()),
	}
}

// Path returns "query/<keywords>/<media>/<start>/<end>/<info>" with each
// segment escaped, or "" for an empty set.
func (set *Set) Path() string { return set.path(dashboardRoot) }

// DemoPath is Path under the "demo-query" root.
func (set *Set) DemoPath() string { return set.path(demoRoot) }

func (set *Set) path(root string) string {
	if set.Len() == 0 {
		return ""
	}
	parts := []string{root}
	for _, segment := range set.Segments().List() {
		parts = append(parts, url.PathEscape(segment))
	}
	return strings.Join(parts, "/")
}

/*
SplitPath is the inverse of [Set.Path] and [Set.DemoPath]: it splits a
dashboard path into its unescaped segments.

Returns:
  - Segments: the five unescaped JSON arrays
  - bool: whether the path is under the demo root
  - error: [ErrMalformedPath] for an unknown root, a wrong segment count or
    bad escaping
*/
func SplitPath(path string) (Segments, bool, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 6 {
		return Segments{}, false, fmt.Errorf("%w: want 6 parts, got %d", ErrMalformedPath, len(parts))
	}

	var demo bool
	switch parts[0] {
	case dashboardRoot:
	case demoRoot:
		demo = true
	default:
		return Segments{}, false, fmt.Errorf("%w: unknown root %q", ErrMalformedPath, parts[0])
	}

	values := make([]string, 5)
	for i, part := range parts[1:] {
		value, err := url.PathUnescape(part)
		if err != nil {
			return Segments{}, false, fmt.Errorf("%w: %v", ErrMalformedPath, err)
		}
		values[i] = value
	}

	return Segments{
		Keywords: values[0],
		Media:    values[1],
		Start:    values[2],
		End:      values[3],
		Info:     values[4],
	}, demo, nil
}

func mustJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		// Only slices of strings, ints and plain structs are encoded here.
		panic(fmt.Sprintf("query: encode segment: %v", err))
	}
	return string(data)
}

// MediaLoader resolves the media parameters of a shared path into one
// selection holding every referenced entity.
type MediaLoader interface {
	Load(context context.Context, params ...media.QueryParam) (*media.Selection, error)
}

// ParsePath builds a new set with [NewSet] and loads segments into it.
func ParsePath(context context.Context, segments Segments, loader MediaLoader, factory *results.Factory, options ...Option) (*Set, error) {
	set := NewSet(factory, options...)
	if err := set.Load(context, segments, loader); err != nil {
		set.Close()
		return nil, err
	}
	return set, nil
}

/*
Load appends the queries described by path segments, the inverse of
[Set.Segments].

Description: The five unescaped JSON arrays must have the same length. Media
ids are resolved through loader in one batch; ids that fail to resolve are
kept as bare ids and logged. Names and colors are restored from the info
segment and so are ordinals, unless one is outside 1..uid.Max or already
taken, in which case a fresh ordinal is issued.

Parameters:
  - segments: the unescaped path segments
  - loader: media resolver; nil keeps every entity as a bare id

Returns:
  - error: [ErrMalformedPath] wrapping the decoding failure; nothing is
    added in that case
*/
func (set *Set) Load(context context.Context, segments Segments, loader MediaLoader) error {
	var (
		keywords []string
		params   []media.QueryParam
		starts   []string
		ends     []string
		infos    []Info
	)
	decoders := []struct {
		name string
		raw  string
		out  any
	}{
		{"keywords", segments.Keywords, &keywords},
		{"media", segments.Media, &params},
		{"start", segments.Start, &starts},
		{"end", segments.End, &ends},
		{"info", segments.Info, &infos},
	}
	for _, decoder := range decoders {
		if err := json.Unmarshal([]byte(decoder.raw), decoder.out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPath, decoder.name, err)
		}
	}

	count := len(keywords)
	if len(params) != count || len(starts) != count || len(ends) != count || len(infos) != count {
		return fmt.Errorf("%w: segments hold %d, %d, %d, %d and %d entries",
			ErrMalformedPath, count, len(params), len(starts), len(ends), len(infos))
	}

	all := media.NewSelection()
	if loader != nil && count > 0 {
		loaded, err := loader.Load(context, params...)
		if err != nil {
			set.logger.Warn("query_media_unresolved", slog.Any("error", err))
		}
		if loaded != nil {
			all = loaded
		}
	}

	used := map[int]bool{}
	for _, member := range set.Members() {
		used[member.UID()] = true
	}
	restorable := make([]bool, count)
	for i, info := range infos {
		restorable[i] = set.ids.Observe(info.UID)
	}

	for i := range count {
		keyword := keywords[i]
		if isBlank(keyword) {
			keyword = ""
		}

		ordinal := infos[i].UID
		if !restorable[i] || used[ordinal] {
			ordinal = set.ids.Next()
		}
		used[ordinal] = true

		state := newState(ordinal, Params{
			Keywords: keyword,
			Start:    starts[i],
			End:      ends[i],
			Media:    selectionFor(all, params[i]),
		}, set.factory, set.logger)
		state.restore(infos[i])
		set.Add(state)
	}
	return nil
}

// selectionFor builds a selection in param order from the entities of all,
// using id-only entities for the ids all lacks.
func selectionFor(all *media.Selection, param media.QueryParam) *media.Selection {
	selection := media.NewSelection()
	for _, id := range param.Sources {
		source, ok := all.Sources.Get(id)
		if !ok {
			source = &media.Source{ID: id}
		}
		selection.Sources.Add(source)
	}
	for _, id := range param.Sets {
		tag, ok := all.Tags.Get(id)
		if !ok {
			tag = &media.Tag{ID: id}
		}
		selection.Tags.Add(tag)
	}
	return selection
}
