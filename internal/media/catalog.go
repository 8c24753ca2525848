// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package media

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mediameter/internal/keyed"
)

var errNilCatalog = errors.New("media: nil catalog")

// Catalog holds the process-wide source and tag collections every selection
// draws its entities from. Missing entities are fetched remotely at most once
// per id.
type Catalog struct {
	Sources *Sources
	Tags    *Tags
}

// NewCatalog binds fresh collections to their remote fetchers.
func NewCatalog(sources keyed.Fetcher[int, *Source], tags keyed.Fetcher[int, *Tag], logger *slog.Logger) *Catalog {
	return &Catalog{
		Sources: NewSources(sources, logger),
		Tags:    NewTags(tags, logger),
	}
}

// Resolve fetches every source and tag id referenced by params that is not
// cached yet. Sources and tags resolve concurrently; the call returns once
// both have settled.
func (catalog *Catalog) Resolve(context context.Context, params ...QueryParam) error {
	sourceIDs, tagIDs := unionIDs(params)

	var (
		group             errgroup.Group
		sourceErr, tagErr error
	)
	group.Go(func() error {
		sourceErr = catalog.Sources.ResolveAll(context, sourceIDs...)
		return nil
	})
	group.Go(func() error {
		tagErr = catalog.Tags.ResolveAll(context, tagIDs...)
		return nil
	})
	_ = group.Wait()

	return errors.Join(sourceErr, tagErr)
}

// Selection returns the catalog subset referenced by param.
func (catalog *Catalog) Selection(param QueryParam) *Selection {
	all := &Selection{Sources: catalog.Sources, Tags: catalog.Tags}
	return all.Subset(param)
}

// Source returns one source, fetching it when needed.
func (catalog *Catalog) Source(context context.Context, id int) (*Source, error) {
	if err := catalog.Sources.ResolveAll(context, id); err != nil {
		return nil, err
	}
	source, _ := catalog.Sources.Get(id)
	return source, nil
}

// Tag returns one tag, fetching it when needed.
func (catalog *Catalog) Tag(context context.Context, id int) (*Tag, error) {
	if err := catalog.Tags.ResolveAll(context, id); err != nil {
		return nil, err
	}
	tag, _ := catalog.Tags.Get(id)
	return tag, nil
}

// Load resolves params and returns one selection holding every referenced
// entity. Ids that could not be fetched are present as id-only entities and
// reported in the returned error.
func (catalog *Catalog) Load(context context.Context, params ...QueryParam) (*Selection, error) {
	selection := NewSelection()
	err := selection.Resolve(context, catalog, params...)
	return selection, err
}
