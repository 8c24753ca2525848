// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package media

import (
	"context"
	"encoding/json"

	"github.com/taibuivan/mediameter/internal/keyed"
)

// QueryParam is the compact wire form of a selection. Empty lists are
// omitted, never sent as empty arrays.
type QueryParam struct {
	Sources []int `json:"sources,omitempty"`
	Sets    []int `json:"sets,omitempty"`
}

// IsEmpty reports whether the parameter references nothing.
func (param QueryParam) IsEmpty() bool {
	return len(param.Sources) == 0 && len(param.Sets) == 0
}

// Selection is the set of sources and tags one query searches.
type Selection struct {
	Sources *Sources
	Tags    *Tags
}

// NewSelection returns an empty, local-only selection.
func NewSelection() *Selection {
	return &Selection{
		Sources: NewSources(nil, nil),
		Tags:    NewTags(nil, nil),
	}
}

// DefaultSelection returns the platform default: the default collection
// tag alone.
func DefaultSelection() *Selection {
	selection := NewSelection()
	selection.Tags.Add(&Tag{ID: DefaultCollectionTagID})
	return selection
}

// QueryParam derives the wire parameter in insertion order.
func (selection *Selection) QueryParam() QueryParam {
	return QueryParam{
		Sources: selection.Sources.Keys(),
		Sets:    selection.Tags.Keys(),
	}
}

// MarshalJSON renders the query parameter form.
func (selection *Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(selection.QueryParam())
}

// Subset returns a new selection holding only the entities of this one that
// param references. Entities are shared, not copied; unknown ids are
// skipped.
func (selection *Selection) Subset(param QueryParam) *Selection {
	subset := NewSelection()
	for _, id := range param.Sources {
		if source, ok := selection.Sources.Get(id); ok {
			subset.Sources.Add(source)
		}
	}
	for _, id := range param.Sets {
		if tag, ok := selection.Tags.Get(id); ok {
			subset.Tags.Add(tag)
		}
	}
	return subset
}

// Clone returns a selection with copies of both backing collections.
func (selection *Selection) Clone() *Selection {
	return &Selection{
		Sources: selection.Sources.Clone(),
		Tags:    selection.Tags.Clone(),
	}
}

// CopyFrom replaces the content of this selection with other's, keeping
// this selection's own collections.
func (selection *Selection) CopyFrom(other *Selection) {
	selection.Sources.Set(other.Sources.All())
	selection.Tags.Set(other.Tags.All())
}

// IsDefault reports whether the selection is exactly the platform default:
// no sources and the default collection tag alone.
func (selection *Selection) IsDefault() bool {
	if selection.Sources.Len() != 0 || selection.Tags.Len() != 1 {
		return false
	}
	return selection.Tags.Has(DefaultCollectionTagID)
}

// IsGeoTagged reports whether every source and every tag is geo-tagged.
// An empty selection is geo-tagged.
func (selection *Selection) IsGeoTagged() bool {
	return selection.Sources.Every((*Source).IsGeoTagged) &&
		selection.Tags.Every((*Tag).IsGeoTagged)
}

/*
Resolve makes every entity referenced by params available in this selection.

Description: Ids are gathered across all params (or from the selection
itself when none are given), resolved through the catalog, and the resolved
entities are added here, replacing any id-only stubs. Ids the catalog could
not resolve are kept as id-only stubs so the selection still serialises to
the same query parameter.

Returns:
  - error: the joined per-id fetch failures, nil when every id resolved
*/
func (selection *Selection) Resolve(context context.Context, catalog *Catalog, params ...QueryParam) error {
	if catalog == nil {
		return errNilCatalog
	}
	if len(params) == 0 {
		params = []QueryParam{selection.QueryParam()}
	}

	err := catalog.Resolve(context, params...)

	sourceIDs, tagIDs := unionIDs(params)
	for _, id := range sourceIDs {
		if source, ok := catalog.Sources.Get(id); ok {
			selection.Sources.Add(source)
		} else if !selection.Sources.Has(id) {
			selection.Sources.Add(&Source{ID: id})
		}
	}
	for _, id := range tagIDs {
		if tag, ok := catalog.Tags.Get(id); ok {
			selection.Tags.Add(tag)
		} else if !selection.Tags.Has(id) {
			selection.Tags.Add(&Tag{ID: id})
		}
	}
	return err
}

// # Nested Decoding

// selectionRecord is the stored shape of a selection with full entities.
type selectionRecord struct {
	sources *Sources
	tags    *Tags
}

/*
DecodeSelection decodes a stored selection of the form
{"sources": [...], "tags": [...]} holding full entity records.

Both child collections are notified once after decoding, which rebuilds the
source name index. Entities that carry only an id can be completed afterwards
with [Selection.Resolve].
*/
func DecodeSelection(data []byte) (*Selection, error) {
	var record selectionRecord
	err := keyed.DecodeNested(data, &record,
		keyed.Field[selectionRecord]{
			Name: "sources",
			Attach: func(record *selectionRecord, raw json.RawMessage) (keyed.Child, error) {
				record.sources = NewSources(nil, nil)
				if err := decodeArray(raw, record.sources.Collection.Add); err != nil {
					return nil, err
				}
				return record.sources, nil
			},
		},
		keyed.CollectionField("tags",
			func() *keyed.Collection[int, *Tag] { return NewTags(nil, nil).Collection },
			func(record *selectionRecord, child *keyed.Collection[int, *Tag]) {
				record.tags = &Tags{Collection: child}
			},
		),
	)
	if err != nil {
		return nil, err
	}
	return &Selection{Sources: record.sources, Tags: record.tags}, nil
}

// EncodeSelection renders the stored form read by [DecodeSelection].
func EncodeSelection(selection *Selection) ([]byte, error) {
	return json.Marshal(struct {
		Sources []*Source `json:"sources"`
		Tags    []*Tag    `json:"tags"`
	}{
		Sources: selection.Sources.All(),
		Tags:    selection.Tags.All(),
	})
}

func decodeArray[V any](raw json.RawMessage, add func(...V)) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var entities []V
	if err := json.Unmarshal(raw, &entities); err != nil {
		return err
	}
	add(entities...)
	return nil
}

func unionIDs(params []QueryParam) (sources, tags []int) {
	seenSources := map[int]struct{}{}
	seenTags := map[int]struct{}{}
	for _, param := range params {
		for _, id := range param.Sources {
			if _, ok := seenSources[id]; !ok {
				seenSources[id] = struct{}{}
				sources = append(sources, id)
			}
		}
		for _, id := range param.Sets {
			if _, ok := seenTags[id]; !ok {
				seenTags[id] = struct{}{}
				tags = append(tags, id)
			}
		}
	}
	return sources, tags
}
