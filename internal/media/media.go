// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package media models the publications a query searches: individual media
sources and tag sets (collections), and the selection of both that one query
uses.

Architecture:

  - Entities: [Source] and [Tag] as served by the upstream API.
  - Collections: [Sources] and [Tags] are keyed caches that can resolve
    missing ids remotely (see package keyed).
  - Selection: [Selection] pairs one Sources and one Tags collection and
    derives the compact query parameter sent to the result endpoints.
  - Catalog: [Catalog] holds the process-wide collections every selection
    draws its entities from.
*/
package media

// # Reserved Identifiers

const (
	// DefaultCollectionTagID is the tag id of the platform default selection
	// (the US mainstream media collection).
	DefaultCollectionTagID = 8875027

	// GeoTagID marks sources and collections with geographic coverage data.
	GeoTagID = 8875027

	// GeoTagSetID is the tag set holding geographic tags.
	GeoTagSetID = 556
)

// # Entities

// SourceTag is one tag membership of a media source.
type SourceTag struct {
	TagID    int `json:"tags_id"`
	TagSetID int `json:"tag_sets_id"`
}

// Source is a single media outlet.
type Source struct {
	ID   int         `json:"media_id"`
	Name string      `json:"name,omitempty"`
	URL  string      `json:"url,omitempty"`
	Tags []SourceTag `json:"media_source_tags,omitempty"`
}

// Key implements keyed.Keyer.
func (source *Source) Key() int { return source.ID }

// IsGeoTagged reports whether the source carries the geographic tag or any
// tag of the geographic tag set.
func (source *Source) IsGeoTagged() bool {
	for _, tag := range source.Tags {
		if tag.TagID == GeoTagID || tag.TagSetID == GeoTagSetID {
			return true
		}
	}
	return false
}

// Tag is a categorical label, typically a curated collection of sources.
type Tag struct {
	ID          int     `json:"tags_id"`
	TagSetID    int     `json:"tag_sets_id,omitempty"`
	Tag         string  `json:"tag,omitempty"`
	Label       *string `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Key implements keyed.Keyer.
func (tag *Tag) Key() int { return tag.ID }

// DisplayLabel returns the label, falling back to the raw tag name.
func (tag *Tag) DisplayLabel() string {
	if tag.Label != nil {
		return *tag.Label
	}
	return tag.Tag
}

// IsGeoTagged reports whether the tag is the geographic tag or belongs to
// the geographic tag set.
func (tag *Tag) IsGeoTagged() bool {
	return tag.ID == GeoTagID || tag.TagSetID == GeoTagSetID
}
