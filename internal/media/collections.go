// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package media

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/taibuivan/mediameter/internal/keyed"
)

// # Sources

// Sources is a keyed collection of media sources with a case-insensitive
// name index.
type Sources struct {
	*keyed.Collection[int, *Source]

	indexMu sync.RWMutex
	byName  map[string]int
}

// NewSources creates an empty source collection. A nil fetcher leaves the
// collection local-only.
func NewSources(fetcher keyed.Fetcher[int, *Source], logger *slog.Logger) *Sources {
	options := []keyed.Option[int, *Source]{keyed.WithConcurrency[int, *Source](8)}
	if fetcher != nil {
		options = append(options, keyed.WithFetcher(fetcher))
	}
	if logger != nil {
		options = append(options, keyed.WithLogger[int, *Source](logger))
	}
	return wrapSources(keyed.New[int, *Source](nil, options...))
}

func wrapSources(collection *keyed.Collection[int, *Source]) *Sources {
	sources := &Sources{Collection: collection, byName: map[string]int{}}
	collection.OnParentSync(sources.reindex)
	collection.OnFetched(sources.index)
	return sources
}

// ByName looks a source up by its display name.
func (sources *Sources) ByName(name string) (*Source, bool) {
	sources.indexMu.RLock()
	id, ok := sources.byName[strings.ToLower(name)]
	sources.indexMu.RUnlock()
	if !ok {
		return nil, false
	}
	return sources.Get(id)
}

// Add inserts sources and refreshes the name index.
func (sources *Sources) Add(entities ...*Source) {
	sources.Collection.Add(entities...)
	sources.reindex()
}

// Set replaces the content and refreshes the name index.
func (sources *Sources) Set(entities []*Source) {
	sources.Collection.Set(entities)
	sources.reindex()
}

// Clone copies the backing collection.
func (sources *Sources) Clone() *Sources {
	clone := wrapSources(sources.Collection.Clone())
	clone.reindex()
	return clone
}

// index records one fetched source in the name index.
func (sources *Sources) index(source *Source) {
	if source == nil || source.Name == "" {
		return
	}
	sources.indexMu.Lock()
	sources.byName[strings.ToLower(source.Name)] = source.ID
	sources.indexMu.Unlock()
}

// reindex rebuilds the name index from the whole collection.
func (sources *Sources) reindex() {
	sources.indexMu.Lock()
	defer sources.indexMu.Unlock()

	index := make(map[string]int, sources.Len())
	for _, source := range sources.All() {
		if source.Name != "" {
			index[strings.ToLower(source.Name)] = source.ID
		}
	}
	sources.byName = index
}

// # Tags

// Tags is a keyed collection of tags (collections).
type Tags struct {
	*keyed.Collection[int, *Tag]
}

// NewTags creates an empty tag collection. A nil fetcher leaves the
// collection local-only.
func NewTags(fetcher keyed.Fetcher[int, *Tag], logger *slog.Logger) *Tags {
	options := []keyed.Option[int, *Tag]{keyed.WithConcurrency[int, *Tag](8)}
	if fetcher != nil {
		options = append(options, keyed.WithFetcher(fetcher))
	}
	if logger != nil {
		options = append(options, keyed.WithLogger[int, *Tag](logger))
	}
	return &Tags{Collection: keyed.New[int, *Tag](nil, options...)}
}

// Clone copies the backing collection.
func (tags *Tags) Clone() *Tags {
	return &Tags{Collection: tags.Collection.Clone()}
}
