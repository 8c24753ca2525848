// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package media_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/keyed"
	"github.com/taibuivan/mediameter/internal/media"
)

type stubGetter struct {
	paths     []string
	responses map[string]string
}

func (g *stubGetter) GetJSON(_ context.Context, path string, out any) error {
	g.paths = append(g.paths, path)
	body, ok := g.responses[path]
	if !ok {
		return errors.New("not found")
	}
	return json.Unmarshal([]byte(body), out)
}

/*
TestUpstreamFetchers verifies the single-entity endpoints and that a missing
id in the payload is filled from the request.
*/
func TestUpstreamFetchers(t *testing.T) {
	getter := &stubGetter{responses: map[string]string{
		"/api/media/sources/single/12": `{"media_id": 12, "name": "Herald", "media_source_tags": [{"tags_id": 8875027, "tag_sets_id": 5}]}`,
		"/api/media/tags/single/556":   `{"tag": "geo", "tag_sets_id": 556}`,
	}}

	source, err := media.SourceFetcher(getter).Fetch(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "Herald", source.Name)
	assert.True(t, source.IsGeoTagged())

	tag, err := media.TagFetcher(getter).Fetch(context.Background(), 556)
	require.NoError(t, err)
	assert.Equal(t, 556, tag.ID)
	assert.Equal(t, "geo", tag.DisplayLabel())
	assert.True(t, tag.IsGeoTagged())

	_, err = media.SourceFetcher(getter).Fetch(context.Background(), 13)
	assert.Error(t, err)
	assert.Equal(t, []string{
		"/api/media/sources/single/12",
		"/api/media/tags/single/556",
		"/api/media/sources/single/13",
	}, getter.paths)
}

/*
TestRedisCache_Key verifies the cache key layout.
*/
func TestRedisCache_Key(t *testing.T) {
	cache := media.NewRedisCache[*media.Source](nil, media.SourceFetcher(&stubGetter{}), "source", 0, nil)
	assert.Equal(t, "media:source:42", cache.Key(42))
}

// memoryRedis serves Get and Set from a map. Other commands are not used by
// the cache and panic through the nil embedded interface.
type memoryRedis struct {
	redis.Cmdable
	values  map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.readErr != nil {
		return redis.NewStringResult("", m.readErr)
	}
	value, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.values[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

/*
TestRedisCache_ReadThrough verifies that a miss is fetched once and stored
with the TTL, and that later reads are served from the cache.
*/
func TestRedisCache_ReadThrough(t *testing.T) {
	store := newMemoryRedis()
	calls := 0
	next := keyed.FetcherFunc[int, *media.Source](func(_ context.Context, id int) (*media.Source, error) {
		calls++
		return &media.Source{ID: id, Name: "Herald"}, nil
	})
	cache := media.NewRedisCache[*media.Source](store, next, "source", time.Hour, nil)

	for range 2 {
		source, err := cache.Fetch(context.Background(), 12)
		require.NoError(t, err)
		assert.Equal(t, "Herald", source.Name)
		assert.Equal(t, 12, source.ID)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Hour, store.ttls["media:source:12"])
}

/*
TestRedisCache_Degrades verifies that unreadable or corrupt entries fall
through to the wrapped fetcher.
*/
func TestRedisCache_Degrades(t *testing.T) {
	next := keyed.FetcherFunc[int, *media.Tag](func(_ context.Context, id int) (*media.Tag, error) {
		return &media.Tag{ID: id, Tag: "geo"}, nil
	})

	down := newMemoryRedis()
	down.readErr = errors.New("connection refused")
	tag, err := media.NewRedisCache[*media.Tag](down, next, "tag", time.Minute, nil).Fetch(context.Background(), 556)
	require.NoError(t, err)
	assert.Equal(t, "geo", tag.Tag)

	corrupt := newMemoryRedis()
	corrupt.values["media:tag:556"] = "{not json"
	tag, err = media.NewRedisCache[*media.Tag](corrupt, next, "tag", time.Minute, nil).Fetch(context.Background(), 556)
	require.NoError(t, err)
	assert.Equal(t, 556, tag.ID)
	assert.JSONEq(t, `{"tags_id": 556, "tag": "geo"}`, corrupt.values["media:tag:556"])
}
