// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mediameter/internal/keyed"
)

// Getter fetches a JSON document from the upstream API.
type Getter interface {
	GetJSON(context context.Context, path string, out any) error
}

// # Upstream Fetchers

// SourceFetcher loads single sources from /api/media/sources/single/{id}.
func SourceFetcher(client Getter) keyed.Fetcher[int, *Source] {
	return keyed.FetcherFunc[int, *Source](func(context context.Context, id int) (*Source, error) {
		var source Source
		if err := client.GetJSON(context, "/api/media/sources/single/"+strconv.Itoa(id), &source); err != nil {
			return nil, err
		}
		if source.ID == 0 {
			source.ID = id
		}
		return &source, nil
	})
}

// TagFetcher loads single tags from /api/media/tags/single/{id}.
func TagFetcher(client Getter) keyed.Fetcher[int, *Tag] {
	return keyed.FetcherFunc[int, *Tag](func(context context.Context, id int) (*Tag, error) {
		var tag Tag
		if err := client.GetJSON(context, "/api/media/tags/single/"+strconv.Itoa(id), &tag); err != nil {
			return nil, err
		}
		if tag.ID == 0 {
			tag.ID = id
		}
		return &tag, nil
	})
}

// # Redis Read-Through

// RedisCache is a read-through cache in front of another fetcher. Entities
// are stored as JSON under "media:<kind>:<id>" with a fixed TTL.
//
// Redis failures are logged and fall through to the wrapped fetcher, so a
// cache outage only costs latency.
type RedisCache[V any] struct {
	client redis.Cmdable
	next   keyed.Fetcher[int, V]
	kind   string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps next with a cache keyed by kind ("source", "tag").
func NewRedisCache[V any](client redis.Cmdable, next keyed.Fetcher[int, V], kind string, ttl time.Duration, logger *slog.Logger) *RedisCache[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache[V]{client: client, next: next, kind: kind, ttl: ttl, logger: logger}
}

// Key returns the cache key for id.
func (cache *RedisCache[V]) Key(id int) string {
	return fmt.Sprintf("media:%s:%d", cache.kind, id)
}

// Fetch implements keyed.Fetcher.
func (cache *RedisCache[V]) Fetch(context context.Context, id int) (V, error) {
	key := cache.Key(id)

	cached, err := cache.client.Get(context, key).Bytes()
	switch {
	case err == nil:
		var entity V
		if decodeErr := json.Unmarshal(cached, &entity); decodeErr == nil {
			return entity, nil
		}
		cache.logger.Warn("media_cache_corrupt", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		cache.logger.Warn("media_cache_read_failed", slog.String("key", key), slog.Any("error", err))
	}

	entity, err := cache.next.Fetch(context, id)
	if err != nil {
		return entity, err
	}

	encoded, err := json.Marshal(entity)
	if err == nil {
		err = cache.client.Set(context, key, encoded, cache.ttl).Err()
	}
	if err != nil {
		cache.logger.Warn("media_cache_write_failed", slog.String("key", key), slog.Any("error", err))
	}
	return entity, nil
}
