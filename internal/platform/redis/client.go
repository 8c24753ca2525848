// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis opens the client behind the media lookup cache.

Only resolved sources and tags live in Redis, each under a TTL. A cache
outage degrades to direct upstream fetches and never fails a dashboard, so
timeouts here are short.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mediameter/internal/platform/constants"
)

const pingTimeout = 2 * time.Second

// Options tunes the client. A zero PoolSize keeps the default of 10.
type Options struct {
	URL      string
	PoolSize int
}

func (options Options) parse() (*redis.Options, error) {
	parsed, err := redis.ParseURL(options.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	parsed.ClientName = constants.AppName
	parsed.PoolSize = 10
	if options.PoolSize > 0 {
		parsed.PoolSize = options.PoolSize
	}
	parsed.MinIdleConns = min(2, parsed.PoolSize)
	parsed.DialTimeout = 3 * time.Second
	parsed.ReadTimeout = 500 * time.Millisecond
	parsed.WriteTimeout = 500 * time.Millisecond
	parsed.MaxRetries = 1
	return parsed, nil
}

// NewClient connects and pings once.
func NewClient(context stdctx.Context, options Options, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := options.parse()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(parsed)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
		slog.Int("pool_size", parsed.PoolSize),
	)
	return client, nil
}

// Ping checks that the server answers.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingContext, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingContext).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
