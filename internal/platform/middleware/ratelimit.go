// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/mediameter/internal/platform/apperr"
	"github.com/taibuivan/mediameter/internal/platform/constants"
	"github.com/taibuivan/mediameter/internal/platform/respond"
)

// # Rate Limiting

// RateLimitConfig sizes the token bucket each client IP receives.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long an idle client keeps its bucket.
	IdleTTL time.Duration
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter holds one token bucket per client IP.
type ipLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientBucket
}

func newIPLimiter(config RateLimitConfig) *ipLimiter {
	return &ipLimiter{config: config, clients: map[string]*clientBucket{}}
}

// allow takes a token for ip, returning how long the caller must wait when
// none is available.
func (limiter *ipLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	bucket, found := limiter.clients[ip]
	if !found {
		bucket = &clientBucket{limiter: rate.NewLimiter(rate.Limit(limiter.config.RPS), limiter.config.Burst)}
		limiter.clients[ip] = bucket
	}
	bucket.lastSeen = now

	if bucket.limiter.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - bucket.limiter.TokensAt(now)
	return false, time.Duration(missing / limiter.config.RPS * float64(time.Second))
}

// sweep forgets clients idle for longer than the configured TTL.
func (limiter *ipLimiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for ip, bucket := range limiter.clients {
		if now.Sub(bucket.lastSeen) > limiter.config.IdleTTL {
			delete(limiter.clients, ip)
		}
	}
}

// RateLimit limits requests per client IP using a token bucket. Each call
// owns its client table, swept every [constants.RateLimitCleanupInterval]
// until context is cancelled. Rejected requests get 429 with Retry-After.
func RateLimit(context context.Context, config RateLimitConfig) func(http.Handler) http.Handler {
	limiter := newIPLimiter(config)

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now)
			case <-context.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			allowed, delay := limiter.allow(RealIP(request), time.Now())
			if !allowed {
				seconds := max(1, int(math.Ceil(delay.Seconds())))
				writer.Header().Set("Retry-After", strconv.Itoa(seconds))
				respond.Failure(writer, apperr.RateLimited(seconds))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
