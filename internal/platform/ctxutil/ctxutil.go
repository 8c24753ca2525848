// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores the per-request values set by middleware: the
// correlation id, the request-scoped logger and the verified session.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mediameter/internal/platform/sec"
)

// Each value has its own unexported key type, so no other package can read or
// overwrite it by accident.
type (
	requestIDKey struct{}
	loggerKey    struct{}
	sessionKey   struct{}
)

// # Request Tracing

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// # Structured Logging

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request-scoped logger, or [slog.Default] when none
// was attached.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Session

func WithSession(ctx context.Context, claims *sec.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionKey{}, claims)
}

// GetSession returns nil for anonymous requests.
func GetSession(ctx context.Context) *sec.SessionClaims {
	claims, _ := ctx.Value(sessionKey{}).(*sec.SessionClaims)
	return claims
}
