// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety, and security into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: Structured access logging (slog) with a per-request logger.
  - Guard: Per-IP rate limiting, CORS and session verification.
  - Safe: Panic recovery to prevent server crashes.

Dashboard requests fan out to many upstream calls, so the access log records
latency for every request and the session owner once it is known.
*/
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/mediameter/internal/platform/apperr"
	"github.com/taibuivan/mediameter/internal/platform/constants"
	"github.com/taibuivan/mediameter/internal/platform/ctxutil"
	"github.com/taibuivan/mediameter/internal/platform/respond"
)

// maxRequestIDLength bounds client supplied correlation ids.
const maxRequestIDLength = 128

// # Request Tracing

// RequestID attaches a correlation ID to every request for log tracing. A
// client supplied X-Request-ID is kept when it is short enough; otherwise a
// time-sortable UUIDv7 is issued.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = newRequestID()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// # Access Logging

// accessLog is shared between StructuredLogger and the handlers below it, so
// facts learnt downstream (the session owner) reach the final log line.
type accessLog struct {
	http.ResponseWriter
	status int
	userID string
}

func (log *accessLog) WriteHeader(code int) {
	log.status = code
	log.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (log *accessLog) Unwrap() http.ResponseWriter { return log.ResponseWriter }

type accessLogKey struct{}

func withAccessLog(ctx context.Context, log *accessLog) context.Context {
	return context.WithValue(ctx, accessLogKey{}, log)
}

// recordUser notes the session owner on the access log of the request, if
// one is being written.
func recordUser(ctx context.Context, userID string) {
	if log, ok := ctx.Value(accessLogKey{}).(*accessLog); ok {
		log.userID = userID
	}
}

// StructuredLogger injects a request-scoped logger into the context and
// writes one "http_request_finished" entry per request, at warn level for
// 4xx and error level for 5xx responses.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)

			recorder := &accessLog{ResponseWriter: writer, status: http.StatusOK}
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			next.ServeHTTP(recorder, request.WithContext(withAccessLog(ctx, recorder)))

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []any{
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			}
			if recorder.userID != "" {
				attrs = append(attrs, slog.String("user_id", recorder.userID))
			}
			requestLogger.Log(ctx, level, "http_request_finished", attrs...)
		})
	}
}

// # Reliability & Safety

// PanicRecovery recovers from panics, logs the stack trace, and returns 500.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				stackTrace := make([]byte, 4096)
				length := runtime.Stack(stackTrace, false)

				requestLogger := ctxutil.GetLogger(request.Context())
				if requestLogger == slog.Default() {
					requestLogger = logger
				}
				requestLogger.ErrorContext(request.Context(), "panic_recovered",
					slog.Any("error", recovered),
					slog.String("stack", string(stackTrace[:length])),
				)

				respond.Failure(writer, apperr.Internal(nil))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Middleware Helpers

// RealIP extracts the client IP, preferring X-Real-IP, then the first
// X-Forwarded-For hop, then the connection address.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
