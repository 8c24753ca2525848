// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upstream is the HTTP client for the remote media analytics API that
serves result categories and media entities.

Architecture:

  - Throttling: every request waits on a shared token bucket
    (golang.org/x/time/rate) so a burst of dashboard fetches never floods the
    upstream.
  - Timeouts: connect, TLS and whole-request deadlines are always set; the
    zero-value http.Client is never used.
  - Errors: non-2xx responses surface as [*StatusError] carrying the status
    and a truncated body for logs.
*/
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for logs.
	maxErrorBody = 512
)

// Config configures a [Client].
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS is the sustained request rate. Zero disables throttling.
	RPS   float64
	Burst int
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: GET %s: status %d", e.Path, e.Status)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound
}

// Client issues throttled GET requests against the upstream API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient builds a client from cfg. A nil logger falls back to slog.Default.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	dialer := &net.Dialer{Timeout: defaultConnectTimeout}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: defaultTLSTimeout,
				MaxIdleConnsPerHost: 16,
			},
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// URL joins path onto the configured base URL.
func (client *Client) URL(path string) string {
	return client.baseURL + path
}

/*
Get fetches path and returns the response body.

Description: Waits for a rate-limit token first, so a cancelled context may
return before any request is sent. The path is expected to be already
escaped.

Returns:
  - []byte: the body of a 2xx response
  - error: context, transport or [*StatusError] failures
*/
func (client *Client) Get(context context.Context, path string) ([]byte, error) {
	if err := client.limiter.Wait(context); err != nil {
		return nil, fmt.Errorf("upstream: throttle %s: %w", path, err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodGet, client.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request %s: %w", path, err)
	}
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := client.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("upstream: GET %s: %w", path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read %s: %w", path, err)
	}

	client.logger.Debug("upstream_request",
		slog.String("path", path),
		slog.Int("status", response.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Path: path, Status: response.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetJSON fetches path and decodes the JSON body into out.
func (client *Client) GetJSON(context context.Context, path string, out any) error {
	body, err := client.Get(context, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", path, err)
	}
	return nil
}
