// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/taibuivan/mediameter/internal/platform/constants"
)

// # Cross-Origin Policy

// productionDomain is the site whose hosts may always call the API.
const productionDomain = "mediameter.app"

// AppConfig is the part of the runtime configuration CORS needs.
type AppConfig interface {
	IsDevelopment() bool
	Origins() []string
}

// originAllowed reports whether a browser origin may read API responses:
// any origin in development, otherwise mediameter.app and its subdomains or
// one of the configured extra origins.
func originAllowed(cfg AppConfig, origin string) bool {
	if cfg.IsDevelopment() || slices.Contains(cfg.Origins(), origin) {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	return host == productionDomain || strings.HasSuffix(host, "."+productionDomain)
}

// CORS answers pre-flight requests and sets the Access-Control headers for
// allowed origins. Requests without an Origin header pass through untouched.
func CORS(cfg AppConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Add("Vary", constants.HeaderOrigin)
			if originAllowed(cfg, origin) {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization, X-Request-ID")
				header.Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", "300")
			}

			if request.Method == http.MethodOptions && request.Header.Get("Access-Control-Request-Method") != "" {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
