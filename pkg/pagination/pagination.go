// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page navigation for list endpoints and builds
// the meta block of paginated responses.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20
	// MaxLimit caps the page size; larger requests are clamped to it.
	MaxLimit = 100
	// MaxPage bounds the page number so offsets stay small.
	MaxPage = 10_000
)

// Params is a validated page request. Page is 1-indexed.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows preceding the page.
func (p Params) Offset() int {
	return (max(p.Page, 1) - 1) * p.Limit
}

// Meta describes the page a list response carries.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta builds the meta block for a page of a list holding total items.
func NewMeta(page, limit, total int) Meta {
	meta := Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	return meta
}

// FromRequest reads "page" and "limit" from the query string of r.
func FromRequest(r *http.Request) Params {
	return FromQuery(r.URL.Query())
}

// FromQuery reads "page" and "limit" from values. Missing or unparsable
// values take their defaults; out of range values are clamped.
func FromQuery(values url.Values) Params {
	page := intValue(values, "page", 1)
	limit := intValue(values, "limit", DefaultLimit)

	return Params{
		Page:  min(max(page, 1), MaxPage),
		Limit: min(max(limit, 1), MaxLimit),
	}
}

func intValue(values url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(values.Get(key))
	if err != nil {
		return fallback
	}
	return n
}
