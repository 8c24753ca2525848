// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package savedsearch stores named dashboard paths behind short links.

# Core Responsibility

  - Entity: [SavedSearch] pairs a user-facing name with the canonical
    "query/..." path of a dashboard.
  - Shortcodes: a readable slug of the name plus a random suffix, unique per
    table, resolved by GET /q/{shortcode} style links.
  - Storage: [Repository] with a pgx-backed implementation.
*/
package savedsearch

import (
	"strings"
	"time"
)

// # Field Names

const (
	FieldName = "name"
	FieldPath = "path"
)

// # Core Entities

// SavedSearch is a named, shareable dashboard.
type SavedSearch struct {
	ID        string    `json:"id"` // UUIDv7
	Shortcode string    `json:"shortcode"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedBy *string   `json:"created_by,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ShortURL returns "<base>/q/<shortcode>".
func (search *SavedSearch) ShortURL(base string) string {
	return strings.TrimRight(base, "/") + "/q/" + search.Shortcode
}
