// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns the Postgres stores query.
package schema

import "github.com/taibuivan/mediameter/internal/platform/constants"

// SavedSearchTable represents the 'search.savedsearch' table
type SavedSearchTable struct {
	Table     string
	ID        string
	Shortcode string
	Name      string
	Path      string
	CreatedBy string
	CreatedAt string
}

// SavedSearch is the schema definition for search.savedsearch
var SavedSearch = SavedSearchTable{
	Table:     constants.SchemaSearch + ".savedsearch",
	ID:        "id",
	Shortcode: "shortcode",
	Name:      "name",
	Path:      "path",
	CreatedBy: "createdby",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t SavedSearchTable) Columns() []string {
	return []string{t.ID, t.Shortcode, t.Name, t.Path, t.CreatedBy, t.CreatedAt}
}
