// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package results

import (
	"context"

	"github.com/taibuivan/mediameter/internal/events"
)

// Kind is the lifecycle stage reported by a category.
type Kind int

const (
	// Request is published when a fetch is issued.
	Request Kind = iota + 1
	// Error is published when a fetch fails.
	Error
	// Sync is published when fresh items were stored.
	Sync
)

func (kind Kind) String() string {
	switch kind {
	case Request:
		return "request"
	case Error:
		return "error"
	case Sync:
		return "sync"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification of a category.
type Event struct {
	Kind     Kind
	Resource string
	Err      error
}

// Transport fetches a raw upstream document.
type Transport interface {
	Get(context context.Context, path string) ([]byte, error)
}

// Resource is the contract every result category satisfies.
type Resource interface {
	// Name is the category name ("wordcounts", "sentences", ...).
	Name() string
	// BuildURL renders the upstream path for params.
	BuildURL(params Params) string
	// CSVURL renders the upstream CSV export path for params.
	CSVURL(params Params) string
	// Fetch loads the category with the owner's current parameters.
	Fetch(context context.Context) error
	// Start issues a fetch and returns without waiting for it.
	Start(context context.Context) Pending
	// Events carries Request, Error and Sync notifications.
	Events() *events.Bus[Event]
	// Snapshot returns the current state for rendering.
	Snapshot() Snapshot
}

// Pending waits for an issued fetch to settle and returns its failure.
// Calling it again returns the same result.
type Pending func() error

// Snapshot is the renderable state of one category.
type Snapshot struct {
	Name         string `json:"name"`
	Loaded       bool   `json:"loaded"`
	Items        any    `json:"items"`
	Total        *int   `json:"total,omitempty"`
	TotalStories *int   `json:"total_stories,omitempty"`
	CSVURL       string `json:"csv_url"`
	Error        string `json:"error,omitempty"`
}
