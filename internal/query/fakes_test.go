// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/mediameter/internal/query"
	"github.com/taibuivan/mediameter/internal/results"
)

// recordingTransport answers every upstream call with an empty result and
// records the paths it was asked for.
type recordingTransport struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingTransport) Get(_ context.Context, path string) ([]byte, error) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()

	if strings.Contains(path, "/docs/") {
		return []byte(`{"total": 0, "totalStories": 0, "sentences": [], "stories": []}`), nil
	}
	return []byte(`[]`), nil
}

func (r *recordingTransport) requested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingTransport) count(prefix string) int {
	n := 0
	for _, path := range r.requested() {
		if strings.HasPrefix(path, prefix) {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2016, time.March, 20, 12, 0, 0, 0, time.UTC)

func newSet() (*query.Set, *recordingTransport) {
	transport := &recordingTransport{}
	factory := &results.Factory{Transport: transport}
	set := query.NewSet(factory, query.WithClock(func() time.Time { return fixedNow }))
	return set, transport
}

func ptr(value string) *string { return &value }
