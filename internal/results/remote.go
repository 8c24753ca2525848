// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/taibuivan/mediameter/internal/events"
)

// Endpoint describes where a category is served.
type Endpoint struct {
	Name string
	URL  func(params Params) string
	CSV  func(params Params) string
}

// Totals carries out-of-band counts found in a response envelope.
type Totals struct {
	Total        *int
	TotalStories *int
}

// Decoder turns a raw response into items and envelope totals.
type Decoder[T any] func(body []byte) ([]T, Totals, error)

// Remote is a category backed by one upstream endpoint.
//
// A failed fetch keeps the previously stored items. Completions of a fetch
// that was superseded by a newer one are discarded.
type Remote[T any] struct {
	endpoint  Endpoint
	decode    Decoder[T]
	transport Transport
	params    ParamsFunc
	logger    *slog.Logger

	bus    events.Bus[Event]
	latest atomic.Uint64

	mu     sync.RWMutex
	items  []T
	totals Totals
	err    error
	loaded bool
}

// NewRemote builds a category. A nil logger falls back to slog.Default.
func NewRemote[T any](endpoint Endpoint, decode Decoder[T], transport Transport, params ParamsFunc, logger *slog.Logger) *Remote[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote[T]{
		endpoint:  endpoint,
		decode:    decode,
		transport: transport,
		params:    params,
		logger:    logger,
	}
}

// Name implements [Resource].
func (remote *Remote[T]) Name() string { return remote.endpoint.Name }

// BuildURL implements [Resource].
func (remote *Remote[T]) BuildURL(params Params) string { return remote.endpoint.URL(params) }

// CSVURL implements [Resource].
func (remote *Remote[T]) CSVURL(params Params) string { return remote.endpoint.CSV(params) }

// Events implements [Resource].
func (remote *Remote[T]) Events() *events.Bus[Event] { return &remote.bus }

// Fetch implements [Resource].
func (remote *Remote[T]) Fetch(context context.Context) error {
	return remote.Start(context)()
}

type outcome[T any] struct {
	items  []T
	totals Totals
	err    error
}

// Start implements [Resource]. The Request event is published and the
// upstream call is underway before Start returns.
func (remote *Remote[T]) Start(context context.Context) Pending {
	generation := remote.latest.Add(1)
	path := remote.BuildURL(remote.params())

	remote.bus.Publish(context, Event{Kind: Request, Resource: remote.Name()})

	done := make(chan outcome[T], 1)
	go func() {
		items, totals, err := remote.load(context, path)
		done <- outcome[T]{items: items, totals: totals, err: err}
	}()

	return sync.OnceValue(func() error {
		result := <-done
		return remote.settle(context, generation, path, result)
	})
}

// settle stores the outcome of fetch generation unless a newer fetch was
// issued meanwhile, then publishes Sync or Error.
func (remote *Remote[T]) settle(context context.Context, generation uint64, path string, result outcome[T]) error {
	remote.mu.Lock()
	if generation != remote.latest.Load() {
		remote.mu.Unlock()
		remote.logger.Debug("result_stale_discarded",
			slog.String("resource", remote.Name()),
			slog.Uint64("generation", generation),
		)
		return nil
	}
	if result.err != nil {
		remote.err = result.err
	} else {
		remote.items = result.items
		remote.totals = result.totals
		remote.err = nil
		remote.loaded = true
	}
	remote.mu.Unlock()

	if result.err != nil {
		remote.logger.Warn("result_fetch_failed",
			slog.String("resource", remote.Name()),
			slog.String("path", path),
			slog.Any("error", result.err),
		)
		remote.bus.Publish(context, Event{Kind: Error, Resource: remote.Name(), Err: result.err})
		return fmt.Errorf("results: %s: %w", remote.Name(), result.err)
	}

	remote.bus.Publish(context, Event{Kind: Sync, Resource: remote.Name()})
	return nil
}

func (remote *Remote[T]) load(context context.Context, path string) ([]T, Totals, error) {
	body, err := remote.transport.Get(context, path)
	if err != nil {
		return nil, Totals{}, err
	}
	return remote.decode(body)
}

// Items returns the stored items.
func (remote *Remote[T]) Items() []T {
	remote.mu.RLock()
	defer remote.mu.RUnlock()

	items := make([]T, len(remote.items))
	copy(items, remote.items)
	return items
}

// Total returns the envelope total, if the endpoint reports one.
func (remote *Remote[T]) Total() (int, bool) {
	remote.mu.RLock()
	defer remote.mu.RUnlock()
	return deref(remote.totals.Total)
}

// TotalStories returns the envelope story total, if reported.
func (remote *Remote[T]) TotalStories() (int, bool) {
	remote.mu.RLock()
	defer remote.mu.RUnlock()
	return deref(remote.totals.TotalStories)
}

// Err returns the error of the latest settled fetch.
func (remote *Remote[T]) Err() error {
	remote.mu.RLock()
	defer remote.mu.RUnlock()
	return remote.err
}

// Snapshot implements [Resource].
func (remote *Remote[T]) Snapshot() Snapshot {
	params := remote.params()

	remote.mu.RLock()
	defer remote.mu.RUnlock()

	items := make([]T, len(remote.items))
	copy(items, remote.items)

	snapshot := Snapshot{
		Name:         remote.Name(),
		Loaded:       remote.loaded,
		Items:        items,
		Total:        remote.totals.Total,
		TotalStories: remote.totals.TotalStories,
		CSVURL:       remote.CSVURL(params),
	}
	if remote.err != nil {
		snapshot.Error = remote.err.Error()
	}
	return snapshot
}

func deref(value *int) (int, bool) {
	if value == nil {
		return 0, false
	}
	return *value, true
}

// # Decoders

// DecodeList decodes a bare JSON array.
func DecodeList[T any](body []byte) ([]T, Totals, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, Totals{}, fmt.Errorf("results: decode list: %w", err)
	}
	return items, Totals{}, nil
}
