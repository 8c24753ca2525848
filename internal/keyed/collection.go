// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package keyed provides ordered, identifier-keyed entity collections that can
resolve missing entries from a remote source.

Core Responsibilities:

  - Cache: entities are stored in insertion order and looked up by key.
  - Deferred resolution: [Collection.ResolveAll] blocks until every requested
    key is present locally or its fetch has failed.
  - De-duplication: at most one fetch per key is in flight at any time, no
    matter how many callers ask for it.
  - Nested decoding: [DecodeNested] materialises child collections embedded
    in a parent record and notifies them once per parse.

The local cache is only mutated by explicit Add/Set calls and by the
completion of a fetch issued through ResolveAll.
*/
package keyed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is returned for keys that are missing locally when the
// collection has no remote source.
var ErrNoFetcher = errors.New("keyed: collection has no fetcher")

// KeyFunc extracts the key of an entity.
type KeyFunc[K comparable, V any] func(entity V) K

// Keyer is implemented by entities that declare their own key. It is used
// when a collection is built without an explicit [KeyFunc].
type Keyer[K comparable] interface {
	Key() K
}

// Fetcher loads a single entity by key from a remote source.
type Fetcher[K comparable, V any] interface {
	Fetch(context context.Context, id K) (V, error)
}

// FetcherFunc adapts a plain function to [Fetcher].
type FetcherFunc[K comparable, V any] func(context context.Context, id K) (V, error)

// Fetch implements [Fetcher].
func (fn FetcherFunc[K, V]) Fetch(context context.Context, id K) (V, error) {
	return fn(context, id)
}

// FetchError reports the failure to resolve one key.
type FetchError[K comparable] struct {
	ID  K
	Err error
}

func (e *FetchError[K]) Error() string {
	return fmt.Sprintf("keyed: fetch %v: %v", e.ID, e.Err)
}

func (e *FetchError[K]) Unwrap() error { return e.Err }

// Option customises a [Collection].
type Option[K comparable, V any] func(*Collection[K, V])

// WithFetcher sets the remote source used by ResolveAll.
func WithFetcher[K comparable, V any](fetcher Fetcher[K, V]) Option[K, V] {
	return func(collection *Collection[K, V]) { collection.fetcher = fetcher }
}

// WithConcurrency bounds the number of fetches one ResolveAll call runs at once.
func WithConcurrency[K comparable, V any](limit int) Option[K, V] {
	return func(collection *Collection[K, V]) { collection.limit = limit }
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger[K comparable, V any](logger *slog.Logger) Option[K, V] {
	return func(collection *Collection[K, V]) { collection.logger = logger }
}

// Collection is an ordered cache of entities keyed by K.
//
// # Concurrency
//
// All methods are safe for concurrent use.
type Collection[K comparable, V any] struct {
	key     KeyFunc[K, V]
	fetcher Fetcher[K, V]
	limit   int
	logger  *slog.Logger

	flight singleflight.Group

	mu    sync.RWMutex
	items map[K]V
	order []K

	hooksMu   sync.Mutex
	onParent  []func()
	onFetched []func(V)
}

// New creates an empty collection. A nil key function falls back to the
// entity's [Keyer] implementation.
func New[K comparable, V any](key KeyFunc[K, V], options ...Option[K, V]) *Collection[K, V] {
	if key == nil {
		key = func(entity V) K {
			keyer, ok := any(entity).(Keyer[K])
			if !ok {
				panic(fmt.Sprintf("keyed: %T has no key function and does not implement Keyer", entity))
			}
			return keyer.Key()
		}
	}

	collection := &Collection[K, V]{
		key:    key,
		items:  make(map[K]V),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(collection)
	}
	return collection
}

// # Local Cache

// Add inserts or replaces entities. Replaced entities keep their position.
func (collection *Collection[K, V]) Add(entities ...V) {
	collection.mu.Lock()
	defer collection.mu.Unlock()
	collection.addLocked(entities)
}

func (collection *Collection[K, V]) addLocked(entities []V) {
	for _, entity := range entities {
		id := collection.key(entity)
		if _, exists := collection.items[id]; !exists {
			collection.order = append(collection.order, id)
		}
		collection.items[id] = entity
	}
}

// Remove deletes the entity stored under id.
func (collection *Collection[K, V]) Remove(id K) {
	collection.mu.Lock()
	defer collection.mu.Unlock()

	if _, exists := collection.items[id]; !exists {
		return
	}
	delete(collection.items, id)
	for i, existing := range collection.order {
		if existing == id {
			collection.order = append(collection.order[:i], collection.order[i+1:]...)
			break
		}
	}
}

// Set replaces the whole content with entities, in the given order.
func (collection *Collection[K, V]) Set(entities []V) {
	collection.mu.Lock()
	defer collection.mu.Unlock()

	collection.items = make(map[K]V, len(entities))
	collection.order = nil
	collection.addLocked(entities)
}

// Get returns the entity stored under id.
func (collection *Collection[K, V]) Get(id K) (V, bool) {
	collection.mu.RLock()
	defer collection.mu.RUnlock()

	entity, ok := collection.items[id]
	return entity, ok
}

// Has reports whether id is present locally.
func (collection *Collection[K, V]) Has(id K) bool {
	_, ok := collection.Get(id)
	return ok
}

// Len returns the number of cached entities.
func (collection *Collection[K, V]) Len() int {
	collection.mu.RLock()
	defer collection.mu.RUnlock()
	return len(collection.order)
}

// Keys returns the cached keys in insertion order.
func (collection *Collection[K, V]) Keys() []K {
	collection.mu.RLock()
	defer collection.mu.RUnlock()

	keys := make([]K, len(collection.order))
	copy(keys, collection.order)
	return keys
}

// All returns the cached entities in insertion order.
func (collection *Collection[K, V]) All() []V {
	collection.mu.RLock()
	defer collection.mu.RUnlock()

	entities := make([]V, 0, len(collection.order))
	for _, id := range collection.order {
		entities = append(entities, collection.items[id])
	}
	return entities
}

// Every reports whether predicate holds for all entities. It is true for an
// empty collection.
func (collection *Collection[K, V]) Every(predicate func(V) bool) bool {
	for _, entity := range collection.All() {
		if !predicate(entity) {
			return false
		}
	}
	return true
}

// Clone returns an independent collection holding the same entities and
// sharing the same key function and remote source. Hooks are not copied.
func (collection *Collection[K, V]) Clone() *Collection[K, V] {
	clone := &Collection[K, V]{
		key:     collection.key,
		fetcher: collection.fetcher,
		limit:   collection.limit,
		logger:  collection.logger,
		items:   make(map[K]V),
	}
	clone.Add(collection.All()...)
	return clone
}

// # Notifications

// OnParentSync registers fn to run whenever the collection is attached to a
// freshly decoded parent record.
func (collection *Collection[K, V]) OnParentSync(fn func()) {
	collection.hooksMu.Lock()
	defer collection.hooksMu.Unlock()
	collection.onParent = append(collection.onParent, fn)
}

// OnFetched registers fn to run with each remotely fetched entity once it
// was cached.
func (collection *Collection[K, V]) OnFetched(fn func(V)) {
	collection.hooksMu.Lock()
	defer collection.hooksMu.Unlock()
	collection.onFetched = append(collection.onFetched, fn)
}

// ParentSynced implements [Child].
func (collection *Collection[K, V]) ParentSynced() {
	collection.run(&collection.onParent)
}

func (collection *Collection[K, V]) run(hooks *[]func()) {
	collection.hooksMu.Lock()
	snapshot := make([]func(), len(*hooks))
	copy(snapshot, *hooks)
	collection.hooksMu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}

// # Deferred Resolution

/*
ResolveAll makes every requested key available locally.

Description: Keys already cached settle immediately. Every other key is
fetched exactly once, even when several callers ask for it concurrently; the
result is cached on success. The call returns only after every fetch it
depends on has settled, whatever the completion order.

Parameters:
  - context: bounds how long this caller waits. Cancelling it never cancels
    a fetch that other callers share.
  - ids: keys to resolve. Duplicates are collapsed; zero keys return nil.

Returns:
  - error: nil when all keys resolved, otherwise the joined [*FetchError]s.
    Callers should check [Collection.Has] for the keys they rely on.
*/
func (collection *Collection[K, V]) ResolveAll(context context.Context, ids ...K) error {
	if len(ids) == 0 {
		return nil
	}

	var group errgroup.Group
	if collection.limit > 0 {
		group.SetLimit(collection.limit)
	}

	var (
		failuresMu sync.Mutex
		failures   []error
	)

	seen := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if collection.Has(id) {
			continue
		}

		group.Go(func() error {
			if err := collection.fetchOnce(context, id); err != nil {
				failuresMu.Lock()
				failures = append(failures, &FetchError[K]{ID: id, Err: err})
				failuresMu.Unlock()
			}
			return nil
		})
	}

	_ = group.Wait()
	return errors.Join(failures...)
}

// flightKey names the in-flight fetch of id. Keys are rendered in Go syntax,
// so K must be a type whose distinct values print differently under %#v:
// integers, strings and structs of those qualify.
func flightKey[K comparable](id K) string {
	return fmt.Sprintf("%#v", id)
}

// fetchOnce joins the in-flight fetch for id or starts one.
func (collection *Collection[K, V]) fetchOnce(ctx context.Context, id K) error {
	if collection.fetcher == nil {
		return ErrNoFetcher
	}

	result := collection.flight.DoChan(flightKey(id), func() (any, error) {
		// Another flight may have landed between the caller's cache check
		// and this one starting.
		if entity, ok := collection.Get(id); ok {
			return entity, nil
		}

		entity, err := collection.fetcher.Fetch(context.WithoutCancel(ctx), id)
		if err != nil {
			collection.logger.Warn("keyed_fetch_failed",
				slog.String("id", fmt.Sprint(id)),
				slog.Any("error", err),
			)
			return nil, err
		}

		collection.Add(entity)

		collection.hooksMu.Lock()
		hooks := append(([]func(V))(nil), collection.onFetched...)
		collection.hooksMu.Unlock()
		for _, fn := range hooks {
			fn(entity)
		}
		return entity, nil
	})

	select {
	case settled := <-result:
		return settled.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
