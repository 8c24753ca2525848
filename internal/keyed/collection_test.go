// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keyed_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mediameter/internal/keyed"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (i item) Key() int { return i.ID }

// gatedFetcher blocks each fetch until its gate is closed and counts calls.
type gatedFetcher struct {
	mu     sync.Mutex
	calls  map[int]int
	gates  map[int]chan struct{}
	fail   map[int]error
	issued chan int
}

func newGatedFetcher(ids ...int) *gatedFetcher {
	fetcher := &gatedFetcher{
		calls:  make(map[int]int),
		gates:  make(map[int]chan struct{}),
		fail:   make(map[int]error),
		issued: make(chan int, 64),
	}
	for _, id := range ids {
		fetcher.gates[id] = make(chan struct{})
	}
	return fetcher
}

func (f *gatedFetcher) Fetch(_ context.Context, id int) (item, error) {
	f.mu.Lock()
	f.calls[id]++
	gate := f.gates[id]
	err := f.fail[id]
	f.mu.Unlock()

	f.issued <- id
	if gate != nil {
		<-gate
	}
	if err != nil {
		return item{}, err
	}
	return item{ID: id, Name: "remote"}, nil
}

func (f *gatedFetcher) callsFor(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

/*
TestCollection_AddGetOrder covers the local cache behaviour.
*/
func TestCollection_AddGetOrder(t *testing.T) {
	collection := keyed.New[int, item](nil)

	collection.Add(item{ID: 3}, item{ID: 1}, item{ID: 2})
	collection.Add(item{ID: 1, Name: "replaced"})

	assert.Equal(t, []int{3, 1, 2}, collection.Keys())
	got, ok := collection.Get(1)
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Name)

	collection.Remove(3)
	assert.Equal(t, []int{1, 2}, collection.Keys())

	collection.Set([]item{{ID: 9}})
	assert.Equal(t, []int{9}, collection.Keys())
	assert.Equal(t, 1, collection.Len())
}

/*
TestCollection_CloneIsIndependent ensures clones do not share the backing store.
*/
func TestCollection_CloneIsIndependent(t *testing.T) {
	original := keyed.New[int, item](nil)
	original.Add(item{ID: 1})

	clone := original.Clone()
	clone.Add(item{ID: 2})
	original.Remove(1)

	assert.Equal(t, []int{1, 2}, clone.Keys())
	assert.Equal(t, 0, original.Len())
}

/*
TestResolveAll_ZeroIDs returns immediately without fetching.
*/
func TestResolveAll_ZeroIDs(t *testing.T) {
	fetcher := newGatedFetcher()
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))

	require.NoError(t, collection.ResolveAll(context.Background()))
	assert.Equal(t, 0, len(fetcher.issued))
}

/*
TestResolveAll_CachedIsNotFetched skips ids already present.
*/
func TestResolveAll_CachedIsNotFetched(t *testing.T) {
	fetcher := newGatedFetcher()
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))
	collection.Add(item{ID: 5, Name: "local"})

	require.NoError(t, collection.ResolveAll(context.Background(), 5, 6))

	assert.Equal(t, 0, fetcher.callsFor(5))
	assert.Equal(t, 1, fetcher.callsFor(6))
	local, _ := collection.Get(5)
	assert.Equal(t, "local", local.Name)
	assert.True(t, collection.Has(6))
}

/*
TestResolveAll_ConcurrentSingleFetch checks that two overlapping resolutions
of the same id issue exactly one remote fetch.
*/
func TestResolveAll_ConcurrentSingleFetch(t *testing.T) {
	fetcher := newGatedFetcher(7)
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = collection.ResolveAll(context.Background(), 7)
	}()

	// Wait until the first fetch is in flight before starting the second.
	<-fetcher.issued

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = collection.ResolveAll(context.Background(), 7, 7)
	}()

	time.Sleep(20 * time.Millisecond)
	close(fetcher.gates[7])
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, fetcher.callsFor(7))
	assert.True(t, collection.Has(7))
}

/*
TestResolveAll_FanIn verifies the call does not return before the slowest
fetch settles, even when completions arrive in reverse order.
*/
func TestResolveAll_FanIn(t *testing.T) {
	fetcher := newGatedFetcher(1, 2, 3)
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))

	var returned atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- collection.ResolveAll(context.Background(), 1, 2, 3)
		returned.Store(true)
	}()

	for i := 0; i < 3; i++ {
		<-fetcher.issued
	}

	close(fetcher.gates[3])
	close(fetcher.gates[2])
	time.Sleep(20 * time.Millisecond)
	assert.False(t, returned.Load(), "must wait for id 1")

	close(fetcher.gates[1])
	require.NoError(t, <-done)
	assert.True(t, collection.Has(1))
	assert.True(t, collection.Has(2))
	assert.True(t, collection.Has(3))
}

/*
TestResolveAll_PartialFailure still settles and reports the failed ids.
*/
func TestResolveAll_PartialFailure(t *testing.T) {
	fetcher := newGatedFetcher()
	boom := errors.New("upstream down")
	fetcher.fail[2] = boom
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))

	err := collection.ResolveAll(context.Background(), 1, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var fetchErr *keyed.FetchError[int]
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 2, fetchErr.ID)

	assert.True(t, collection.Has(1))
	assert.False(t, collection.Has(2))
}

/*
TestResolveAll_NoFetcher reports missing ids without panicking.
*/
func TestResolveAll_NoFetcher(t *testing.T) {
	collection := keyed.New[int, item](nil)

	err := collection.ResolveAll(context.Background(), 4)

	assert.ErrorIs(t, err, keyed.ErrNoFetcher)
}

/*
TestResolveAll_OnFetchedHook runs once per cached remote entity.
*/
func TestResolveAll_OnFetchedHook(t *testing.T) {
	fetcher := newGatedFetcher()
	collection := keyed.New[int, item](nil, keyed.WithFetcher[int, item](fetcher))
	var (
		mu      sync.Mutex
		fetched []int
	)
	collection.OnFetched(func(entity item) {
		mu.Lock()
		defer mu.Unlock()
		fetched = append(fetched, entity.ID)
	})

	require.NoError(t, collection.ResolveAll(context.Background(), 1, 2))
	require.NoError(t, collection.ResolveAll(context.Background(), 1, 2))

	assert.ElementsMatch(t, []int{1, 2}, fetched)
}

type pairKey struct {
	A, B string
}

type pair struct {
	ID   pairKey
	Hits int
}

/*
TestResolveAll_KeysPrintingAlike verifies that keys sharing a %v rendering
are still fetched separately.
*/
func TestResolveAll_KeysPrintingAlike(t *testing.T) {
	first := pairKey{A: "a b", B: "c"}
	second := pairKey{A: "a", B: "b c"}

	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := keyed.FetcherFunc[pairKey, pair](func(_ context.Context, id pairKey) (pair, error) {
		calls.Add(1)
		<-release
		return pair{ID: id}, nil
	})
	collection := keyed.New[pairKey, pair](func(entity pair) pairKey { return entity.ID },
		keyed.WithFetcher[pairKey, pair](fetcher))

	done := make(chan error, 1)
	go func() { done <- collection.ResolveAll(context.Background(), first, second) }()

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, <-done)

	assert.True(t, collection.Has(first))
	assert.True(t, collection.Has(second))
}
