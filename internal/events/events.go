// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package events provides typed in-process notification buses.

A [Bus] delivers every published value to its current subscribers in
subscription order. A [Relay] re-publishes the values of many source buses
on one bus of its own and remembers each subscription so a source can be
detached again.

Architecture:

  - Explicit wiring: owners subscribe when a child is attached and call the
    returned unsubscribe function when it is detached.
  - Synchronous delivery: Publish returns after every handler ran.
  - Snapshot dispatch: handlers run outside the bus lock, so a handler may
    subscribe, unsubscribe or publish on the same bus.
*/
package events

import (
	"context"
	"sync"
)

// Handler receives one published value.
type Handler[E any] func(context context.Context, event E)

type subscription[E any] struct {
	id      int
	handler Handler[E]
}

// Bus is a typed publish/subscribe channel. The zero value is ready to use.
type Bus[E any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription[E]
}

// Subscribe registers handler and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (bus *Bus[E]) Subscribe(handler Handler[E]) (unsubscribe func()) {
	bus.mu.Lock()
	bus.nextID++
	id := bus.nextID
	bus.subs = append(bus.subs, subscription[E]{id: id, handler: handler})
	bus.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { bus.remove(id) })
	}
}

// Publish delivers event to every current subscriber.
func (bus *Bus[E]) Publish(context context.Context, event E) {
	bus.mu.RLock()
	snapshot := make([]subscription[E], len(bus.subs))
	copy(snapshot, bus.subs)
	bus.mu.RUnlock()

	for _, sub := range snapshot {
		sub.handler(context, event)
	}
}

// Len reports the number of live subscriptions.
func (bus *Bus[E]) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

func (bus *Bus[E]) remove(id int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, sub := range bus.subs {
		if sub.id == id {
			bus.subs = append(bus.subs[:i], bus.subs[i+1:]...)
			return
		}
	}
}
