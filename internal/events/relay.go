// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package events

import (
	"context"
	"sync"
)

// Relay forwards the events of any number of source buses onto its own bus.
type Relay[E any] struct {
	out Bus[E]

	mu      sync.Mutex
	sources map[*Bus[E]]func()
}

// NewRelay creates an empty relay.
func NewRelay[E any]() *Relay[E] {
	return &Relay[E]{sources: make(map[*Bus[E]]func())}
}

// Listen starts forwarding source. Listening to the same source twice is a no-op.
func (relay *Relay[E]) Listen(source *Bus[E]) {
	relay.mu.Lock()
	defer relay.mu.Unlock()

	if _, ok := relay.sources[source]; ok {
		return
	}
	relay.sources[source] = source.Subscribe(func(context context.Context, event E) {
		relay.out.Publish(context, event)
	})
}

// Unlisten stops forwarding source and releases the subscription held on it.
func (relay *Relay[E]) Unlisten(source *Bus[E]) {
	relay.mu.Lock()
	unsubscribe, ok := relay.sources[source]
	delete(relay.sources, source)
	relay.mu.Unlock()

	if ok {
		unsubscribe()
	}
}

// Sources reports how many buses are currently forwarded.
func (relay *Relay[E]) Sources() int {
	relay.mu.Lock()
	defer relay.mu.Unlock()
	return len(relay.sources)
}

// Events is the bus carrying every forwarded event.
func (relay *Relay[E]) Events() *Bus[E] {
	return &relay.out
}

// Close detaches from every source.
func (relay *Relay[E]) Close() {
	relay.mu.Lock()
	sources := relay.sources
	relay.sources = make(map[*Bus[E]]func())
	relay.mu.Unlock()

	for _, unsubscribe := range sources {
		unsubscribe()
	}
}
