// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package results

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mediameter/internal/events"
)

// Session is the capability check consumed when an aggregate is built.
type Session interface {
	// CanListSentences reports whether the caller may list individual
	// sentences rather than stories.
	CanListSentences() bool
}

// Factory builds the aggregate of each new query.
type Factory struct {
	Transport Transport
	Session   Session
	// Demo switches every category to its keyword-only demo endpoint.
	Demo   bool
	Logger *slog.Logger
}

// New builds the fixed category set for a query whose parameters are read
// through params. The session capability is evaluated once, here.
func (factory *Factory) New(params ParamsFunc) *Aggregate {
	transport, logger := factory.Transport, factory.Logger
	sentences := factory.Session != nil && factory.Session.CanListSentences()

	var resources []Resource
	if factory.Demo {
		resources = []Resource{
			NewDemoWordCounts(transport, params, logger),
			NewDemoDateCounts(transport, params, logger),
			documents(sentences, NewDemoSentences, NewDemoStories, transport, params, logger),
			NewDemoTagCounts(transport, params, logger),
		}
	} else {
		resources = []Resource{
			NewWordCounts(transport, params, logger),
			NewDateCounts(transport, params, logger),
			documents(sentences, NewSentences, NewStories, transport, params, logger),
			NewTagCounts(transport, params, logger),
		}
	}
	return NewAggregate(resources...)
}

func documents(
	sentences bool,
	newSentences func(Transport, ParamsFunc, *slog.Logger) *Remote[Sentence],
	newStories func(Transport, ParamsFunc, *slog.Logger) *Remote[Story],
	transport Transport, params ParamsFunc, logger *slog.Logger,
) Resource {
	if sentences {
		return newSentences(transport, params, logger)
	}
	return newStories(transport, params, logger)
}

// Aggregate owns the categories of one query and republishes their
// lifecycle events on a single bus.
type Aggregate struct {
	resources []Resource
	relay     *events.Relay[Event]
}

// NewAggregate subscribes to every resource.
func NewAggregate(resources ...Resource) *Aggregate {
	aggregate := &Aggregate{resources: resources, relay: events.NewRelay[Event]()}
	for _, resource := range resources {
		aggregate.relay.Listen(resource.Events())
	}
	return aggregate
}

// Resources returns the categories in their fixed order.
func (aggregate *Aggregate) Resources() []Resource {
	return append([]Resource(nil), aggregate.resources...)
}

// Names returns the category names in their fixed order.
func (aggregate *Aggregate) Names() []string {
	names := make([]string, len(aggregate.resources))
	for i, resource := range aggregate.resources {
		names[i] = resource.Name()
	}
	return names
}

// Get returns the category called name.
func (aggregate *Aggregate) Get(name string) (Resource, bool) {
	for _, resource := range aggregate.resources {
		if resource.Name() == name {
			return resource, true
		}
	}
	return nil, false
}

/*
Fetch loads every category concurrently and waits for all of them.

Description: A failing category never cancels or fails its siblings; its
failure is published as an Error event and also returned, joined with any
other failures, for callers that want to log it.
*/
func (aggregate *Aggregate) Fetch(context context.Context) error {
	return aggregate.Start(context)()
}

// Start issues the fetch of every category in fixed order and returns a
// [Pending] that waits for all of them. Categories settle as they complete.
func (aggregate *Aggregate) Start(context context.Context) Pending {
	pending := make([]Pending, len(aggregate.resources))
	for i, resource := range aggregate.resources {
		pending[i] = resource.Start(context)
	}
	return joinPending(pending)
}

// joinPending waits for every entry concurrently and joins their failures.
func joinPending(pending []Pending) Pending {
	return sync.OnceValue(func() error {
		var group errgroup.Group
		errs := make([]error, len(pending))
		for i, wait := range pending {
			group.Go(func() error {
				errs[i] = wait()
				return nil
			})
		}
		_ = group.Wait()
		return errors.Join(errs...)
	})
}

// Events carries the events of every category.
func (aggregate *Aggregate) Events() *events.Bus[Event] {
	return aggregate.relay.Events()
}

// Snapshot returns the state of every category in fixed order.
func (aggregate *Aggregate) Snapshot() []Snapshot {
	snapshots := make([]Snapshot, len(aggregate.resources))
	for i, resource := range aggregate.resources {
		snapshots[i] = resource.Snapshot()
	}
	return snapshots
}

// Close releases the subscriptions held on every category.
func (aggregate *Aggregate) Close() {
	aggregate.relay.Close()
}
