// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package query composes dashboard queries and coordinates their results.

Architecture:

  - State: one query (keywords, date range, media selection), its derived
    name and color, and the result aggregate fetched for it.
  - Set: the ordered queries of a dashboard, the refine and subquery buses
    shared by its members, the bulk serializers that build shareable paths,
    and the auto-naming policy.

Naming precedence is one-way: a default name ("Query A") may be replaced by
an auto-generated one, and either may be replaced by a user-chosen name, but
auto-naming never overwrites a name the user typed.
*/
package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/mediameter/internal/events"
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/results"
)

// geoTaggingStart is the first day geographic tags exist in the data.
var geoTaggingStart = time.Date(2015, time.February, 1, 0, 0, 0, 0, time.UTC)

const dateLayout = "2006-01-02"

// Params are the search criteria of one query. Dates are YYYY-MM-DD or
// empty for an open end.
type Params struct {
	Keywords string
	Start    string
	End      string
	Media    *media.Selection
}

// Info is the shareable identity of a query: its ordinal, its explicit name
// if any, and its color without the leading '#'. Auto marks a name derived
// by auto-naming, which later auto-naming may replace.
type Info struct {
	UID   int    `json:"uid"`
	Name  string `json:"name,omitempty"`
	Auto  bool   `json:"auto,omitempty"`
	Color string `json:"color"`
}

// EventKind identifies a query notification.
type EventKind int

const (
	// NameChanged follows any change of the display name.
	NameChanged EventKind = iota + 1
	// ColorChanged follows any change of the display color.
	ColorChanged
	// Executed follows a completed execution.
	Executed
	// Duplicated is published by a set after a duplicate was appended.
	Duplicated
)

// Event is a query or set notification. Index is set for Duplicated.
type Event struct {
	Kind  EventKind
	Query *State
	Index int
}

// State is one query.
//
// # Concurrency
//
// All methods are safe for concurrent use.
type State struct {
	ordinal int
	logger  *slog.Logger
	results *results.Aggregate
	bus     events.Bus[Event]

	mu        sync.RWMutex
	params    Params
	name      *string
	color     *string
	autoNamed bool
	userNamed bool

	// Set wiring, attached while the query is a member.
	link *memberLink
}

// memberLink connects a member to the shared buses of its set.
type memberLink struct {
	refinements *events.Bus[Refinement]
	subqueries  *events.Bus[SubqueryRequest]
}

func newState(ordinal int, params Params, factory *results.Factory, logger *slog.Logger) *State {
	if params.Media == nil {
		params.Media = media.NewSelection()
	}
	state := &State{ordinal: ordinal, params: params, logger: logger}
	state.results = factory.New(state.ResultParams)
	return state
}

// # Identity

// UID returns the ordinal assigned at creation.
func (state *State) UID() int { return state.ordinal }

// Name returns the explicit name or the default "Query <label>".
func (state *State) Name() string {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.nameLocked()
}

func (state *State) nameLocked() string {
	if state.name != nil {
		return *state.name
	}
	return DefaultName(state.ordinal)
}

// Color returns the explicit color or the palette color of the ordinal.
func (state *State) Color() string {
	state.mu.RLock()
	defer state.mu.RUnlock()

	if state.color != nil {
		return *state.color
	}
	return Palette(state.ordinal - 1)
}

// HasDefaultName reports whether the name is still of the "Query A" form
// and was not chosen by the user.
func (state *State) HasDefaultName() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return !state.userNamed && defaultNamePattern.MatchString(state.nameLocked())
}

// HasAutoGeneratedName reports whether the name was derived by auto-naming.
func (state *State) HasAutoGeneratedName() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.autoNamed
}

// HasExplicitName reports whether a name was set at all.
func (state *State) HasExplicitName() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.name != nil
}

// SetName applies a name chosen by the user. Auto-naming never replaces it.
func (state *State) SetName(context context.Context, name string) {
	state.mu.Lock()
	state.name = &name
	state.autoNamed = false
	state.userNamed = true
	state.mu.Unlock()

	state.bus.Publish(context, Event{Kind: NameChanged, Query: state})
}

// SetColor applies a color of the form "#rrggbb".
func (state *State) SetColor(context context.Context, color string) {
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}

	state.mu.Lock()
	state.color = &color
	state.mu.Unlock()

	state.bus.Publish(context, Event{Kind: ColorChanged, Query: state})
}

/*
SetNameBy derives the name from keywords or dates.

Description: Acts only while the current name is the default one or was
itself auto-generated. Keyword names are cut to 22 characters plus "...";
blank keywords give "empty". Date names read "<start> - <end>".

Returns:
  - bool: whether the name was changed
*/
func (state *State) SetNameBy(context context.Context, source NameSource) bool {
	state.mu.Lock()
	nameable := state.autoNamed || (!state.userNamed && defaultNamePattern.MatchString(state.nameLocked()))
	if !nameable || source == NameNone {
		state.mu.Unlock()
		return false
	}

	var name string
	switch source {
	case NameByKeywords:
		name = keywordName(state.params.Keywords)
	case NameByDates:
		name = dateName(state.params.Start, state.params.End)
	}
	state.name = &name
	state.autoNamed = true
	state.mu.Unlock()

	state.bus.Publish(context, Event{Kind: NameChanged, Query: state})
	return true
}

// setCopiedName names a duplicate, keeping the auto flag of its origin.
func (state *State) setCopiedName(name string, autoNamed bool) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.name = &name
	state.autoNamed = autoNamed
}

// restore applies the name and color carried by a shared link.
func (state *State) restore(info Info) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if info.Name != "" {
		name := info.Name
		state.name = &name
		state.autoNamed = info.Auto
	}
	if info.Color != "" {
		color := "#" + strings.TrimPrefix(info.Color, "#")
		state.color = &color
	}
}

// Info returns the shareable identity.
func (state *State) Info() Info {
	info := Info{UID: state.ordinal, Color: strings.TrimPrefix(state.Color(), "#")}

	state.mu.RLock()
	if state.name != nil {
		info.Name = *state.name
		info.Auto = state.autoNamed
	}
	state.mu.RUnlock()
	return info
}

// # Parameters

// Params returns the current criteria. The media selection is the query's
// own and may be modified in place.
func (state *State) Params() Params {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.params
}

// Media returns the query's own media selection.
func (state *State) Media() *media.Selection {
	return state.Params().Media
}

// ResultParams renders the criteria shared by every result category.
func (state *State) ResultParams() results.Params {
	state.mu.RLock()
	defer state.mu.RUnlock()

	return results.Params{
		Keywords: state.params.Keywords,
		Media:    state.params.Media.QueryParam(),
		Start:    state.params.Start,
		End:      state.params.End,
	}
}

// SetKeywords replaces the keywords.
func (state *State) SetKeywords(keywords string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.params.Keywords = keywords
}

// SetDates replaces the date range.
func (state *State) SetDates(start, end string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.params.Start = start
	state.params.End = end
}

// IsGeoTagged reports whether geographic results exist for this query: the
// media selection is geo-tagged and the range starts on or after
// 2015-02-01. An open start is not geo-tagged.
func (state *State) IsGeoTagged() bool {
	params := state.Params()
	if !params.Media.IsGeoTagged() {
		return false
	}
	start, err := time.Parse(dateLayout, params.Start)
	if err != nil {
		return false
	}
	return !start.Before(geoTaggingStart)
}

// # Results

// Results returns the result aggregate.
func (state *State) Results() *results.Aggregate { return state.results }

// Events carries NameChanged, ColorChanged and Executed.
func (state *State) Events() *events.Bus[Event] { return &state.bus }

// Execute fetches every result category, waits for all of them and then
// publishes Executed. Category failures are reported on the results bus and
// returned joined; they never stop sibling categories.
func (state *State) Execute(context context.Context) error {
	return state.Start(context)()
}

// Start issues the fetch of every category and returns without waiting.
// The returned [results.Pending] waits for the categories, then logs any
// failure and publishes Executed.
func (state *State) Start(context context.Context) results.Pending {
	pending := state.results.Start(context)

	return sync.OnceValue(func() error {
		err := pending()
		if err != nil {
			state.logger.Warn("query_results_incomplete",
				slog.Int("query_uid", state.ordinal),
				slog.Any("error", err),
			)
		}
		state.bus.Publish(context, Event{Kind: Executed, Query: state})
		return err
	})
}

// # Set Buses

// RequestRefinement asks the owning set to apply r to every member. It
// returns [ErrNotMember] once the query was removed.
func (state *State) RequestRefinement(context context.Context, r Refinement) error {
	link := state.currentLink()
	if link == nil {
		return ErrNotMember
	}
	if err := r.validate(); err != nil {
		return err
	}
	link.refinements.Publish(context, r)
	return nil
}

// RequestSubquery asks the owning set to spawn a subquery derived from this
// query. It returns [ErrNotMember] once the query was removed.
func (state *State) RequestSubquery(context context.Context, overrides Overrides) error {
	link := state.currentLink()
	if link == nil {
		return ErrNotMember
	}
	link.subqueries.Publish(context, SubqueryRequest{Origin: state.ordinal, Overrides: overrides})
	return nil
}

func (state *State) currentLink() *memberLink {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.link
}

func (state *State) attach(link *memberLink) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.link = link
}

// Close releases the subscriptions held by the result aggregate.
func (state *State) Close() {
	state.attach(nil)
	state.results.Close()
}
