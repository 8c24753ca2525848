// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mediameter/internal/events"
	"github.com/taibuivan/mediameter/internal/media"
	"github.com/taibuivan/mediameter/internal/results"
	"github.com/taibuivan/mediameter/pkg/pointer"
	"github.com/taibuivan/mediameter/pkg/uid"
)

var (
	// ErrNotMember is returned for queries that do not belong to the set.
	ErrNotMember = errors.New("query: not a member of the set")

	// ErrInvalidRefinement is returned for a refinement that is neither a
	// term nor a complete date range.
	ErrInvalidRefinement = errors.New("query: refinement needs either a term or both start and end")
)

// Refinement is one constraint applied to every member of a set: either a
// keyword term or a date range, never both.
type Refinement struct {
	Term  *string `json:"term,omitempty"`
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

func (r Refinement) validate() error {
	hasTerm := r.Term != nil
	hasDates := r.Start != nil && r.End != nil
	hasAnyDate := r.Start != nil || r.End != nil

	switch {
	case hasTerm && !hasAnyDate:
		return nil
	case hasDates && !hasTerm:
		return nil
	default:
		return ErrInvalidRefinement
	}
}

// refineKeywords ANDs term onto keywords, parenthesising non-blank keywords.
func refineKeywords(keywords, term string) string {
	if isBlank(keywords) {
		return term
	}
	return "(" + keywords + ") AND " + term
}

// Overrides replace parameters of the origin query in a subquery. Nil
// fields keep the origin's value.
type Overrides struct {
	Keywords *string
	Start    *string
	End      *string
	Media    *media.Selection
}

// SubqueryRequest asks a set to spawn a subquery from member Origin.
type SubqueryRequest struct {
	Origin    int
	Overrides Overrides
}

// Option customises a [Set].
type Option func(*Set)

// WithClock sets the time source for default date ranges.
func WithClock(now func() time.Time) Option {
	return func(set *Set) { set.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(set *Set) { set.logger = logger }
}

// WithIDs shares an identifier sequence with other sets.
func WithIDs(ids *uid.Generator) Option {
	return func(set *Set) { set.ids = ids }
}

// Set is the ordered collection of queries of one dashboard.
//
// # Concurrency
//
// All methods are safe for concurrent use. Bulk operations act on the
// members present when they start.
type Set struct {
	ids     *uid.Generator
	factory *results.Factory
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	members  []*State
	subquery *State

	refinements       events.Bus[Refinement]
	subqueries        events.Bus[SubqueryRequest]
	resources         *events.Relay[results.Event]
	subqueryResources *events.Relay[results.Event]
	events            *events.Relay[Event]
	unsubscribe       []func()
}

// NewSet creates an empty set whose queries fetch their results through
// factory.
func NewSet(factory *results.Factory, options ...Option) *Set {
	set := &Set{
		factory:           factory,
		now:               time.Now,
		resources:         events.NewRelay[results.Event](),
		subqueryResources: events.NewRelay[results.Event](),
		events:            events.NewRelay[Event](),
	}
	for _, option := range options {
		option(set)
	}
	if set.ids == nil {
		set.ids = uid.New()
	}
	if set.logger == nil {
		set.logger = slog.Default()
	}

	set.unsubscribe = append(set.unsubscribe,
		set.refinements.Subscribe(func(context context.Context, r Refinement) {
			if err := set.applyRefinement(context, r); err != nil {
				set.logger.Warn("query_refine_incomplete", slog.Any("error", err))
			}
		}),
		set.subqueries.Subscribe(func(context context.Context, request SubqueryRequest) {
			if _, err := set.SpawnSubquery(context, request.Origin, request.Overrides); err != nil {
				set.logger.Warn("query_subquery_failed",
					slog.Int("origin_uid", request.Origin),
					slog.Any("error", err),
				)
			}
		}),
	)
	return set
}

// # Membership

// defaultParams covers the fifteen days before yesterday, inclusive.
func (set *Set) defaultParams() Params {
	today := set.now()
	return Params{
		Start: today.AddDate(0, 0, -15).Format(dateLayout),
		End:   today.AddDate(0, 0, -1).Format(dateLayout),
		Media: media.NewSelection(),
	}
}

// NewQuery builds a query with a fresh ordinal without adding it.
func (set *Set) NewQuery(params Params) *State {
	return newState(set.ids.Next(), params, set.factory, set.logger)
}

// AddNew appends a query with default parameters.
func (set *Set) AddNew() *State {
	state := set.NewQuery(set.defaultParams())
	set.Add(state)
	return state
}

// Add appends state and wires it into the shared buses. Adding a member
// twice is a no-op.
func (set *Set) Add(state *State) {
	set.mu.Lock()
	if set.indexLocked(state) >= 0 {
		set.mu.Unlock()
		return
	}
	set.members = append(set.members, state)
	set.mu.Unlock()

	set.resources.Listen(state.Results().Events())
	set.events.Listen(state.Events())
	state.attach(&memberLink{refinements: &set.refinements, subqueries: &set.subqueries})
}

// Remove detaches and closes state. It reports whether state was a member.
func (set *Set) Remove(state *State) bool {
	set.mu.Lock()
	index := set.indexLocked(state)
	if index < 0 {
		set.mu.Unlock()
		return false
	}
	set.members = append(set.members[:index], set.members[index+1:]...)
	set.mu.Unlock()

	set.resources.Unlisten(state.Results().Events())
	set.events.Unlisten(state.Events())
	state.Close()
	return true
}

// Members returns the queries in display order.
func (set *Set) Members() []*State {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return append([]*State(nil), set.members...)
}

// Len returns the number of members.
func (set *Set) Len() int {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return len(set.members)
}

// Index returns the position of state, or -1.
func (set *Set) Index(state *State) int {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return set.indexLocked(state)
}

func (set *Set) indexLocked(state *State) int {
	for i, member := range set.members {
		if member == state {
			return i
		}
	}
	return -1
}

// Get returns the member with ordinal id.
func (set *Set) Get(id int) (*State, bool) {
	set.mu.RLock()
	defer set.mu.RUnlock()

	for _, member := range set.members {
		if member.UID() == id {
			return member, true
		}
	}
	return nil, false
}

// # Bulk Edits

/*
Duplicate appends a copy of target.

Description: The copy gets a fresh ordinal, its own clone of the media
selection, the same keywords and dates, and the name "Copy of <name>" with
the auto-generated flag of target. A Duplicated event carrying the new
position is published on the set bus.

Returns:
  - *State: the copy
  - bool: false, with no effect, when target is not a member
*/
func (set *Set) Duplicate(context context.Context, target *State) (*State, bool) {
	if set.Index(target) < 0 {
		return nil, false
	}

	params := target.Params()
	params.Media = params.Media.Clone()

	duplicate := set.NewQuery(params)
	duplicate.setCopiedName(copyPrefix+target.Name(), target.HasAutoGeneratedName())
	set.Add(duplicate)

	set.events.Events().Publish(context, Event{Kind: Duplicated, Query: duplicate, Index: set.Index(duplicate)})
	return duplicate, true
}

// CopyMediaToAll overwrites every member's media selection with the content
// of source's. Each member keeps its own selection.
func (set *Set) CopyMediaToAll(source *State) {
	from := source.Media()
	for _, member := range set.Members() {
		if member != source {
			member.Media().CopyFrom(from)
		}
	}
}

// CopyDateRangeToAll overwrites every member's date range with source's.
func (set *Set) CopyDateRangeToAll(source *State) {
	params := source.Params()
	for _, member := range set.Members() {
		member.SetDates(params.Start, params.End)
	}
}

// # Refine & Subquery

// Refinements is the bus members publish refinements on.
func (set *Set) Refinements() *events.Bus[Refinement] { return &set.refinements }

// Subqueries is the bus members publish subquery requests on.
func (set *Set) Subqueries() *events.Bus[SubqueryRequest] { return &set.subqueries }

// Refine validates r and publishes it on the refinement bus, which applies
// it to every member and executes the set before Refine returns.
func (set *Set) Refine(context context.Context, r Refinement) error {
	if err := r.validate(); err != nil {
		return err
	}
	set.refinements.Publish(context, r)
	return nil
}

func (set *Set) applyRefinement(context context.Context, r Refinement) error {
	if err := r.validate(); err != nil {
		return err
	}

	for _, member := range set.Members() {
		if r.Term != nil {
			member.SetKeywords(refineKeywords(member.Params().Keywords, *r.Term))
		} else {
			member.SetDates(*r.Start, *r.End)
		}
	}
	return set.Execute(context)
}

/*
SpawnSubquery derives one query from member origin and executes it.

Description: overrides are merged over a copy of origin's parameters (the
media selection is cloned, never shared). The subquery is not a member; it
replaces the previous subquery, whose subscriptions are released.

Returns:
  - *State: the executed subquery, even when some categories failed
  - error: [ErrNotMember] when origin is unknown
*/
func (set *Set) SpawnSubquery(context context.Context, origin int, overrides Overrides) (*State, error) {
	member, ok := set.Get(origin)
	if !ok {
		return nil, fmt.Errorf("%w: uid %d", ErrNotMember, origin)
	}

	params := member.Params()
	params.Media = params.Media.Clone()
	params.Keywords = pointer.Fallback(overrides.Keywords, params.Keywords)
	params.Start = pointer.Fallback(overrides.Start, params.Start)
	params.End = pointer.Fallback(overrides.End, params.End)
	if overrides.Media != nil {
		params.Media = overrides.Media.Clone()
	}

	subquery := set.NewQuery(params)

	set.mu.Lock()
	previous := set.subquery
	set.subquery = subquery
	set.mu.Unlock()

	if previous != nil {
		set.subqueryResources.Unlisten(previous.Results().Events())
		previous.Close()
	}
	set.subqueryResources.Listen(subquery.Results().Events())

	if err := subquery.Execute(context); err != nil {
		set.logger.Warn("query_subquery_incomplete",
			slog.Int("origin_uid", origin),
			slog.Int("subquery_uid", subquery.UID()),
			slog.Any("error", err),
		)
	}
	return subquery, nil
}

// Subquery returns the active subquery, if any.
func (set *Set) Subquery() (*State, bool) {
	set.mu.RLock()
	defer set.mu.RUnlock()
	return set.subquery, set.subquery != nil
}

// # Execution & Events

// Execute issues the fetches of every member in member order, waits for all
// of them and then publishes Executed on the set bus. Completions settle in
// any order. Member failures are joined.
func (set *Set) Execute(context context.Context) error {
	members := set.Members()

	pending := make([]results.Pending, len(members))
	for i, member := range members {
		pending[i] = member.Start(context)
	}

	var group errgroup.Group
	errs := make([]error, len(members))
	for i, wait := range pending {
		group.Go(func() error {
			errs[i] = wait()
			return nil
		})
	}
	_ = group.Wait()

	set.logger.Info("query_set_executed", slog.Int("members", len(members)))
	set.events.Events().Publish(context, Event{Kind: Executed})
	return errors.Join(errs...)
}

// Resources carries the result events of every member.
func (set *Set) Resources() *events.Bus[results.Event] { return set.resources.Events() }

// SubqueryResources carries the result events of the active subquery.
func (set *Set) SubqueryResources() *events.Bus[results.Event] {
	return set.subqueryResources.Events()
}

// Events carries member events and the set's own Duplicated and Executed
// events. Set-level Executed events have a nil Query.
func (set *Set) Events() *events.Bus[Event] { return set.events.Events() }

// Close detaches and closes every member and the subquery.
func (set *Set) Close() {
	set.mu.Lock()
	members := set.members
	subquery := set.subquery
	set.members, set.subquery = nil, nil
	set.mu.Unlock()

	for _, member := range members {
		member.Close()
	}
	if subquery != nil {
		subquery.Close()
	}
	set.resources.Close()
	set.subqueryResources.Close()
	set.events.Close()
	for _, unsubscribe := range set.unsubscribe {
		unsubscribe()
	}
}

// # Naming

// AutoNameable picks the property that tells members apart: keywords for a
// single member or differing keywords, dates for shared keywords with
// differing dates, NameNone otherwise and for an empty set.
func (set *Set) AutoNameable() NameSource {
	members := set.Members()
	switch {
	case len(members) == 0:
		return NameNone
	case len(members) == 1:
		return NameByKeywords
	}

	first := members[0].Params()
	sameKeywords, sameDates := true, true
	for _, member := range members[1:] {
		params := member.Params()
		sameKeywords = sameKeywords && params.Keywords == first.Keywords
		sameDates = sameDates && params.Start == first.Start && params.End == first.End
	}

	switch {
	case !sameKeywords:
		return NameByKeywords
	case !sameDates:
		return NameByDates
	default:
		return NameNone
	}
}

// AutoNameAll applies one AutoNameable decision to every member.
func (set *Set) AutoNameAll(context context.Context) NameSource {
	source := set.AutoNameable()
	if source == NameNone {
		return source
	}
	for _, member := range set.Members() {
		member.SetNameBy(context, source)
	}
	return source
}

// NameList returns each member's explicit name, or its keywords when it
// has none.
func (set *Set) NameList() []string {
	members := set.Members()
	names := make([]string, len(members))
	for i, member := range members {
		if member.HasExplicitName() {
			names[i] = member.Name()
		} else {
			names[i] = member.Params().Keywords
		}
	}
	return names
}

// IsGeoTagged reports whether every member is geo-tagged.
func (set *Set) IsGeoTagged() bool {
	for _, member := range set.Members() {
		if !member.IsGeoTagged() {
			return false
		}
	}
	return true
}

// # Serializers

// Keywords lists member keywords; blank keywords become a single space.
func (set *Set) Keywords() []string {
	members := set.Members()
	keywords := make([]string, len(members))
	for i, member := range members {
		keywords[i] = member.Params().Keywords
		if keywords[i] == "" {
			keywords[i] = results.BlankKeywords
		}
	}
	return keywords
}

// Start lists member start dates.
func (set *Set) Start() []string {
	return collect(set.Members(), func(state *State) string { return state.Params().Start })
}

// End lists member end dates.
func (set *Set) End() []string {
	return collect(set.Members(), func(state *State) string { return state.Params().End })
}

// Media lists member media parameters.
func (set *Set) Media() []media.QueryParam {
	return collect(set.Members(), func(state *State) media.QueryParam { return state.Media().QueryParam() })
}

// Info lists member identities.
func (set *Set) Info() []Info {
	return collect(set.Members(), (*State).Info)
}

func collect[T any](members []*State, value func(*State) T) []T {
	values := make([]T, len(members))
	for i, member := range members {
		values[i] = value(member)
	}
	return values
}

// Summary is a one-line description for logs.
func (set *Set) Summary() string {
	return strings.Join(set.NameList(), " | ")
}
