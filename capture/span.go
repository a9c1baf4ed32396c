// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package capture

import (
	"fmt"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Span is a read-only view onto one captured span. It is only valid for as
// long as the Storage it came from is not mutated concurrently without
// synchronization; readers going through SharedStorage.View are safe.
type Span struct {
	storage *Storage
	id      SpanID
}

// ID returns the span's id within its Storage.
func (s Span) ID() SpanID { return s.id }

func (s Span) String() string {
	return fmt.Sprintf("Span#%d(%s/%s)", s.id, s.Target(), s.Name())
}

func (s Span) inner() *spanInner { return s.storage.span(s.id) }

// Metadata returns the span's call site descriptor.
func (s Span) Metadata() tunnel.CallSiteData { return s.inner().metadata }

// Name returns the span's name.
func (s Span) Name() string { return s.inner().metadata.Name }

// Target returns the span's target.
func (s Span) Target() string { return s.inner().metadata.Target }

// Level returns the span's level.
func (s Span) Level() tunnel.TraceLevel { return s.inner().metadata.Level }

// Values returns the span's recorded field values.
func (s Span) Values() *tunnel.ValueMap { return s.inner().values }

// Stats returns the span's enter/exit/close counters.
func (s Span) Stats() SpanStats { return s.inner().stats }

// Parent returns the span's direct captured parent, if any.
func (s Span) Parent() (Span, bool) {
	parentID := s.inner().parentID
	if parentID == nil {
		return Span{}, false
	}
	return s.storage.Span(*parentID)
}

// Ancestors returns the span's parent chain, innermost first, ending with
// (and including) its root span. A root span has no ancestors.
func (s Span) Ancestors() []Span {
	var out []Span
	cur, ok := s.Parent()
	for ok {
		out = append(out, cur)
		cur, ok = cur.Parent()
	}
	return out
}

// Children returns the span's direct captured children, in push order.
func (s Span) Children() []Span {
	ids := s.inner().childIDs
	out := make([]Span, len(ids))
	for i, id := range ids {
		out[i] = Span{storage: s.storage, id: id}
	}
	return out
}

// Events returns the span's direct captured events, in push order.
func (s Span) Events() []Event {
	ids := s.inner().eventIDs
	out := make([]Event, len(ids))
	for i, id := range ids {
		out[i] = Event{storage: s.storage, id: id}
	}
	return out
}

// FollowsFrom returns the spans this span was recorded as following from,
// in the order the relationships were recorded.
func (s Span) FollowsFrom() []Span {
	ids := s.inner().followsFromIDs
	out := make([]Span, len(ids))
	for i, id := range ids {
		out[i] = Span{storage: s.storage, id: id}
	}
	return out
}

// Descendants returns every span transitively descended from s, in
// depth-first pre-order.
func (s Span) Descendants() []Span {
	ids := descendantIDs(s.storage, s.id)
	out := make([]Span, len(ids))
	for i, id := range ids {
		out[i] = Span{storage: s.storage, id: id}
	}
	return out
}

// DescendantEvents returns every event captured under s or any of its
// descendants, starting with s's own direct events, then each descendant's
// direct events in depth-first pre-order.
func (s Span) DescendantEvents() []Event {
	out := append([]Event{}, s.Events()...)
	for _, d := range s.Descendants() {
		out = append(out, d.Events()...)
	}
	return out
}
