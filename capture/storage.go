// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package capture

import (
	"sync"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Storage holds two append-only arenas, one for spans and one for events,
// with parent/child and follows-from links forming a forest. Ids are
// 1-based positions in the arenas (id 0 is never assigned), so lookups are
// O(1) and iteration order always matches push order.
type Storage struct {
	spans        []spanInner
	events       []eventInner
	rootSpanIDs  []SpanID
	rootEventIDs []EventID
}

// NewStorage returns an empty Storage.
func NewStorage() *Storage {
	return &Storage{}
}

// Span returns the captured span identified by id.
func (s *Storage) Span(id SpanID) (Span, bool) {
	if id == 0 || int(id) > len(s.spans) {
		return Span{}, false
	}
	return Span{storage: s, id: id}, true
}

// Event returns the captured event identified by id.
func (s *Storage) Event(id EventID) (Event, bool) {
	if id == 0 || int(id) > len(s.events) {
		return Event{}, false
	}
	return Event{storage: s, id: id}, true
}

func (s *Storage) span(id SpanID) *spanInner  { return &s.spans[id-1] }
func (s *Storage) event(id EventID) *eventInner { return &s.events[id-1] }

// AllSpans returns every captured span, in push order.
func (s *Storage) AllSpans() []Span {
	out := make([]Span, len(s.spans))
	for i := range s.spans {
		out[i] = Span{storage: s, id: SpanID(i + 1)}
	}
	return out
}

// RootSpans returns every captured span with no captured parent, in push
// order.
func (s *Storage) RootSpans() []Span {
	out := make([]Span, len(s.rootSpanIDs))
	for i, id := range s.rootSpanIDs {
		out[i] = Span{storage: s, id: id}
	}
	return out
}

// AllEvents returns every captured event, in push order.
func (s *Storage) AllEvents() []Event {
	out := make([]Event, len(s.events))
	for i := range s.events {
		out[i] = Event{storage: s, id: EventID(i + 1)}
	}
	return out
}

// RootEvents returns every captured event with no captured parent, in push
// order.
func (s *Storage) RootEvents() []Event {
	out := make([]Event, len(s.rootEventIDs))
	for i, id := range s.rootEventIDs {
		out[i] = Event{storage: s, id: id}
	}
	return out
}

// PushSpan appends a new span to the arena, linking it to parent's children
// if given, or recording it as a root span otherwise.
func (s *Storage) PushSpan(metadata tunnel.CallSiteData, values *tunnel.ValueMap, parent *SpanID) SpanID {
	if values == nil {
		values = tunnel.NewValueMap()
	}
	id := SpanID(len(s.spans) + 1)
	s.spans = append(s.spans, spanInner{id: id, metadata: metadata, values: values, parentID: parent})
	if parent != nil {
		p := s.span(*parent)
		p.childIDs = append(p.childIDs, id)
	} else {
		s.rootSpanIDs = append(s.rootSpanIDs, id)
	}
	return id
}

// PushEvent appends a new event to the arena, symmetrically to PushSpan.
func (s *Storage) PushEvent(metadata tunnel.CallSiteData, values *tunnel.ValueMap, parent *SpanID) EventID {
	if values == nil {
		values = tunnel.NewValueMap()
	}
	id := EventID(len(s.events) + 1)
	s.events = append(s.events, eventInner{id: id, metadata: metadata, values: values, parentID: parent})
	if parent != nil {
		p := s.span(*parent)
		p.eventIDs = append(p.eventIDs, id)
	} else {
		s.rootEventIDs = append(s.rootEventIDs, id)
	}
	return id
}

// OnEnter records that id has been entered.
func (s *Storage) OnEnter(id SpanID) { s.span(id).stats.EnterCount++ }

// OnExit records that id has been exited.
func (s *Storage) OnExit(id SpanID) { s.span(id).stats.ExitCount++ }

// OnClose marks id as closed.
func (s *Storage) OnClose(id SpanID) { s.span(id).stats.Closed = true }

// OnRecord extends id's recorded values.
func (s *Storage) OnRecord(id SpanID, values *tunnel.ValueMap) {
	s.span(id).values.Extend(values)
}

// OnFollowsFrom appends other to id's follows-from list.
func (s *Storage) OnFollowsFrom(id, other SpanID) {
	p := s.span(id)
	p.followsFromIDs = append(p.followsFromIDs, other)
}

// SharedStorage wraps a Storage in a reader/writer lock: readers (typically
// test assertions running concurrently with the instrumented code under
// test) take the read side, while the capture subscriber takes the write
// side for every mutation.
type SharedStorage struct {
	mu      sync.RWMutex
	storage *Storage
}

// NewSharedStorage wraps a fresh, empty Storage.
func NewSharedStorage() *SharedStorage {
	return &SharedStorage{storage: NewStorage()}
}

// View runs fn with read-only access to the storage.
func (s *SharedStorage) View(fn func(*Storage)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.storage)
}

// Mutate runs fn with exclusive access to the storage.
func (s *SharedStorage) Mutate(fn func(*Storage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.storage)
}
