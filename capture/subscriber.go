// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package capture

import (
	"sync"
	"sync/atomic"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Filter decides, per call site, whether the capture subscriber should
// record spans and events from it at all.
type Filter interface {
	Enabled(data tunnel.CallSiteData) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(data tunnel.CallSiteData) bool

// Enabled implements Filter.
func (f FilterFunc) Enabled(data tunnel.CallSiteData) bool { return f(data) }

// Subscriber implements tunnel.Subscriber, recording every span and event
// it sees into a Storage. It tracks the local runtime's full span
// hierarchy, not just the captured subset, so that a filtered-out span in
// the middle of a chain doesn't sever its descendants from their nearest
// captured ancestor.
type Subscriber struct {
	storage *SharedStorage
	filter  Filter

	nextSpanID atomic.Uint64

	mu          sync.Mutex
	metadata    map[tunnel.MetaID]tunnel.CallSiteData
	rawParent   map[tunnel.SpanID]*tunnel.SpanID
	rawCaptured map[tunnel.SpanID]SpanID
}

var _ tunnel.Subscriber = (*Subscriber)(nil)

// NewSubscriber returns a Subscriber that records into storage.
func NewSubscriber(storage *SharedStorage) *Subscriber {
	s := &Subscriber{
		storage:     storage,
		metadata:    make(map[tunnel.MetaID]tunnel.CallSiteData),
		rawParent:   make(map[tunnel.SpanID]*tunnel.SpanID),
		rawCaptured: make(map[tunnel.SpanID]SpanID),
	}
	s.nextSpanID.Store(1)
	return s
}

// WithFilter installs filter and returns s, for chained construction.
func (s *Subscriber) WithFilter(filter Filter) *Subscriber {
	s.filter = filter
	return s
}

// Storage returns the shared storage this subscriber records into.
func (s *Subscriber) Storage() *SharedStorage { return s.storage }

func (s *Subscriber) allows(data tunnel.CallSiteData) bool {
	return s.filter == nil || s.filter.Enabled(data)
}

// RegisterCallsite implements tunnel.Subscriber.
func (s *Subscriber) RegisterCallsite(id tunnel.MetaID, data tunnel.CallSiteData) tunnel.Interest {
	s.mu.Lock()
	s.metadata[id] = data
	s.mu.Unlock()
	if !s.allows(data) {
		return tunnel.InterestNever
	}
	return tunnel.InterestAlways
}

// Enabled implements tunnel.Subscriber.
func (s *Subscriber) Enabled(data tunnel.CallSiteData) bool { return s.allows(data) }

func (s *Subscriber) lookupMetadata(id tunnel.MetaID) tunnel.CallSiteData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata[id]
}

// nearestCapturedAncestor walks the raw span scope from parent outwards,
// returning the first captured ancestor's id.
func (s *Subscriber) nearestCapturedAncestor(parent *tunnel.SpanID) *SpanID {
	cur := parent
	for cur != nil {
		s.mu.Lock()
		capturedID, captured := s.rawCaptured[*cur]
		next := s.rawParent[*cur]
		s.mu.Unlock()
		if captured {
			id := capturedID
			return &id
		}
		cur = next
	}
	return nil
}

// NewSpan implements tunnel.Subscriber.
func (s *Subscriber) NewSpan(metadata tunnel.MetaID, parent *tunnel.SpanID, values *tunnel.ValueMap) tunnel.SpanID {
	id := tunnel.SpanID(s.nextSpanID.Add(1) - 1)

	s.mu.Lock()
	s.rawParent[id] = parent
	s.mu.Unlock()

	data := s.lookupMetadata(metadata)
	if !s.allows(data) {
		return id
	}

	capturedParent := s.nearestCapturedAncestor(parent)
	var capturedID SpanID
	s.storage.Mutate(func(st *Storage) {
		capturedID = st.PushSpan(data, values, capturedParent)
	})

	s.mu.Lock()
	s.rawCaptured[id] = capturedID
	s.mu.Unlock()
	return id
}

func (s *Subscriber) captured(span tunnel.SpanID) (SpanID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.rawCaptured[span]
	return id, ok
}

// Record implements tunnel.Subscriber.
func (s *Subscriber) Record(span tunnel.SpanID, values *tunnel.ValueMap) {
	if id, ok := s.captured(span); ok {
		s.storage.Mutate(func(st *Storage) { st.OnRecord(id, values) })
	}
}

// RecordFollowsFrom implements tunnel.Subscriber.
func (s *Subscriber) RecordFollowsFrom(span, follows tunnel.SpanID) {
	id, idOK := s.captured(span)
	followsID, followsOK := s.captured(follows)
	if !idOK || !followsOK {
		return
	}
	s.storage.Mutate(func(st *Storage) { st.OnFollowsFrom(id, followsID) })
}

// Enter implements tunnel.Subscriber.
func (s *Subscriber) Enter(span tunnel.SpanID) {
	if id, ok := s.captured(span); ok {
		s.storage.Mutate(func(st *Storage) { st.OnEnter(id) })
	}
}

// Exit implements tunnel.Subscriber.
func (s *Subscriber) Exit(span tunnel.SpanID) {
	if id, ok := s.captured(span); ok {
		s.storage.Mutate(func(st *Storage) { st.OnExit(id) })
	}
}

// CloneSpan implements tunnel.Subscriber. Captured spans carry no
// reference-counting semantics of their own (that bookkeeping belongs to
// the receiver), so this is a no-op identity mapping.
func (s *Subscriber) CloneSpan(span tunnel.SpanID) tunnel.SpanID { return span }

// TryClose implements tunnel.Subscriber. Capture has no reference count to
// decrement, so the span is marked closed and reported fully closed on the
// first call.
func (s *Subscriber) TryClose(span tunnel.SpanID) bool {
	if id, ok := s.captured(span); ok {
		s.storage.Mutate(func(st *Storage) { st.OnClose(id) })
	}
	return true
}

// Event implements tunnel.Subscriber. An event whose nearest captured
// ancestor cannot be found is stored as a root event, not dropped: capture
// is lossless for events that pass the filter, regardless of scope.
func (s *Subscriber) Event(metadata tunnel.MetaID, parent *tunnel.SpanID, values *tunnel.ValueMap) {
	data := s.lookupMetadata(metadata)
	if !s.allows(data) {
		return
	}
	capturedParent := s.nearestCapturedAncestor(parent)
	s.storage.Mutate(func(st *Storage) {
		st.PushEvent(data, values, capturedParent)
	})
}
