// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import "sync/atomic"

// EventSender is the producer-side adapter: it implements Subscriber,
// turning each call into a Record that is handed to onRecord, in call
// order. It is typically installed as the process's active Subscriber via
// SetDispatch so that ordinary instrumentation naturally flows across the
// tunnel.
type EventSender struct {
	nextSpanID atomic.Uint64
	onRecord   func(Record)
}

// NewEventSender returns an EventSender that calls onRecord once per
// Subscriber method invocation, except Enabled, which emits nothing. Span
// ids are assigned starting at 1; 0 is reserved as invalid.
func NewEventSender(onRecord func(Record)) *EventSender {
	s := &EventSender{onRecord: onRecord}
	s.nextSpanID.Store(1)
	return s
}

var _ Subscriber = (*EventSender)(nil)

// RegisterCallsite implements Subscriber. Every call site is always
// reported: the tunnel has no inherent filtering of its own, leaving that
// decision to whatever ultimately consumes the records.
func (s *EventSender) RegisterCallsite(id MetaID, data CallSiteData) Interest {
	s.onRecord(NewCallSite{ID: id, Data: data})
	return InterestAlways
}

// Enabled implements Subscriber, always returning true: RegisterCallsite
// never returns InterestSometimes, so this is never consulted in practice.
func (s *EventSender) Enabled(CallSiteData) bool { return true }

// NewSpan implements Subscriber, allocating a fresh id for the span.
func (s *EventSender) NewSpan(metadata MetaID, parent *SpanID, values *ValueMap) SpanID {
	id := SpanID(s.nextSpanID.Add(1) - 1)
	s.onRecord(NewSpan{ID: id, Metadata: metadata, Parent: parent, Values: values})
	return id
}

// Record implements Subscriber.
func (s *EventSender) Record(span SpanID, values *ValueMap) {
	s.onRecord(ValuesRecorded{ID: span, Values: values})
}

// RecordFollowsFrom implements Subscriber.
func (s *EventSender) RecordFollowsFrom(span, follows SpanID) {
	s.onRecord(FollowsFrom{ID: span, Follows: follows})
}

// Enter implements Subscriber.
func (s *EventSender) Enter(span SpanID) { s.onRecord(SpanEntered{ID: span}) }

// Exit implements Subscriber.
func (s *EventSender) Exit(span SpanID) { s.onRecord(SpanExited{ID: span}) }

// CloneSpan implements Subscriber, preserving the cloned span's id.
func (s *EventSender) CloneSpan(span SpanID) SpanID {
	s.onRecord(SpanCloned{ID: span})
	return span
}

// TryClose implements Subscriber. It always reports the span as still open:
// reference counting and the decision of when a span has truly closed is
// the receiver's responsibility, driven by the SpanDropped records this
// produces.
func (s *EventSender) TryClose(span SpanID) bool {
	s.onRecord(SpanDropped{ID: span})
	return false
}

// Event implements Subscriber.
func (s *EventSender) Event(metadata MetaID, parent *SpanID, values *ValueMap) {
	s.onRecord(NewEvent{Metadata: metadata, Parent: parent, Values: values})
}
