// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import "sync/atomic"

// Interest is a Subscriber's answer to RegisterCallsite: whether it wants to
// receive records from a given call site at all, regardless of the
// dynamically supplied span/event values.
type Interest int

const (
	// InterestNever means the call site should never be recorded.
	InterestNever Interest = iota
	// InterestSometimes means Enabled must be consulted for each instance.
	InterestSometimes
	// InterestAlways means every instance from this call site is recorded.
	InterestAlways
)

// Subscriber is the narrow contract a host diagnostic runtime must satisfy
// to receive re-injected spans and events from a Receiver. Its shape
// mirrors the ambient runtime's own Subscriber trait so that an EventSender
// can be pointed at either a local Subscriber or a remote one (via the
// wire format) interchangeably.
type Subscriber interface {
	// RegisterCallsite is invoked once per distinct call site the first
	// time it is encountered.
	RegisterCallsite(id MetaID, data CallSiteData) Interest
	// Enabled is consulted when RegisterCallsite returned InterestSometimes.
	Enabled(data CallSiteData) bool
	// NewSpan creates a new span instance and returns a runtime-assigned id.
	NewSpan(metadata MetaID, parent *SpanID, values *ValueMap) SpanID
	// Record appends values to an existing span.
	Record(span SpanID, values *ValueMap)
	// RecordFollowsFrom records a follows-from relationship.
	RecordFollowsFrom(span, follows SpanID)
	// Enter records that execution has entered span.
	Enter(span SpanID)
	// Exit records that execution has exited span.
	Exit(span SpanID)
	// CloneSpan increments span's reference count and returns the id it
	// should be known by from now on (normally the same id).
	CloneSpan(span SpanID) SpanID
	// TryClose decrements span's reference count and reports whether the
	// span has now fully closed.
	TryClose(span SpanID) bool
	// Event records a point-in-time event.
	Event(metadata MetaID, parent *SpanID, values *ValueMap)
}

var currentDispatch atomic.Value // holds Subscriber

// SetDispatch installs s as the process-wide active Subscriber, returning
// the previously installed one (nil if none).
func SetDispatch(s Subscriber) Subscriber {
	prev, _ := currentDispatch.Swap(dispatchBox{s}).(dispatchBox)
	return prev.Subscriber
}

// Dispatch returns the process-wide active Subscriber, or nil if none has
// been installed via SetDispatch.
func Dispatch() Subscriber {
	box, _ := currentDispatch.Load().(dispatchBox)
	return box.Subscriber
}

// dispatchBox lets a nil Subscriber be stored in an atomic.Value, which
// otherwise requires every stored value to share a concrete, non-nil type.
type dispatchBox struct {
	Subscriber
}
