// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package capture is an in-memory, indexed archive of spans and events,
// meant for test assertions: a capture.Subscriber records everything the
// local diagnostic dispatch sees, and the resulting capture.Storage can be
// queried or scanned with the predicate package.
package capture

import "github.com/DataDog/tracing-tunnel/tunnel"

// SpanID identifies a captured span within one Storage. Ids are assigned in
// push order and are never reused, so for any two captured spans s and d
// where d descends from s, s's id always orders before d's.
type SpanID uint64

// EventID identifies a captured event within one Storage.
type EventID uint64

// SpanStats tracks how many times a captured span has been entered and
// exited, and whether it has been closed.
type SpanStats struct {
	EnterCount int
	ExitCount  int
	Closed     bool
}

// spanInner is the owned record for one captured span, held in Storage's
// span arena. Spans are accessed through the Span view type, never
// directly, so that lookups of a view's relatives stay consistent with the
// storage they came from.
type spanInner struct {
	id             SpanID
	metadata       tunnel.CallSiteData
	values         *tunnel.ValueMap
	stats          SpanStats
	parentID       *SpanID
	childIDs       []SpanID
	eventIDs       []EventID
	followsFromIDs []SpanID
}

// eventInner is the owned record for one captured event.
type eventInner struct {
	id       EventID
	metadata tunnel.CallSiteData
	values   *tunnel.ValueMap
	parentID *SpanID
}
