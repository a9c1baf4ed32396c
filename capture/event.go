// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package capture

import (
	"fmt"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Event is a read-only view onto one captured event.
type Event struct {
	storage *Storage
	id      EventID
}

// ID returns the event's id within its Storage.
func (e Event) ID() EventID { return e.id }

func (e Event) String() string {
	return fmt.Sprintf("Event#%d(%s/%s)", e.id, e.Target(), e.Name())
}

func (e Event) inner() *eventInner { return e.storage.event(e.id) }

// Metadata returns the event's call site descriptor.
func (e Event) Metadata() tunnel.CallSiteData { return e.inner().metadata }

// Name returns the event's name.
func (e Event) Name() string { return e.inner().metadata.Name }

// Target returns the event's target.
func (e Event) Target() string { return e.inner().metadata.Target }

// Level returns the event's level.
func (e Event) Level() tunnel.TraceLevel { return e.inner().metadata.Level }

// Values returns the event's recorded field values.
func (e Event) Values() *tunnel.ValueMap { return e.inner().values }

// Parent returns the event's captured parent span, if any.
func (e Event) Parent() (Span, bool) {
	parentID := e.inner().parentID
	if parentID == nil {
		return Span{}, false
	}
	return e.storage.Span(*parentID)
}

// Ancestors returns the event's parent chain, innermost first.
func (e Event) Ancestors() []Span {
	parent, ok := e.Parent()
	if !ok {
		return nil
	}
	return append([]Span{parent}, parent.Ancestors()...)
}
