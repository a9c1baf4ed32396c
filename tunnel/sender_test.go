// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSenderAssignsIncrementingSpanIDs(t *testing.T) {
	var records []Record
	sender := NewEventSender(func(r Record) { records = append(records, r) })

	id1 := sender.NewSpan(1, nil, nil)
	id2 := sender.NewSpan(1, nil, nil)

	assert.Equal(t, SpanID(1), id1)
	assert.Equal(t, SpanID(2), id2)
	require.Len(t, records, 2)
}

func TestEventSenderTryCloseAlwaysReportsOpen(t *testing.T) {
	var records []Record
	sender := NewEventSender(func(r Record) { records = append(records, r) })

	closed := sender.TryClose(SpanID(1))
	assert.False(t, closed)
	require.Len(t, records, 1)
	assert.IsType(t, SpanDropped{}, records[0])
}

func TestEventSenderCloneSpanPreservesID(t *testing.T) {
	sender := NewEventSender(func(Record) {})
	assert.Equal(t, SpanID(7), sender.CloneSpan(SpanID(7)))
}

func TestSetDispatchReturnsPrevious(t *testing.T) {
	sender := NewEventSender(func(Record) {})
	prev := SetDispatch(sender)
	defer SetDispatch(prev)

	assert.Equal(t, sender, Dispatch())

	other := NewEventSender(func(Record) {})
	assert.Equal(t, Subscriber(sender), SetDispatch(other))
}
