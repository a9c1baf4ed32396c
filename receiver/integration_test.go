// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package receiver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/tracing-tunnel/capture"
	"github.com/DataDog/tracing-tunnel/tunnel"
)

func withCaptureDispatch(t *testing.T) *capture.SharedStorage {
	t.Helper()
	storage := capture.NewSharedStorage()
	sub := capture.NewSubscriber(storage)
	prev := tunnel.SetDispatch(sub)
	t.Cleanup(func() { tunnel.SetDispatch(prev) })
	return storage
}

// TestReplayAfterMultipleEntriesAndExits is scenario S1 from the
// specification: a single span entered and exited twice, then dropped,
// must be captured with entered=2, exited=2, is_closed=true.
func TestReplayAfterMultipleEntriesAndExits(t *testing.T) {
	storage := withCaptureDispatch(t)
	r := New(nil, nil)

	data := tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "work", Target: "example", Level: tunnel.LevelInfo}
	require.NoError(t, r.TryReceive(tunnel.NewCallSite{ID: 0, Data: data}))
	require.NoError(t, r.TryReceive(tunnel.NewSpan{ID: 1, Metadata: 0, Values: tunnel.NewValueMap()}))
	require.NoError(t, r.TryReceive(tunnel.SpanEntered{ID: 1}))
	require.NoError(t, r.TryReceive(tunnel.SpanExited{ID: 1}))
	require.NoError(t, r.TryReceive(tunnel.SpanEntered{ID: 1}))
	require.NoError(t, r.TryReceive(tunnel.SpanExited{ID: 1}))
	require.NoError(t, r.TryReceive(tunnel.SpanDropped{ID: 1}))

	storage.View(func(st *capture.Storage) {
		spans := st.AllSpans()
		require.Len(t, spans, 1)
		stats := spans[0].Stats()
		assert.Equal(t, 2, stats.EnterCount)
		assert.Equal(t, 2, stats.ExitCount)
		assert.True(t, stats.Closed)
	})
}

// TestPersistenceRoundTrip is scenario S2: metadata persisted after one
// receiver's lifetime seeds a second, fresh receiver that can then replay
// the remaining (non-NewCallSite) records and produce an equivalent
// capture.
func TestPersistenceRoundTrip(t *testing.T) {
	storage := withCaptureDispatch(t)

	fibSite := tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "fib(approx)", Target: "example", Level: tunnel.LevelInfo}
	computeSite := tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "compute(count=5)", Target: "example", Level: tunnel.LevelInfo}
	debugEventSite := tunnel.CallSiteData{Kind: tunnel.KindEvent, Name: "event:debug", Target: "example", Level: tunnel.LevelDebug}

	r1 := New(nil, nil)
	records := []tunnel.Record{
		tunnel.NewCallSite{ID: 1, Data: computeSite},
		tunnel.NewCallSite{ID: 2, Data: fibSite},
		tunnel.NewCallSite{ID: 3, Data: debugEventSite},
		tunnel.NewSpan{ID: 10, Metadata: 1, Values: tunnel.NewValueMap()},
		tunnel.SpanEntered{ID: 10},
		tunnel.NewSpan{ID: 11, Metadata: 2, Parent: spanIDPtr(10), Values: tunnel.NewValueMap()},
		tunnel.SpanEntered{ID: 11},
		tunnel.NewEvent{Metadata: 3, Parent: spanIDPtr(11), Values: tunnel.NewValueMap()},
		tunnel.SpanExited{ID: 11},
		tunnel.SpanDropped{ID: 11},
		tunnel.SpanExited{ID: 10},
		tunnel.SpanDropped{ID: 10},
	}
	for _, rec := range records {
		require.NoError(t, r1.TryReceive(rec))
	}

	persisted := make(PersistedMetadata)
	r1.PersistMetadata(persisted)

	// Serialize through JSON, as a real caller would when carrying metadata
	// across a process restart.
	raw, err := json.Marshal(persisted)
	require.NoError(t, err)
	var decoded PersistedMetadata
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// A restarted process starts with an empty call-site arena, so the
	// second receiver announces the carried-over call sites again.
	prevArena := globalArena
	globalArena = newArena()
	t.Cleanup(func() { globalArena = prevArena })

	storage2 := capture.NewSharedStorage()
	sub2 := capture.NewSubscriber(storage2)
	prev := tunnel.SetDispatch(sub2)
	t.Cleanup(func() { tunnel.SetDispatch(prev) })

	r2 := New(decoded, nil)
	for _, rec := range records {
		if _, ok := rec.(tunnel.NewCallSite); ok {
			continue
		}
		require.NoError(t, r2.TryReceive(rec))
	}

	var namesFromFirst, namesFromSecond []string
	storage.View(func(st *capture.Storage) {
		for _, s := range st.AllSpans() {
			namesFromFirst = append(namesFromFirst, s.Name())
		}
	})
	storage2.View(func(st *capture.Storage) {
		for _, s := range st.AllSpans() {
			namesFromSecond = append(namesFromSecond, s.Name())
		}
	})
	assert.ElementsMatch(t, namesFromFirst, namesFromSecond)
}

// TestSpanForceExitedOnReceiverClose is scenario S3: a span entered but
// never exited when the receiver is torn down is force-exited (not
// closed) so the capture store never sees it stuck open.
func TestSpanForceExitedOnReceiverClose(t *testing.T) {
	storage := withCaptureDispatch(t)
	r := New(nil, nil)

	data := tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "partial", Target: "example", Level: tunnel.LevelInfo}
	require.NoError(t, r.TryReceive(tunnel.NewCallSite{ID: 0, Data: data}))
	require.NoError(t, r.TryReceive(tunnel.NewSpan{ID: 1, Metadata: 0, Values: tunnel.NewValueMap()}))
	require.NoError(t, r.TryReceive(tunnel.SpanEntered{ID: 1}))

	require.NoError(t, r.Close())

	storage.View(func(st *capture.Storage) {
		spans := st.AllSpans()
		require.Len(t, spans, 1)
		stats := spans[0].Stats()
		assert.Equal(t, 1, stats.EnterCount)
		assert.Equal(t, 1, stats.ExitCount)
		assert.False(t, stats.Closed)
	})
}

func spanIDPtr(id tunnel.SpanID) *tunnel.SpanID { return &id }
