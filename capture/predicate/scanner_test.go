// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DataDog/tracing-tunnel/capture"
	"github.com/DataDog/tracing-tunnel/tunnel"
)

func TestScannerSinglePanicsOnMultipleMatches(t *testing.T) {
	storage := capture.NewStorage()
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "a", Target: "t", Level: tunnel.LevelInfo}, nil, nil)
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "a", Target: "t", Level: tunnel.LevelInfo}, nil, nil)

	matches := Filter(storage.AllSpans(), Name[capture.Span](Eq("a")))
	assert.Panics(t, func() { NewScanner(matches).Single() })
}

func TestScannerSingleReturnsSoleMatch(t *testing.T) {
	storage := capture.NewStorage()
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "a", Target: "t", Level: tunnel.LevelInfo}, nil, nil)
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "b", Target: "t", Level: tunnel.LevelInfo}, nil, nil)

	matches := Filter(storage.AllSpans(), Name[capture.Span](Eq("b")))
	span := NewScanner(matches).Single()
	assert.Equal(t, "b", span.Name())
}

func TestScannerAllPanicsOnFirstMismatch(t *testing.T) {
	storage := capture.NewStorage()
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "a", Target: "t", Level: tunnel.LevelInfo}, nil, nil)
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "b", Target: "t", Level: tunnel.LevelError}, nil, nil)

	scanner := NewScanner(storage.AllSpans())
	assert.Panics(t, func() { scanner.All(Level[capture.Span](tunnel.LevelInfo)) })
}

func TestScannerNonePanicsOnFirstMatch(t *testing.T) {
	storage := capture.NewStorage()
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "a", Target: "t", Level: tunnel.LevelInfo}, nil, nil)

	scanner := NewScanner(storage.AllSpans())
	assert.Panics(t, func() { scanner.None(Name[capture.Span](Eq("a"))) })
}

func TestScannerLastIteratesFromEnd(t *testing.T) {
	storage := capture.NewStorage()
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "first", Target: "t", Level: tunnel.LevelInfo}, nil, nil)
	storage.PushSpan(tunnel.CallSiteData{Kind: tunnel.KindSpan, Name: "last", Target: "t", Level: tunnel.LevelInfo}, nil, nil)

	scanner := NewScanner(storage.AllSpans())
	assert.Equal(t, "last", scanner.Last().Name())
}
