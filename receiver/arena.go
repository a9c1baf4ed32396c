// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package receiver turns a stream of tunnel.Record values back into calls
// against the local diagnostic dispatch (tunnel.Dispatch), reconstructing
// spans and events as if they had been produced locally.
package receiver

import (
	"sync"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// arena interns CallSiteData so that repeated descriptions of the same call
// site, arriving under different producer-assigned MetaIDs (for instance
// across two tunnel executions sharing the same instrumented code), collapse
// onto a single canonical descriptor. In the ambient Rust runtime this
// relies on leaking 'static metadata; Go's garbage collector makes the leak
// unnecessary; a process-wide singleton arena that is simply never torn
// down plays the same role.
type arena struct {
	mu      sync.RWMutex
	buckets map[uint64][]tunnel.CallSiteData
}

func newArena() *arena {
	return &arena{buckets: make(map[uint64][]tunnel.CallSiteData)}
}

// alloc interns data, returning the canonical (possibly pre-existing)
// descriptor and whether this call is the one that introduced it.
//
// The bucket is scanned twice under two different locks, mirroring the
// ambient arena's double-checked-locking allocator: first under a read
// lock, optimistic that the entry already exists; then, only if not found,
// under a write lock that re-scans just the tail appended since the read
// lock was released, to avoid a duplicate insert racing with a concurrent
// allocator of the same content.
func (a *arena) alloc(data tunnel.CallSiteData) (tunnel.CallSiteData, bool) {
	h := data.Hash()

	a.mu.RLock()
	bucket := a.buckets[h]
	for _, existing := range bucket {
		if existing.Equivalent(data) {
			a.mu.RUnlock()
			return existing, false
		}
	}
	scanned := len(bucket)
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	bucket = a.buckets[h]
	for i := scanned; i < len(bucket); i++ {
		if bucket[i].Equivalent(data) {
			return bucket[i], false
		}
	}
	a.buckets[h] = append(bucket, data)
	return data, true
}

var globalArena = newArena()
