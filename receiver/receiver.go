// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package receiver

import (
	"github.com/google/uuid"

	"github.com/DataDog/tracing-tunnel/internal/log"
	"github.com/DataDog/tracing-tunnel/tunnel"
)

// MaxValues caps the number of fields a single span or event may carry.
// Records that would push a span over this limit are rejected rather than
// silently truncated.
const MaxValues = 32

// SpanData is the persisted state the receiver keeps for a span that has
// not yet fully closed: everything needed to lazily re-materialize it
// against the local dispatch, plus its reference count.
type SpanData struct {
	MetadataID tunnel.MetaID
	ParentID   *tunnel.SpanID
	RefCount   int
	Values     *tunnel.ValueMap
}

// PersistedMetadata is a (de)serialisable snapshot of every call site a
// receiver has interned, keyed by the producer's MetaID. It is exposed so a
// process restart can carry receiver state across serialization boundaries,
// mirroring the wire format's own CallSiteData shape.
type PersistedMetadata map[tunnel.MetaID]tunnel.CallSiteData

// PersistedSpans is a (de)serialisable table of every span the receiver
// currently tracks that has not yet fully closed. A map passed to New is
// kept up to date in place.
type PersistedSpans map[tunnel.SpanID]SpanData

// localSpans maps a producer-assigned SpanID to the id the local dispatch
// assigned when the span was first materialized. It never leaves the
// process, so it is not serialisable.
type localSpans map[tunnel.SpanID]tunnel.SpanID

// ExecutionID identifies one producer execution a Receiver is attached to,
// letting a single host process disambiguate records arriving from several
// concurrent or sequential tunnel executions (for instance separate plugin
// invocations). It has no equivalent in the record stream itself; the
// receiver mints one per instance.
type ExecutionID uuid.UUID

// String renders the execution id in its canonical UUID form.
func (id ExecutionID) String() string { return uuid.UUID(id).String() }

// Receiver replays a tunnel.Record stream against the local diagnostic
// dispatch (tunnel.Dispatch), reconstructing spans and events as if they
// had been produced locally. A Receiver is not safe for concurrent use: it
// is expected to consume one ordered Record stream from a single goroutine.
type Receiver struct {
	executionID ExecutionID
	metadata    map[tunnel.MetaID]tunnel.CallSiteData
	spans       PersistedSpans
	local       localSpans
	entered     map[tunnel.SpanID]int
}

// New creates a Receiver. If persistedMetadata is non-nil, it seeds the
// receiver's call sites (for instance when resuming after a process
// restart): each one is interned through the process-wide arena, and
// registered with the current dispatch only if the arena has not seen an
// equivalent call site before. If persistedSpans is non-nil, it becomes the
// receiver's own span table and is updated in place as records arrive, so
// the caller's map always holds the current state of unclosed spans.
func New(persistedMetadata PersistedMetadata, persistedSpans PersistedSpans) *Receiver {
	spans := persistedSpans
	if spans == nil {
		spans = make(PersistedSpans)
	}
	r := &Receiver{
		executionID: ExecutionID(uuid.New()),
		metadata:    make(map[tunnel.MetaID]tunnel.CallSiteData, len(persistedMetadata)),
		spans:       spans,
		local:       make(localSpans, len(spans)),
		entered:     make(map[tunnel.SpanID]int),
	}
	for id, data := range persistedMetadata {
		r.onNewCallSite(id, data)
	}
	return r
}

// ID returns the execution id this receiver was constructed with.
func (r *Receiver) ID() ExecutionID { return r.executionID }

// PersistMetadata copies every interned call site into out, without
// overwriting entries out already carries.
func (r *Receiver) PersistMetadata(out PersistedMetadata) {
	for id, data := range r.metadata {
		if _, exists := out[id]; !exists {
			out[id] = data
		}
	}
}

func dispatch() tunnel.Subscriber { return tunnel.Dispatch() }

func (r *Receiver) onNewCallSite(id tunnel.MetaID, data tunnel.CallSiteData) {
	canonical, isNew := globalArena.alloc(data)
	r.metadata[id] = canonical
	if isNew {
		if d := dispatch(); d != nil {
			d.RegisterCallsite(id, canonical)
		}
	}
}

func (r *Receiver) callSite(id tunnel.MetaID) (tunnel.CallSiteData, error) {
	data, ok := r.metadata[id]
	if !ok {
		return tunnel.CallSiteData{}, UnknownMetadataIDError{ID: id}
	}
	return data, nil
}

// mapSpanID resolves a producer SpanID to the id assigned by the local
// dispatch. It returns (id, true, nil) once materialized, (0, false, nil)
// if the span is known but not yet materialized locally, and an error if
// the span is wholly unknown.
func (r *Receiver) mapSpanID(id tunnel.SpanID) (tunnel.SpanID, bool, error) {
	if local, ok := r.local[id]; ok {
		return local, true, nil
	}
	if _, known := r.spans[id]; known {
		return 0, false, nil
	}
	return 0, false, UnknownSpanIDError{ID: id}
}

func (r *Receiver) createLocalSpan(id tunnel.SpanID, data SpanData) error {
	if _, err := r.callSite(data.MetadataID); err != nil {
		return err
	}
	var parent *tunnel.SpanID
	if data.ParentID != nil {
		localParent, materialized, err := r.mapSpanID(*data.ParentID)
		if err != nil {
			return err
		}
		if materialized {
			parent = &localParent
		}
	}
	d := dispatch()
	if d == nil {
		return nil
	}
	local := d.NewSpan(data.MetadataID, parent, data.Values)
	r.local[id] = local
	return nil
}

func mergeValues(existing, incoming *tunnel.ValueMap) (*tunnel.ValueMap, error) {
	merged := tunnel.NewValueMap()
	for _, nv := range existing.Iter() {
		merged.Insert(nv.Name, nv.Value)
	}
	newKeys := 0
	for _, nv := range incoming.Iter() {
		if _, existed := merged.Get(nv.Name); !existed {
			newKeys++
		}
	}
	if merged.Len()+newKeys > MaxValues {
		return nil, TooManyValuesError{Max: MaxValues, Actual: merged.Len() + newKeys}
	}
	merged.Extend(incoming)
	return merged, nil
}

// TryReceive applies a single record to the receiver's state, forwarding
// the resulting diagnostic call to the active dispatch where applicable.
func (r *Receiver) TryReceive(record tunnel.Record) error {
	switch rec := record.(type) {
	case tunnel.NewCallSite:
		r.onNewCallSite(rec.ID, rec.Data)
		return nil

	case tunnel.NewSpan:
		if n := rec.Values.Len(); n > MaxValues {
			return TooManyValuesError{Max: MaxValues, Actual: n}
		}
		if _, err := r.callSite(rec.Metadata); err != nil {
			return err
		}
		data := SpanData{MetadataID: rec.Metadata, ParentID: rec.Parent, RefCount: 1, Values: rec.Values}
		if rec.Values == nil {
			data.Values = tunnel.NewValueMap()
		}
		r.spans[rec.ID] = data
		if _, alreadyLocal := r.local[rec.ID]; !alreadyLocal {
			return r.createLocalSpan(rec.ID, data)
		}
		return nil

	case tunnel.FollowsFrom:
		localID, idMaterialized, err := r.mapSpanID(rec.ID)
		if err != nil {
			return err
		}
		localFollows, followsMaterialized, err := r.mapSpanID(rec.Follows)
		if err != nil {
			return err
		}
		if !idMaterialized || !followsMaterialized {
			return nil
		}
		if d := dispatch(); d != nil {
			d.RecordFollowsFrom(localID, localFollows)
		}
		return nil

	case tunnel.SpanEntered:
		localID, materialized, err := r.mapSpanID(rec.ID)
		if err != nil {
			return err
		}
		if !materialized {
			data := r.spans[rec.ID]
			if err := r.createLocalSpan(rec.ID, data); err != nil {
				return err
			}
			localID = r.local[rec.ID]
		}
		r.entered[rec.ID]++
		if d := dispatch(); d != nil {
			d.Enter(localID)
		}
		return nil

	case tunnel.SpanExited:
		if depth := r.entered[rec.ID]; depth > 0 {
			if depth == 1 {
				delete(r.entered, rec.ID)
			} else {
				r.entered[rec.ID] = depth - 1
			}
		}
		if localID, ok := r.local[rec.ID]; ok {
			if d := dispatch(); d != nil {
				d.Exit(localID)
			}
		}
		return nil

	case tunnel.SpanCloned:
		data, ok := r.spans[rec.ID]
		if !ok {
			return UnknownSpanIDError{ID: rec.ID}
		}
		data.RefCount++
		r.spans[rec.ID] = data
		return nil

	case tunnel.SpanDropped:
		data, ok := r.spans[rec.ID]
		if !ok {
			return UnknownSpanIDError{ID: rec.ID}
		}
		data.RefCount--
		if data.RefCount > 0 {
			r.spans[rec.ID] = data
			return nil
		}
		delete(r.spans, rec.ID)
		delete(r.entered, rec.ID)
		if localID, ok := r.local[rec.ID]; ok {
			delete(r.local, rec.ID)
			if d := dispatch(); d != nil {
				d.TryClose(localID)
			}
		}
		return nil

	case tunnel.ValuesRecorded:
		data, ok := r.spans[rec.ID]
		if !ok {
			return UnknownSpanIDError{ID: rec.ID}
		}
		existing := data.Values
		if existing == nil {
			existing = tunnel.NewValueMap()
		}
		merged, err := mergeValues(existing, rec.Values)
		if err != nil {
			return err
		}
		data.Values = merged
		r.spans[rec.ID] = data
		if localID, ok := r.local[rec.ID]; ok {
			if d := dispatch(); d != nil {
				d.Record(localID, rec.Values)
			}
		}
		return nil

	case tunnel.NewEvent:
		if n := rec.Values.Len(); n > MaxValues {
			return TooManyValuesError{Max: MaxValues, Actual: n}
		}
		if _, err := r.callSite(rec.Metadata); err != nil {
			return err
		}
		var parent *tunnel.SpanID
		if rec.Parent != nil {
			localParent, materialized, err := r.mapSpanID(*rec.Parent)
			if err != nil {
				return err
			}
			if materialized {
				parent = &localParent
			}
		}
		if d := dispatch(); d != nil {
			d.Event(rec.Metadata, parent, rec.Values)
		}
		return nil

	default:
		return nil
	}
}

// Receive applies record, logging (rather than returning) any error: a
// malformed or out-of-order record should degrade the receiver's fidelity,
// never the host process's stability.
func (r *Receiver) Receive(record tunnel.Record) {
	if err := r.TryReceive(record); err != nil {
		log.Error("failed to receive tunnel record: %v", err)
	}
}

// Close tears the receiver down: any span still entered (an Enter without a
// matching Exit) is force-exited against the local dispatch so host-side
// consumers never observe a span stuck open past this receiver's lifetime.
// Spans are force-exited, not closed — their reference count is untouched,
// since the producer side may still hold live handles to them; only a
// SpanDropped record closes a span. Close never returns an error and logs
// nothing: a best-effort teardown of a possibly partial trace has nothing
// useful to report.
func (r *Receiver) Close() error {
	d := dispatch()
	for id, depth := range r.entered {
		localID, ok := r.local[id]
		if !ok {
			continue
		}
		if d != nil {
			for i := 0; i < depth; i++ {
				d.Exit(localID)
			}
		}
		delete(r.entered, id)
	}
	return nil
}
