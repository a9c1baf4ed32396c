// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import (
	"encoding/json"
	"fmt"
)

// Record is a single wire-format event emitted by an EventSender and
// consumed, in order, by a Receiver. It mirrors exactly one Subscriber
// method call on the producer side.
type Record interface {
	recordKind() string
}

// NewCallSite announces a call site (span or event definition) the producer
// has not previously reported, identified by id for the remainder of this
// stream.
type NewCallSite struct {
	ID   MetaID
	Data CallSiteData
}

// NewSpan announces a new span instance, created from the call site id and
// carrying its initial field values. Parent is nil for a root span.
type NewSpan struct {
	ID       SpanID
	Metadata MetaID
	Parent   *SpanID
	Values   *ValueMap
}

// FollowsFrom records a follows-from relationship between two spans that is
// not a parent/child relationship.
type FollowsFrom struct {
	ID     SpanID
	Follows SpanID
}

// SpanEntered records that execution has entered the named span.
type SpanEntered struct {
	ID SpanID
}

// SpanExited records that execution has exited the named span, without
// necessarily closing it (the span may be re-entered later).
type SpanExited struct {
	ID SpanID
}

// SpanCloned records that a span handle has been cloned, incrementing its
// reference count.
type SpanCloned struct {
	ID SpanID
}

// SpanDropped records that a span handle has been dropped, decrementing its
// reference count. The span closes permanently once the count reaches zero.
type SpanDropped struct {
	ID SpanID
}

// ValuesRecorded appends further field values to an existing span.
type ValuesRecorded struct {
	ID     SpanID
	Values *ValueMap
}

// NewEvent announces a point-in-time event, optionally scoped to a parent
// span.
type NewEvent struct {
	Metadata MetaID
	Parent   *SpanID
	Values   *ValueMap
}

func (NewCallSite) recordKind() string    { return "new_call_site" }
func (NewSpan) recordKind() string        { return "new_span" }
func (FollowsFrom) recordKind() string    { return "follows_from" }
func (SpanEntered) recordKind() string    { return "span_entered" }
func (SpanExited) recordKind() string     { return "span_exited" }
func (SpanCloned) recordKind() string     { return "span_cloned" }
func (SpanDropped) recordKind() string    { return "span_dropped" }
func (ValuesRecorded) recordKind() string { return "values_recorded" }
func (NewEvent) recordKind() string       { return "new_event" }

// wire payload shapes for each record kind, matched to their Go struct
// one-for-one; fields use omitempty so absent optionals are elided rather
// than encoded as null.
type wireNewCallSite struct {
	ID   MetaID       `json:"id"`
	Kind CallSiteKind `json:"kind"`
	Name string       `json:"name"`
	Target string     `json:"target"`
	Level TraceLevel  `json:"level"`
	ModulePath *string `json:"module_path,omitempty"`
	File       *string `json:"file,omitempty"`
	Line       *uint32 `json:"line,omitempty"`
	Fields     []string `json:"fields,omitempty"`
}

type wireNewSpan struct {
	ID       SpanID    `json:"id"`
	Metadata MetaID    `json:"metadata_id"`
	Parent   *SpanID   `json:"parent,omitempty"`
	Values   *ValueMap `json:"values,omitempty"`
}

type wireFollowsFrom struct {
	ID      SpanID `json:"id"`
	Follows SpanID `json:"follows"`
}

type wireSpanID struct {
	ID SpanID `json:"id"`
}

type wireValuesRecorded struct {
	ID     SpanID    `json:"id"`
	Values *ValueMap `json:"values,omitempty"`
}

type wireNewEvent struct {
	Metadata MetaID    `json:"metadata_id"`
	Parent   *SpanID   `json:"parent,omitempty"`
	Values   *ValueMap `json:"values,omitempty"`
}

// MarshalRecord encodes r as a tagged object: {"type": "<kind>", ...fields}.
func MarshalRecord(r Record) ([]byte, error) {
	var payload any
	switch rec := r.(type) {
	case NewCallSite:
		payload = wireNewCallSite{
			ID: rec.ID, Kind: rec.Data.Kind, Name: rec.Data.Name, Target: rec.Data.Target,
			Level: rec.Data.Level, ModulePath: rec.Data.ModulePath, File: rec.Data.File,
			Line: rec.Data.Line, Fields: rec.Data.Fields,
		}
	case NewSpan:
		payload = wireNewSpan{ID: rec.ID, Metadata: rec.Metadata, Parent: rec.Parent, Values: rec.Values}
	case FollowsFrom:
		payload = wireFollowsFrom{ID: rec.ID, Follows: rec.Follows}
	case SpanEntered:
		payload = wireSpanID{ID: rec.ID}
	case SpanExited:
		payload = wireSpanID{ID: rec.ID}
	case SpanCloned:
		payload = wireSpanID{ID: rec.ID}
	case SpanDropped:
		payload = wireSpanID{ID: rec.ID}
	case ValuesRecorded:
		payload = wireValuesRecorded{ID: rec.ID, Values: rec.Values}
	case NewEvent:
		payload = wireNewEvent{Metadata: rec.Metadata, Parent: rec.Parent, Values: rec.Values}
	default:
		return nil, fmt.Errorf("tunnel: unknown record type %T", r)
	}

	fields, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(fields, &raw); err != nil {
		return nil, err
	}
	raw["type"] = json.RawMessage(`"` + r.recordKind() + `"`)
	return json.Marshal(raw)
}

// UnmarshalRecord decodes a tagged Record object previously produced by
// MarshalRecord.
func UnmarshalRecord(data []byte) (Record, error) {
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	switch tagged.Type {
	case "new_call_site":
		var w wireNewCallSite
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return NewCallSite{ID: w.ID, Data: CallSiteData{
			Kind: w.Kind, Name: w.Name, Target: w.Target, Level: w.Level,
			ModulePath: w.ModulePath, File: w.File, Line: w.Line, Fields: w.Fields,
		}}, nil
	case "new_span":
		var w wireNewSpan
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return NewSpan{ID: w.ID, Metadata: w.Metadata, Parent: w.Parent, Values: w.Values}, nil
	case "follows_from":
		var w wireFollowsFrom
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return FollowsFrom{ID: w.ID, Follows: w.Follows}, nil
	case "span_entered":
		var w wireSpanID
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return SpanEntered{ID: w.ID}, nil
	case "span_exited":
		var w wireSpanID
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return SpanExited{ID: w.ID}, nil
	case "span_cloned":
		var w wireSpanID
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return SpanCloned{ID: w.ID}, nil
	case "span_dropped":
		var w wireSpanID
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return SpanDropped{ID: w.ID}, nil
	case "values_recorded":
		var w wireValuesRecorded
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return ValuesRecorded{ID: w.ID, Values: w.Values}, nil
	case "new_event":
		var w wireNewEvent
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return NewEvent{Metadata: w.Metadata, Parent: w.Parent, Values: w.Values}, nil
	default:
		return nil, fmt.Errorf("tunnel: unknown record type %q", tagged.Type)
	}
}
