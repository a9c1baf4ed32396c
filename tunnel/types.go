// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package tunnel carries structured diagnostic spans and events across an
// opaque API boundary (typically a sandboxed guest and its host) so that a
// host-side diagnostic consumer can observe the guest's activity as if it
// were local.
//
// The package is split into three layers: a self-describing Value/ValueMap
// model (this file and values.go), a tagged Record wire format (record.go),
// and an EventSender (sender.go) that adapts the narrow Subscriber contract
// (subscriber.go) a host diagnostic runtime exposes into a stream of Records.
package tunnel

import (
	"errors"
	"fmt"
	"hash/fnv"
)

// MetaID identifies a CallSiteData descriptor within a single producer
// execution. It carries no meaning on the wire beyond equality.
type MetaID uint64

// SpanID identifies a span within a single producer execution. The zero
// value is reserved as invalid and must be rejected on deserialisation.
type SpanID uint64

// TraceLevel mirrors the severity levels of the ambient diagnostic runtime,
// ordered from most to least severe: Error > Warn > Info > Debug > Trace.
type TraceLevel int

const (
	LevelError TraceLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l TraceLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalJSON implements json.Marshaler.
func (l TraceLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *TraceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := unmarshalJSONString(data, &s); err != nil {
		return err
	}
	switch s {
	case "error":
		*l = LevelError
	case "warn":
		*l = LevelWarn
	case "info":
		*l = LevelInfo
	case "debug":
		*l = LevelDebug
	case "trace":
		*l = LevelTrace
	default:
		return fmt.Errorf("tunnel: unknown trace level %q", s)
	}
	return nil
}

// CallSiteKind distinguishes a span call site from an event call site.
type CallSiteKind int

const (
	KindSpan CallSiteKind = iota
	KindEvent
)

func (k CallSiteKind) String() string {
	if k == KindSpan {
		return "span"
	}
	return "event"
}

// MarshalJSON implements json.Marshaler.
func (k CallSiteKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *CallSiteKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := unmarshalJSONString(data, &s); err != nil {
		return err
	}
	switch s {
	case "span":
		*k = KindSpan
	case "event":
		*k = KindEvent
	default:
		return fmt.Errorf("tunnel: unknown call site kind %q", s)
	}
	return nil
}

// CallSiteData is a serialisable descriptor of a single tracing call site:
// either a span definition or an event definition. It is the wire
// equivalent of the ambient runtime's own (non-serialisable) call site
// metadata.
type CallSiteData struct {
	Kind       CallSiteKind
	Name       string
	Target     string
	Level      TraceLevel
	ModulePath *string
	File       *string
	Line       *uint32
	Fields     []string
}

// Equivalent reports whether d and other describe the same call site:
// same kind, level, line, name, target, module path, file, and field list
// (compared element-wise). Two otherwise-identical descriptors allocated at
// different times are still equivalent.
func (d CallSiteData) Equivalent(other CallSiteData) bool {
	if d.Kind != other.Kind || d.Level != other.Level {
		return false
	}
	if !equalUint32Ptr(d.Line, other.Line) {
		return false
	}
	if d.Name != other.Name || d.Target != other.Target {
		return false
	}
	if !equalStringPtr(d.ModulePath, other.ModulePath) {
		return false
	}
	if !equalStringPtr(d.File, other.File) {
		return false
	}
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range d.Fields {
		if f != other.Fields[i] {
			return false
		}
	}
	return true
}

// hash returns a content hash used to bucket equivalent descriptors in the
// call-site arena (receiver package). It is not required to match the hash
// of any particular metadata representation, only to be stable for
// equivalent (kind, data) pairs.
func (d CallSiteData) hash() uint64 {
	h := fnv.New64a()
	writeString := func(s string) {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(s))
	}
	writeString(d.Kind.String())
	writeString(d.Name)
	writeString(d.Target)
	writeString(d.Level.String())
	if d.ModulePath != nil {
		writeString(*d.ModulePath)
	}
	if d.File != nil {
		writeString(*d.File)
	}
	if d.Line != nil {
		writeString(fmt.Sprint(*d.Line))
	}
	for _, f := range d.Fields {
		writeString(f)
	}
	return h.Sum64()
}

// Hash exposes CallSiteData's bucketing hash to the receiver package.
func (d CallSiteData) Hash() uint64 { return d.hash() }

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalUint32Ptr(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TracedError is the (de)serialisable presentation of an error recorded as
// a value in a span or event. The source chain is walked eagerly into an
// owned recursive record at capture time, since the original error value
// cannot be expected to outlive the record.
type TracedError struct {
	Message string
	Source  *TracedError
}

// NewTracedError walks err's Unwrap() chain eagerly, building an owned copy.
func NewTracedError(err error) TracedError {
	traced := TracedError{Message: err.Error()}
	if source := errors.Unwrap(err); source != nil {
		nested := NewTracedError(source)
		traced.Source = &nested
	}
	return traced
}

func (e TracedError) Error() string { return e.Message }

// Unwrap allows errors.Is/errors.As to walk into the recorded source chain.
func (e TracedError) Unwrap() error {
	if e.Source == nil {
		return nil
	}
	return *e.Source
}
