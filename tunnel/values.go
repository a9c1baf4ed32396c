// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type valueKind int

const (
	kindBool valueKind = iota
	kindInt
	kindUint
	kindFloat
	kindString
	kindDebug
	kindError
)

// Value is a self-describing value recorded in a span or event field. It is
// a tagged union of a boolean, a signed integer, an unsigned integer, a
// float, an owned string, an opaque debug-formatted string, or a recursive
// error. Go has no native 128-bit integer type and no library in this
// project's dependency stack provides one, so Int/Uint are carried as
// int64/uint64 rather than i128/u128 (see DESIGN.md).
type Value struct {
	kind   valueKind
	b      bool
	i      int64
	u      uint64
	f      float64
	s      string
	errVal *TracedError
}

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{kind: kindBool, b: v} }

// IntValue wraps a signed integer.
func IntValue(v int64) Value { return Value{kind: kindInt, i: v} }

// UintValue wraps an unsigned integer.
func UintValue(v uint64) Value { return Value{kind: kindUint, u: v} }

// FloatValue wraps a floating-point number.
func FloatValue(v float64) Value { return Value{kind: kindFloat, f: v} }

// StringValue wraps an owned string.
func StringValue(v string) Value { return Value{kind: kindString, s: v} }

// DebugValue captures the Go %+v rendering of an arbitrary value, mirroring
// the ambient runtime's convention of recording non-primitive fields via
// their Debug representation.
func DebugValue(v any) Value { return Value{kind: kindDebug, s: fmt.Sprintf("%+v", v)} }

// ErrorValue captures err and its full source chain as an owned,
// serialisable TracedError.
func ErrorValue(err error) Value {
	traced := NewTracedError(err)
	return Value{kind: kindError, errVal: &traced}
}

// AsBool returns the value as a boolean, if it is one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == kindBool }

// AsInt returns the value as a signed integer, if it is one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == kindInt }

// AsUint returns the value as an unsigned integer, if it is one.
func (v Value) AsUint() (uint64, bool) { return v.u, v.kind == kindUint }

// AsFloat returns the value as a float, if it is one.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == kindFloat }

// AsString returns the value as a string, if it is one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == kindString }

// AsDebugString returns the value's debug rendering, if it is a debug value.
func (v Value) AsDebugString() (string, bool) { return v.s, v.kind == kindDebug }

// AsError returns the value as a TracedError, if it is one.
func (v Value) AsError() (TracedError, bool) {
	if v.kind != kindError || v.errVal == nil {
		return TracedError{}, false
	}
	return *v.errVal, true
}

// IsDebug reports whether v is a debug value whose rendering matches the
// Go %+v rendering of object.
func (v Value) IsDebug(object any) bool {
	s, ok := v.AsDebugString()
	return ok && s == fmt.Sprintf("%+v", object)
}

// Equal compares v against a primitive Go value, respecting the tag: a
// Value never equals a primitive of the wrong kind.
func (v Value) Equal(other any) bool {
	switch o := other.(type) {
	case bool:
		return v.kind == kindBool && v.b == o
	case int:
		return v.kind == kindInt && v.i == int64(o)
	case int64:
		return v.kind == kindInt && v.i == o
	case uint:
		return v.kind == kindUint && v.u == uint64(o)
	case uint64:
		return v.kind == kindUint && v.u == o
	case float64:
		return v.kind == kindFloat && v.f == o
	case string:
		return v.kind == kindString && v.s == o
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case kindBool:
		return fmt.Sprintf("Bool(%v)", v.b)
	case kindInt:
		return fmt.Sprintf("Int(%d)", v.i)
	case kindUint:
		return fmt.Sprintf("UInt(%d)", v.u)
	case kindFloat:
		return fmt.Sprintf("Float(%v)", v.f)
	case kindString:
		return fmt.Sprintf("String(%q)", v.s)
	case kindDebug:
		return v.s
	case kindError:
		return fmt.Sprintf("Error(%s)", v.errVal.Message)
	default:
		return "Value(?)"
	}
}

// MarshalJSON implements json.Marshaler, encoding the value as a
// single-key object named after its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindBool:
		return json.Marshal(map[string]bool{"bool": v.b})
	case kindInt:
		return json.Marshal(map[string]int64{"int": v.i})
	case kindUint:
		return json.Marshal(map[string]uint64{"uint": v.u})
	case kindFloat:
		return json.Marshal(map[string]float64{"float": v.f})
	case kindString:
		return json.Marshal(map[string]string{"string": v.s})
	case kindDebug:
		return json.Marshal(map[string]string{"debug": v.s})
	case kindError:
		return json.Marshal(map[string]TracedError{"error": *v.errVal})
	default:
		return nil, fmt.Errorf("tunnel: value has no kind set")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("tunnel: expected exactly one key in value object, got %d", len(raw))
	}
	for key, payload := range raw {
		switch key {
		case "bool":
			var b bool
			if err := json.Unmarshal(payload, &b); err != nil {
				return err
			}
			*v = BoolValue(b)
		case "int":
			var i int64
			if err := json.Unmarshal(payload, &i); err != nil {
				return err
			}
			*v = IntValue(i)
		case "uint":
			var u uint64
			if err := json.Unmarshal(payload, &u); err != nil {
				return err
			}
			*v = UintValue(u)
		case "float":
			var f float64
			if err := json.Unmarshal(payload, &f); err != nil {
				return err
			}
			*v = FloatValue(f)
		case "string":
			var s string
			if err := json.Unmarshal(payload, &s); err != nil {
				return err
			}
			*v = StringValue(s)
		case "debug":
			var s string
			if err := json.Unmarshal(payload, &s); err != nil {
				return err
			}
			*v = Value{kind: kindDebug, s: s}
		case "error":
			var e TracedError
			if err := json.Unmarshal(payload, &e); err != nil {
				return err
			}
			*v = Value{kind: kindError, errVal: &e}
		default:
			return fmt.Errorf("tunnel: unknown value kind %q", key)
		}
	}
	return nil
}

// entry is a single name-value pair in a ValueMap.
type entry struct {
	Name  string
	Value Value
}

// ValueMap is an ordered mapping from field name to Value, preserving the
// order in which names first appeared even across later overwrites. It is
// backed by a plain slice: the receiver caps entries at 32 per span/event,
// so a linear scan is cheaper in practice than hashing and trivially
// preserves order.
type ValueMap struct {
	entries []entry
}

// NewValueMap returns an empty ValueMap.
func NewValueMap() *ValueMap { return &ValueMap{} }

// Len returns the number of stored values.
func (m *ValueMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// IsEmpty reports whether the map has no entries.
func (m *ValueMap) IsEmpty() bool { return m.Len() == 0 }

// Get returns the value stored under name, if any.
func (m *ValueMap) Get(name string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	for _, e := range m.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Insert stores value under name. If name was already present, its value is
// overwritten in place, preserving its original position; otherwise the
// pair is appended. The previous value, if any, is returned.
func (m *ValueMap) Insert(name string, value Value) (Value, bool) {
	for i := range m.entries {
		if m.entries[i].Name == name {
			prev := m.entries[i].Value
			m.entries[i].Value = value
			return prev, true
		}
	}
	m.entries = append(m.entries, entry{Name: name, Value: value})
	return Value{}, false
}

// Extend inserts every pair from other into m, in order, preserving m's
// insertion-order contract for keys that already exist.
func (m *ValueMap) Extend(other *ValueMap) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		m.Insert(e.Name, e.Value)
	}
}

// NameValue is a single name-value pair returned by Iter.
type NameValue struct {
	Name  string
	Value Value
}

// Iter returns the map's entries in insertion order.
func (m *ValueMap) Iter() []NameValue {
	if m == nil {
		return nil
	}
	out := make([]NameValue, len(m.entries))
	for i, e := range m.entries {
		out[i] = NameValue{Name: e.Name, Value: e.Value}
	}
	return out
}

// ReverseIter returns the map's entries in reverse insertion order.
func (m *ValueMap) ReverseIter() []NameValue {
	forward := m.Iter()
	out := make([]NameValue, len(forward))
	for i, nv := range forward {
		out[len(forward)-1-i] = nv
	}
	return out
}

// MarshalJSON implements json.Marshaler, encoding the map as a JSON object
// with keys in insertion order.
func (m *ValueMap) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.entries) == 0 {
		return []byte("{}"), nil
	}
	buf := []byte{'{'}
	for i, e := range m.entries {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving the order in which
// keys appear in the input object (Go's map[string]T would not).
func (m *ValueMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tunnel: expected object for value map")
	}
	*m = ValueMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("tunnel: expected string key in value map")
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		m.Insert(key, v)
	}
	_, err = dec.Token() // closing '}'
	return err
}
