// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessorsRespectTag(t *testing.T) {
	v := IntValue(42)
	_, ok := v.AsBool()
	assert.False(t, ok)
	n, ok := v.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestValueEqualRespectsKind(t *testing.T) {
	assert.True(t, IntValue(5).Equal(5))
	assert.False(t, IntValue(5).Equal(uint(5)))
	assert.True(t, StringValue("x").Equal("x"))
}

func TestErrorValueWalksSourceChain(t *testing.T) {
	base := errors.New("root cause")
	wrapped := &wrappedErr{msg: "outer", source: base}
	v := ErrorValue(wrapped)
	traced, ok := v.AsError()
	require.True(t, ok)
	assert.Equal(t, "outer", traced.Message)
	require.NotNil(t, traced.Source)
	assert.Equal(t, "root cause", traced.Source.Message)
}

type wrappedErr struct {
	msg    string
	source error
}

func (e *wrappedErr) Error() string { return e.msg }
func (e *wrappedErr) Unwrap() error { return e.source }

func TestValueJSONRoundTrip(t *testing.T) {
	for _, v := range []Value{
		BoolValue(true), IntValue(-7), UintValue(7), FloatValue(1.5),
		StringValue("hi"), DebugValue(struct{ X int }{X: 1}),
	} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var out Value
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, v.String(), out.String())
	}
}

func TestValueMapPreservesInsertionOrderAcrossOverwrite(t *testing.T) {
	m := NewValueMap()
	m.Insert("a", IntValue(1))
	m.Insert("b", IntValue(2))
	m.Insert("a", IntValue(99))

	names := make([]string, 0)
	for _, nv := range m.Iter() {
		names = append(names, nv.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	v, ok := m.Get("a")
	require.True(t, ok)
	n, _ := v.AsInt()
	assert.Equal(t, int64(99), n)
}

func TestValueMapExtendPreservesOrder(t *testing.T) {
	m := NewValueMap()
	m.Insert("a", IntValue(1))

	other := NewValueMap()
	other.Insert("b", IntValue(2))
	other.Insert("a", IntValue(100))

	m.Extend(other)
	names := make([]string, 0)
	for _, nv := range m.Iter() {
		names = append(names, nv.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestValueMapJSONRoundTripPreservesOrder(t *testing.T) {
	m := NewValueMap()
	m.Insert("z", IntValue(1))
	m.Insert("a", IntValue(2))

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var out ValueMap
	require.NoError(t, json.Unmarshal(data, &out))

	names := make([]string, 0)
	for _, nv := range out.Iter() {
		names = append(names, nv.Name)
	}
	assert.Equal(t, []string{"z", "a"}, names)
}
