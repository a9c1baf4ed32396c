// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/tracing-tunnel/capture"
	"github.com/DataDog/tracing-tunnel/tunnel"
)

func pushMetricEvent(t *testing.T, storage *capture.Storage, fields map[string]tunnel.Value) capture.Event {
	t.Helper()
	values := tunnel.NewValueMap()
	for k, v := range fields {
		values.Insert(k, v)
	}
	id := storage.PushEvent(tunnel.CallSiteData{Kind: tunnel.KindEvent, Name: "metric", Target: Target, Level: tunnel.LevelInfo}, values, nil)
	event, ok := storage.Event(id)
	require.True(t, ok)
	return event
}

func TestNewMetricRequiresMatchingTarget(t *testing.T) {
	storage := capture.NewStorage()
	id := storage.PushEvent(tunnel.CallSiteData{Kind: tunnel.KindEvent, Name: "x", Target: "other", Level: tunnel.LevelInfo}, nil, nil)
	event, _ := storage.Event(id)
	_, ok := NewMetric(event)
	assert.False(t, ok)
}

func TestNewMetricParsesFullMetric(t *testing.T) {
	storage := capture.NewStorage()
	event := pushMetricEvent(t, storage, map[string]tunnel.Value{
		"kind":       tunnel.StringValue("counter"),
		"name":       tunnel.StringValue("requests_total"),
		"unit":       tunnel.StringValue("requests"),
		"value":      tunnel.FloatValue(5),
		"prev_value": tunnel.FloatValue(4),
	})

	metric, ok := NewMetric(event)
	require.True(t, ok)
	assert.Equal(t, Counter, metric.Kind)
	assert.Equal(t, "requests_total", metric.Name)
	assert.Equal(t, "requests", metric.Unit)
	assert.Equal(t, "", metric.Description)
	assert.Equal(t, float64(5), metric.Value)
	assert.Equal(t, float64(4), metric.PrevValue)
}

func TestNewMetricMissingRequiredFieldFails(t *testing.T) {
	storage := capture.NewStorage()
	event := pushMetricEvent(t, storage, map[string]tunnel.Value{
		"kind": tunnel.StringValue("gauge"),
		"name": tunnel.StringValue("temperature"),
	})
	_, ok := NewMetric(event)
	assert.False(t, ok)
}

func TestParseLabelsInner(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "{}", map[string]string{}},
		{"empty with spaces", "{  }", map[string]string{}},
		{"single", `{"a": "1"}`, map[string]string{"a": "1"}},
		{"single no space", `{"a":"1"}`, map[string]string{"a": "1"}},
		{"single trailing comma", `{"a": "1",}`, map[string]string{"a": "1"}},
		{"single extra space", `{ "a" : "1" }`, map[string]string{"a": "1"}},
		{"multi", `{"a": "1", "b": "2"}`, map[string]string{"a": "1", "b": "2"}},
		{"multi trailing comma", `{"a": "1", "b": "2",}`, map[string]string{"a": "1", "b": "2"}},
		{"multi no space", `{"a":"1","b":"2"}`, map[string]string{"a": "1", "b": "2"}},
		{"multi extra space", `{ "a" : "1" , "b" : "2" }`, map[string]string{"a": "1", "b": "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseLabelsInner(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLabelsInnerReturnsEmptyOnBackslash(t *testing.T) {
	got, ok := parseLabelsInner(`{"a": "line1\nline2"}`)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestParseLabelsInnerRejectsMissingBraces(t *testing.T) {
	_, ok := parseLabelsInner(`"a": "1"`)
	assert.False(t, ok)
}

func TestRouterFansOutToAllSinks(t *testing.T) {
	router := NewRouter()
	var received []Metric
	router.AddSink(SinkFunc(func(m Metric) { received = append(received, m) }))
	router.AddSink(SinkFunc(func(m Metric) { received = append(received, m) }))

	router.Route(Metric{Name: "x"})
	assert.Len(t, received, 2)
}
