// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package metrics recognises a narrow convention of metric-update events
// (a target, a fixed set of fields) emitted by instrumentation that wants
// to report a metric alongside its structured diagnostics, and turns a
// matching capture.Event into a Metric. Recognition is advisory: an event
// that merely looks similar, but is missing a required field or has one of
// the wrong type, is reported as "not a metric update", never as an error.
package metrics

import (
	"strings"

	"github.com/DataDog/tracing-tunnel/capture"
	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Target is the event target metric-update events are recognised under.
const Target = "tracing_metrics_recorder"

// Kind is the kind of metric a Metric reports.
type Kind int

const (
	Counter Kind = iota
	Gauge
	Histogram
)

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "counter":
		return Counter, true
	case "gauge":
		return Gauge, true
	case "histogram":
		return Histogram, true
	default:
		return 0, false
	}
}

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	case Histogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Metric is a fully parsed metric-update event: its identity (kind, name,
// labels, and optional unit/description) plus its new and previous values.
// Unit and Description default to the empty string when the source event
// omits them, matching the metric-update convention's own field semantics
// rather than using a Go pointer for "absent" (see DESIGN.md).
type Metric struct {
	Kind        Kind
	Name        string
	Labels      map[string]string
	Unit        string
	Description string
	Value       float64
	PrevValue   float64
}

// NewMetric attempts to interpret event as a metric-update event. It
// returns ok=false whenever event isn't one: wrong target, a missing
// required field, or a field of the wrong type.
func NewMetric(event capture.Event) (Metric, bool) {
	if event.Target() != Target {
		return Metric{}, false
	}
	values := event.Values()

	kindVal, ok := values.Get("kind")
	if !ok {
		return Metric{}, false
	}
	kindStr, ok := kindVal.AsString()
	if !ok {
		return Metric{}, false
	}
	kind, ok := kindFromString(kindStr)
	if !ok {
		return Metric{}, false
	}

	nameVal, ok := values.Get("name")
	if !ok {
		return Metric{}, false
	}
	name, ok := nameVal.AsString()
	if !ok {
		return Metric{}, false
	}

	unit, ok := optionalString(values, "unit")
	if !ok {
		return Metric{}, false
	}
	description, ok := optionalString(values, "description")
	if !ok {
		return Metric{}, false
	}

	labels, ok := parseLabelsField(values)
	if !ok {
		return Metric{}, false
	}

	valueVal, ok := values.Get("value")
	if !ok {
		return Metric{}, false
	}
	value, ok := asFloat(valueVal)
	if !ok {
		return Metric{}, false
	}

	prevVal, ok := values.Get("prev_value")
	if !ok {
		return Metric{}, false
	}
	prevValue, ok := asFloat(prevVal)
	if !ok {
		return Metric{}, false
	}

	return Metric{
		Kind: kind, Name: name, Labels: labels, Unit: unit, Description: description,
		Value: value, PrevValue: prevValue,
	}, true
}

func optionalString(values *tunnel.ValueMap, name string) (string, bool) {
	v, ok := values.Get(name)
	if !ok {
		return "", true
	}
	return v.AsString()
}

func asFloat(v tunnel.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	if u, ok := v.AsUint(); ok {
		return float64(u), true
	}
	return 0, false
}

func parseLabelsField(values *tunnel.ValueMap) (map[string]string, bool) {
	v, ok := values.Get("labels")
	if !ok {
		return map[string]string{}, true
	}
	rendered, ok := v.AsString()
	if !ok {
		rendered, ok = v.AsDebugString()
	}
	if !ok {
		return nil, false
	}
	return parseLabelsInner(rendered)
}

// parseLabelsInner parses a minimal, non-standard rendering of a
// string-to-string map: "{ "a": "b", "c": "d" }", tolerating arbitrary
// whitespace and one trailing comma. It makes no attempt to handle escape
// sequences: any backslash in the input is treated as a sign that the
// value came from a richer formatter than this parser understands, and an
// empty map is returned rather than attempting (and likely failing) to
// parse it correctly. This is a known, deliberate limitation, not a bug to
// fix: the label convention is advisory best-effort in the first place.
func parseLabelsInner(s string) (map[string]string, bool) {
	if strings.Contains(s, "\\") {
		return map[string]string{}, true
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	labels := map[string]string{}
	if body == "" {
		return labels, true
	}

	rest := body
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		key, tail, ok := readQuotedString(rest)
		if !ok {
			return nil, false
		}
		tail = strings.TrimSpace(tail)
		if !strings.HasPrefix(tail, ":") {
			return nil, false
		}
		tail = strings.TrimSpace(tail[1:])
		value, tail, ok := readQuotedString(tail)
		if !ok {
			return nil, false
		}
		labels[key] = value

		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}
		if !strings.HasPrefix(tail, ",") {
			return nil, false
		}
		rest = tail[1:]
	}
	return labels, true
}

// readQuotedString reads a leading double-quoted string from s, returning
// its content and the remainder of s after the closing quote.
func readQuotedString(s string) (value, rest string, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", s, false
	}
	end := strings.Index(s[1:], `"`)
	if end < 0 {
		return "", s, false
	}
	return s[1 : end+1], s[end+2:], true
}
