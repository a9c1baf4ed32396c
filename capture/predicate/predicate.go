// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package predicate implements a small composable matcher DSL over
// captured spans and events, plus scanning helpers that turn a slice of
// candidates into a single match (or a descriptive panic).
package predicate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// Captured is satisfied by both capture.Span and capture.Event: anything a
// predicate can be evaluated against.
type Captured interface {
	Metadata() tunnel.CallSiteData
	Values() *tunnel.ValueMap
}

// Term is one (name, rendered value) pair in a failure explanation.
type Term struct {
	Name  string
	Value string
}

// Case is the concrete evidence a failed (or, for a negated predicate,
// succeeded) match can point to: one or more named terms describing why
// the match came out the way it did. It exists so that a failing
// assertion can report something more useful than "no match", at the cost
// of the predicate tree walking itself a second time to reconstruct it.
type Case []Term

// Predicate is a composable matcher over a captured span or event.
type Predicate[T any] interface {
	// Eval reports whether v matches.
	Eval(v T) bool
	// FindCase looks for concrete evidence explaining why Eval(v) would
	// equal expected. It returns ok=false if no evidence for that outcome
	// can be found (for instance, when Eval(v) does not equal expected).
	// Combinators may return several terms: a conjunction that matched,
	// asked with expected=true, returns the terms of both branches.
	FindCase(expected bool, v T) (Case, bool)
	// String renders the predicate for diagnostic messages.
	String() string
}

// levelPredicate matches an exact level.
type levelPredicate[T Captured] struct{ level tunnel.TraceLevel }

// Level matches call sites at exactly the given level.
func Level[T Captured](level tunnel.TraceLevel) Predicate[T] {
	return levelPredicate[T]{level: level}
}

func (p levelPredicate[T]) Eval(v T) bool { return v.Metadata().Level == p.level }
func (p levelPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "level", Value: v.Metadata().Level.String()}}, true
	}
	return nil, false
}
func (p levelPredicate[T]) String() string { return fmt.Sprintf("level(%s)", p.level) }

// maxLevelPredicate matches any level at least as severe as the threshold
// (mirroring a LevelFilter: WARN accepts ERROR and WARN).
type maxLevelPredicate[T Captured] struct{ threshold tunnel.TraceLevel }

// MaxLevel matches call sites at threshold or more severe.
func MaxLevel[T Captured](threshold tunnel.TraceLevel) Predicate[T] {
	return maxLevelPredicate[T]{threshold: threshold}
}

func (p maxLevelPredicate[T]) Eval(v T) bool { return v.Metadata().Level <= p.threshold }
func (p maxLevelPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "level", Value: v.Metadata().Level.String()}}, true
	}
	return nil, false
}
func (p maxLevelPredicate[T]) String() string { return fmt.Sprintf("level<=%s", p.threshold) }

// eqStringPredicate matches a string exactly.
type eqStringPredicate struct{ want string }

// Eq matches a string exactly; it is the arbitrary-string-predicate
// building block plugged into Name/Target/Message for an exact match.
func Eq(want string) Predicate[string] { return eqStringPredicate{want: want} }

func (p eqStringPredicate) Eval(v string) bool { return v == p.want }
func (p eqStringPredicate) FindCase(expected bool, v string) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "str", Value: v}}, true
	}
	return nil, false
}
func (p eqStringPredicate) String() string { return fmt.Sprintf("eq(%q)", p.want) }

// containsStringPredicate matches a string containing a substring.
type containsStringPredicate struct{ substr string }

// Contains matches any string containing substr.
func Contains(substr string) Predicate[string] { return containsStringPredicate{substr: substr} }

func (p containsStringPredicate) Eval(v string) bool { return strings.Contains(v, p.substr) }
func (p containsStringPredicate) FindCase(expected bool, v string) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "str", Value: v}}, true
	}
	return nil, false
}
func (p containsStringPredicate) String() string { return fmt.Sprintf("contains(%q)", p.substr) }

// namespacePredicate matches a target treated as a namespace prefix: "db"
// matches "db" and "db::pool" but not "database".
type namespacePredicate struct {
	prefix string
	re     *regexp.Regexp
}

// Namespace matches strings equal to prefix, or namespaced under it (using
// "::" as the namespace separator) — the standard target-prefix rule.
func Namespace(prefix string) Predicate[string] {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `($|::)`)
	return namespacePredicate{prefix: prefix, re: re}
}

func (p namespacePredicate) Eval(v string) bool { return p.re.MatchString(v) }
func (p namespacePredicate) FindCase(expected bool, v string) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "str", Value: v}}, true
	}
	return nil, false
}
func (p namespacePredicate) String() string { return fmt.Sprintf("namespace(%q)", p.prefix) }

// namePredicate lifts an arbitrary string predicate to match a call site's
// name.
type namePredicate[T Captured] struct{ matches Predicate[string] }

// Name matches call sites whose name satisfies matches. Use Eq for an
// exact match (the common case).
func Name[T Captured](matches Predicate[string]) Predicate[T] {
	return namePredicate[T]{matches: matches}
}

func (p namePredicate[T]) Eval(v T) bool { return p.matches.Eval(v.Metadata().Name) }
func (p namePredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	if _, ok := p.matches.FindCase(expected, v.Metadata().Name); !ok {
		return nil, false
	}
	return Case{{Name: "name", Value: v.Metadata().Name}}, true
}
func (p namePredicate[T]) String() string { return fmt.Sprintf("name(%s)", p.matches) }

// targetPredicate lifts an arbitrary string predicate to match a call
// site's target.
type targetPredicate[T Captured] struct{ matches Predicate[string] }

// Target matches call sites whose target satisfies matches. Use Namespace
// for the standard target-prefix rule ("db" matches "db" and "db::pool").
func Target[T Captured](matches Predicate[string]) Predicate[T] {
	return targetPredicate[T]{matches: matches}
}

func (p targetPredicate[T]) Eval(v T) bool { return p.matches.Eval(v.Metadata().Target) }
func (p targetPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	if _, ok := p.matches.FindCase(expected, v.Metadata().Target); !ok {
		return nil, false
	}
	return Case{{Name: "target", Value: v.Metadata().Target}}, true
}
func (p targetPredicate[T]) String() string { return fmt.Sprintf("target(%s)", p.matches) }

// messagePredicate lifts an arbitrary string predicate to match the
// conventional "message" field carried by events (and, incidentally, any
// span that happens to carry one).
type messagePredicate[T Captured] struct{ matches Predicate[string] }

// Message matches entities carrying a "message" field whose value
// satisfies matches. An entity with no "message" field never matches.
func Message[T Captured](matches Predicate[string]) Predicate[T] {
	return messagePredicate[T]{matches: matches}
}

func (p messagePredicate[T]) message(v T) (string, bool) {
	val, ok := v.Values().Get("message")
	if !ok {
		return "", false
	}
	if s, ok := val.AsString(); ok {
		return s, true
	}
	if s, ok := val.AsDebugString(); ok {
		return s, true
	}
	return "", false
}

func (p messagePredicate[T]) Eval(v T) bool {
	message, ok := p.message(v)
	return ok && p.matches.Eval(message)
}
func (p messagePredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	message, ok := p.message(v)
	if !ok {
		if expected {
			return nil, false
		}
		return Case{{Name: "message", Value: "None"}}, true
	}
	if _, ok := p.matches.FindCase(expected, message); !ok {
		return nil, false
	}
	return Case{{Name: "message", Value: message}}, true
}
func (p messagePredicate[T]) String() string { return fmt.Sprintf("message(%s)", p.matches) }

// fieldPredicate matches a single named field's value against a nested
// Value predicate.
type fieldPredicate[T Captured] struct {
	name    string
	matches Predicate[tunnel.Value]
}

// Field matches call sites carrying a field named name whose value matches
// the given value predicate (see Equiv).
func Field[T Captured](name string, matches Predicate[tunnel.Value]) Predicate[T] {
	return fieldPredicate[T]{name: name, matches: matches}
}

func (p fieldPredicate[T]) Eval(v T) bool {
	val, ok := v.Values().Get(p.name)
	return ok && p.matches.Eval(val)
}
func (p fieldPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	val, ok := v.Values().Get(p.name)
	if !ok {
		if expected {
			return nil, false
		}
		return Case{{Name: "fields." + p.name, Value: "None"}}, true
	}
	if p.matches.Eval(val) != expected {
		return nil, false
	}
	return Case{{Name: "fields." + p.name, Value: val.String()}}, true
}
func (p fieldPredicate[T]) String() string { return fmt.Sprintf("fields.%s(%s)", p.name, p.matches) }

// equivPredicate matches a Value equal to a fixed primitive.
type equivPredicate struct {
	want any
}

// Equiv matches a Value equal to want (a Go bool/int64/uint64/float64/string).
func Equiv(want any) Predicate[tunnel.Value] { return equivPredicate{want: want} }

func (p equivPredicate) Eval(v tunnel.Value) bool { return v.Equal(p.want) }
func (p equivPredicate) FindCase(expected bool, v tunnel.Value) (Case, bool) {
	if p.Eval(v) == expected {
		return Case{{Name: "var", Value: v.String()}}, true
	}
	return nil, false
}
func (p equivPredicate) String() string { return fmt.Sprintf("var ~= %v", p.want) }
