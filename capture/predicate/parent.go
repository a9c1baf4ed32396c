// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package predicate

import (
	"fmt"

	"github.com/DataDog/tracing-tunnel/capture"
)

// Parented is satisfied by anything with a direct captured parent span:
// both capture.Span and capture.Event.
type Parented interface {
	Parent() (capture.Span, bool)
}

type parentPredicate[T Parented] struct {
	matches Predicate[capture.Span]
}

// Parent lifts a span predicate to match v's direct parent.
func Parent[T Parented](matches Predicate[capture.Span]) Predicate[T] {
	return parentPredicate[T]{matches: matches}
}

func (p parentPredicate[T]) Eval(v T) bool {
	parent, ok := v.Parent()
	return ok && p.matches.Eval(parent)
}

func (p parentPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	parent, ok := v.Parent()
	if !ok {
		if expected {
			return nil, false
		}
		return Case{{Name: "parent", Value: "None"}}, true
	}
	return p.matches.FindCase(expected, parent)
}

func (p parentPredicate[T]) String() string { return fmt.Sprintf("parent(%s)", p.matches) }

type ancestorPredicate[T Parented] struct {
	matches Predicate[capture.Span]
}

// Ancestor lifts a span predicate to match any ancestor of v (not just its
// direct parent).
func Ancestor[T Parented](matches Predicate[capture.Span]) Predicate[T] {
	return ancestorPredicate[T]{matches: matches}
}

func ancestorsOf[T Parented](v T) []capture.Span {
	var out []capture.Span
	cur, ok := v.Parent()
	for ok {
		out = append(out, cur)
		cur, ok = cur.Parent()
	}
	return out
}

func (p ancestorPredicate[T]) Eval(v T) bool {
	for _, a := range ancestorsOf(v) {
		if p.matches.Eval(a) {
			return true
		}
	}
	return false
}

// FindCase, for expected=true, returns the first ancestor that produces a
// case (the chain may be long; any one match is sufficient explanation).
// For expected=false, every ancestor must produce a non-matching case, or
// there is no single explanation for the whole chain failing to match.
func (p ancestorPredicate[T]) FindCase(expected bool, v T) (Case, bool) {
	ancestors := ancestorsOf(v)
	if expected {
		for _, a := range ancestors {
			if c, ok := p.matches.FindCase(true, a); ok {
				return c, true
			}
		}
		return nil, false
	}
	var combined Case
	for _, a := range ancestors {
		c, ok := p.matches.FindCase(false, a)
		if !ok {
			return nil, false
		}
		combined = append(combined, c...)
	}
	return combined, true
}

func (p ancestorPredicate[T]) String() string { return fmt.Sprintf("ancestor(%s)", p.matches) }
