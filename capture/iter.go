// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package capture

// descendantIDs walks the span forest rooted at root in depth-first
// pre-order, using an explicit stack of "layers" (each layer is the
// remaining, not-yet-visited slice of one ancestor's children) rather than
// recursion, so arbitrarily deep span trees don't consume goroutine stack.
func descendantIDs(s *Storage, root SpanID) []SpanID {
	rootSpan, ok := s.Span(root)
	if !ok {
		return nil
	}
	var out []SpanID
	layers := [][]SpanID{rootSpan.inner().childIDs}
	for len(layers) > 0 {
		top := layers[len(layers)-1]
		if len(top) == 0 {
			layers = layers[:len(layers)-1]
			continue
		}
		id := top[0]
		layers[len(layers)-1] = top[1:]
		out = append(out, id)
		if children := s.span(id).childIDs; len(children) > 0 {
			layers = append(layers, children)
		}
	}
	return out
}
