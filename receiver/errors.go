// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package receiver

import (
	"fmt"

	"github.com/DataDog/tracing-tunnel/tunnel"
)

// UnknownMetadataIDError reports that a Record referenced a MetaID the
// receiver has not previously seen via a NewCallSite record.
type UnknownMetadataIDError struct {
	ID tunnel.MetaID
}

func (e UnknownMetadataIDError) Error() string {
	return fmt.Sprintf("receiver: unknown metadata id %d", e.ID)
}

// UnknownSpanIDError reports that a Record referenced a SpanID the receiver
// has no persisted state for at all.
type UnknownSpanIDError struct {
	ID tunnel.SpanID
}

func (e UnknownSpanIDError) Error() string {
	return fmt.Sprintf("receiver: unknown span id %d", e.ID)
}

// TooManyValuesError reports that a span or event attempted to carry more
// fields than MaxValues allows.
type TooManyValuesError struct {
	Max, Actual int
}

func (e TooManyValuesError) Error() string {
	return fmt.Sprintf("receiver: too many values: max %d, got %d", e.Max, e.Actual)
}
