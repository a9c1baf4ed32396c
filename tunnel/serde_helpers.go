// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package tunnel

import (
	"encoding/json"
	"fmt"
)

func unmarshalJSONString(data []byte, out *string) error {
	return json.Unmarshal(data, out)
}

// MarshalJSON implements json.Marshaler.
func (id MetaID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(id))
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *MetaID) UnmarshalJSON(data []byte) error {
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*id = MetaID(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (id SpanID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(id))
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Span ID 0 is reserved as invalid and is rejected here, mirroring the
// original wire format's deserialisation contract.
func (id *SpanID) UnmarshalJSON(data []byte) error {
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == 0 {
		return fmt.Errorf("tunnel: span IDs must be positive")
	}
	*id = SpanID(v)
	return nil
}
