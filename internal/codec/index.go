package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeIndex serializes the ordered id list as a JSON array of strings.
// A nil slice encodes as "[]".
func EncodeIndex(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := MarshalCanonical(ids)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return data, nil
}

// DecodeIndex parses an index payload.
//
// An empty or whitespace-only payload is the "registry not yet initialized"
// state and decodes to an empty, non-nil slice. Anything else that is not a
// JSON array of strings is a *DecodeError.
func DecodeIndex(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, &DecodeError{Key: IndexKey, Reason: "index is not a list of ids", Err: err}
	}

	// "null" unmarshals into a nil slice
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
