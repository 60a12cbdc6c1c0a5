package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is one catalog entry.
type Record struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	EncryptedValue string `json:"encrypted_value"`
	Timestamp      int64  `json:"timestamp"` // seconds since epoch, display ordering only
}

// Payload field names. These are part of the stored format and must not change.
const (
	fieldName        = "name"
	fieldValue       = "value"
	fieldTimestamp   = "timestamp"
	fieldCategory    = "category"
	fieldDescription = "description"
)

// EncodeRecord produces the canonical payload for r. The id is not part of
// the payload; it is carried by RecordKey(r.ID).
func EncodeRecord(r Record) ([]byte, error) {
	obj := map[string]any{
		fieldName:        r.Name,
		fieldValue:       r.EncryptedValue,
		fieldTimestamp:   r.Timestamp,
		fieldCategory:    r.Category,
		fieldDescription: r.Description,
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return data, nil
}

// DecodeRecord parses the payload stored for id.
//
// name and value must be JSON strings and timestamp an integer. category and
// description may be absent and decode to "". Any other shape returns a
// *DecodeError.
func DecodeRecord(id string, data []byte) (Record, error) {
	key := RecordKey(id)
	if len(bytes.TrimSpace(data)) == 0 {
		return Record{}, &DecodeError{Key: key, Reason: "empty payload"}
	}

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: "malformed payload", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, &DecodeError{Key: key, Reason: "trailing data after payload"}
	}
	if raw == nil {
		return Record{}, &DecodeError{Key: key, Reason: "payload is null"}
	}

	rec := Record{ID: id}
	var err error
	if rec.Name, err = requiredString(raw, fieldName); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: err.Error()}
	}
	if rec.EncryptedValue, err = requiredString(raw, fieldValue); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: err.Error()}
	}
	if rec.Timestamp, err = requiredInt(raw, fieldTimestamp); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: err.Error()}
	}
	if rec.Category, err = optionalString(raw, fieldCategory); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: err.Error()}
	}
	if rec.Description, err = optionalString(raw, fieldDescription); err != nil {
		return Record{}, &DecodeError{Key: key, Reason: err.Error()}
	}
	return rec, nil
}

func requiredString(raw map[string]json.RawMessage, field string) (string, error) {
	msg, ok := raw[field]
	if !ok {
		return "", fmt.Errorf("missing field %q", field)
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", field)
	}
	return s, nil
}

func optionalString(raw map[string]json.RawMessage, field string) (string, error) {
	msg, ok := raw[field]
	if !ok || string(msg) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", field)
	}
	return s, nil
}

func requiredInt(raw map[string]json.RawMessage, field string) (int64, error) {
	msg, ok := raw[field]
	if !ok {
		return 0, fmt.Errorf("missing field %q", field)
	}
	var n json.Number
	if bytes.HasPrefix(msg, []byte(`"`)) {
		return 0, fmt.Errorf("field %q is not a number", field)
	}
	if err := json.Unmarshal(msg, &n); err != nil {
		return 0, fmt.Errorf("field %q is not a number", field)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("field %q is not an integer", field)
	}
	return v, nil
}
