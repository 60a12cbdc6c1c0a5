package codec

import (
	"errors"
	"fmt"
)

// DecodeError reports a stored payload that could not be decoded, such as a
// truncated write left behind by an earlier crash. It is always local to one
// item.
type DecodeError struct {
	// Key is the ledger key the payload was read from.
	Key string

	// Reason describes what was wrong with the payload.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Key, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
