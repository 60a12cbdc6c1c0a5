package cipher

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cipher transforms a numeric value into an opaque string and back.
type Cipher interface {
	// Seal returns the opaque form of x. x must be finite.
	Seal(x float64) (string, error)

	// Open reverses Seal. It returns a *FormatError when the sealed form
	// cannot be reversed.
	Open(sealed string) (float64, error)

	// Name identifies the scheme in config and logs.
	Name() string
}

// ErrNonFinite is returned by Seal for NaN and infinities.
var ErrNonFinite = errors.New("value must be a finite number")

// FormatError reports a sealed value that could not be reversed.
type FormatError struct {
	Value  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	v := e.Value
	if len(v) > 24 {
		v = v[:24] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("open %q: %s: %v", v, e.Reason, e.Err)
	}
	return fmt.Sprintf("open %q: %s", v, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// New returns the cipher registered under name. key is only used by
// schemes that need one.
func New(name string, key []byte) (Cipher, error) {
	switch name {
	case "", PlaceholderName:
		return Placeholder{}, nil
	case SecretboxName:
		return NewSecretbox(key)
	default:
		return nil, fmt.Errorf("unknown cipher %q", name)
	}
}

// formatNumber renders x in the shortest form that parses back to x.
func formatNumber(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", ErrNonFinite
	}
	return strconv.FormatFloat(x, 'g', -1, 64), nil
}

// parseNumber is the direct numeric parse used for untagged legacy values.
func parseNumber(s string) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, ErrNonFinite
	}
	return x, nil
}
