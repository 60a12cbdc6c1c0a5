package cipher

import (
	"encoding/base64"
	"strings"
)

// PlaceholderName is the config name of the placeholder scheme.
const PlaceholderName = "placeholder"

// PlaceholderTag prefixes every value sealed by Placeholder.
const PlaceholderTag = "FHE-"

// Placeholder stands in for a homomorphic scheme: it base64-encodes the
// decimal form of the value behind a tag. It provides NO confidentiality.
//
// Seal is deterministic. Open accepts untagged legacy values by parsing
// them as plain numbers.
type Placeholder struct{}

func (Placeholder) Name() string { return PlaceholderName }

func (Placeholder) Seal(x float64) (string, error) {
	s, err := formatNumber(x)
	if err != nil {
		return "", err
	}
	return PlaceholderTag + base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func (Placeholder) Open(sealed string) (float64, error) {
	if !strings.HasPrefix(sealed, PlaceholderTag) {
		x, err := parseNumber(sealed)
		if err != nil {
			return 0, &FormatError{Value: sealed, Reason: "untagged value is not a number", Err: err}
		}
		return x, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, PlaceholderTag))
	if err != nil {
		return 0, &FormatError{Value: sealed, Reason: "corrupted encoding", Err: err}
	}
	x, err := parseNumber(string(raw))
	if err != nil {
		return 0, &FormatError{Value: sealed, Reason: "sealed payload is not a number", Err: err}
	}
	return x, nil
}
