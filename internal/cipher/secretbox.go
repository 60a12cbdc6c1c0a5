package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// SecretboxName is the config name of the secretbox scheme.
const SecretboxName = "secretbox"

// SecretboxTag prefixes every value sealed by Secretbox.
const SecretboxTag = "SBX-"

const (
	secretboxKeySize   = 32
	secretboxNonceSize = 24
)

// Secretbox seals values with XSalsa20-Poly1305 under a symmetric key.
// Seal draws a fresh nonce per call, so it is not deterministic.
//
// Values sealed by Placeholder still open, so a catalog can switch schemes
// without losing its history.
type Secretbox struct {
	key [secretboxKeySize]byte
}

// NewSecretbox returns a Secretbox cipher for a 32-byte key.
func NewSecretbox(key []byte) (*Secretbox, error) {
	if len(key) != secretboxKeySize {
		return nil, fmt.Errorf("secretbox key must be %d bytes, got %d", secretboxKeySize, len(key))
	}
	s := &Secretbox{}
	copy(s.key[:], key)
	return s, nil
}

// GenerateSecretboxKey returns a new random key.
func GenerateSecretboxKey() ([]byte, error) {
	key := make([]byte, secretboxKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate secretbox key: %w", err)
	}
	return key, nil
}

func (s *Secretbox) Name() string { return SecretboxName }

func (s *Secretbox) Seal(x float64) (string, error) {
	plain, err := formatNumber(x)
	if err != nil {
		return "", err
	}

	var nonce [secretboxNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal: nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return SecretboxTag + base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *Secretbox) Open(sealed string) (float64, error) {
	if !strings.HasPrefix(sealed, SecretboxTag) {
		return Placeholder{}.Open(sealed)
	}

	box, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, SecretboxTag))
	if err != nil {
		return 0, &FormatError{Value: sealed, Reason: "corrupted encoding", Err: err}
	}
	if len(box) < secretboxNonceSize+secretbox.Overhead {
		return 0, &FormatError{Value: sealed, Reason: "sealed payload too short"}
	}

	var nonce [secretboxNonceSize]byte
	copy(nonce[:], box[:secretboxNonceSize])
	plain, ok := secretbox.Open(nil, box[secretboxNonceSize:], &nonce, &s.key)
	if !ok {
		return 0, &FormatError{Value: sealed, Reason: "authentication failed"}
	}

	x, err := parseNumber(string(plain))
	if err != nil {
		return 0, &FormatError{Value: sealed, Reason: "sealed payload is not a number", Err: err}
	}
	return x, nil
}
