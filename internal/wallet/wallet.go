package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrDeclined is returned when the owner refuses a signature request.
var ErrDeclined = errors.New("signature request declined")

// Signer signs human-readable messages on behalf of the owner.
type Signer interface {
	// Address identifies the signing account.
	Address() string

	// SignMessage returns a signature over msg, or ErrDeclined if the owner
	// refused.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// Verifier is implemented by signers that can check their own signatures.
type Verifier interface {
	VerifyMessage(msg, sig []byte) bool
}

// PublicKey is an Ed25519 public key.
type PublicKey []byte

// ParsePublicKey decodes a hex-encoded public key.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("parse public key: want %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return PublicKey(raw), nil
}

// String returns the hex encoding of the key.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk)
}

// Equal compares two keys byte for byte.
func (pk PublicKey) Equal(other PublicKey) bool {
	return ed25519.PublicKey(pk).Equal(ed25519.PublicKey(other))
}

// Address derives the account address for the key.
func (pk PublicKey) Address() string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pk)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}

// Key is the owner's Ed25519 key pair.
type Key struct {
	priv ed25519.PrivateKey
}

// Generate creates a new random key.
func Generate() (*Key, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{priv: priv}, nil
}

// FromHex loads a key from a hex-encoded 32-byte seed or 64-byte private key.
func FromHex(s string) (*Key, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return &Key{priv: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		return &Key{priv: ed25519.PrivateKey(raw)}, nil
	default:
		return nil, fmt.Errorf("invalid key size %d", len(raw))
	}
}

// Load reads a key file written by Save.
func Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	k, err := FromHex(string(data))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", path, err)
	}
	return k, nil
}

// Save writes the key seed as hex, readable by the owner only.
func (k *Key) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	seed := hex.EncodeToString(k.priv.Seed())
	if err := os.WriteFile(path, []byte(seed+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// PublicKey returns the public half of the key.
func (k *Key) PublicKey() PublicKey {
	return PublicKey(k.priv.Public().(ed25519.PublicKey))
}

// Address returns the account address of the key.
func (k *Key) Address() string {
	return k.PublicKey().Address()
}

// SignMessage signs the prefixed hash of msg. It never declines.
func (k *Key) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ed25519.Sign(k.priv, messageHash(msg)), nil
}

// VerifyMessage checks a signature produced by SignMessage.
func (k *Key) VerifyMessage(msg, sig []byte) bool {
	return VerifyMessage(k.PublicKey(), msg, sig)
}

// SignDigest signs a precomputed digest as is.
func (k *Key) SignDigest(digest []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, digest), nil
}

// VerifyMessage checks a SignMessage signature against pub.
func VerifyMessage(pub PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), messageHash(msg), sig)
}

// VerifyDigest checks a SignDigest signature against pub.
func VerifyDigest(pub PublicKey, digest, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
}

// messageHash is Keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func messageHash(msg []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))))
	h.Write(msg)
	return h.Sum(nil)
}
