package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// DefaultNetworkID is used by local backends when none is configured.
const DefaultNetworkID uint64 = 31337

var (
	// ErrUnavailable means the ledger reported itself not ready. No read or
	// write was attempted.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the owner declined to authorize a write.
	ErrRejected = errors.New("write rejected")
)

// Client is the minimal ledger contract used by the catalog.
type Client interface {
	// IsAvailable reports whether the ledger is ready. A transport failure is
	// returned as an error; a ledger that answers "not ready" returns false.
	IsAvailable(ctx context.Context) (bool, error)

	// GetBytes returns the value at key. An empty result means absent.
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBytes overwrites the value at key.
	SetBytes(ctx context.Context, key string, value []byte) error

	// SelfAddress is the ledger's own address, used in reveal challenges.
	SelfAddress(ctx context.Context) (string, error)

	// NetworkID identifies the network the ledger lives on.
	NetworkID(ctx context.Context) (uint64, error)
}

// IsUnavailable reports whether err is or wraps ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRejected reports whether err is or wraps ErrRejected.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// Info is the static identity of a local ledger.
type Info struct {
	Address   string
	NetworkID uint64
}

// NewAddress returns a random 20-byte hex address.
func NewAddress() (string, error) {
	var b [20]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate address: %w", err)
	}
	return "0x" + hex.EncodeToString(b[:]), nil
}

// ensureAvailable is shared by the local backends.
func ensureAvailable(ctx context.Context, c Client) error {
	ok, err := c.IsAvailable(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnavailable
	}
	return nil
}
