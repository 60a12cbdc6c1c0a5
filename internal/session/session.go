// Package session holds the per-session values that bind reveal challenges
// to one ledger and one run of the tool.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/extkit/internal/ledger"
)

// TokenBytes is the amount of randomness in a session token. Encoded as
// hex it yields the 2000-digit token web clients expect.
const TokenBytes = 1000

// ErrEnded is returned when an ended session is used.
var ErrEnded = errors.New("session ended")

// Session is created once per run and discarded at the end. Its fields are
// fixed for the session lifetime.
type Session struct {
	ID          string
	Token       string
	SelfAddress string
	NetworkID   uint64
	StartedAt   time.Time

	ended atomic.Bool
}

// Option configures Start.
type Option func(*options)

type options struct {
	token string
	now   func() time.Time
}

// WithToken fixes the session token instead of generating one.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithNow sets the clock used for StartedAt.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Start reads the ledger identity and creates a new session.
func Start(ctx context.Context, c ledger.Client, opts ...Option) (*Session, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	addr, err := c.SelfAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("start session: ledger address: %w", err)
	}
	network, err := c.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("start session: network id: %w", err)
	}

	token := o.token
	if token == "" {
		token, err = NewToken()
		if err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
	}

	return &Session{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Token:       token,
		SelfAddress: addr,
		NetworkID:   network,
		StartedAt:   o.now(),
	}, nil
}

// NewToken returns a fresh random session token.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// End marks the session as finished. It is safe to call more than once.
func (s *Session) End() {
	s.ended.Store(true)
}

// Ended reports whether End was called.
func (s *Session) Ended() bool {
	return s.ended.Load()
}

// Check returns ErrEnded for an ended session.
func (s *Session) Check() error {
	if s.Ended() {
		return ErrEnded
	}
	return nil
}
