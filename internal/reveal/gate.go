package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/session"
	"github.com/roach88/extkit/internal/wallet"
)

// State is a gate state.
type State int

const (
	Idle State = iota
	Challenging
	Authorized
	Revealed
	Denied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Challenging:
		return "challenging"
	case Authorized:
		return "authorized"
	case Revealed:
		return "revealed"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrDenied means the challenge was declined, failed, or did not verify.
	ErrDenied = errors.New("reveal denied")

	// ErrNotAuthorized means Open was called without a matching authorization.
	ErrNotAuthorized = errors.New("reveal not authorized")

	// ErrBusy means a reveal is already under way or a value is shown.
	ErrBusy = errors.New("reveal in progress")

	// ErrCanceled means the challenge was abandoned before authorization.
	ErrCanceled = errors.New("reveal canceled")
)

// Gate is the reveal state machine for one session.
type Gate struct {
	session *session.Session
	signer  wallet.Signer
	cipher  cipher.Cipher
	owner   wallet.PublicKey
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	recordID string
	value    float64
	gen      uint64
	cancel   context.CancelFunc
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithOwner requires every challenge signature to verify against owner,
// whatever the signer itself reports.
func WithOwner(owner wallet.PublicKey) Option {
	return func(g *Gate) { g.owner = owner }
}

// New returns an idle gate.
func New(s *session.Session, signer wallet.Signer, c cipher.Cipher, opts ...Option) *Gate {
	g := &Gate{session: s, signer: signer, cipher: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Value returns the revealed plaintext. ok is false unless the gate is
// Revealed.
func (g *Gate) Value() (recordID string, v float64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Revealed {
		return "", 0, false
	}
	return g.recordID, g.value, true
}

// Reveal asks the owner to sign the session challenge and, once
// authorized, opens rec's value. It is allowed from Idle and Denied.
//
// A declined or failed signature leaves the gate Denied. Cancellation of
// ctx, or a call to Cancel, while the challenge is pending leaves it Idle.
func (g *Gate) Reveal(ctx context.Context, rec codec.Record) (float64, error) {
	if err := g.session.Check(); err != nil {
		return 0, err
	}

	g.mu.Lock()
	if g.state != Idle && g.state != Denied {
		st := g.state
		g.mu.Unlock()
		return 0, fmt.Errorf("%w: gate is %s", ErrBusy, st)
	}
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.gen++
	gen := g.gen
	g.state = Challenging
	g.recordID = rec.ID
	g.cancel = cancel
	g.mu.Unlock()

	msg := []byte(ChallengeFor(g.session))
	g.logger.Debug("requesting reveal signature", "record", rec.ID, "session", g.session.ID)
	sig, signErr := g.signer.SignMessage(cctx, msg)

	g.mu.Lock()
	if g.gen != gen {
		// Cancel or Hide already moved the gate on.
		g.mu.Unlock()
		return 0, ErrCanceled
	}
	g.cancel = nil

	if signErr != nil {
		if ctx.Err() != nil {
			g.reset()
			g.mu.Unlock()
			return 0, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		g.state = Denied
		g.mu.Unlock()
		g.logger.Info("reveal denied", "record", rec.ID, "error", signErr)
		return 0, fmt.Errorf("%w: %w", ErrDenied, signErr)
	}

	if ok, supported := wallet.Verify(g.signer, msg, sig); supported && !ok {
		g.state = Denied
		g.mu.Unlock()
		g.logger.Warn("reveal signature did not verify", "record", rec.ID)
		return 0, fmt.Errorf("%w: signature does not verify", ErrDenied)
	}

	if g.owner != nil && !wallet.VerifyMessage(g.owner, msg, sig) {
		g.state = Denied
		g.mu.Unlock()
		g.logger.Warn("reveal signature is not from the owner", "record", rec.ID, "owner", g.owner.Address())
		return 0, fmt.Errorf("%w: signer is not the owner", ErrDenied)
	}

	g.state = Authorized
	g.mu.Unlock()

	return g.Open(rec)
}

// Open decodes rec's value. It succeeds only when the gate is Authorized
// for rec.ID. A malformed value returns the gate to Idle.
func (g *Gate) Open(rec codec.Record) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Authorized || g.recordID != rec.ID {
		return 0, ErrNotAuthorized
	}

	v, err := g.cipher.Open(rec.EncryptedValue)
	if err != nil {
		g.reset()
		return 0, fmt.Errorf("open %s: %w", rec.ID, err)
	}
	g.state = Revealed
	g.value = v
	return v, nil
}

// Hide discards any plaintext and returns to Idle. The session token is
// kept, so the next reveal signs the same challenge.
func (g *Gate) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	g.reset()
}

// Cancel abandons a pending challenge, or dismisses a denial. It has no
// effect in other states.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case Challenging:
		if g.cancel != nil {
			g.cancel()
		}
		g.gen++
		g.reset()
	case Denied:
		g.reset()
	}
}

// reset must be called with mu held.
func (g *Gate) reset() {
	g.state = Idle
	g.recordID = ""
	g.value = 0
	g.cancel = nil
}
