package reveal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/session"
	"github.com/roach88/extkit/internal/wallet"
)

const testAddress = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

func newSession(t *testing.T) *session.Session {
	t.Helper()
	c := ledger.NewMemory(ledger.WithInfo(ledger.Info{Address: testAddress, NetworkID: 31337}))
	s, err := session.Start(context.Background(), c, session.WithToken("0x1234abcd"))
	require.NoError(t, err)
	return s
}

func sealed(t *testing.T, id string, v float64) codec.Record {
	t.Helper()
	enc, err := cipher.Placeholder{}.Seal(v)
	require.NoError(t, err)
	return codec.Record{ID: id, Name: id, EncryptedValue: enc}
}

func newGate(t *testing.T, signer wallet.Signer) *Gate {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(newSession(t), signer, cipher.Placeholder{}, WithLogger(logger))
}

func testKey(t *testing.T) *wallet.Key {
	t.Helper()
	k, err := wallet.Generate()
	require.NoError(t, err)
	return k
}

// funcSigner signs through a function and cannot verify.
type funcSigner func(ctx context.Context, msg []byte) ([]byte, error)

func (f funcSigner) Address() string { return "0xsigner" }
func (f funcSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return f(ctx, msg)
}

// lyingSigner returns a signature that does not verify.
type lyingSigner struct{ *wallet.Key }

func (l lyingSigner) SignMessage(context.Context, []byte) ([]byte, error) {
	return make([]byte, 64), nil
}

func TestChallengeGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "challenge", []byte(ChallengeFor(newSession(t))))
}

func TestChallengeLayout(t *testing.T) {
	assert.Equal(t,
		"publickey:t\ncontractAddresses:a\ncontractsChainId:1",
		Challenge("t", "a", 1))
}

func TestRevealSuccess(t *testing.T) {
	k := testKey(t)
	var signed []byte
	signer := &wallet.ConfirmingSigner{
		Signer: k,
		Confirm: func(_ context.Context, msg string) (bool, error) {
			signed = []byte(msg)
			return true, nil
		},
	}
	g := newGate(t, signer)
	rec := sealed(t, "r1", 42)

	v, err := g.Reveal(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, Revealed, g.State())
	assert.Equal(t, ChallengeFor(g.session), string(signed))

	id, shown, ok := g.Value()
	assert.True(t, ok)
	assert.Equal(t, "r1", id)
	assert.Equal(t, 42.0, shown)
}

func TestOpenFromIdleNeverYieldsPlaintext(t *testing.T) {
	g := newGate(t, testKey(t))
	v, err := g.Open(sealed(t, "r1", 42))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, v)
	assert.Equal(t, Idle, g.State())

	_, _, ok := g.Value()
	assert.False(t, ok)
}

func TestOpenRequiresMatchingRecord(t *testing.T) {
	g := newGate(t, testKey(t))
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
	require.NoError(t, err)

	g.mu.Lock()
	g.state = Authorized
	g.mu.Unlock()

	_, err = g.Open(sealed(t, "other", 2))
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRevealDeclined(t *testing.T) {
	signer := &wallet.ConfirmingSigner{
		Signer:  testKey(t),
		Confirm: func(context.Context, string) (bool, error) { return false, nil },
	}
	g := newGate(t, signer)

	_, err := g.Reveal(context.Background(), sealed(t, "r1", 42))
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, wallet.ErrDeclined)
	assert.Equal(t, Denied, g.State())

	_, _, ok := g.Value()
	assert.False(t, ok)
}

func TestRevealSignerError(t *testing.T) {
	boom := errors.New("wallet locked")
	g := newGate(t, funcSigner(func(context.Context, []byte) ([]byte, error) { return nil, boom }))

	_, err := g.Reveal(context.Background(), sealed(t, "r1", 42))
	assert.ErrorIs(t, err, ErrDenied)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Denied, g.State())
}

func TestRevealBadSignature(t *testing.T) {
	g := newGate(t, lyingSigner{testKey(t)})
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 42))
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, Denied, g.State())
}

func TestRevealOwnerCheck(t *testing.T) {
	owner := testKey(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := New(newSession(t), testKey(t), cipher.Placeholder{}, WithLogger(logger), WithOwner(owner.PublicKey()))
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 42))
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, Denied, g.State())
	_, _, ok := g.Value()
	assert.False(t, ok)

	g = New(newSession(t), owner, cipher.Placeholder{}, WithLogger(logger), WithOwner(owner.PublicKey()))
	v, err := g.Reveal(context.Background(), sealed(t, "r1", 42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, Revealed, g.State())
}

func TestRevealAfterDenied(t *testing.T) {
	calls := 0
	g := newGate(t, funcSigner(func(context.Context, []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, wallet.ErrDeclined
		}
		return []byte("sig"), nil
	}))
	rec := sealed(t, "r1", 7)

	_, err := g.Reveal(context.Background(), rec)
	require.ErrorIs(t, err, ErrDenied)

	v, err := g.Reveal(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, 2, calls)
}

func TestRevealBusy(t *testing.T) {
	g := newGate(t, testKey(t))
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
	require.NoError(t, err)

	_, err = g.Reveal(context.Background(), sealed(t, "r2", 2))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, Revealed, g.State())
}

func TestHide(t *testing.T) {
	g := newGate(t, testKey(t))
	token := g.session.Token
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
	require.NoError(t, err)

	g.Hide()
	assert.Equal(t, Idle, g.State())
	_, _, ok := g.Value()
	assert.False(t, ok)
	assert.Equal(t, token, g.session.Token)

	v, err := g.Reveal(context.Background(), sealed(t, "r2", 2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestRevealMalformedValue(t *testing.T) {
	g := newGate(t, testKey(t))
	rec := codec.Record{ID: "r1", EncryptedValue: "FHE-%%%"}

	_, err := g.Reveal(context.Background(), rec)
	assert.True(t, cipher.IsFormatError(err))
	assert.Equal(t, Idle, g.State())
	_, _, ok := g.Value()
	assert.False(t, ok)
}

func blockingSigner(started chan<- struct{}) funcSigner {
	return func(ctx context.Context, _ []byte) ([]byte, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestRevealContextCanceled(t *testing.T) {
	started := make(chan struct{})
	g := newGate(t, blockingSigner(started))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := g.Reveal(ctx, sealed(t, "r1", 1))
		errc <- err
	}()

	<-started
	assert.Equal(t, Challenging, g.State())
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrCanceled)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not return")
	}
	assert.Equal(t, Idle, g.State())
}

func TestCancelPendingChallenge(t *testing.T) {
	started := make(chan struct{})
	g := newGate(t, blockingSigner(started))

	errc := make(chan error, 1)
	go func() {
		_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
		errc <- err
	}()

	<-started
	g.Cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrCanceled)
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not return")
	}
	assert.Equal(t, Idle, g.State())
}

func TestCancelDismissesDenial(t *testing.T) {
	g := newGate(t, funcSigner(func(context.Context, []byte) ([]byte, error) {
		return nil, wallet.ErrDeclined
	}))
	_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
	require.ErrorIs(t, err, ErrDenied)

	g.Cancel()
	assert.Equal(t, Idle, g.State())
}

func TestRevealEndedSession(t *testing.T) {
	g := newGate(t, testKey(t))
	g.session.End()

	_, err := g.Reveal(context.Background(), sealed(t, "r1", 1))
	assert.ErrorIs(t, err, session.ErrEnded)
	assert.Equal(t, Idle, g.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "revealed", Revealed.String())
	assert.Equal(t, "State(99)", State(99).String())
}
