package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/extkit/internal/ledger"
)

func TestStart(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := ledger.NewMemory(ledger.WithInfo(ledger.Info{Address: "0xabc", NetworkID: 8009}))

	s, err := Start(context.Background(), c, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, "0xabc", s.SelfAddress)
	assert.Equal(t, uint64(8009), s.NetworkID)
	assert.Equal(t, now, s.StartedAt)
	assert.True(t, strings.HasPrefix(s.Token, "0x"))
	assert.Len(t, s.Token, 2+2*TokenBytes)

	id, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestStartTokensDiffer(t *testing.T) {
	c := ledger.NewMemory()
	a, err := Start(context.Background(), c)
	require.NoError(t, err)
	b, err := Start(context.Background(), c)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStartFixedToken(t *testing.T) {
	s, err := Start(context.Background(), ledger.NewMemory(), WithToken("0xfeed"))
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", s.Token)
}

func TestStartCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Start(ctx, ledger.NewMemory())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnd(t *testing.T) {
	s, err := Start(context.Background(), ledger.NewMemory())
	require.NoError(t, err)
	require.NoError(t, s.Check())

	s.End()
	s.End()
	assert.True(t, s.Ended())
	assert.ErrorIs(t, s.Check(), ErrEnded)
}
