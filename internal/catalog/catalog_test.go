package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/testutil"
)

var epoch = time.Unix(1700000000, 0)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCatalog(t *testing.T, l ledger.Client, opts ...Option) *Catalog {
	t.Helper()
	clock := testutil.NewDeterministicClock(epoch, time.Second)
	base := []Option{
		WithLogger(quietLogger()),
		WithNow(clock.Now),
		WithIDGenerator(testutil.NewSequenceIDGenerator("rec")),
	}
	return New(l, cipher.Placeholder{}, append(base, opts...)...)
}

// seed writes a record and indexes it, bypassing Submit.
func seed(t *testing.T, l ledger.Client, rec codec.Record) {
	t.Helper()
	ctx := context.Background()
	payload, err := codec.EncodeRecord(rec)
	require.NoError(t, err)
	require.NoError(t, l.SetBytes(ctx, codec.RecordKey(rec.ID), payload))
	appendRaw(t, l, rec.ID)
}

func appendRaw(t *testing.T, l ledger.Client, id string) {
	t.Helper()
	ctx := context.Background()
	raw, err := l.GetBytes(ctx, codec.IndexKey)
	require.NoError(t, err)
	ids, err := codec.DecodeIndex(raw)
	require.NoError(t, err)
	data, err := codec.EncodeIndex(append(ids, id))
	require.NoError(t, err)
	require.NoError(t, l.SetBytes(ctx, codec.IndexKey, data))
}

func rec(id string, ts int64) codec.Record {
	return codec.Record{ID: id, Name: id, Category: "Tools", EncryptedValue: "FHE-MQ==", Timestamp: ts}
}

func ids(records []codec.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestLoadAllEmptyIndex(t *testing.T) {
	c := newCatalog(t, ledger.NewMemory())
	records, err := c.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, loadedAt := c.Cached()
	assert.False(t, loadedAt.IsZero())
}

func TestLoadAllSortsNewestFirst(t *testing.T) {
	l := ledger.NewMemory()
	seed(t, l, rec("a", 10))
	seed(t, l, rec("b", 30))
	seed(t, l, rec("c", 20))

	records, err := newCatalog(t, l).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(records))
}

func TestLoadAllStableForEqualTimestamps(t *testing.T) {
	l := ledger.NewMemory()
	seed(t, l, rec("a", 5))
	seed(t, l, rec("b", 9))
	seed(t, l, rec("c", 5))
	seed(t, l, rec("d", 5))

	records, err := newCatalog(t, l, WithFetchConcurrency(4)).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(records))
}

func TestLoadAllSkipsBadRecords(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory()
	seed(t, l, rec("good1", 1))
	seed(t, l, rec("good2", 2))

	require.NoError(t, l.SetBytes(ctx, codec.RecordKey("corrupt"), []byte(`{"name":`)))
	appendRaw(t, l, "corrupt")
	appendRaw(t, l, "missing")

	records, err := newCatalog(t, l).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"good2", "good1"}, ids(records))
}

func TestLoadAllOneMissingOfN(t *testing.T) {
	l := ledger.NewMemory()
	for i, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		seed(t, l, rec(id, int64(i)))
	}
	appendRaw(t, l, "ghost")

	records, err := newCatalog(t, l).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestLoadAllDeduplicatesIndex(t *testing.T) {
	l := ledger.NewMemory()
	seed(t, l, rec("a", 1))
	appendRaw(t, l, "a")

	records, err := newCatalog(t, l).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(records))
}

func TestLoadAllUnavailableKeepsCache(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory()
	seed(t, l, rec("a", 1))
	c := newCatalog(t, l)

	_, err := c.LoadAll(ctx)
	require.NoError(t, err)
	before, at := c.Cached()

	l.SetAvailable(false)
	_, err = c.LoadAll(ctx)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	after, at2 := c.Cached()
	assert.Equal(t, before, after)
	assert.Equal(t, at, at2)
}

func TestLoadAllCanceled(t *testing.T) {
	l := ledger.NewMemory()
	seed(t, l, rec("a", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newCatalog(t, l).LoadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedIsACopy(t *testing.T) {
	l := ledger.NewMemory()
	seed(t, l, rec("a", 1))
	c := newCatalog(t, l)
	_, err := c.LoadAll(context.Background())
	require.NoError(t, err)

	got, _ := c.Cached()
	got[0].Name = "changed"
	again, _ := c.Cached()
	assert.Equal(t, "a", again[0].Name)
}

func TestSubmitThenLoad(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory()
	c := newCatalog(t, l)

	created, err := c.Submit(ctx, Draft{Name: "Pay", Category: "Payment", Description: "d", Value: 42})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", created.ID)
	assert.Equal(t, epoch.Unix(), created.Timestamp)

	records, err := c.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created, records[0])

	v, err := cipher.Placeholder{}.Open(records[0].EncryptedValue)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	assert.Equal(t, []string{codec.IndexKey, codec.RecordKey("rec-1")}, l.Keys())
}

func TestSubmitRecoversFromMalformedIndex(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemory()
	require.NoError(t, l.SetBytes(ctx, codec.IndexKey, []byte(`["a","b`)))
	c := newCatalog(t, l)

	for _, name := range []string{"One", "Two", "Three"} {
		_, err := c.Submit(ctx, Draft{Name: name, Category: "Tools", Value: 1})
		require.NoError(t, err)
	}

	records, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-3", "rec-2", "rec-1"}, ids(records))
}

func TestSubmitNormalizesDraft(t *testing.T) {
	c := newCatalog(t, ledger.NewMemory())
	created, err := c.Submit(context.Background(), Draft{Name: "  cafe\u0301 ", Category: "Tools", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", created.Name)
}

func TestSubmitInvalidDraft(t *testing.T) {
	l := ledger.NewMemory()
	c := newCatalog(t, l)

	_, err := c.Submit(context.Background(), Draft{Name: "", Category: "Tools"})
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.ErrorIs(t, err, ErrInvalidDraft)
	assert.Zero(t, l.Writes())
}

func TestSubmitRejectedLeavesIndexAlone(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	l := ledger.Authorize(mem, ledger.ApproverFunc(func(context.Context, ledger.WriteRequest) error {
		return errors.New("user rejected transaction")
	}))
	c := newCatalog(t, l)

	_, err := c.Submit(ctx, Draft{Name: "A", Category: "Tools", Value: 1})
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePayload, se.Stage)
	assert.False(t, se.Orphaned)
	assert.ErrorIs(t, err, ledger.ErrRejected)
	assert.Equal(t, "transaction rejected by user", se.Message())
	assert.Empty(t, mem.Keys())
}

// indexRejecting refuses writes to the index key only.
type indexRejecting struct{ ledger.Client }

func (l indexRejecting) SetBytes(ctx context.Context, key string, value []byte) error {
	if key == codec.IndexKey {
		return ledger.ErrRejected
	}
	return l.Client.SetBytes(ctx, key, value)
}

func TestSubmitIndexFailureOrphansPayload(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	c := newCatalog(t, indexRejecting{mem})

	_, err := c.Submit(ctx, Draft{Name: "A", Category: "Tools", Value: 1})
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageIndex, se.Stage)
	assert.True(t, se.Orphaned)
	assert.Equal(t, "rec-1", se.ID)
	assert.Contains(t, se.Error(), "not indexed")

	assert.Equal(t, []string{codec.RecordKey("rec-1")}, mem.Keys())

	records, err := newCatalog(t, mem).LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSubmitUnavailable(t *testing.T) {
	l := ledger.NewMemory()
	l.SetAvailable(false)
	c := newCatalog(t, l)

	_, err := c.Submit(context.Background(), Draft{Name: "A", Category: "Tools", Value: 1})
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.True(t, IsSubmitError(err))
}

type blockingCommitter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCommitter) Commit(ctx context.Context, _ string, _ []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestSubmitSerialized(t *testing.T) {
	bc := &blockingCommitter{entered: make(chan struct{}, 2), release: make(chan struct{})}
	c := newCatalog(t, ledger.NewMemory(), WithCommitter(bc))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), Draft{Name: "A", Category: "Tools", Value: 1})
		done <- err
	}()
	<-bc.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Submit(ctx, Draft{Name: "B", Category: "Tools", Value: 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, bc.entered, 0, "second submission must not reach the committer")

	close(bc.release)
	require.NoError(t, <-done)

	_, err = c.Submit(context.Background(), Draft{Name: "C", Category: "Tools", Value: 3})
	require.NoError(t, err)
}

func TestCheckAvailability(t *testing.T) {
	l := ledger.NewMemory()
	c := newCatalog(t, l)

	ok, err := c.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	l.SetAvailable(false)
	ok, err = c.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimeIDGenerator(t *testing.T) {
	g := TimeIDGenerator{Now: func() time.Time { return epoch }}
	a := g.NewID()
	assert.Regexp(t, `^1700000000000-[0-9a-z]{7}$`, a)
	assert.NotEqual(t, a, g.NewID())
}

func TestRandomBase36Uniform(t *testing.T) {
	const perChar = 10000
	counts := make(map[rune]int)
	for _, r := range randomBase36(perChar * len(base36)) {
		counts[r]++
	}

	require.Len(t, counts, len(base36))
	for r, n := range counts {
		assert.InDelta(t, perChar, n, 500, "character %q", r)
	}
}
