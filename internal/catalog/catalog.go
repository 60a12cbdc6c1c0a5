package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/registry"
)

// DefaultFetchConcurrency bounds concurrent payload reads in LoadAll.
const DefaultFetchConcurrency = 8

// Catalog is the sync orchestrator for one ledger.
type Catalog struct {
	ledger    ledger.Client
	registry  *registry.Manager
	cipher    cipher.Cipher
	committer Committer
	ids       IDGenerator
	now       func() time.Time
	logger    *slog.Logger
	fetchN    int

	// submit holds one token while a submission is in flight.
	submit chan struct{}

	mu       sync.RWMutex
	cache    []codec.Record
	loadedAt time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithNow sets the clock used for record timestamps and ids.
func WithNow(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithIDGenerator replaces the default id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Catalog) { c.ids = g }
}

// WithFetchConcurrency bounds concurrent payload reads. Values below one
// mean one.
func WithFetchConcurrency(n int) Option {
	return func(c *Catalog) { c.fetchN = max(n, 1) }
}

// WithCommitter replaces the ledger committer.
func WithCommitter(cm Committer) Option {
	return func(c *Catalog) { c.committer = cm }
}

// New returns a catalog over l that seals values with ci.
func New(l ledger.Client, ci cipher.Cipher, opts ...Option) *Catalog {
	c := &Catalog{
		ledger: l,
		cipher: ci,
		now:    time.Now,
		logger: slog.Default(),
		fetchN: DefaultFetchConcurrency,
		submit: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = registry.New(l, registry.WithLogger(c.logger))
	if c.committer == nil {
		c.committer = LedgerCommitter{Ledger: l, Registry: c.registry}
	}
	if c.ids == nil {
		c.ids = TimeIDGenerator{Now: c.now}
	}
	return c
}

// Registry returns the index manager used by the catalog.
func (c *Catalog) Registry() *registry.Manager {
	return c.registry
}

// CheckAvailability reports whether the ledger is ready.
func (c *Catalog) CheckAvailability(ctx context.Context) (bool, error) {
	ok, err := c.ledger.IsAvailable(ctx)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return ok, nil
}

// LoadAll reads every indexed record, newest first. Records that cannot be
// fetched or decoded are skipped. On success the cache is replaced; on
// failure it is left untouched.
func (c *Catalog) LoadAll(ctx context.Context) ([]codec.Record, error) {
	ids, err := c.registry.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	ids = dedupe(ids)
	slots := make([]*codec.Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchN)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := c.fetch(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("skipping record", "id", id, "error", err)
				return nil
			}
			slots[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	records := make([]codec.Record, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	SortNewestFirst(records)

	c.mu.Lock()
	c.cache = records
	c.loadedAt = c.now()
	c.mu.Unlock()

	c.logger.Debug("catalog loaded", "indexed", len(ids), "loaded", len(records))
	return Clone(records), nil
}

var errMissingPayload = errors.New("payload missing")

func (c *Catalog) fetch(ctx context.Context, id string) (codec.Record, error) {
	data, err := c.ledger.GetBytes(ctx, codec.RecordKey(id))
	if err != nil {
		return codec.Record{}, err
	}
	if len(data) == 0 {
		return codec.Record{}, errMissingPayload
	}
	return codec.DecodeRecord(id, data)
}

// Cached returns the records from the last successful load and when it
// happened. The zero time means nothing was loaded yet.
func (c *Catalog) Cached() ([]codec.Record, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Clone(c.cache), c.loadedAt
}

// Submit creates a record from d and commits it to the ledger. Only one
// submission runs at a time; waiting for the previous one honors ctx.
//
// The cache is not updated; call LoadAll to see the new record.
func (c *Catalog) Submit(ctx context.Context, d Draft) (codec.Record, error) {
	select {
	case c.submit <- struct{}{}:
	case <-ctx.Done():
		return codec.Record{}, ctx.Err()
	}
	defer func() { <-c.submit }()

	d = d.Normalize()
	if err := ValidateDraft(d); err != nil {
		return codec.Record{}, &SubmitError{Stage: StageValidate, Err: err}
	}

	id := c.ids.NewID()
	sealed, err := c.cipher.Seal(d.Value)
	if err != nil {
		return codec.Record{}, &SubmitError{Stage: StageSeal, ID: id, Err: err}
	}

	rec := codec.Record{
		ID:             id,
		Name:           d.Name,
		Category:       d.Category,
		Description:    d.Description,
		EncryptedValue: sealed,
		Timestamp:      c.now().Unix(),
	}
	payload, err := codec.EncodeRecord(rec)
	if err != nil {
		return codec.Record{}, &SubmitError{Stage: StageEncode, ID: id, Err: err}
	}

	c.logger.Debug("committing record", "id", id, "digest", codec.PayloadDigest(payload), "cipher", c.cipher.Name())
	if err := c.committer.Commit(ctx, id, payload); err != nil {
		var se *SubmitError
		if !errors.As(err, &se) {
			err = &SubmitError{Stage: StagePayload, ID: id, Err: err}
		}
		c.logger.Warn("submission failed", "id", id, "error", err)
		return codec.Record{}, err
	}

	c.logger.Info("record submitted", "id", id, "name", rec.Name)
	return rec, nil
}

// SortNewestFirst orders records by timestamp, newest first. Records with
// equal timestamps keep their relative order.
func SortNewestFirst(records []codec.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}

// Clone returns a copy of records. A nil input yields an empty slice.
func Clone(records []codec.Record) []codec.Record {
	out := make([]codec.Record, len(records))
	copy(out, records)
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
