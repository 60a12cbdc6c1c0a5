// Package registry manages the catalog index: the ordered list of record
// ids stored under a single reserved ledger key.
//
// The index is mutated by read-modify-write with no version check. Two
// appends that interleave between their read and their write can lose one
// id; the later write wins. Callers that need stronger guarantees must
// serialize appends themselves (the catalog does so within one process).
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/ledger"
)

// Manager reads and appends to the index.
type Manager struct {
	ledger ledger.Client
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New returns a Manager over c.
func New(c ledger.Client, opts ...Option) *Manager {
	m := &Manager{ledger: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) checkAvailable(ctx context.Context) error {
	ok, err := m.ledger.IsAvailable(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrUnavailable
	}
	return nil
}

func (m *Manager) read(ctx context.Context) ([]string, error) {
	data, err := m.ledger.GetBytes(ctx, codec.IndexKey)
	if err != nil {
		return nil, err
	}
	return codec.DecodeIndex(data)
}

// LoadIndex returns the current index. An uninitialized index is empty.
// A malformed index is logged and also treated as empty.
func (m *Manager) LoadIndex(ctx context.Context) ([]string, error) {
	if err := m.checkAvailable(ctx); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	ids, err := m.read(ctx)
	if err != nil {
		var de *codec.DecodeError
		if errors.As(err, &de) {
			m.logger.Warn("index is malformed, treating as empty", "key", codec.IndexKey, "error", err)
			return []string{}, nil
		}
		return nil, fmt.Errorf("load index: %w", err)
	}
	return ids, nil
}

// AppendID adds id to the end of the index unless it is already present.
// A malformed index is replaced by one holding only id. It makes a single
// attempt and returns the outcome of the write.
func (m *Manager) AppendID(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("append id: empty id")
	}
	if err := m.checkAvailable(ctx); err != nil {
		return fmt.Errorf("append id: %w", err)
	}

	ids, err := m.read(ctx)
	if err != nil {
		var de *codec.DecodeError
		if !errors.As(err, &de) {
			return fmt.Errorf("append id: %w", err)
		}
		m.logger.Warn("index is malformed, rebuilding from empty", "key", codec.IndexKey, "id", id, "error", err)
		ids = []string{}
	}
	if slices.Contains(ids, id) {
		m.logger.Debug("id already indexed", "id", id)
		return nil
	}

	data, err := codec.EncodeIndex(append(ids, id))
	if err != nil {
		return fmt.Errorf("append id: %w", err)
	}
	if err := m.ledger.SetBytes(ctx, codec.IndexKey, data); err != nil {
		return fmt.Errorf("append id %s: %w", id, err)
	}
	m.logger.Debug("index appended", "id", id, "size", len(ids)+1)
	return nil
}
