package ledger

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process ledger.
type Memory struct {
	mu        sync.RWMutex
	data      map[string][]byte
	available bool
	info      Info
	writes    int
}

// MemoryOption configures a Memory ledger.
type MemoryOption func(*Memory)

// WithInfo sets the address and network id reported by the ledger.
func WithInfo(info Info) MemoryOption {
	return func(m *Memory) {
		if info.Address != "" {
			m.info.Address = info.Address
		}
		if info.NetworkID != 0 {
			m.info.NetworkID = info.NetworkID
		}
	}
}

// NewMemory returns an empty, available ledger.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data:      make(map[string][]byte),
		available: true,
		info: Info{
			Address:   "0x0000000000000000000000000000000000000001",
			NetworkID: DefaultNetworkID,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAvailable toggles the readiness flag.
func (m *Memory) SetAvailable(ok bool) {
	m.mu.Lock()
	m.available = ok
	m.mu.Unlock()
}

func (m *Memory) IsAvailable(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available, nil
}

func (m *Memory) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := ensureAvailable(ctx, m); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := m.data[key]
	if len(v) == 0 {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) SetBytes(ctx context.Context, key string, value []byte) error {
	if err := ensureAvailable(ctx, m); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	m.writes++
	return nil
}

func (m *Memory) SelfAddress(ctx context.Context) (string, error) {
	return m.info.Address, ctx.Err()
}

func (m *Memory) NetworkID(ctx context.Context) (uint64, error) {
	return m.info.NetworkID, ctx.Err()
}

// Keys returns every stored key in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes returns how many successful SetBytes calls were made.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
