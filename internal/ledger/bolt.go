package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketKV   = []byte("kv")
	bucketMeta = []byte("meta")
)

// Bolt is a ledger stored in a bbolt file.
type Bolt struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBolt creates or opens a bbolt ledger at path.
func OpenBolt(path string, opts ...LocalOption) (*Bolt, error) {
	cfg := newLocalConfig(opts)

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	addr, err := NewAddress()
	if err != nil {
		db.Close()
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKV); err != nil {
			return fmt.Errorf("create kv bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		defaults := map[string]string{
			metaAddress:   addr,
			metaNetworkID: strconv.FormatUint(DefaultNetworkID, 10),
			metaAvailable: "1",
		}
		for k, v := range defaults {
			if meta.Get([]byte(k)) == nil {
				if err := meta.Put([]byte(k), []byte(v)); err != nil {
					return err
				}
			}
		}
		if cfg.info.Address != "" {
			if err := meta.Put([]byte(metaAddress), []byte(cfg.info.Address)); err != nil {
				return err
			}
		}
		if cfg.info.NetworkID != 0 {
			id := strconv.FormatUint(cfg.info.NetworkID, 10)
			if err := meta.Put([]byte(metaNetworkID), []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt db: %w", err)
	}

	return &Bolt{db: db, now: cfg.now}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) meta(key string) (string, error) {
	var v string
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("meta %s missing", key)
		}
		v = string(raw)
		return nil
	})
	return v, err
}

// SetAvailable persists the readiness flag.
func (b *Bolt) SetAvailable(_ context.Context, ok bool) error {
	v := "0"
	if ok {
		v = "1"
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(metaAvailable), []byte(v))
	})
}

func (b *Bolt) IsAvailable(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := b.meta(metaAvailable)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// Stored values are an 8-byte unix timestamp followed by the payload.
func (b *Bolt) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := ensureAvailable(ctx, b); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketKV).Get([]byte(key))
		if len(raw) <= 8 {
			return nil
		}
		// bbolt values are only valid inside the transaction.
		out = make([]byte, len(raw)-8)
		copy(out, raw[8:])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out, nil
}

func (b *Bolt) SetBytes(ctx context.Context, key string, value []byte) error {
	if err := ensureAvailable(ctx, b); err != nil {
		return err
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, uint64(b.now().Unix()))
	copy(buf[8:], value)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), buf)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (b *Bolt) SelfAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.meta(metaAddress)
}

func (b *Bolt) NetworkID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := b.meta(metaNetworkID)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse network id %q: %w", v, err)
	}
	return id, nil
}
