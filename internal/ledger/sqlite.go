package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Index on kv.seq for write-order scans
const currentSchemaVersion = 1

const (
	metaAddress   = "address"
	metaNetworkID = "network_id"
	metaAvailable = "available"
)

// SQLite is a ledger stored in a single SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// LocalOption configures the file-backed ledgers.
type LocalOption func(*localConfig)

type localConfig struct {
	info Info
	now  func() time.Time
}

// WithLocalInfo overrides the stored address or network id. Zero fields keep
// the stored values.
func WithLocalInfo(info Info) LocalOption {
	return func(c *localConfig) { c.info = info }
}

// WithNow sets the clock used for updated_at timestamps.
func WithNow(now func() time.Time) LocalOption {
	return func(c *localConfig) { c.now = now }
}

func newLocalConfig(opts []LocalOption) localConfig {
	cfg := localConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// OpenSQLite creates or opens a ledger database at path.
//
// The database runs in WAL mode with a single connection. The address is
// generated on first open and persisted.
func OpenSQLite(path string, opts ...LocalOption) (*SQLite, error) {
	cfg := newLocalConfig(opts)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := initMeta(db, cfg.info); err != nil {
		db.Close()
		return nil, fmt.Errorf("init meta: %w", err)
	}

	return &SQLite{db: db, now: cfg.now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_kv_seq ON kv(seq)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func initMeta(db *sql.DB, info Info) error {
	addr, err := NewAddress()
	if err != nil {
		return err
	}
	defaults := map[string]string{
		metaAddress:   addr,
		metaNetworkID: strconv.FormatUint(DefaultNetworkID, 10),
		metaAvailable: "1",
	}
	for k, v := range defaults {
		if _, err := db.Exec(`INSERT OR IGNORE INTO meta(key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}

	overrides := map[string]string{}
	if info.Address != "" {
		overrides[metaAddress] = info.Address
	}
	if info.NetworkID != 0 {
		overrides[metaNetworkID] = strconv.FormatUint(info.NetworkID, 10)
	}
	for k, v := range overrides {
		if _, err := db.Exec(`UPDATE meta SET value = ? WHERE key = ?`, v, k); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func (s *SQLite) meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return v, nil
}

// SetAvailable persists the readiness flag.
func (s *SQLite) SetAvailable(ctx context.Context, ok bool) error {
	v := "0"
	if ok {
		v = "1"
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE meta SET value = ? WHERE key = ?`, v, metaAvailable); err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	return nil
}

func (s *SQLite) IsAvailable(ctx context.Context) (bool, error) {
	v, err := s.meta(ctx, metaAvailable)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *SQLite) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := ensureAvailable(ctx, s); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if len(value) == 0 {
		return nil, nil
	}
	return value, nil
}

func (s *SQLite) SetBytes(ctx context.Context, key string, value []byte) error {
	if err := ensureAvailable(ctx, s); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value, seq, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv), ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			seq = excluded.seq,
			updated_at = excluded.updated_at
	`, key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) SelfAddress(ctx context.Context) (string, error) {
	return s.meta(ctx, metaAddress)
}

func (s *SQLite) NetworkID(ctx context.Context) (uint64, error) {
	v, err := s.meta(ctx, metaNetworkID)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse network id %q: %w", v, err)
	}
	return id, nil
}
