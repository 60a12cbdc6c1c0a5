// Package config loads extkit settings from a TOML file.
//
// Defaults are applied first, then the file, then command-line flags (by
// the caller). Unknown keys in the file are an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when no --config path is given and it exists.
const DefaultFile = "extkit.toml"

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendHTTP   = "http"
)

var (
	validBackends = []string{BackendMemory, BackendSQLite, BackendBolt, BackendHTTP}
	validCiphers  = []string{"placeholder", "secretbox"}
	validLevels   = []string{"debug", "info", "warn", "error"}
)

// Config is the full configuration.
type Config struct {
	Ledger  LedgerConfig  `toml:"ledger"`
	Wallet  WalletConfig  `toml:"wallet"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

type LedgerConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	URL       string `toml:"url"`
	NetworkID uint64 `toml:"network_id"`
}

type WalletConfig struct {
	KeyFile string `toml:"key_file"`
}

type CatalogConfig struct {
	Cipher           string `toml:"cipher"`
	SecretboxKeyFile string `toml:"secretbox_key_file"`
	FetchConcurrency int    `toml:"fetch_concurrency"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ServerConfig applies to `extkit serve`. Owner is the hex public key
// allowed to write; empty means the local wallet.
type ServerConfig struct {
	Listen string `toml:"listen"`
	Owner  string `toml:"owner"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Backend: BackendSQLite,
			Path:    "extkit.db",
		},
		Wallet: WalletConfig{
			KeyFile: filepath.Join(defaultConfigDir(), "wallet.key"),
		},
		Catalog: CatalogConfig{
			Cipher:           "placeholder",
			FetchConcurrency: 8,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8545",
		},
	}
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".extkit"
	}
	return filepath.Join(dir, "extkit")
}

// Load reads path over the defaults. An empty path loads DefaultFile if it
// exists and the defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return cfg, cfg.Validate()
		}
		path = DefaultFile
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validBackends, c.Ledger.Backend) {
		errs = append(errs, fmt.Errorf("ledger.backend %q: must be one of %v", c.Ledger.Backend, validBackends))
	}
	switch c.Ledger.Backend {
	case BackendSQLite, BackendBolt:
		if c.Ledger.Path == "" {
			errs = append(errs, fmt.Errorf("ledger.path is required for backend %q", c.Ledger.Backend))
		}
	case BackendHTTP:
		if c.Ledger.URL == "" {
			errs = append(errs, errors.New("ledger.url is required for backend \"http\""))
		}
	}
	if !slices.Contains(validCiphers, c.Catalog.Cipher) {
		errs = append(errs, fmt.Errorf("catalog.cipher %q: must be one of %v", c.Catalog.Cipher, validCiphers))
	}
	if c.Catalog.Cipher == "secretbox" && c.Catalog.SecretboxKeyFile == "" {
		errs = append(errs, errors.New("catalog.secretbox_key_file is required for cipher \"secretbox\""))
	}
	if c.Catalog.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("catalog.fetch_concurrency must be at least 1, got %d", c.Catalog.FetchConcurrency))
	}
	if !slices.Contains(validLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q: must be one of %v", c.Log.Level, validLevels))
	}
	return errors.Join(errs...)
}

func (c *Config) expandPaths() {
	c.Ledger.Path = ExpandHome(c.Ledger.Path)
	c.Wallet.KeyFile = ExpandHome(c.Wallet.KeyFile)
	c.Catalog.SecretboxKeyFile = ExpandHome(c.Catalog.SecretboxKeyFile)
	c.Log.File = ExpandHome(c.Log.File)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
