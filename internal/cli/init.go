package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Backend   string
	Secretbox bool
	Force     bool
}

// InitResult is the output of the init command.
type InitResult struct {
	ConfigFile       string `json:"config_file"`
	Backend          string `json:"backend"`
	Cipher           string `json:"cipher"`
	SecretboxKeyFile string `json:"secretbox_key_file,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a config file with defaults to --config (or ./extkit.toml).

With --secretbox a random 32-byte key is generated next to the config and
the catalog switches from the placeholder cipher to secretbox.

Example:
  extkit init --backend bolt
  extkit init --secretbox --config ~/.config/extkit/extkit.toml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", config.BackendSQLite, "ledger backend (memory|sqlite|bolt|http)")
	cmd.Flags().BoolVar(&opts.Secretbox, "secretbox", false, "generate a secretbox key and use it")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultFile
	}
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return out.Fail("refusing to overwrite config", configError(fmt.Errorf("%s exists (use --force)", path)))
	}

	cfg := config.Default()
	cfg.Ledger.Backend = opts.Backend
	switch opts.Backend {
	case config.BackendBolt:
		cfg.Ledger.Path = "extkit.bolt"
	case config.BackendHTTP:
		cfg.Ledger.URL = "http://" + cfg.Server.Listen
	}

	result := InitResult{ConfigFile: path, Backend: cfg.Ledger.Backend}
	if opts.Secretbox {
		key, err := cipher.GenerateSecretboxKey()
		if err != nil {
			return out.Fail("failed to generate key", err)
		}
		keyPath := filepath.Join(filepath.Dir(path), "extkit.secretbox.key")
		if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
			return out.Fail("failed to create key dir", err)
		}
		if err := writeHexFile(keyPath, key); err != nil {
			return out.Fail("failed to write key", err)
		}
		cfg.Catalog.Cipher = cipher.SecretboxName
		cfg.Catalog.SecretboxKeyFile = keyPath
		result.SecretboxKeyFile = keyPath
	}
	result.Cipher = cfg.Catalog.Cipher

	if err := cfg.Validate(); err != nil {
		return out.Fail("invalid config", configError(err))
	}
	if err := config.Save(path, cfg); err != nil {
		return out.Fail("failed to write config", err)
	}

	return out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s Wrote %s\n", color.GreenString("✓"), color.YellowString(path))
		fmt.Fprintf(w, "%s Backend: %s, cipher: %s\n", color.CyanString("→"), result.Backend, result.Cipher)
		if result.SecretboxKeyFile != "" {
			fmt.Fprintf(w, "%s Secretbox key: %s (keep it safe; sealed values cannot be opened without it)\n",
				color.CyanString("→"), result.SecretboxKeyFile)
		}
	})
}
