package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/wallet"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Yes        bool // approve writes and signatures without prompting

	// Test hooks. Nil values are built from the configuration.
	Ledger   ledger.Client
	Approver ledger.Approver
	Confirm  wallet.ConfirmFunc
	Now      func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the extkit CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, so
// callers can preset the test hooks.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extkit",
		Short: "extkit - sealed extension registry on a key-value ledger",
		Long: `Keep a small catalog of extensions in an authenticated key-value ledger.

Each extension carries one sealed numeric value. Listing never reveals it;
revealing requires signing a per-session challenge with the owner wallet.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default ./extkit.toml if present)")
	cmd.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "approve ledger writes and reveal signatures without prompting")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewRevealCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWalletCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))

	return cmd
}
