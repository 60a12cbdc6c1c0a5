package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/wallet"
)

// WalletInfo is the output of the wallet commands.
type WalletInfo struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	KeyFile   string `json:"key_file"`
}

// NewWalletCommand creates the wallet command group.
func NewWalletCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the owner wallet",
	}
	cmd.AddCommand(newWalletInitCommand(rootOpts))
	cmd.AddCommand(newWalletAddressCommand(rootOpts))
	return cmd
}

func newWalletInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new owner key",
		Long: `Generate a new Ed25519 owner key at wallet.key_file.

Example:
  extkit wallet init
  extkit wallet init --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			path := e.cfg.Wallet.KeyFile
			if _, err := os.Stat(path); err == nil && !force {
				return e.out.Fail("refusing to overwrite key", configError(fmt.Errorf("%s exists (use --force)", path)))
			}
			key, err := wallet.Generate()
			if err != nil {
				return e.out.Fail("failed to generate key", err)
			}
			if err := key.Save(path); err != nil {
				return e.out.Fail("failed to save key", err)
			}
			return renderWallet(e, key, path, "Created wallet")
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

func newWalletAddressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "address",
		Short:         "Print the owner address and public key",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer e.Close()

			key, err := e.loadKey()
			if err != nil {
				return e.out.Fail("failed to load wallet", err)
			}
			return renderWallet(e, key, e.cfg.Wallet.KeyFile, "Wallet")
		},
	}
}

func renderWallet(e *env, key *wallet.Key, path, title string) error {
	info := WalletInfo{Address: key.Address(), PublicKey: key.PublicKey().String(), KeyFile: path}
	return e.out.Render(info, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s %s\n", color.GreenString("✓"), title, color.CyanString(info.Address))
		fmt.Fprintf(w, "%s Public key: %s\n", color.CyanString("→"), info.PublicKey)
		fmt.Fprintf(w, "%s Key file: %s\n", color.CyanString("→"), info.KeyFile)
	})
}
