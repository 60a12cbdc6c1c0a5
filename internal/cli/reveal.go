package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/codec"
	"github.com/roach88/extkit/internal/reveal"
	"github.com/roach88/extkit/internal/session"
	"github.com/roach88/extkit/internal/wallet"
)

// RevealResult is the output of the reveal command.
type RevealResult struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NewRevealCommand creates the reveal command.
func NewRevealCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reveal <id>",
		Short: "Sign the session challenge and show a sealed value",
		Long: `Reveal the value of one extension.

A fresh session challenge is built from a random token, the ledger address
and the network id. The owner wallet must sign it before the value is
opened. The plaintext is printed once and discarded.

Example:
  extkit reveal 1700000000000-k3j9x2a`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReveal(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runReveal(cmd *cobra.Command, opts *RootOptions, id string) error {
	ctx := cmd.Context()
	e, err := newEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.openLedger()
	if err != nil {
		return e.out.Fail("failed to open ledger", err)
	}
	c, err := e.openCipher()
	if err != nil {
		return e.out.Fail("failed to open cipher", err)
	}
	signer, err := e.signer()
	if err != nil {
		return e.out.Fail("failed to load wallet", err)
	}

	var records []codec.Record
	err = e.spin("Loading extensions...", func() error {
		records, err = e.catalog(l, c).LoadAll(ctx)
		return err
	})
	if err != nil {
		return e.out.Fail("failed to load extensions", err)
	}

	rec, ok := findRecord(records, id)
	if !ok {
		return e.out.Fail("failed to reveal", fmt.Errorf("extension %s: %w", id, errNotFound))
	}

	sess, err := session.Start(ctx, l)
	if err != nil {
		return e.out.Fail("failed to start session", err)
	}
	defer sess.End()

	gateOpts := []reveal.Option{reveal.WithLogger(e.logger)}
	if e.cfg.Server.Owner != "" {
		owner, err := wallet.ParsePublicKey(e.cfg.Server.Owner)
		if err != nil {
			return e.out.Fail("invalid ledger owner", configError(fmt.Errorf("server.owner: %w", err)))
		}
		gateOpts = append(gateOpts, reveal.WithOwner(owner))
	}
	gate := reveal.New(sess, signer, c, gateOpts...)
	defer gate.Hide()

	v, err := gate.Reveal(ctx, rec)
	if err != nil {
		return e.out.Fail("failed to reveal", err)
	}

	result := RevealResult{ID: rec.ID, Name: rec.Name, Value: v}
	return e.out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (%s): %s\n", color.GreenString("✓"), rec.Name, rec.ID,
			color.YellowString(strconv.FormatFloat(v, 'g', -1, 64)))
	})
}

func findRecord(records []codec.Record, id string) (codec.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return codec.Record{}, false
}
