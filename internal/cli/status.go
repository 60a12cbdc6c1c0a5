package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/catalog"
	"github.com/roach88/extkit/internal/codec"
)

// StatusResult is the output of the status command.
type StatusResult struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
	Address   string `json:"address,omitempty"`
	NetworkID uint64 `json:"network_id,omitempty"`
	Indexed   int    `json:"indexed"`
	Cipher    string `json:"cipher"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the ledger is available",
		Long: `Report whether the ledger is ready, its address, network id and how
many extensions are indexed.

Example:
  extkit status
  extkit status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts)
		},
	}
}

func runStatus(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	e, err := newEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	cat, l, err := e.openCatalog()
	if err != nil {
		return e.out.Fail("failed to open catalog", err)
	}

	result := StatusResult{Backend: e.cfg.Ledger.Backend, Cipher: e.cfg.Catalog.Cipher}
	if opts.Ledger != nil {
		result.Backend = "custom"
	}
	err = e.spin("Checking ledger...", func() error {
		return collectStatus(ctx, cat, l, &result)
	})
	if err != nil {
		return e.out.Fail("failed to check ledger", err)
	}

	return e.out.Render(result, func(w io.Writer) {
		state := color.GreenString("available")
		if !result.Available {
			state = color.RedString("not available")
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Ledger:\t%s (%s)\n", result.Backend, state)
		fmt.Fprintf(tw, "Address:\t%s\n", result.Address)
		fmt.Fprintf(tw, "Network:\t%d\n", result.NetworkID)
		fmt.Fprintf(tw, "Indexed:\t%d\n", result.Indexed)
		fmt.Fprintf(tw, "Cipher:\t%s\n", result.Cipher)
		tw.Flush()
	})
}

type identity interface {
	SelfAddress(ctx context.Context) (string, error)
	NetworkID(ctx context.Context) (uint64, error)
}

func collectStatus(ctx context.Context, cat *catalog.Catalog, l identity, result *StatusResult) error {
	ok, err := cat.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	result.Available = ok
	if result.Address, err = l.SelfAddress(ctx); err != nil {
		return err
	}
	if result.NetworkID, err = l.NetworkID(ctx); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	ids, err := cat.Registry().LoadIndex(ctx)
	if err != nil {
		return err
	}
	result.Indexed = len(ids)
	return nil
}

// StatsResult is the output of the stats command.
type StatsResult struct {
	catalog.Summary
	Categories []string `json:"category_labels"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count extensions per category",
		Long: `Load every extension and count them in total and per category.

Example:
  extkit stats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, rootOpts)
		},
	}
}

func runStats(cmd *cobra.Command, opts *RootOptions) error {
	e, err := newEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	cat, _, err := e.openCatalog()
	if err != nil {
		return e.out.Fail("failed to open catalog", err)
	}

	var records []codec.Record
	err = e.spin("Loading extensions...", func() error {
		records, err = cat.LoadAll(cmd.Context())
		return err
	})
	if err != nil {
		return e.out.Fail("failed to load extensions", err)
	}

	result := StatsResult{Summary: catalog.Stats(records), Categories: catalog.Categories(records)}
	return e.out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Total extensions: %s\n", color.CyanString("%d", result.Total))
		if result.Newest > 0 {
			fmt.Fprintf(w, "Newest: %s\n", formatTimestamp(result.Newest))
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range result.Summary.Categories {
			label := c.Category
			if label == "" {
				label = "(none)"
			}
			fmt.Fprintf(tw, "  %s\t%d\n", label, c.Count)
		}
		tw.Flush()
	})
}
