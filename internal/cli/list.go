package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/catalog"
	"github.com/roach88/extkit/internal/codec"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Search   string
	Category string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extensions, newest first",
		Long: `List every extension in the ledger, newest first.

Values stay sealed; use "extkit reveal <id>" to see one.

Example:
  extkit list
  extkit list --search bridge --category Payment`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "case-insensitive match on name or description")
	cmd.Flags().StringVarP(&opts.Category, "category", "c", catalog.AllCategories, "only show this category")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	e, err := newEnv(cmd, opts.RootOptions)
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

	records = catalog.Filter(records, opts.Search, opts.Category)
	return e.out.Render(records, func(w io.Writer) {
		printRecords(w, records)
	})
}

func printRecords(w io.Writer, records []codec.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No extensions found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tCREATED\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			color.CyanString(r.ID), r.Name, r.Category, formatTimestamp(r.Timestamp), r.Description)
	}
	tw.Flush()
}

func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}
