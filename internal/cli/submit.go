package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/catalog"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Draft catalog.Draft
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Seal a value and add a new extension",
		Long: `Create a new extension. The value is sealed before it is written.

The payload is written first and the index second; each write needs
approval unless --yes is given.

Example:
  extkit submit --name "Stripe Bridge" --category Payment --value 42
  extkit submit --name Resolver --category DID --description "identity" --value 0.5 --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Draft.Name, "name", "", "extension name (required)")
	cmd.Flags().StringVar(&opts.Draft.Category, "category", "Payment", "category label")
	cmd.Flags().StringVar(&opts.Draft.Description, "description", "", "free text description")
	cmd.Flags().Float64Var(&opts.Draft.Value, "value", 0, "numeric value to seal")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runSubmit(cmd *cobra.Command, opts *SubmitOptions) error {
	e, err := newEnv(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	cat, _, err := e.openCatalog()
	if err != nil {
		return e.out.Fail("failed to open catalog", err)
	}

	rec, err := cat.Submit(cmd.Context(), opts.Draft)
	if err != nil {
		return e.out.Fail("failed to submit extension", err)
	}

	return e.out.Render(rec, func(w io.Writer) {
		fmt.Fprintf(w, "%s Extension %s submitted\n", color.GreenString("✓"), color.CyanString(rec.ID))
	})
}
