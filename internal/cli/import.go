package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/catalog"
	"github.com/roach88/extkit/internal/codec"
)

// ImportFailure describes one draft that was not submitted.
type ImportFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportResult is the output of the import command.
type ImportResult struct {
	Submitted []codec.Record  `json:"submitted"`
	Failed    []ImportFailure `json:"failed"`
	Skipped   int             `json:"skipped"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <drafts.yaml>",
		Short: "Submit extensions from a YAML file",
		Long: `Submit every draft in a YAML list, one at a time.

Each entry has name, category, description and value. Invalid drafts are
reported and skipped; any other failure stops the import.

Example file:
  - name: Stripe Bridge
    category: Payment
    description: card payments
    value: 42

Example:
  extkit import drafts.yaml --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	}
}

func runImport(cmd *cobra.Command, opts *RootOptions, path string) error {
	e, err := newEnv(cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	f, err := os.Open(path)
	if err != nil {
		return e.out.Fail("failed to open drafts", err)
	}
	defer f.Close()

	drafts, err := catalog.ParseDrafts(f)
	if err != nil {
		return e.out.Fail("failed to read drafts", fmt.Errorf("%s: %w", path, err))
	}

	cat, _, err := e.openCatalog()
	if err != nil {
		return e.out.Fail("failed to open catalog", err)
	}

	result := ImportResult{Submitted: []codec.Record{}, Failed: []ImportFailure{}}
	var stopErr error
	for i, d := range drafts {
		rec, err := cat.Submit(cmd.Context(), d)
		if err == nil {
			result.Submitted = append(result.Submitted, rec)
			continue
		}
		result.Failed = append(result.Failed, ImportFailure{Index: i, Name: d.Name, Error: err.Error()})
		if !errors.Is(err, catalog.ErrInvalidDraft) {
			stopErr = err
			result.Skipped = len(drafts) - i - 1
			break
		}
	}

	if stopErr != nil {
		return e.out.Fail(fmt.Sprintf("import stopped after %d of %d drafts", len(result.Submitted), len(drafts)), stopErr)
	}

	if err := e.out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s Imported %d of %d drafts\n", color.GreenString("✓"), len(result.Submitted), len(drafts))
		for _, fail := range result.Failed {
			fmt.Fprintf(w, "  %s #%d %s: %s\n", color.RedString("✗"), fail.Index+1, fail.Name, fail.Error)
		}
	}); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d drafts were invalid", len(result.Failed)))
	}
	return nil
}
