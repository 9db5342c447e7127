package cmd

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate an interval file",
		Long: `Check that a file is a well formed interval file: a typed header, cells of
the declared types, start <= end on every row and no overlapping rows
within a time series.

Examples:
  tsq validate cpu.tsv
  cat cpu.tsv | tsq validate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			t, err := database.NewTSVTable(args[0])
			if err != nil {
				fmt.Fprintf(out, "❌ Validation failed: %v\n", err)
				return err
			}
			fmt.Fprintf(out, "✅ Valid interval file with %d time series and %d row(s)\n", t.NumTimeSeries(), t.NumRows())
			return nil
		},
	}
}
