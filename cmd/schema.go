package cmd

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/spf13/cobra"
)

func newSchemaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [table]",
		Short: "Show the columns of the registered tables",
		Long: `Print the columns of one table, or of every registered table, in the
header notation of interval files (name:type[:key]).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession()
			if err != nil {
				return err
			}
			names := s.catalog.Names()
			if len(args) > 0 {
				names = args
			}
			for _, name := range names {
				t, err := s.catalog.GetTable(name)
				if err != nil {
					return err
				}
				printSchema(cmd, name, t.Schema())
			}
			return nil
		},
	}
}

func printSchema(cmd *cobra.Command, name string, schema *database.Schema) {
	out := cmd.OutOrStdout()
	kind := "temporal"
	if !schema.IsTemporal() {
		kind = "non-temporal"
	}
	fmt.Fprintf(out, "%s (%s)\n", name, kind)
	for _, f := range database.HeaderFields(schema) {
		fmt.Fprintf(out, "  %s\n", f)
	}
}
