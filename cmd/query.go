package cmd

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/plan"
	"github.com/spf13/cobra"
)

func newQueryCommand(opts *options) *cobra.Command {
	var (
		explain bool
		stats   bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query against the registered tables",
		Long: `Run a query and write its result to stdout, as an interval file (tsv) or
as an aligned console view (table).

Examples:
  tsq -t cpu=cpu.tsv query "SELECT * FROM cpu ORDER BY load DESC LIMIT 10"
  tsq -t cpu=cpu.tsv query --stats "SELECT host FROM cpu"
  tsq -t cpu=cpu.tsv query --explain "SELECT host, SUM(load) AS total FROM cpu GROUP BY host"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession()
			if err != nil {
				return err
			}
			n, err := s.buildPlan(args[0], true)
			if err != nil {
				return err
			}
			if explain {
				fmt.Fprintln(cmd.OutOrStdout(), "Execution Plan:")
				fmt.Fprint(cmd.OutOrStdout(), plan.FormatPlan(n))
				return nil
			}
			return s.run(n, format, stats, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the execution plan instead of running it")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print the plan with per-operator row counts to stderr")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: tsv or table (default from config)")
	return cmd
}
