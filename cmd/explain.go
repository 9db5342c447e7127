package cmd

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/plan"
	"github.com/spf13/cobra"
)

func newExplainCommand(opts *options) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Show the execution plan of a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				n, err := s.buildPlan(args[0], false)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Unoptimized Plan:")
				fmt.Fprintln(out, plan.FormatPlan(n))
			}
			n, err := s.buildPlan(args[0], true)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Execution Plan:")
			fmt.Fprint(out, plan.FormatPlan(n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Also print the plan before optimization")
	return cmd
}
