package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/bisegni/tsq/pkg/engine"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const shellHelp = `Enter a query to run it. Other commands:
  \explain <sql>  show the execution plan of a query
  \tables         list the registered tables
  \help           show this help
  exit, quit      leave the shell`

func newShellCommand(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Query the registered tables interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession()
			if err != nil {
				return err
			}
			return runShell(s, format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(engine.FormatTable), "Output format: tsv or table")
	return cmd
}

func runShell(s *session, format string, out, errOut io.Writer) error {
	fmt.Fprintln(out, "Interactive mode enabled. Type 'exit' or 'quit' to leave, \\help for help.")
	fmt.Fprintf(out, "Tables: %s\n", strings.Join(s.catalog.Names(), ", "))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tsq> ",
		HistoryFile:     "", // in-memory history for this session
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.handleLine(strings.TrimSpace(line), format, out)
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// handleLine runs one shell input and reports whether the shell should exit.
func (s *session) handleLine(line, format string, out io.Writer) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit"):
		return true, nil
	case line == `\help`:
		fmt.Fprintln(out, shellHelp)
		return false, nil
	case line == `\tables`:
		for _, name := range s.catalog.Names() {
			t, err := s.catalog.GetTable(name)
			if err != nil {
				return false, err
			}
			fmt.Fprintf(out, "%s %s\n", name, t.Schema())
		}
		return false, nil
	case strings.HasPrefix(line, `\explain`):
		n, err := s.buildPlan(strings.TrimSpace(strings.TrimPrefix(line, `\explain`)), true)
		if err != nil {
			return false, err
		}
		fmt.Fprint(out, plan.FormatPlan(n))
		return false, nil
	case strings.HasPrefix(line, `\`):
		return false, errors.Newf("unknown command %s, try \\help", strings.Fields(line)[0])
	}
	n, err := s.buildPlan(line, true)
	if err != nil {
		return false, err
	}
	return false, s.run(n, format, false, out, out)
}
