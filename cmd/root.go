package cmd

import (
	"fmt"
	"os"

	"github.com/bisegni/tsq/pkg/config"
	"github.com/bisegni/tsq/pkg/logging"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// options holds the root flags and the configuration they resolve to.
type options struct {
	configPath string
	logLevel   string
	tables     []string

	cfg *config.Config
}

// NewRootCommand builds the tsq command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "tsq",
		Short: "Time series interval query tool",
		Long: `tsq runs SQL-like queries over interval files: tab separated files whose
rows carry a [_start_time, _end_time) interval and whose key columns group
rows into time series.

Tables are registered with --table name=path or in the tables section of the
configuration file.

Examples:
  tsq -t cpu=cpu.tsv query "SELECT host, load FROM cpu WHERE load > 1"
  tsq -t cpu=cpu.tsv query --format table "SELECT host, MAX(load) AS peak FROM cpu GROUP BY host"
  tsq -t cpu=cpu.tsv -t mem=mem.tsv explain "SELECT c.host, m.used FROM cpu c JOIN mem m ON c.host = m.host"
  tsq --config tsq.yaml shell`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringArrayVarP(&opts.tables, "table", "t", nil, "Register a table as name=path (repeatable)")

	root.AddCommand(newQueryCommand(opts))
	root.AddCommand(newExplainCommand(opts))
	root.AddCommand(newShellCommand(opts))
	root.AddCommand(newSchemaCommand(opts))
	root.AddCommand(newValidateCommand())
	return root
}

// Execute runs the command line and reports a failure on stderr.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error:"), err)
	}
	return err
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}); err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	o.cfg = cfg
	return nil
}
