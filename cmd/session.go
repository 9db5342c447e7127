package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bisegni/tsq/pkg/config"
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/bisegni/tsq/pkg/logging"
	"github.com/bisegni/tsq/pkg/optimizer"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/planner"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// session is what a command works with: the configuration and the loaded
// tables.
type session struct {
	cfg     *config.Config
	catalog *database.Catalog
}

// openSession loads every table named in the configuration or by --table;
// flags win over the file.
func (o *options) openSession() (*session, error) {
	paths := make(map[string]string, len(o.cfg.Tables)+len(o.tables))
	for name, path := range o.cfg.Tables {
		paths[name] = path
	}
	for _, arg := range o.tables {
		name, path, ok := strings.Cut(arg, "=")
		if !ok || name == "" || path == "" {
			return nil, errors.Newf("invalid table %q, expected name=path", arg)
		}
		paths[name] = path
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := database.NewCatalog()
	for _, name := range names {
		t, err := database.NewTSVTable(paths[name])
		if err != nil {
			return nil, errors.Wrapf(err, "table %s", name)
		}
		catalog.RegisterTable(name, t)
		logging.WithTable(name).Info("table loaded",
			"path", paths[name], "series", t.NumTimeSeries(), "rows", t.NumRows())
	}
	return &session{cfg: o.cfg, catalog: catalog}, nil
}

// buildPlan parses and lowers sql, then optimizes the plan when asked to and
// the optimizer is enabled.
func (s *session) buildPlan(sql string, optimize bool) (plan.Node, error) {
	q, err := query.ParseQuery(sql)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	n, err := planner.CreatePlan(q, s.catalog)
	if err != nil {
		return nil, errors.Wrap(err, "planning error")
	}
	if !optimize || !s.cfg.Optimizer.Enabled {
		return n, nil
	}
	return optimizer.New(s.cfg.Optimizer.MaxIterations).Optimize(n)
}

// executor renders in format, or the configured format when it is empty.
func (s *session) executor(format string) (*engine.Executor, error) {
	if format == "" {
		format = s.cfg.Output.Format
	}
	f, err := engine.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}
	e := engine.NewExecutor()
	e.Format = f
	e.MaxRows = s.cfg.Output.MaxRows
	e.Color = s.cfg.Output.Color
	return e, nil
}

// run executes n into w. With stats the plan, annotated with what each
// operator delivered, is written to statsOut afterwards.
func (s *session) run(n plan.Node, format string, stats bool, w, statsOut io.Writer) error {
	e, err := s.executor(format)
	if err != nil {
		return err
	}
	if !stats {
		table, err := plan.Compile(n)
		if err != nil {
			return err
		}
		return e.Execute(table, w)
	}
	table, counts, err := plan.CompileWithStats(n)
	if err != nil {
		return err
	}
	if err := e.Execute(table, w); err != nil {
		return err
	}
	_, err = fmt.Fprint(statsOut, plan.FormatPlanWithStats(n, counts))
	return err
}
