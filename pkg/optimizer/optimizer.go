// Package optimizer rewrites physical plans into cheaper equivalent ones by
// applying an ordered list of local rules until the plan stops changing.
package optimizer

import (
	"github.com/bisegni/tsq/pkg/logging"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/cockroachdb/errors"
)

// DefaultMaxIterations bounds the fixpoint loop.
const DefaultMaxIterations = 100

// Rule is a pure rewrite. Apply returns its input unchanged when nothing
// applies.
type Rule struct {
	Name  string
	Apply func(plan.Node) (plan.Node, error)
}

// DefaultRules returns the rules in the order they run.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "PushDownFilter", Apply: PushDownFilter},
		{Name: "PromoteJoinColumns", Apply: PromoteJoinColumns},
		{Name: "DropUnusedColumns", Apply: DropUnusedColumns},
		{Name: "CollapseProjects", Apply: CollapseProjects},
		{Name: "PlaceIntervalMerging", Apply: PlaceIntervalMerging},
	}
}

type Optimizer struct {
	rules         []Rule
	maxIterations int
}

// New returns an optimizer running rules, or DefaultRules when none are
// given. A non-positive maxIterations means DefaultMaxIterations.
func New(maxIterations int, rules ...Rule) *Optimizer {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Optimizer{rules: rules, maxIterations: maxIterations}
}

// Optimize runs every rule in order, repeatedly, until one full pass leaves
// the plan's fingerprint unchanged or the iteration cap is reached.
func (o *Optimizer) Optimize(n plan.Node) (plan.Node, error) {
	log := logging.WithComponent("optimizer")
	current := plan.Fingerprint(n)
	for i := 1; i <= o.maxIterations; i++ {
		start := current
		for _, r := range o.rules {
			out, err := r.Apply(n)
			if err != nil {
				return nil, errors.Wrapf(err, "rule %s", r.Name)
			}
			if fp := plan.Fingerprint(out); fp != current {
				log.Debug("rule changed plan", "rule", r.Name, "iteration", i)
				current = fp
			}
			n = out
		}
		log.Debug("optimizer iteration", "iteration", i)
		if current == start {
			return n, nil
		}
	}
	log.Warn("optimizer stopped before reaching a fixpoint", "max_iterations", o.maxIterations)
	return n, nil
}
