package optimizer

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
)

// PlaceIntervalMerging compacts the output of value-dropping Projects and
// of temporal aggregates, where adjacent rows often end up equal. It does
// not merge below a node that observes how rows are split (a Limit, a
// non-temporal aggregate, a Filter on time columns or a Project dropping
// them), nor right below a node that merges anyway. IntervalMerging that is
// already absorbed by such a node is removed.
func PlaceIntervalMerging(root plan.Node) (plan.Node, error) {
	return place(root, false, false)
}

func place(n plan.Node, absorbed, splitSensitive bool) (plan.Node, error) {
	children := n.Children()
	if len(children) > 0 {
		next := make([]plan.Node, len(children))
		changed := false
		for i, c := range children {
			out, err := place(c, absorbs(n, splitSensitive), splitSensitive || observesSplits(n))
			if err != nil {
				return nil, err
			}
			next[i] = out
			changed = changed || out != c
		}
		if changed {
			var err error
			if n, err = n.WithChildren(next...); err != nil {
				return nil, err
			}
		}
	}
	switch x := n.(type) {
	case *plan.IntervalMergingNode:
		if absorbed {
			return x.Input(), nil
		}
	case *plan.ProjectNode:
		if !absorbed && !splitSensitive && droppingTemporal(x) {
			return plan.NewIntervalMerging(x)
		}
	case *plan.SortedTemporalAggregateNode:
		if !absorbed && !splitSensitive {
			return plan.NewIntervalMerging(x)
		}
	}
	return n, nil
}

func droppingTemporal(p *plan.ProjectNode) bool {
	return p.Schema().IsTemporal() && p.DropsValues()
}

// absorbs reports whether merging directly below n is redundant because n
// merges or gets merged itself.
func absorbs(n plan.Node, splitSensitive bool) bool {
	switch x := n.(type) {
	case *plan.IntervalMergingNode:
		return true
	case *plan.ProjectNode:
		return !splitSensitive && droppingTemporal(x)
	}
	return false
}

func observesSplits(n plan.Node) bool {
	switch x := n.(type) {
	case *plan.LimitNode, *plan.SortedAggregateNode:
		return true
	case *plan.FilterNode:
		return !query.ReadsOnly(x.Predicate(), func(c *query.ColumnRef) bool { return !database.IsReserved(c.Name) })
	case *plan.ProjectNode:
		return !x.Schema().IsTemporal()
	}
	return false
}
