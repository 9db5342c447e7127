package optimizer

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
)

// PushDownFilter moves Filters towards the scans. Adjacent Filters are
// merged. A Filter moves below a Project by substitution and below a Sort
// unchanged. It moves below IntervalMerging when it reads no reserved
// column. Conjuncts over the group outputs of an aggregation move below it.
// Above a join, conjuncts reading one side only move to that side.
func PushDownFilter(root plan.Node) (plan.Node, error) {
	return plan.Transform(root, func(n plan.Node) (plan.Node, error) {
		f, ok := n.(*plan.FilterNode)
		if !ok {
			return n, nil
		}
		switch c := f.Input().(type) {
		case *plan.FilterNode:
			return plan.NewFilter(c.Input(), query.Conjoin([]query.Expr{c.Predicate(), f.Predicate()}))
		case *plan.ProjectNode:
			return pushThroughProject(f, c), nil
		case *plan.SortNode:
			return swapFilter(f, c), nil
		case *plan.IntervalMergingNode:
			if query.ReadsOnly(f.Predicate(), func(r *query.ColumnRef) bool { return !database.IsReserved(r.Name) }) {
				return swapFilter(f, c), nil
			}
		case *plan.SortedAggregateNode:
			return pushThroughAggregate(f, c, c.Outputs(), 0), nil
		case *plan.SortedTemporalAggregateNode:
			return pushThroughAggregate(f, c, c.Outputs(), database.NumTimeColumns), nil
		case *plan.SortedTemporalJoinNode:
			return pushIntoJoin(f, c), nil
		}
		return n, nil
	})
}

// swapFilter turns Filter(c(x)) into c(Filter(x)), for single input nodes c
// whose output columns are their input columns. On failure f is kept.
func swapFilter(f *plan.FilterNode, c plan.Node) plan.Node {
	below, err := plan.NewFilter(c.Children()[0], f.Predicate())
	if err != nil {
		return f
	}
	out, err := c.WithChildren(below)
	if err != nil {
		return f
	}
	return out
}

func pushThroughProject(f *plan.FilterNode, p *plan.ProjectNode) plan.Node {
	pred, err := query.SubstituteColumns(f.Predicate(), p.Exprs())
	if err != nil {
		return f
	}
	below, err := plan.NewFilter(p.Input(), pred)
	if err != nil {
		return f
	}
	out, err := p.WithChildren(below)
	if err != nil {
		return f
	}
	return out
}

// pushThroughAggregate moves the conjuncts that read only non-aggregate
// outputs. offset is the index of the first output in the node's schema.
func pushThroughAggregate(f *plan.FilterNode, agg plan.Node, outputs []query.Expr, offset int) plan.Node {
	defs := make([]query.Expr, agg.Schema().Len())
	for i, o := range outputs {
		if !query.ContainsAggregate(o) {
			defs[offset+i] = o
		}
	}
	var pushed, kept []query.Expr
	for _, c := range query.Conjuncts(f.Predicate()) {
		if !query.ReadsOnly(c, func(r *query.ColumnRef) bool { return defs[r.Index] != nil }) {
			kept = append(kept, c)
			continue
		}
		s, err := query.SubstituteColumns(c, defs)
		if err != nil {
			kept = append(kept, c)
			continue
		}
		pushed = append(pushed, s)
	}
	if len(pushed) == 0 {
		return f
	}
	below, err := plan.NewFilter(agg.Children()[0], query.Conjoin(pushed))
	if err != nil {
		return f
	}
	out, err := agg.WithChildren(below)
	if err != nil {
		return f
	}
	return refilter(f, out, kept)
}

// pushIntoJoin splits the conjuncts by the side whose columns they read.
// Conjuncts reading time columns or both sides stay above the join.
func pushIntoJoin(f *plan.FilterNode, j *plan.SortedTemporalJoinNode) plan.Node {
	firstRight := j.Left().Schema().Len()
	var left, right, kept []query.Expr
	for _, c := range query.Conjuncts(f.Predicate()) {
		cols := query.ColumnIndices(c)
		switch {
		case allIn(cols, database.NumTimeColumns, firstRight):
			left = append(left, c)
		case allIn(cols, firstRight, j.Schema().Len()):
			right = append(right, c)
		default:
			kept = append(kept, c)
		}
	}
	if len(left) == 0 && len(right) == 0 {
		return f
	}
	l, r := j.Left(), j.Right()
	var err error
	if len(left) > 0 {
		if l, err = plan.NewFilter(l, query.Conjoin(left)); err != nil {
			return f
		}
	}
	if len(right) > 0 {
		if r, err = plan.NewFilter(r, query.Conjoin(right)); err != nil {
			return f
		}
	}
	out, err := j.WithChildren(l, r)
	if err != nil {
		return f
	}
	return refilter(f, out, kept)
}

func allIn(cols []int, lo, hi int) bool {
	for _, c := range cols {
		if c < lo || c >= hi {
			return false
		}
	}
	return true
}

// refilter puts the kept conjuncts back above n.
func refilter(f *plan.FilterNode, n plan.Node, kept []query.Expr) plan.Node {
	if len(kept) == 0 {
		return n
	}
	out, err := plan.NewFilter(n, query.Conjoin(kept))
	if err != nil {
		return f
	}
	return out
}
