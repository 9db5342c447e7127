package optimizer

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
)

// columnSet names the columns a parent reads. nil means all of them.
// Reserved columns are always kept.
type columnSet map[string]bool

func (s columnSet) has(name string) bool {
	return s == nil || s[name] || database.IsReserved(name)
}

// with returns s plus names; nil stays nil.
func (s columnSet) with(names ...string) columnSet {
	if s == nil {
		return nil
	}
	out := make(columnSet, len(s)+len(names))
	for k := range s {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func readColumns(exprs ...query.Expr) []string {
	var names []string
	for _, e := range exprs {
		names = append(names, query.ColumnNames(e)...)
	}
	return names
}

// DropUnusedColumns propagates the set of required columns from the root
// down. Projects lose the outputs nobody reads. A scan producing more than
// it is asked for gets a Project above it, unless a Project already trims
// its output further up. A join stops producing its right join columns
// once nothing reads them.
func DropUnusedColumns(root plan.Node) (plan.Node, error) {
	return prune(root, nil, false)
}

// projected reports that a Project above n trims its output, with only
// row-preserving nodes in between.
func prune(n plan.Node, required columnSet, projected bool) (plan.Node, error) {
	switch x := n.(type) {
	case *plan.LinearTableScanNode:
		return pruneScan(x, required, projected)
	case *plan.ProjectNode:
		return pruneProject(x, required)
	case *plan.FilterNode:
		return pruneChild(x, required.with(readColumns(x.Predicate())...), projected)
	case *plan.SortNode:
		names := make([]string, len(x.Keys()))
		for i, k := range x.Keys() {
			names[i] = k.Column
		}
		return pruneChild(x, required.with(names...), projected)
	case *plan.LimitNode:
		return pruneChild(x, required, projected)
	case *plan.IntervalMergingNode:
		// merging compares every column
		return pruneChild(x, nil, false)
	case *plan.SortedAggregateNode:
		return pruneChild(x, columnSet{}.with(x.GroupBy()...).with(readColumns(x.Outputs()...)...), false)
	case *plan.SortedTemporalAggregateNode:
		return pruneChild(x, columnSet{}.with(x.GroupBy()...).with(readColumns(x.Outputs()...)...), false)
	case *plan.SortedTemporalJoinNode:
		return pruneJoin(x, required)
	}
	return n, nil
}

func pruneChild(n plan.Node, required columnSet, projected bool) (plan.Node, error) {
	child := n.Children()[0]
	out, err := prune(child, required, projected)
	if err != nil {
		return nil, err
	}
	if out == child {
		return n, nil
	}
	return n.WithChildren(out)
}

func pruneScan(n *plan.LinearTableScanNode, required columnSet, projected bool) (plan.Node, error) {
	if required == nil || projected {
		return n, nil
	}
	var names []string
	for _, name := range n.Schema().Names() {
		if required.has(name) {
			names = append(names, name)
		}
	}
	if len(names) == n.Schema().Len() {
		return n, nil
	}
	return plan.NewIdentityProject(n, names)
}

func pruneProject(n *plan.ProjectNode, required columnSet) (plan.Node, error) {
	var exprs []query.Expr
	var names []string
	for i, name := range n.Names() {
		if required.has(name) {
			exprs = append(exprs, n.Exprs()[i])
			names = append(names, name)
		}
	}
	if len(exprs) == 0 {
		exprs, names = n.Exprs()[:1], n.Names()[:1]
	}
	child, err := prune(n.Input(), columnSet{}.with(readColumns(exprs...)...), true)
	if err != nil {
		return nil, err
	}
	if child == n.Input() && len(exprs) == len(n.Exprs()) {
		return n, nil
	}
	return plan.NewProject(child, exprs, names)
}

func pruneJoin(n *plan.SortedTemporalJoinNode, required columnSet) (plan.Node, error) {
	dropRight := n.DropRight()
	if required != nil && !dropRight && len(n.RightOn()) > 0 {
		dropRight = true
		for _, c := range n.RightOn() {
			if required.has(c) {
				dropRight = false
			}
		}
	}
	left, err := prune(n.Left(), sideColumns(n.Left(), required, n.LeftOn()), false)
	if err != nil {
		return nil, err
	}
	right, err := prune(n.Right(), sideColumns(n.Right(), required, n.RightOn()), false)
	if err != nil {
		return nil, err
	}
	if left == n.Left() && right == n.Right() && dropRight == n.DropRight() {
		return n, nil
	}
	return plan.NewSortedTemporalJoin(left, right, n.LeftOn(), n.RightOn(), dropRight)
}

// sideColumns is the part of required one join input provides, plus its
// join columns.
func sideColumns(side plan.Node, required columnSet, on []string) columnSet {
	if required == nil {
		return nil
	}
	out := columnSet{}
	for _, name := range side.Schema().Names() {
		if required[name] {
			out[name] = true
		}
	}
	return out.with(on...)
}
