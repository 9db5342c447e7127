package plan

import (
	"github.com/bisegni/tsq/pkg/query"
)

// Ordering returns the sort order guaranteed on n's output, as a sequence of
// keys that the rows (and so the time series) follow. Scans guarantee none.
func Ordering(n Node) []SortKey {
	v := &orderingVisitor{}
	// every Visit method succeeds
	_ = n.Accept(v)
	return v.keys
}

type orderingVisitor struct {
	keys []SortKey
}

func (v *orderingVisitor) VisitLinearTableScan(*LinearTableScanNode) error {
	v.keys = nil
	return nil
}

func (v *orderingVisitor) VisitFilter(n *FilterNode) error {
	v.keys = Ordering(n.Input())
	return nil
}

func (v *orderingVisitor) VisitLimit(n *LimitNode) error {
	v.keys = Ordering(n.Input())
	return nil
}

func (v *orderingVisitor) VisitIntervalMerging(n *IntervalMergingNode) error {
	v.keys = Ordering(n.Input())
	return nil
}

func (v *orderingVisitor) VisitSort(n *SortNode) error {
	v.keys = append([]SortKey(nil), n.Keys()...)
	return nil
}

func (v *orderingVisitor) VisitProject(n *ProjectNode) error {
	v.keys = renameKeys(Ordering(n.Input()), passthrough(n.Exprs(), n.Names()))
	return nil
}

func (v *orderingVisitor) VisitSortedAggregate(n *SortedAggregateNode) error {
	v.keys = v.aggregated(&n.aggregation)
	return nil
}

func (v *orderingVisitor) VisitSortedTemporalAggregate(n *SortedTemporalAggregateNode) error {
	v.keys = v.aggregated(&n.aggregation)
	return nil
}

// aggregated keeps the group by prefix of the input ordering, under the
// names of the outputs that pass those columns through.
func (v *orderingVisitor) aggregated(a *aggregation) []SortKey {
	in := Ordering(a.Input())
	return renameKeys(in[:min(len(in), len(a.GroupBy()))], passthrough(a.Outputs(), a.Names()))
}

func (v *orderingVisitor) VisitSortedTemporalJoin(n *SortedTemporalJoinNode) error {
	in := Ordering(n.Left())
	v.keys = append([]SortKey(nil), in[:min(len(in), len(n.LeftOn()))]...)
	return nil
}

// passthrough maps input column names to the output names of bare column
// references. The first output wins.
func passthrough(exprs []query.Expr, names []string) map[string]string {
	out := make(map[string]string, len(exprs))
	for i, e := range exprs {
		if c, ok := e.(*query.ColumnRef); ok {
			if _, seen := out[c.Name]; !seen {
				out[c.Name] = names[i]
			}
		}
	}
	return out
}

// renameKeys maps keys through renames, stopping at the first key that has
// no output.
func renameKeys(keys []SortKey, renames map[string]string) []SortKey {
	var out []SortKey
	for _, k := range keys {
		name, ok := renames[k.Column]
		if !ok {
			break
		}
		out = append(out, SortKey{Column: name, Desc: k.Desc})
	}
	return out
}
