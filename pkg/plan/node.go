package plan

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// Node is a physical plan node. Nodes are immutable and validated when
// built: a node that exists compiles. Expressions inside a node are bound to
// the schema of its input.
type Node interface {
	Schema() *database.Schema
	Children() []Node
	Explain() string
	Accept(v Visitor) error
	// WithChildren rebuilds the node over new inputs, rebinding its
	// expressions by column name.
	WithChildren(children ...Node) (Node, error)
}

// Visitor has one method per node kind.
type Visitor interface {
	VisitFilter(n *FilterNode) error
	VisitProject(n *ProjectNode) error
	VisitSort(n *SortNode) error
	VisitSortedAggregate(n *SortedAggregateNode) error
	VisitSortedTemporalAggregate(n *SortedTemporalAggregateNode) error
	VisitSortedTemporalJoin(n *SortedTemporalJoinNode) error
	VisitIntervalMerging(n *IntervalMergingNode) error
	VisitLinearTableScan(n *LinearTableScanNode) error
	VisitLimit(n *LimitNode) error
}

// schemaOnly lets engine constructors validate a node before any input
// exists.
type schemaOnly struct {
	schema *database.Schema
}

func (s schemaOnly) Schema() *database.Schema { return s.schema }

func (s schemaOnly) Iterate() database.TimeSeriesIterator {
	panic(errors.AssertionFailedf("plan validation table iterated"))
}

func shape(n Node) database.Table { return schemaOnly{schema: n.Schema()} }

func rebindAll(exprs []query.Expr, schema *database.Schema) ([]query.Expr, error) {
	out := make([]query.Expr, len(exprs))
	for i, e := range exprs {
		var err error
		if out[i], err = query.Rebind(e, schema); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// indices resolves column names against schema.
func indices(schema *database.Schema, names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		c, _, err := schema.Lookup(name)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func expectChildren(n Node, children []Node, want int) error {
	if len(children) != want {
		return errors.AssertionFailedf("%T takes %d children, got %d", n, want, len(children))
	}
	return nil
}

// Walk visits n and its descendants, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Transform rebuilds the tree bottom-up, replacing each node by fn's result.
// Nodes whose children did not change are passed to fn as they are.
func Transform(n Node, fn func(Node) (Node, error)) (Node, error) {
	children := n.Children()
	changed := false
	next := make([]Node, len(children))
	for i, c := range children {
		out, err := Transform(c, fn)
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
	return fn(n)
}
