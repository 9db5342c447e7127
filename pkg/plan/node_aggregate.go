package plan

import (
	"fmt"
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// aggregation holds what both aggregate nodes share.
type aggregation struct {
	input   Node
	groupBy []string
	outputs []query.Expr
	names   []string
	cols    []int
	schema  *database.Schema
}

func newAggregation(input Node, groupBy []string, outputs []query.Expr, names []string) (aggregation, error) {
	a := aggregation{input: input, groupBy: append([]string(nil), groupBy...), names: append([]string(nil), names...)}
	var err error
	if a.cols, err = indices(input.Schema(), groupBy); err != nil {
		return a, err
	}
	if a.outputs, err = rebindAll(outputs, input.Schema()); err != nil {
		return a, err
	}
	if err := checkClustered(input, groupBy); err != nil {
		return a, err
	}
	return a, nil
}

// checkClustered verifies that the input ordering starts with the group by
// columns, in any order and direction.
func checkClustered(input Node, groupBy []string) error {
	ordering := Ordering(input)
	if len(ordering) < len(groupBy) {
		return errors.Wrapf(database.ErrUnsorted, "group by [%s] over input ordered by [%s]",
			strings.Join(groupBy, ", "), formatKeys(ordering))
	}
	leading := make(map[string]bool, len(groupBy))
	for _, k := range ordering[:len(groupBy)] {
		leading[k.Column] = true
	}
	for _, g := range groupBy {
		if !leading[g] {
			return errors.Wrapf(database.ErrUnsorted, "group by [%s] over input ordered by [%s]",
				strings.Join(groupBy, ", "), formatKeys(ordering))
		}
	}
	return nil
}

func (a *aggregation) Input() Node              { return a.input }
func (a *aggregation) GroupBy() []string        { return a.groupBy }
func (a *aggregation) Outputs() []query.Expr    { return a.outputs }
func (a *aggregation) Names() []string          { return a.names }
func (a *aggregation) Schema() *database.Schema { return a.schema }
func (a *aggregation) Children() []Node         { return []Node{a.input} }

func (a *aggregation) explain(op string) string {
	group := "global"
	if len(a.groupBy) > 0 {
		group = "[" + strings.Join(a.groupBy, ", ") + "]"
	}
	return fmt.Sprintf("%s(group: %s, outputs: [%s])", op, group, formatOutputs(a.outputs, a.names))
}

// SortedAggregateNode computes one row per group of consecutive time series
// with equal group by values.
type SortedAggregateNode struct {
	aggregation
}

func NewSortedAggregate(input Node, groupBy []string, outputs []query.Expr, names []string) (*SortedAggregateNode, error) {
	a, err := newAggregation(input, groupBy, outputs, names)
	if err != nil {
		return nil, err
	}
	t, err := engine.NewAggregateTable(shape(input), a.cols, a.outputs, a.names)
	if err != nil {
		return nil, err
	}
	a.schema = t.Schema()
	return &SortedAggregateNode{aggregation: a}, nil
}

func (n *SortedAggregateNode) Accept(v Visitor) error { return v.VisitSortedAggregate(n) }
func (n *SortedAggregateNode) Explain() string        { return n.explain("SortedAggregate") }

func (n *SortedAggregateNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewSortedAggregate(children[0], n.groupBy, n.outputs, n.names)
}

// SortedTemporalAggregateNode aggregates, per group, the rows active over
// each interval between consecutive change points.
type SortedTemporalAggregateNode struct {
	aggregation
}

func NewSortedTemporalAggregate(input Node, groupBy []string, outputs []query.Expr, names []string) (*SortedTemporalAggregateNode, error) {
	a, err := newAggregation(input, groupBy, outputs, names)
	if err != nil {
		return nil, err
	}
	t, err := engine.NewTemporalAggregateTable(shape(input), a.cols, a.outputs, a.names)
	if err != nil {
		return nil, err
	}
	a.schema = t.Schema()
	return &SortedTemporalAggregateNode{aggregation: a}, nil
}

func (n *SortedTemporalAggregateNode) Accept(v Visitor) error { return v.VisitSortedTemporalAggregate(n) }
func (n *SortedTemporalAggregateNode) Explain() string        { return n.explain("SortedTemporalAggregate") }

func (n *SortedTemporalAggregateNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewSortedTemporalAggregate(children[0], n.groupBy, n.outputs, n.names)
}
