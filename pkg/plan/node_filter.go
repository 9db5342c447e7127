package plan

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/bisegni/tsq/pkg/query"
)

// FilterNode keeps the rows matching a boolean predicate.
type FilterNode struct {
	input     Node
	predicate query.Expr
}

func NewFilter(input Node, predicate query.Expr) (*FilterNode, error) {
	p, err := query.Rebind(predicate, input.Schema())
	if err != nil {
		return nil, err
	}
	if _, err := engine.NewFilterTable(shape(input), p); err != nil {
		return nil, err
	}
	return &FilterNode{input: input, predicate: p}, nil
}

func (n *FilterNode) Input() Node              { return n.input }
func (n *FilterNode) Predicate() query.Expr    { return n.predicate }
func (n *FilterNode) Schema() *database.Schema { return n.input.Schema() }
func (n *FilterNode) Children() []Node         { return []Node{n.input} }
func (n *FilterNode) Accept(v Visitor) error   { return v.VisitFilter(n) }

func (n *FilterNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewFilter(children[0], n.predicate)
}

func (n *FilterNode) Explain() string {
	return "Filter(predicate: " + n.predicate.String() + ")"
}
