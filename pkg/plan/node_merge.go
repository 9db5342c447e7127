package plan

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
)

// IntervalMergingNode coalesces adjacent rows with equal values.
type IntervalMergingNode struct {
	input Node
}

func NewIntervalMerging(input Node) (*IntervalMergingNode, error) {
	if _, err := engine.NewIntervalMergingTable(shape(input)); err != nil {
		return nil, err
	}
	return &IntervalMergingNode{input: input}, nil
}

func (n *IntervalMergingNode) Input() Node              { return n.input }
func (n *IntervalMergingNode) Schema() *database.Schema { return n.input.Schema() }
func (n *IntervalMergingNode) Children() []Node         { return []Node{n.input} }
func (n *IntervalMergingNode) Accept(v Visitor) error   { return v.VisitIntervalMerging(n) }
func (n *IntervalMergingNode) Explain() string          { return "IntervalMerging()" }

func (n *IntervalMergingNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewIntervalMerging(children[0])
}
