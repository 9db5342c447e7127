package plan

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
)

// LimitNode stops after a number of rows, counted across time series.
type LimitNode struct {
	input Node
	rows  int
}

func NewLimit(input Node, rows int) (*LimitNode, error) {
	if _, err := engine.NewLimitTable(shape(input), rows); err != nil {
		return nil, err
	}
	return &LimitNode{input: input, rows: rows}, nil
}

func (n *LimitNode) Input() Node              { return n.input }
func (n *LimitNode) Rows() int                { return n.rows }
func (n *LimitNode) Schema() *database.Schema { return n.input.Schema() }
func (n *LimitNode) Children() []Node         { return []Node{n.input} }
func (n *LimitNode) Accept(v Visitor) error   { return v.VisitLimit(n) }
func (n *LimitNode) Explain() string          { return fmt.Sprintf("Limit(rows: %d)", n.rows) }

func (n *LimitNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewLimit(children[0], n.rows)
}
