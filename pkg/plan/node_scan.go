package plan

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/database"
)

// LinearTableScanNode reads a named table front to back.
type LinearTableScanNode struct {
	name  string
	table database.Table
}

func NewLinearTableScan(name string, table database.Table) *LinearTableScanNode {
	return &LinearTableScanNode{name: name, table: table}
}

func (n *LinearTableScanNode) Name() string             { return n.name }
func (n *LinearTableScanNode) Table() database.Table    { return n.table }
func (n *LinearTableScanNode) Schema() *database.Schema { return n.table.Schema() }
func (n *LinearTableScanNode) Children() []Node         { return nil }
func (n *LinearTableScanNode) Accept(v Visitor) error   { return v.VisitLinearTableScan(n) }

func (n *LinearTableScanNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 0); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *LinearTableScanNode) Explain() string {
	return fmt.Sprintf("LinearTableScan(table: %s)", n.name)
}
