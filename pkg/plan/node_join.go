package plan

import (
	"fmt"
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/cockroachdb/errors"
)

// SortedTemporalJoinNode joins two inputs on equal key columns and
// overlapping time. Both inputs must be sorted ascending on their join
// columns, in join order.
type SortedTemporalJoinNode struct {
	left, right     Node
	leftOn, rightOn []string
	dropRight       bool
	schema          *database.Schema
}

func NewSortedTemporalJoin(left, right Node, leftOn, rightOn []string, dropRight bool) (*SortedTemporalJoinNode, error) {
	lcols, err := indices(left.Schema(), leftOn)
	if err != nil {
		return nil, err
	}
	rcols, err := indices(right.Schema(), rightOn)
	if err != nil {
		return nil, err
	}
	if err := checkSortedOn(left, leftOn, "left"); err != nil {
		return nil, err
	}
	if err := checkSortedOn(right, rightOn, "right"); err != nil {
		return nil, err
	}
	t, err := engine.NewTemporalJoinTable(shape(left), shape(right), lcols, rcols, dropRight)
	if err != nil {
		return nil, err
	}
	return &SortedTemporalJoinNode{
		left:      left,
		right:     right,
		leftOn:    append([]string(nil), leftOn...),
		rightOn:   append([]string(nil), rightOn...),
		dropRight: dropRight,
		schema:    t.Schema(),
	}, nil
}

func checkSortedOn(input Node, on []string, side string) error {
	ordering := Ordering(input)
	ok := len(ordering) >= len(on)
	for i := 0; ok && i < len(on); i++ {
		ok = ordering[i] == SortKey{Column: on[i]}
	}
	if !ok {
		return errors.Wrapf(database.ErrJoinColumns, "%s input ordered by [%s], join needs [%s] ascending",
			side, formatKeys(ordering), strings.Join(on, ", "))
	}
	return nil
}

func (n *SortedTemporalJoinNode) Left() Node               { return n.left }
func (n *SortedTemporalJoinNode) Right() Node              { return n.right }
func (n *SortedTemporalJoinNode) LeftOn() []string         { return n.leftOn }
func (n *SortedTemporalJoinNode) RightOn() []string        { return n.rightOn }
func (n *SortedTemporalJoinNode) DropRight() bool          { return n.dropRight }
func (n *SortedTemporalJoinNode) Schema() *database.Schema { return n.schema }
func (n *SortedTemporalJoinNode) Children() []Node         { return []Node{n.left, n.right} }
func (n *SortedTemporalJoinNode) Accept(v Visitor) error   { return v.VisitSortedTemporalJoin(n) }

func (n *SortedTemporalJoinNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 2); err != nil {
		return nil, err
	}
	return NewSortedTemporalJoin(children[0], children[1], n.leftOn, n.rightOn, n.dropRight)
}

func (n *SortedTemporalJoinNode) Explain() string {
	pairs := make([]string, len(n.leftOn))
	for i := range n.leftOn {
		pairs[i] = n.leftOn[i] + " = " + n.rightOn[i]
	}
	return fmt.Sprintf("SortedTemporalJoin(on: [%s], drop right: %t)", strings.Join(pairs, ", "), n.dropRight)
}
