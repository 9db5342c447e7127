package plan

import (
	"fmt"
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
)

// SortKey is one sort column, by name.
type SortKey struct {
	Column string
	Desc   bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Column + " DESC"
	}
	return k.Column + " ASC"
}

func formatKeys(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

// SortNode orders rows by its keys. The leading keys already guaranteed by
// the input's ordering, when they are key columns, are not sorted again and
// only delimit the runs that are.
type SortNode struct {
	input     Node
	keys      []SortKey
	columns   []engine.SortColumn
	preSorted int
	schema    *database.Schema
}

func NewSort(input Node, keys []SortKey) (*SortNode, error) {
	in := input.Schema()
	columns := make([]engine.SortColumn, len(keys))
	for i, k := range keys {
		c, _, err := in.Lookup(k.Column)
		if err != nil {
			return nil, err
		}
		columns[i] = engine.SortColumn{Index: c, Desc: k.Desc}
	}
	preSorted := 0
	for i, k := range Ordering(input) {
		if i >= len(keys) || keys[i] != k || !in.Column(columns[i].Index).IsKey() {
			break
		}
		preSorted++
	}
	t, err := engine.NewSortTable(shape(input), columns, preSorted)
	if err != nil {
		return nil, err
	}
	return &SortNode{
		input:     input,
		keys:      append([]SortKey(nil), keys...),
		columns:   columns,
		preSorted: preSorted,
		schema:    t.Schema(),
	}, nil
}

func (n *SortNode) Input() Node              { return n.input }
func (n *SortNode) Keys() []SortKey          { return n.keys }
func (n *SortNode) PreSorted() int           { return n.preSorted }
func (n *SortNode) Schema() *database.Schema { return n.schema }
func (n *SortNode) Children() []Node         { return []Node{n.input} }
func (n *SortNode) Accept(v Visitor) error   { return v.VisitSort(n) }

func (n *SortNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewSort(children[0], n.keys)
}

func (n *SortNode) Explain() string {
	s := fmt.Sprintf("Sort(columns: [%s]", formatKeys(n.keys))
	if n.preSorted > 0 {
		s += fmt.Sprintf(", pre-sorted: %d", n.preSorted)
	}
	return s + ")"
}
