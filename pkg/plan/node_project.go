package plan

import (
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
	"github.com/bisegni/tsq/pkg/query"
)

// ProjectNode computes one named output column per expression.
type ProjectNode struct {
	input  Node
	exprs  []query.Expr
	names  []string
	schema *database.Schema
}

func NewProject(input Node, exprs []query.Expr, names []string) (*ProjectNode, error) {
	bound, err := rebindAll(exprs, input.Schema())
	if err != nil {
		return nil, err
	}
	t, err := engine.NewProjectTable(shape(input), bound, names)
	if err != nil {
		return nil, err
	}
	return &ProjectNode{input: input, exprs: bound, names: append([]string(nil), names...), schema: t.Schema()}, nil
}

// NewIdentityProject keeps the named columns of input, in the given order.
func NewIdentityProject(input Node, names []string) (*ProjectNode, error) {
	exprs := make([]query.Expr, len(names))
	for i, name := range names {
		c, err := query.NewColumnRef(input.Schema(), name)
		if err != nil {
			return nil, err
		}
		exprs[i] = c
	}
	return NewProject(input, exprs, names)
}

func (n *ProjectNode) Input() Node              { return n.input }
func (n *ProjectNode) Exprs() []query.Expr      { return n.exprs }
func (n *ProjectNode) Names() []string          { return n.names }
func (n *ProjectNode) Schema() *database.Schema { return n.schema }
func (n *ProjectNode) Children() []Node         { return []Node{n.input} }
func (n *ProjectNode) Accept(v Visitor) error   { return v.VisitProject(n) }

func (n *ProjectNode) WithChildren(children ...Node) (Node, error) {
	if err := expectChildren(n, children, 1); err != nil {
		return nil, err
	}
	return NewProject(children[0], n.exprs, n.names)
}

// IsIdentity reports whether the node passes its input through unchanged.
func (n *ProjectNode) IsIdentity() bool {
	in := n.input.Schema()
	if len(n.exprs) != in.Len() {
		return false
	}
	for i, e := range n.exprs {
		c, ok := e.(*query.ColumnRef)
		if !ok || c.Index != i || n.names[i] != c.Name {
			return false
		}
	}
	return n.schema.Equal(in)
}

// DropsValues reports whether some value column of the input is not passed
// through, possibly renamed.
func (n *ProjectNode) DropsValues() bool {
	kept := make(map[string]bool, len(n.exprs))
	for _, e := range n.exprs {
		if c, ok := e.(*query.ColumnRef); ok {
			kept[c.Name] = true
		}
	}
	in := n.input.Schema()
	for _, c := range in.ValueIndices() {
		if !kept[in.Column(c).Name()] {
			return true
		}
	}
	return false
}

func (n *ProjectNode) Explain() string {
	return "Project(columns: [" + formatOutputs(n.exprs, n.names) + "])"
}

func formatOutputs(exprs []query.Expr, names []string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
		if names[i] != parts[i] {
			parts[i] += " AS " + names[i]
		}
	}
	return strings.Join(parts, ", ")
}
