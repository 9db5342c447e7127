package query

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// Children returns the direct operands of e.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *UnaryExpr:
		return []Expr{n.Operand}
	case *BinaryExpr:
		return []Expr{n.Left, n.Right}
	case *CallExpr:
		return n.Args
	case *AggregateExpr:
		return n.Args
	default:
		return nil
	}
}

// Walk visits e in pre-order; returning false from fn skips the operands.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Transform rebuilds e bottom-up, replacing every node by fn's result.
// Operator nodes are re-checked through their constructors.
func Transform(e Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	var err error
	switch n := e.(type) {
	case *UnaryExpr:
		var operand Expr
		if operand, err = Transform(n.Operand, fn); err != nil {
			return nil, err
		}
		if e, err = NewUnary(n.Op, operand); err != nil {
			return nil, err
		}
	case *BinaryExpr:
		var left, right Expr
		if left, err = Transform(n.Left, fn); err != nil {
			return nil, err
		}
		if right, err = Transform(n.Right, fn); err != nil {
			return nil, err
		}
		if e, err = NewBinary(n.Op, left, right); err != nil {
			return nil, err
		}
	case *CallExpr:
		args, err := transformAll(n.Args, fn)
		if err != nil {
			return nil, err
		}
		if e, err = NewCall(n.Func, args...); err != nil {
			return nil, err
		}
	case *AggregateExpr:
		args, err := transformAll(n.Args, fn)
		if err != nil {
			return nil, err
		}
		if e, err = NewAggregate(string(n.Func), args...); err != nil {
			return nil, err
		}
	}
	return fn(e)
}

func transformAll(exprs []Expr, fn func(Expr) (Expr, error)) ([]Expr, error) {
	out := make([]Expr, len(exprs))
	for i, a := range exprs {
		var err error
		if out[i], err = Transform(a, fn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Conjuncts splits e on top-level ANDs.
func Conjuncts(e Expr) []Expr {
	if b, ok := e.(*BinaryExpr); ok && b.Op == OpAnd {
		return append(Conjuncts(b.Left), Conjuncts(b.Right)...)
	}
	if e == nil {
		return nil
	}
	return []Expr{e}
}

// Conjoin ANDs exprs together, left-deep. It returns nil for an empty list.
func Conjoin(exprs []Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if out == nil {
			out = e
			continue
		}
		// both operands are boolean conjuncts, so this cannot fail
		out = &BinaryExpr{Op: OpAnd, Left: out, Right: e, typ: database.Boolean}
	}
	return out
}

// ColumnNames lists the columns e reads, in first-use order.
func ColumnNames(e Expr) []string {
	var names []string
	seen := map[string]bool{}
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*ColumnRef); ok && !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
		return true
	})
	return names
}

// ColumnIndices lists the column indices e reads, in first-use order.
func ColumnIndices(e Expr) []int {
	var indices []int
	seen := map[int]bool{}
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*ColumnRef); ok && !seen[c.Index] {
			seen[c.Index] = true
			indices = append(indices, c.Index)
		}
		return true
	})
	return indices
}

// ReadsOnly reports whether every column e reads satisfies pred.
func ReadsOnly(e Expr, pred func(*ColumnRef) bool) bool {
	ok := true
	Walk(e, func(n Expr) bool {
		if c, is := n.(*ColumnRef); is && !pred(c) {
			ok = false
		}
		return ok
	})
	return ok
}

// ContainsAggregate reports whether e has an aggregate anywhere.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(*AggregateExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

// Rebind re-resolves every column reference of e by name against schema.
func Rebind(e Expr, schema *database.Schema) (Expr, error) {
	return Transform(e, func(n Expr) (Expr, error) {
		c, ok := n.(*ColumnRef)
		if !ok {
			return n, nil
		}
		i, col, err := schema.Lookup(c.Name)
		if err != nil {
			return nil, err
		}
		if col.Type() != c.Typ {
			return nil, errors.Wrapf(database.ErrTypeMismatch, "column %q changed type from %s to %s", c.Name, c.Typ, col.Type())
		}
		if i == c.Index {
			return c, nil
		}
		return &ColumnRef{Name: c.Name, Index: i, Typ: c.Typ}, nil
	})
}

// MustRebind is Rebind for schemas known to contain every referenced column.
func MustRebind(e Expr, schema *database.Schema) Expr {
	out, err := Rebind(e, schema)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "rebinding %s", e))
	}
	return out
}

// SubstituteColumns replaces each column reference with index i by defs[i].
func SubstituteColumns(e Expr, defs []Expr) (Expr, error) {
	return Transform(e, func(n Expr) (Expr, error) {
		c, ok := n.(*ColumnRef)
		if !ok {
			return n, nil
		}
		if c.Index < 0 || c.Index >= len(defs) {
			return nil, errors.AssertionFailedf("column %q index %d has no definition", c.Name, c.Index)
		}
		return defs[c.Index], nil
	})
}

// Equal compares two expressions structurally.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type() == b.Type() && a.String() == b.String()
}
