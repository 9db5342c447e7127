package optimizer

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
)

// PromoteJoinColumns turns conjuncts left.key = right.key in a Filter above
// a join into join columns. The join inputs are re-sorted so that the join
// columns lead their ordering.
func PromoteJoinColumns(root plan.Node) (plan.Node, error) {
	return plan.Transform(root, func(n plan.Node) (plan.Node, error) {
		f, ok := n.(*plan.FilterNode)
		if !ok {
			return n, nil
		}
		j, ok := f.Input().(*plan.SortedTemporalJoinNode)
		if !ok {
			return n, nil
		}
		leftOn := append([]string(nil), j.LeftOn()...)
		rightOn := append([]string(nil), j.RightOn()...)
		var kept []query.Expr
		for _, c := range query.Conjuncts(f.Predicate()) {
			l, r, ok := joinEquality(j, c, leftOn)
			if !ok {
				kept = append(kept, c)
				continue
			}
			leftOn = append(leftOn, l)
			rightOn = append(rightOn, r)
		}
		if len(leftOn) == len(j.LeftOn()) {
			return n, nil
		}
		left, err := sortedOn(j.Left(), leftOn)
		if err != nil {
			return n, nil
		}
		right, err := sortedOn(j.Right(), rightOn)
		if err != nil {
			return n, nil
		}
		out, err := plan.NewSortedTemporalJoin(left, right, leftOn, rightOn, j.DropRight())
		if err != nil {
			return n, nil
		}
		return refilter(f, out, kept), nil
	})
}

// joinEquality matches a = b where a is a key column of the left input and b
// one of the right input, in either order. It returns the column names on
// each side.
func joinEquality(j *plan.SortedTemporalJoinNode, c query.Expr, leftOn []string) (string, string, bool) {
	b, ok := c.(*query.BinaryExpr)
	if !ok || b.Op != query.OpEq {
		return "", "", false
	}
	x, xok := b.Left.(*query.ColumnRef)
	y, yok := b.Right.(*query.ColumnRef)
	if !xok || !yok {
		return "", "", false
	}
	firstRight := j.Left().Schema().Len()
	if x.Index >= firstRight {
		x, y = y, x
	}
	if x.Index < database.NumTimeColumns || x.Index >= firstRight || y.Index < firstRight {
		return "", "", false
	}
	for _, name := range leftOn {
		if name == x.Name {
			return "", "", false
		}
	}
	if !isKey(j.Left().Schema(), x.Name) || !isKey(j.Right().Schema(), y.Name) {
		return "", "", false
	}
	return x.Name, y.Name, true
}

func isKey(s *database.Schema, name string) bool {
	i, ok := s.IndexOf(name)
	return ok && s.Column(i).IsKey()
}

// sortedOn re-sorts n so that the columns on lead its ordering ascending,
// looking through Filters for the Sort to rewrite.
func sortedOn(n plan.Node, on []string) (plan.Node, error) {
	keys := make([]plan.SortKey, len(on))
	leading := make(map[string]bool, len(on))
	for i, c := range on {
		keys[i] = plan.SortKey{Column: c}
		leading[c] = true
	}
	switch x := n.(type) {
	case *plan.FilterNode:
		in, err := sortedOn(x.Input(), on)
		if err != nil {
			return nil, err
		}
		return x.WithChildren(in)
	case *plan.SortNode:
		for _, k := range x.Keys() {
			if !leading[k.Column] {
				keys = append(keys, k)
			}
		}
		return plan.NewSort(x.Input(), keys)
	default:
		return plan.NewSort(n, keys)
	}
}
