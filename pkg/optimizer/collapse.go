package optimizer

import (
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
)

// CollapseProjects merges a Project into the Project below it by
// substituting the inner expressions, and removes identity Projects.
func CollapseProjects(root plan.Node) (plan.Node, error) {
	return plan.Transform(root, func(n plan.Node) (plan.Node, error) {
		p, ok := n.(*plan.ProjectNode)
		if !ok {
			return n, nil
		}
		if inner, ok := p.Input().(*plan.ProjectNode); ok {
			exprs := make([]query.Expr, len(p.Exprs()))
			for i, e := range p.Exprs() {
				s, err := query.SubstituteColumns(e, inner.Exprs())
				if err != nil {
					return n, nil
				}
				exprs[i] = s
			}
			merged, err := plan.NewProject(inner.Input(), exprs, p.Names())
			if err != nil {
				return n, nil
			}
			p = merged
		}
		if p.IsIdentity() {
			return p.Input(), nil
		}
		return p, nil
	})
}
