// Package planner lowers a parsed query into a physical plan.
package planner

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/plan"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// CreatePlan converts a Query IR into an Execution Plan. The plan is
// correct but naive: the join has no join columns and every sort is a full
// sort. The optimizer improves it.
func CreatePlan(q *query.SelectQuery, catalog *database.Catalog) (plan.Node, error) {
	// 1. Resolve Input (FROM / JOIN)
	current, qualifiers, err := lowerFrom(q, catalog)
	if err != nil {
		return nil, err
	}

	// 2. Apply WHERE (Filter)
	if q.Where != nil {
		pred, err := query.NewScope(current.Schema(), qualifiers...).Analyze(q.Where)
		if err != nil {
			return nil, errors.Wrap(err, "WHERE")
		}
		if current, err = plan.NewFilter(current, pred); err != nil {
			return nil, err
		}
	}

	// 3. Apply GroupBy / Aggregation, or the projection
	if q.IsAggregate() {
		current, err = lowerAggregate(q, current, qualifiers)
	} else {
		current, err = lowerProject(q, current, qualifiers)
	}
	if err != nil {
		return nil, err
	}

	// 4. ORDER BY and LIMIT
	if len(q.OrderBy) > 0 {
		scope := query.NewScope(current.Schema(), qualifiers...)
		keys := make([]plan.SortKey, len(q.OrderBy))
		for i, o := range q.OrderBy {
			c, err := scope.Resolve(o.Column)
			if err != nil {
				return nil, errors.Wrap(err, "ORDER BY")
			}
			keys[i] = plan.SortKey{Column: c.Name, Desc: o.Desc}
		}
		if current, err = plan.NewSort(current, keys); err != nil {
			return nil, err
		}
	}
	if q.Limit >= 0 {
		if current, err = plan.NewLimit(current, q.Limit); err != nil {
			return nil, err
		}
	}
	return current, nil
}

func lowerFrom(q *query.SelectQuery, catalog *database.Catalog) (plan.Node, []string, error) {
	from, err := catalog.GetTable(q.From.Name)
	if err != nil {
		return nil, nil, err
	}
	scan := plan.NewLinearTableScan(q.From.Name, from)
	if q.Join == nil {
		return scan, []string{q.From.Qualifier()}, nil
	}
	if q.Join.Qualifier() == q.From.Qualifier() {
		return nil, nil, errors.Wrapf(database.ErrDuplicateColumn, "both join inputs are qualified by %q", q.From.Qualifier())
	}
	joined, err := catalog.GetTable(q.Join.Name)
	if err != nil {
		return nil, nil, err
	}
	left, err := joinInput(scan, q.From.Qualifier())
	if err != nil {
		return nil, nil, err
	}
	right, err := joinInput(plan.NewLinearTableScan(q.Join.Name, joined), q.Join.Qualifier())
	if err != nil {
		return nil, nil, err
	}
	var current plan.Node
	if current, err = plan.NewSortedTemporalJoin(left, right, nil, nil, false); err != nil {
		return nil, nil, err
	}
	if q.On != nil {
		on, err := query.NewScope(current.Schema()).Analyze(q.On)
		if err != nil {
			return nil, nil, errors.Wrap(err, "ON")
		}
		if current, err = plan.NewFilter(current, on); err != nil {
			return nil, nil, err
		}
	}
	return current, nil, nil
}

// joinInput qualifies the columns of one join input and sorts it on all of
// its key columns.
func joinInput(scan plan.Node, qualifier string) (plan.Node, error) {
	schema := scan.Schema()
	if err := schema.RequireTemporal("temporal join"); err != nil {
		return nil, err
	}
	exprs := make([]query.Expr, schema.Len())
	names := make([]string, schema.Len())
	var keys []plan.SortKey
	for i, c := range schema.Columns() {
		ref, err := query.NewColumnRef(schema, c.Name())
		if err != nil {
			return nil, err
		}
		exprs[i], names[i] = ref, c.Name()
		if !database.IsReserved(c.Name()) {
			names[i] = qualifier + "." + c.Name()
		}
		if c.IsKey() {
			keys = append(keys, plan.SortKey{Column: names[i]})
		}
	}
	renamed, err := plan.NewProject(scan, exprs, names)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return renamed, nil
	}
	return plan.NewSort(renamed, keys)
}

func lowerAggregate(q *query.SelectQuery, input plan.Node, qualifiers []string) (plan.Node, error) {
	scope := query.NewScope(input.Schema(), qualifiers...)
	schema := input.Schema()
	groupBy := make([]string, len(q.GroupBy))
	grouped := make(map[string]bool, len(q.GroupBy))
	var keys []plan.SortKey
	for i, name := range q.GroupBy {
		c, err := scope.Resolve(name)
		if err != nil {
			return nil, errors.Wrap(err, "GROUP BY")
		}
		if !schema.Column(c.Index).IsKey() {
			return nil, errors.Wrapf(database.ErrNotKeyColumn, "GROUP BY %s", c.Name)
		}
		groupBy[i] = c.Name
		grouped[c.Name] = true
		keys = append(keys, plan.SortKey{Column: c.Name})
	}
	for _, i := range schema.KeyIndices() {
		if name := schema.Column(i).Name(); !grouped[name] {
			keys = append(keys, plan.SortKey{Column: name})
		}
	}

	var outputs []query.Expr
	var names []string
	for _, it := range q.Items {
		if it.Expr == nil {
			return nil, errors.New("* cannot be selected in an aggregation")
		}
		e, err := scope.Analyze(it.Expr)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, e)
		names = append(names, outputName(it, e))
	}

	sorted := input
	if len(keys) > 0 {
		var err error
		if sorted, err = plan.NewSort(input, keys); err != nil {
			return nil, err
		}
	}
	if q.Temporal {
		return plan.NewSortedTemporalAggregate(sorted, groupBy, outputs, names)
	}
	return plan.NewSortedAggregate(sorted, groupBy, outputs, names)
}

// lowerProject builds the Project for the select list. Over a temporal input
// the reserved columns come first whether selected or not. SELECT * alone
// needs no Project.
func lowerProject(q *query.SelectQuery, input plan.Node, qualifiers []string) (plan.Node, error) {
	scope := query.NewScope(input.Schema(), qualifiers...)
	schema := input.Schema()
	var exprs []query.Expr
	var names []string
	add := func(e query.Expr, name string) {
		exprs = append(exprs, e)
		names = append(names, name)
	}
	if schema.IsTemporal() {
		for i := 0; i < database.NumTimeColumns; i++ {
			ref, err := query.NewColumnRef(schema, schema.Column(i).Name())
			if err != nil {
				return nil, err
			}
			add(ref, ref.Name)
		}
	}
	for _, it := range q.Items {
		if it.Expr == nil {
			for _, c := range schema.Columns()[schema.FirstValueIndex():] {
				ref, err := query.NewColumnRef(schema, c.Name())
				if err != nil {
					return nil, err
				}
				add(ref, ref.Name)
			}
			continue
		}
		e, err := scope.Analyze(it.Expr)
		if err != nil {
			return nil, err
		}
		name := outputName(it, e)
		if c, ok := e.(*query.ColumnRef); ok && schema.IsTemporal() && database.IsReserved(c.Name) && name == c.Name {
			continue
		}
		add(e, name)
	}
	p, err := plan.NewProject(input, exprs, names)
	if err != nil {
		return nil, err
	}
	if p.IsIdentity() {
		return input, nil
	}
	return p, nil
}

// outputName is the alias, the resolved name of a bare column, or the
// expression text.
func outputName(it query.SelectItem, e query.Expr) string {
	if it.Alias != "" {
		return it.Alias
	}
	if c, ok := e.(*query.ColumnRef); ok {
		return c.Name
	}
	return e.String()
}
