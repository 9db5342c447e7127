package query

import (
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConjuncts(t *testing.T) {
	scope := cpuScope(t)
	e, err := scope.AnalyzeString("load > 1 AND (idle AND host = 'a') AND (idle OR load < 0)")
	require.NoError(t, err)

	parts := Conjuncts(e)
	require.Len(t, parts, 4)
	assert.Equal(t, "(idle OR (load < 0))", parts[3].String())
	assert.Equal(t, "((((load > 1) AND idle) AND (host = 'a')) AND (idle OR (load < 0)))", Conjoin(parts).String())
	assert.Nil(t, Conjoin(nil))
	assert.Nil(t, Conjuncts(nil))
}

func TestColumnHelpers(t *testing.T) {
	scope := cpuScope(t)
	e, err := scope.AnalyzeString("load + load > _duration AND host = 'a'")
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "_duration", "host"}, ColumnNames(e))
	assert.Equal(t, []int{4, 2, 3}, ColumnIndices(e))
	assert.False(t, ContainsAggregate(e))
	assert.True(t, ReadsOnly(e, func(c *ColumnRef) bool { return c.Index >= 2 }))
	assert.False(t, ReadsOnly(e, func(c *ColumnRef) bool { return c.Name != "host" }))

	agg, err := scope.AnalyzeString("SUM(load) + 1")
	require.NoError(t, err)
	assert.True(t, ContainsAggregate(agg))
}

func TestRebind(t *testing.T) {
	scope := cpuScope(t)
	e, err := scope.AnalyzeString("load > 1 AND host = 'a'")
	require.NoError(t, err)

	narrow := database.MustSchema(
		database.NewColumn("host", database.String, true),
		database.NewColumn("load", database.Numeric, false),
	)
	rebound, err := Rebind(e, narrow)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ColumnIndices(rebound))
	assert.Equal(t, e.String(), rebound.String())

	_, err = Rebind(e, database.MustSchema(database.NewColumn("load", database.Numeric, false)))
	assert.Error(t, err)

	retyped := database.MustSchema(database.NewColumn("load", database.String, false), database.NewColumn("host", database.String, true))
	_, err = Rebind(e, retyped)
	assert.Error(t, err)
}

func TestSubstituteColumns(t *testing.T) {
	scope := cpuScope(t)
	outer, err := scope.AnalyzeString("load > 1")
	require.NoError(t, err)

	doubled, err := scope.AnalyzeString("load * 2")
	require.NoError(t, err)
	defs := make([]Expr, 6)
	defs[4] = doubled

	out, err := SubstituteColumns(outer, defs)
	require.NoError(t, err)
	assert.Equal(t, "((load * 2) > 1)", out.String())

	_, err = SubstituteColumns(outer, defs[:2])
	assert.Error(t, err)
}

func TestOpMirror(t *testing.T) {
	assert.Equal(t, OpGt, OpLt.Mirror())
	assert.Equal(t, OpLe, OpGe.Mirror())
	assert.Equal(t, OpEq, OpEq.Mirror())
	assert.True(t, OpNe.IsComparison())
	assert.False(t, OpMatch.IsComparison())
}
