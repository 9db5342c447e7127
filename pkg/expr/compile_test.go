package expr

import (
	"math"
	"testing"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = database.MustSchema(
	database.NewColumn("path", database.String, true),
	database.NewColumn("x", database.Numeric, false),
	database.NewColumn("y", database.Numeric, false),
	database.NewColumn("ok", database.Boolean, false),
	database.NewColumn("pattern", database.String, false),
)

func testRow(t *testing.T, values ...interface{}) database.Record {
	t.Helper()
	table, err := database.NewTableBuilder(testSchema).AddRow(values...).Build()
	require.NoError(t, err)
	rows := table.Series(0).Rows()
	require.True(t, rows.LoadNext())
	return rows.Row()
}

func compileString(t *testing.T, input string) Expr {
	t.Helper()
	e, err := query.NewScope(testSchema).AnalyzeString(input)
	require.NoError(t, err)
	out, err := Compile(e)
	require.NoError(t, err)
	return out
}

func TestCompileEvaluates(t *testing.T) {
	row := testRow(t, "srv/web/api", 7.0, 2.0, true, "srv/**")
	tests := []struct {
		input string
		want  interface{}
	}{
		{"x + y * 2", 11.0},
		{"x / y", 3.5},
		{"x % y", 1.0},
		{"-x", -7.0},
		{"ABS(y - x)", 5.0},
		{"x > y AND ok", true},
		{"x < y OR NOT ok", false},
		{"x = 7", true},
		{"x != 7", false},
		{"x >= 7 AND x <= 7", true},
		{"path < 'srv/z'", true},
		{"ok = TRUE", true},
		{"ok > FALSE", true},
		{"UPPER(path)", "SRV/WEB/API"},
		{"LOWER('ABC')", "abc"},
		{"LENGTH(path)", 11.0},
		{"CONCAT(path, '/', 'v1')", "srv/web/api/v1"},
		{"path ~= 'srv/*/api'", true},
		{"path ~= pattern", true},
		{"'srv/**/x' ~= path", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e := compileString(t, tt.input)
			assert.Equal(t, tt.want, e.Value(row).Interface())
		})
	}
}

func TestCompileIEEEArithmetic(t *testing.T) {
	row := testRow(t, "p", 1.0, 0.0, false, "")
	assert.True(t, math.IsInf(compileString(t, "x / y").Numeric()(row), 1))
	assert.True(t, math.IsNaN(compileString(t, "y / y").Numeric()(row)))
}

func TestCompileTypedAccessors(t *testing.T) {
	e := compileString(t, "x > 1")
	assert.Equal(t, database.Boolean, e.Type())
	assert.NotNil(t, e.Boolean())
	assert.Panics(t, func() { e.Numeric() })
	assert.Panics(t, func() { e.Str() })
	assert.Equal(t, "(x > 1)", e.String())
}

func TestCompileRejects(t *testing.T) {
	agg, err := query.NewAggregate("SUM", &query.ColumnRef{Name: "x", Index: 1, Typ: database.Numeric})
	require.NoError(t, err)
	_, err = Compile(agg)
	assert.Error(t, err)

	left := query.NewLiteral(database.StringValue("a/*"))
	right := query.NewLiteral(database.StringValue("*/b"))
	match, err := query.NewBinary(query.OpMatch, left, right)
	require.NoError(t, err)
	_, err = Compile(match)
	assert.Error(t, err)

	mixed := &query.BinaryExpr{Op: query.OpEq, Left: query.NewLiteral(database.NumericValue(1)), Right: left}
	_, err = Compile(mixed)
	assert.True(t, errors.Is(err, database.ErrTypeMismatch))

	_, err = CompileBoolean(query.NewLiteral(database.NumericValue(1)))
	assert.True(t, errors.Is(err, database.ErrTypeMismatch))
}

func TestMatchBothPatternsAtRuntime(t *testing.T) {
	row := testRow(t, "a/*", 0.0, 0.0, false, "*/b")
	e := compileString(t, "path ~= pattern")
	assert.PanicsWithError(t, "evaluation error: both operands of ~= are patterns: \"a/*\" and \"*/b\"", func() {
		e.Boolean()(row)
	})
}

func TestNaNComparison(t *testing.T) {
	row := testRow(t, "p", math.NaN(), 1.0, false, "")
	assert.Equal(t, true, compileString(t, "x < y").Value(row).Interface())
	assert.Equal(t, true, compileString(t, "x = x").Value(row).Interface())
}
