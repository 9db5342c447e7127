package query

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("select host, SUM(load) as total from cpu c where load > 0.5 and NOT idle group by host order by host desc limit 10;")
	require.NoError(t, err)

	assert.Equal(t, TableRef{Name: "cpu", Alias: "c"}, q.From)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "host", q.Items[0].Expr.String())
	assert.Equal(t, "SUM(load)", q.Items[1].Expr.String())
	assert.Equal(t, "total", q.Items[1].Alias)
	assert.Equal(t, "load > 0.5 AND NOT idle", q.Where.String())
	assert.Equal(t, []string{"host"}, q.GroupBy)
	assert.False(t, q.Temporal)
	assert.Equal(t, []OrderItem{{Column: "host", Desc: true}}, q.OrderBy)
	assert.Equal(t, 10, q.Limit)
	assert.True(t, q.IsAggregate())
}

func TestParseJoin(t *testing.T) {
	q, err := ParseQuery("SELECT * FROM a JOIN b ON a.key = b.key AND a.v ~= 'x/*'")
	require.NoError(t, err)

	require.Len(t, q.Items, 1)
	assert.Nil(t, q.Items[0].Expr)
	require.NotNil(t, q.Join)
	assert.Equal(t, "b", q.Join.Qualifier())
	assert.Equal(t, "a.key = b.key AND a.v ~= 'x/*'", q.On.String())
	assert.Equal(t, -1, q.Limit)
	assert.False(t, q.IsAggregate())
}

func TestParseTemporalGroupBy(t *testing.T) {
	q, err := ParseQuery("SELECT COUNT(*), region FROM cpu TEMPORAL GROUP BY region")
	require.NoError(t, err)
	assert.True(t, q.Temporal)
	assert.Equal(t, "COUNT(*)", q.Items[0].Expr.String())
}

func TestParseFunctionArguments(t *testing.T) {
	q, err := ParseQuery("SELECT COUNT() FROM t")
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	assert.Equal(t, "COUNT()", q.Items[0].Expr.String())

	q, err = ParseQuery("SELECT WEIGHTED_AVG(load, weight), CONCAT(a, '-', b) FROM t")
	require.NoError(t, err)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "WEIGHTED_AVG(load, weight)", q.Items[0].Expr.String())
	assert.Equal(t, "CONCAT(a, '-', b)", q.Items[1].Expr.String())
}

func TestParsePrecedence(t *testing.T) {
	e, err := ParseExpression("a + b * -2 = 4 OR c AND (d OR e)")
	require.NoError(t, err)
	require.Len(t, e.Or, 2)
	assert.Len(t, e.Or[1].And, 2)
	assert.Equal(t, "a + b * -2 = 4 OR c AND (d OR e)", e.String())
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"SELECT",
		"SELECT a FROM",
		"SELECT a FROM t LIMIT x",
		"SELECT a FROM t WHERE",
	} {
		_, err := ParseQuery(input)
		require.Error(t, err, input)
		assert.NotNil(t, errors.GetReportableStackTrace(err), input)
	}
}
