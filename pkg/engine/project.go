package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/expr"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// ProjectTable computes one output column per expression. Time series
// boundaries are kept; an output is a key column when its expression reads
// key columns only.
type ProjectTable struct {
	source database.Table
	schema *database.Schema
	exprs  []expr.Expr
}

func NewProjectTable(source database.Table, exprs []query.Expr, names []string) (*ProjectTable, error) {
	if len(exprs) != len(names) {
		return nil, errors.AssertionFailedf("%d expressions for %d names", len(exprs), len(names))
	}
	in := source.Schema()
	columns := make([]database.Column, len(exprs))
	compiled := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		if err := checkBound(e, in); err != nil {
			return nil, err
		}
		if query.ContainsAggregate(e) {
			return nil, errors.Newf("aggregate %s in projection", e)
		}
		c, err := expr.Compile(e)
		if err != nil {
			return nil, err
		}
		compiled[i] = c
		isKey := !database.IsReserved(names[i]) && readsOnlyKeys(e, in)
		columns[i] = database.NewColumn(names[i], e.Type(), isKey)
	}
	schema, err := database.NewSchema(columns...)
	if err != nil {
		return nil, err
	}
	return &ProjectTable{source: source, schema: schema, exprs: compiled}, nil
}

func (t *ProjectTable) Schema() *database.Schema { return t.schema }

func (t *ProjectTable) Iterate() database.TimeSeriesIterator {
	it := &projectIterator{source: t.source.Iterate()}
	it.Cursor = database.NewCursor(it.advance)
	it.view = &projectSeries{passthroughSeries: passthroughSeries{cursor: it.Cursor}, table: t}
	return it
}

type projectIterator struct {
	*database.Cursor
	source database.TimeSeriesIterator
	view   *projectSeries
}

func (it *projectIterator) advance() bool {
	if !it.source.LoadNext() {
		return false
	}
	it.view.src = it.source.TimeSeries()
	return true
}

func (it *projectIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}

// projectSeries evaluates key outputs on the source time series.
type projectSeries struct {
	passthroughSeries
	table *ProjectTable
}

func (s *projectSeries) output(c int) expr.Expr {
	s.cursor.MustBeValid()
	mustBeKey(s.table.schema, c)
	return s.table.exprs[c]
}

func (s *projectSeries) GetBoolean(c int) bool    { return s.output(c).Boolean()(s.src) }
func (s *projectSeries) GetNumeric(c int) float64 { return s.output(c).Numeric()(s.src) }
func (s *projectSeries) GetString(c int) string   { return s.output(c).Str()(s.src) }

func (s *projectSeries) Rows() database.RowIterator {
	it := &projectRowIterator{source: s.derive()}
	it.row.exprs = s.table.exprs
	return it
}

type projectRowIterator struct {
	source database.RowIterator
	row    projectRow
}

func (it *projectRowIterator) LoadNext() bool { return it.source.LoadNext() }
func (it *projectRowIterator) PushBack() bool { return it.source.PushBack() }

func (it *projectRowIterator) Row() database.Row {
	it.row.src = it.source.Row()
	return &it.row
}

// projectRow evaluates output expressions lazily against the source row.
type projectRow struct {
	src   database.Record
	exprs []expr.Expr
}

func (r *projectRow) GetBoolean(c int) bool    { return r.exprs[c].Boolean()(r.src) }
func (r *projectRow) GetNumeric(c int) float64 { return r.exprs[c].Numeric()(r.src) }
func (r *projectRow) GetString(c int) string   { return r.exprs[c].Str()(r.src) }
