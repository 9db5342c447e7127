package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/expr"
	"github.com/bisegni/tsq/pkg/query"
)

// FilterTable keeps the rows matching a predicate. Time series left without
// rows are dropped; a predicate over key columns only is evaluated once per
// time series.
type FilterTable struct {
	source    database.Table
	predicate query.Expr
	eval      expr.BooleanExpr
	keyOnly   bool
}

func NewFilterTable(source database.Table, predicate query.Expr) (*FilterTable, error) {
	if err := checkBound(predicate, source.Schema()); err != nil {
		return nil, err
	}
	eval, err := expr.CompileBoolean(predicate)
	if err != nil {
		return nil, err
	}
	return &FilterTable{
		source:    source,
		predicate: predicate,
		eval:      eval,
		keyOnly:   readsOnlyKeys(predicate, source.Schema()),
	}, nil
}

func (t *FilterTable) Schema() *database.Schema { return t.source.Schema() }

func (t *FilterTable) Iterate() database.TimeSeriesIterator {
	it := &filterIterator{table: t, source: t.source.Iterate()}
	it.Cursor = database.NewCursor(it.advance)
	it.view = &filterSeries{passthroughSeries: passthroughSeries{cursor: it.Cursor}, table: t}
	return it
}

type filterIterator struct {
	*database.Cursor
	table  *FilterTable
	source database.TimeSeriesIterator
	view   *filterSeries
}

func (it *filterIterator) advance() bool {
	for it.source.LoadNext() {
		ts := it.source.TimeSeries()
		if it.matches(ts) {
			it.view.src = ts
			return true
		}
	}
	return false
}

func (it *filterIterator) matches(ts database.TimeSeries) bool {
	if it.table.keyOnly {
		return it.table.eval(ts)
	}
	rows := ts.Rows()
	for rows.LoadNext() {
		if it.table.eval(rows.Row()) {
			return true
		}
	}
	return false
}

func (it *filterIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}

type filterSeries struct {
	passthroughSeries
	table *FilterTable
}

func (s *filterSeries) Rows() database.RowIterator {
	src := s.derive()
	if s.table.keyOnly {
		return src
	}
	it := &filterRowIterator{source: src, eval: s.table.eval}
	it.Cursor = database.NewCursor(it.advance)
	return it
}

type filterRowIterator struct {
	*database.Cursor
	source database.RowIterator
	eval   expr.BooleanExpr
}

func (it *filterRowIterator) advance() bool {
	for it.source.LoadNext() {
		if it.eval(it.source.Row()) {
			return true
		}
	}
	return false
}

func (it *filterRowIterator) Row() database.Row {
	it.MustBeValid()
	return it.source.Row()
}
