package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// LimitTable delivers at most limit rows across the whole stream. The time
// series reaching the limit is truncated and later ones are not delivered.
type LimitTable struct {
	source database.Table
	limit  int
}

func NewLimitTable(source database.Table, limit int) (*LimitTable, error) {
	if limit < 0 {
		return nil, errors.Newf("negative limit %d", limit)
	}
	return &LimitTable{source: source, limit: limit}, nil
}

func (t *LimitTable) Schema() *database.Schema { return t.source.Schema() }

func (t *LimitTable) Limit() int { return t.limit }

func (t *LimitTable) Iterate() database.TimeSeriesIterator {
	it := &limitIterator{source: t.source.Iterate(), remaining: t.limit}
	it.Cursor = database.NewCursor(it.advance)
	it.view = &limitSeries{passthroughSeries: passthroughSeries{cursor: it.Cursor}}
	return it
}

type limitIterator struct {
	*database.Cursor
	source    database.TimeSeriesIterator
	remaining int
	view      *limitSeries
}

func (it *limitIterator) advance() bool {
	// rows read from the previous series count against the budget
	it.remaining -= it.view.read
	if it.remaining <= 0 || !it.source.LoadNext() {
		return false
	}
	it.view.src = it.source.TimeSeries()
	it.view.allowance = it.remaining
	it.view.read = 0
	return true
}

func (it *limitIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}

type limitSeries struct {
	passthroughSeries
	allowance int
	read      int // most rows read through any single Rows call
}

func (s *limitSeries) Rows() database.RowIterator {
	it := &limitRowIterator{source: s.derive(), series: s}
	it.Cursor = database.NewCursor(it.advance)
	return it
}

type limitRowIterator struct {
	*database.Cursor
	source database.RowIterator
	series *limitSeries
	read   int
}

func (it *limitRowIterator) advance() bool {
	if it.read >= it.series.allowance || !it.source.LoadNext() {
		return false
	}
	it.read++
	it.series.read = max(it.series.read, it.read)
	return true
}

func (it *limitRowIterator) Row() database.Row {
	it.MustBeValid()
	return it.source.Row()
}
