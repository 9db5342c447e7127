package engine

import (
	"github.com/bisegni/tsq/pkg/database"
)

// IntervalMergingTable coalesces rows of a time series that touch in time
// (one ends where the next starts) and agree on every non-reserved column.
type IntervalMergingTable struct {
	source database.Table
	values []int
}

func NewIntervalMergingTable(source database.Table) (*IntervalMergingTable, error) {
	schema := source.Schema()
	if err := schema.RequireTemporal("interval merging"); err != nil {
		return nil, err
	}
	t := &IntervalMergingTable{source: source}
	for i := database.NumTimeColumns; i < schema.Len(); i++ {
		t.values = append(t.values, i)
	}
	return t, nil
}

func (t *IntervalMergingTable) Schema() *database.Schema { return t.source.Schema() }

func (t *IntervalMergingTable) Iterate() database.TimeSeriesIterator {
	it := &mergeIterator{table: t, source: t.source.Iterate()}
	it.Cursor = database.NewCursor(it.advance)
	it.view = &mergeSeries{passthroughSeries: passthroughSeries{cursor: it.Cursor}, table: t}
	return it
}

type mergeIterator struct {
	*database.Cursor
	table  *IntervalMergingTable
	source database.TimeSeriesIterator
	view   *mergeSeries
}

func (it *mergeIterator) advance() bool {
	if !it.source.LoadNext() {
		return false
	}
	it.view.src = it.source.TimeSeries()
	return true
}

func (it *mergeIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}

type mergeSeries struct {
	passthroughSeries
	table *IntervalMergingTable
}

func (s *mergeSeries) Rows() database.RowIterator {
	buf := database.NewRowBuffer(s.table.Schema())
	it := &mergeRowIterator{source: s.derive(), values: s.table.values, buffer: buf, row: buf.Row(0)}
	it.Cursor = database.NewCursor(it.advance)
	return it
}

type mergeRowIterator struct {
	*database.Cursor
	source database.RowIterator
	values []int
	buffer *database.RowBuffer
	row    *database.BufferRow
}

func (it *mergeRowIterator) advance() bool {
	if !it.source.LoadNext() {
		return false
	}
	it.buffer.Reset()
	it.buffer.Append(it.source.Row())
	schema := it.buffer.Schema()
	end := it.buffer.Column(database.EndTimeIndex)
	for it.source.LoadNext() {
		next := it.source.Row()
		if next.GetNumeric(database.StartTimeIndex) != end.NumericAt(0) ||
			database.CompareRecords(schema, it.row, it.values, next, it.values) != 0 {
			it.source.PushBack()
			break
		}
		end.SetNumeric(0, next.GetNumeric(database.EndTimeIndex))
	}
	start := it.buffer.Column(database.StartTimeIndex).NumericAt(0)
	it.buffer.Column(database.DurationIndex).SetNumeric(0, end.NumericAt(0)-start)
	return true
}

func (it *mergeRowIterator) Row() database.Row {
	it.MustBeValid()
	return it.row
}
