package engine

import (
	"fmt"

	"github.com/bisegni/tsq/pkg/database"
)

// Statistics counts what an operator delivered. Totals include elements
// delivered again after a push back and rows read by a repeated Rows call;
// the unique counters do not.
type Statistics struct {
	TimeSeries       int64
	UniqueTimeSeries int64
	Rows             int64
	UniqueRows       int64
}

func (s Statistics) String() string {
	return fmt.Sprintf("series=%d/%d rows=%d/%d", s.UniqueTimeSeries, s.TimeSeries, s.UniqueRows, s.Rows)
}

// CountingTable wraps a table and records into Stats what its iterators
// deliver. Iteration is otherwise unchanged.
type CountingTable struct {
	source database.Table
	Stats  *Statistics
}

func NewCountingTable(source database.Table, stats *Statistics) *CountingTable {
	if stats == nil {
		stats = &Statistics{}
	}
	return &CountingTable{source: source, Stats: stats}
}

func (t *CountingTable) Schema() *database.Schema { return t.source.Schema() }

func (t *CountingTable) Iterate() database.TimeSeriesIterator {
	it := &countingIterator{source: t.source.Iterate(), stats: t.Stats}
	it.view.owner = it
	return it
}

type countingIterator struct {
	source      database.TimeSeriesIterator
	stats       *Statistics
	view        countingSeries
	redelivered bool
	rowsRead    bool
}

func (it *countingIterator) LoadNext() bool {
	if !it.source.LoadNext() {
		return false
	}
	it.stats.TimeSeries++
	if !it.redelivered {
		it.stats.UniqueTimeSeries++
		it.rowsRead = false
	}
	it.redelivered = false
	return true
}

func (it *countingIterator) TimeSeries() database.TimeSeries {
	it.view.TimeSeries = it.source.TimeSeries()
	return &it.view
}

func (it *countingIterator) PushBack() bool {
	if !it.source.PushBack() {
		return false
	}
	it.redelivered = true
	return true
}

type countingSeries struct {
	database.TimeSeries
	owner *countingIterator
}

func (s *countingSeries) Rows() database.RowIterator {
	rows := s.TimeSeries.Rows()
	unique := !s.owner.rowsRead
	s.owner.rowsRead = true
	return &countingRowIterator{source: rows, stats: s.owner.stats, unique: unique}
}

type countingRowIterator struct {
	source      database.RowIterator
	stats       *Statistics
	unique      bool
	redelivered bool
}

func (it *countingRowIterator) LoadNext() bool {
	if !it.source.LoadNext() {
		return false
	}
	it.stats.Rows++
	if it.unique && !it.redelivered {
		it.stats.UniqueRows++
	}
	it.redelivered = false
	return true
}

func (it *countingRowIterator) Row() database.Row { return it.source.Row() }

func (it *countingRowIterator) PushBack() bool {
	if !it.source.PushBack() {
		return false
	}
	it.redelivered = true
	return true
}
