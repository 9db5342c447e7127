package engine

import (
	"container/heap"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// TemporalAggregateTable aggregates the rows of each group of time series
// that overlap in time. For every group it sweeps the change points (row
// starts and ends) of all member series; each maximal interval with a
// constant, non-empty set of active rows becomes one output row carrying
// that interval and the aggregates of exactly those rows.
//
// The input must be temporal and clustered on the group by columns.
type TemporalAggregateTable struct {
	source  database.Table
	schema  *database.Schema
	groupBy []int
	outputs []query.Expr
}

func NewTemporalAggregateTable(source database.Table, groupBy []int, outputs []query.Expr, names []string) (*TemporalAggregateTable, error) {
	if len(outputs) != len(names) {
		return nil, errors.AssertionFailedf("%d outputs for %d names", len(outputs), len(names))
	}
	in := source.Schema()
	if err := in.RequireTemporal("temporal aggregate"); err != nil {
		return nil, err
	}
	if err := checkKeys(in, groupBy, "group by"); err != nil {
		return nil, err
	}
	g, err := newGroupOutputs(outputs, in, groupBy)
	if err != nil {
		return nil, err
	}
	schema, err := database.NewTemporalSchema(g.columns(outputs, names)...)
	if err != nil {
		return nil, err
	}
	return &TemporalAggregateTable{source: source, schema: schema, groupBy: groupBy, outputs: outputs}, nil
}

func (t *TemporalAggregateTable) Schema() *database.Schema { return t.schema }

func (t *TemporalAggregateTable) Iterate() database.TimeSeriesIterator {
	g, _ := newGroupOutputs(t.outputs, t.source.Schema(), t.groupBy)
	it := &temporalAggregateIterator{
		table:   t,
		source:  t.source.Iterate(),
		outputs: g,
		result:  database.NewRowBuffer(t.schema),
	}
	it.Cursor = database.NewCursor(it.advance)
	it.view = newBufferView(it.Cursor, t.schema)
	return it
}

// changePoint is the next time at which a member series changes state.
type changePoint struct {
	time   float64
	series int
}

type changePoints []changePoint

func (h changePoints) Len() int { return len(h) }

func (h changePoints) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].series < h[j].series
}

func (h changePoints) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *changePoints) Push(x interface{}) { *h = append(*h, x.(changePoint)) }

func (h *changePoints) Pop() interface{} {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// sweepSeries is the sweep state of one cached member series.
type sweepSeries struct {
	rows   *database.RowBuffer
	row    *database.BufferRow
	next   int // index of the current (active) or next row
	active bool
}

func (s *sweepSeries) start(i int) float64 {
	return s.rows.Column(database.StartTimeIndex).NumericAt(i)
}

func (s *sweepSeries) end(i int) float64 {
	return s.rows.Column(database.EndTimeIndex).NumericAt(i)
}

// changePoint reports when the series changes state next.
func (s *sweepSeries) changePoint() (float64, bool) {
	if s.active {
		return s.end(s.next), true
	}
	for s.next < s.rows.Len() && !(s.start(s.next) < s.end(s.next)) {
		s.next++ // empty or unordered (NaN) intervals never become active
	}
	if s.next == s.rows.Len() {
		return 0, false
	}
	return s.start(s.next), true
}

// step applies the changes happening at time t.
func (s *sweepSeries) step(t float64) {
	if s.active && s.end(s.next) == t {
		s.active = false
		s.next++
	}
	if next, ok := s.changePoint(); ok && !s.active && next == t {
		s.active = true
		s.row.Seek(s.next)
	}
}

type temporalAggregateIterator struct {
	*database.Cursor
	table   *TemporalAggregateTable
	source  database.TimeSeriesIterator
	outputs *groupOutputs

	group  database.Tuple
	keys   []database.Value
	cache  []*sweepSeries
	size   int
	queue  changePoints
	row    database.Tuple
	result *database.RowBuffer
	view   *bufferView
}

func (it *temporalAggregateIterator) advance() bool {
	for it.loadGroup() {
		it.result.Reset()
		it.sweep()
		if it.result.Len() > 0 {
			it.view.reset(it.result, nil)
			return true
		}
	}
	return false
}

// loadGroup caches every time series of the next group.
func (it *temporalAggregateIterator) loadGroup() bool {
	if !it.source.LoadNext() {
		return false
	}
	in := it.table.source.Schema()
	ts := it.source.TimeSeries()
	it.group = database.CaptureTuple(it.group, ts, in, it.table.groupBy)
	it.keys = it.outputs.captureKeys(it.keys, ts)
	it.size = 0
	for {
		s := it.member()
		rows := ts.Rows()
		for rows.LoadNext() {
			s.rows.Append(rows.Row())
		}
		if !it.source.LoadNext() {
			break
		}
		ts = it.source.TimeSeries()
		if it.group.CompareRecord(ts, it.table.groupBy) != 0 {
			it.source.PushBack()
			break
		}
	}
	return true
}

// member returns the next free cache slot, emptied.
func (it *temporalAggregateIterator) member() *sweepSeries {
	if it.size == len(it.cache) {
		rows := database.NewRowBuffer(it.table.source.Schema())
		it.cache = append(it.cache, &sweepSeries{rows: rows, row: rows.Row(0)})
	}
	s := it.cache[it.size]
	it.size++
	s.rows.Reset()
	s.next, s.active = 0, false
	return s
}

func (it *temporalAggregateIterator) sweep() {
	it.queue = it.queue[:0]
	for i, s := range it.cache[:it.size] {
		if t, ok := s.changePoint(); ok {
			it.queue = append(it.queue, changePoint{time: t, series: i})
		}
	}
	heap.Init(&it.queue)

	for it.queue.Len() > 0 {
		t := it.queue[0].time
		// remove every series changing at t, then reinsert with its next change point
		var changed []int
		for it.queue.Len() > 0 && it.queue[0].time == t {
			changed = append(changed, heap.Pop(&it.queue).(changePoint).series)
		}
		for _, i := range changed {
			s := it.cache[i]
			s.step(t)
			if next, ok := s.changePoint(); ok {
				heap.Push(&it.queue, changePoint{time: next, series: i})
			}
		}
		if it.queue.Len() == 0 {
			break
		}
		it.emit(t, it.queue[0].time)
	}
}

// emit appends the row for [start,end) when some row is active over it.
func (it *temporalAggregateIterator) emit(start, end float64) {
	it.outputs.reset()
	active := false
	for _, s := range it.cache[:it.size] {
		if s.active {
			active = true
			it.outputs.addRow(s.row)
		}
	}
	if !active {
		return
	}
	it.row = append(it.row[:0],
		database.NumericValue(start),
		database.NumericValue(end),
		database.NumericValue(end-start))
	it.row = it.outputs.appendResults(it.row, it.keys)
	it.result.AppendValues(it.row)
}

func (it *temporalAggregateIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}
