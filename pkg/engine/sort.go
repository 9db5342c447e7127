package engine

import (
	"cmp"
	"slices"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// SortColumn is one sort key.
type SortColumn struct {
	Index int
	Desc  bool
}

// SortTable reorders rows by its sort columns. The first preSorted columns
// are already guaranteed by the input and only delimit runs: rows are
// buffered and sorted one run at a time.
//
// Sorted rows are regrouped into time series: adjacent rows stay in one time
// series when they come from the same input time series or are equal on
// every sort column.
type SortTable struct {
	source    database.Table
	schema    *database.Schema
	columns   []SortColumn
	preSorted int
}

func NewSortTable(source database.Table, columns []SortColumn, preSorted int) (*SortTable, error) {
	in := source.Schema()
	if preSorted < 0 || preSorted > len(columns) {
		return nil, errors.AssertionFailedf("%d pre-sorted columns out of %d", preSorted, len(columns))
	}
	sorted := make(map[int]bool, len(columns))
	for i, c := range columns {
		if c.Index < 0 || c.Index >= in.Len() {
			return nil, errors.Wrapf(database.ErrUnknownColumn, "sort column index %d outside %s", c.Index, in)
		}
		if sorted[c.Index] {
			return nil, errors.Wrapf(database.ErrDuplicateColumn, "sort column %q", in.Column(c.Index).Name())
		}
		sorted[c.Index] = true
		if i < preSorted && !in.Column(c.Index).IsKey() {
			return nil, errors.Wrapf(database.ErrNotKeyColumn, "pre-sorted column %q", in.Column(c.Index).Name())
		}
	}
	out := in.Columns()
	for i, c := range out {
		out[i] = c.WithKey(c.IsKey() && sorted[i])
	}
	schema, err := database.NewSchema(out...)
	if err != nil {
		return nil, err
	}
	return &SortTable{source: source, schema: schema, columns: columns, preSorted: preSorted}, nil
}

func (t *SortTable) Schema() *database.Schema { return t.schema }

func (t *SortTable) Iterate() database.TimeSeriesIterator {
	it := &sortIterator{
		table:  t,
		source: t.source.Iterate(),
		buffer: database.NewRowBuffer(t.source.Schema()),
	}
	for _, c := range t.columns[:t.preSorted] {
		it.prefixColumns = append(it.prefixColumns, c.Index)
	}
	it.Cursor = database.NewCursor(it.advance)
	it.view = newBufferView(it.Cursor, t.schema)
	return it
}

type sortIterator struct {
	*database.Cursor
	table  *SortTable
	source database.TimeSeriesIterator

	prefixColumns []int
	prefix        database.Tuple

	// current run
	buffer  *database.RowBuffer
	origins []int
	order   []int
	next    int

	view *bufferView
}

func (it *sortIterator) advance() bool {
	if it.next >= len(it.order) && !it.loadRun() {
		return false
	}
	lo, hi := it.next, it.next+1
	for hi < len(it.order) && it.sameGroup(it.order[hi-1], it.order[hi]) {
		hi++
	}
	it.next = hi
	it.view.reset(it.buffer, it.order[lo:hi])
	return true
}

// loadRun buffers and sorts the next run that has at least one row.
func (it *sortIterator) loadRun() bool {
	schema := it.table.source.Schema()
	for {
		it.buffer.Reset()
		it.origins = it.origins[:0]
		it.order = it.order[:0]
		it.next = 0

		origin := 0
		for it.source.LoadNext() {
			ts := it.source.TimeSeries()
			if origin == 0 {
				it.prefix = database.CaptureTuple(it.prefix, ts, schema, it.prefixColumns)
			} else if it.prefix.CompareRecord(ts, it.prefixColumns) != 0 {
				it.source.PushBack()
				break
			}
			rows := ts.Rows()
			for rows.LoadNext() {
				it.buffer.Append(rows.Row())
				it.origins = append(it.origins, origin)
			}
			origin++
		}
		if origin == 0 {
			return false
		}
		if it.buffer.Len() == 0 {
			continue
		}
		for i := 0; i < it.buffer.Len(); i++ {
			it.order = append(it.order, i)
		}
		slices.SortFunc(it.order, it.compare)
		return true
	}
}

// compareValues orders two buffered rows on the non pre-sorted columns.
func (it *sortIterator) compareValues(a, b int) int {
	for _, c := range it.table.columns[it.table.preSorted:] {
		col := it.buffer.Column(c.Index)
		d := col.Compare(a, col, b)
		if c.Desc {
			d = -d
		}
		if d != 0 {
			return d
		}
	}
	return 0
}

func (it *sortIterator) compare(a, b int) int {
	if d := it.compareValues(a, b); d != 0 {
		return d
	}
	return cmp.Compare(a, b)
}

func (it *sortIterator) sameGroup(a, b int) bool {
	return it.origins[a] == it.origins[b] || it.compareValues(a, b) == 0
}

func (it *sortIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}
