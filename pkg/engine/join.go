package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// TemporalJoinTable joins two temporal inputs sorted ascending on their join
// columns. Every pair of time series with equal join values is joined on
// time: each pair of overlapping rows yields one row covering the overlap.
// With no join columns every left series pairs with every right series.
//
// The output has the reserved columns, then the value columns of the left
// input, then those of the right input. dropRight omits the right join
// columns, which duplicate the left ones.
type TemporalJoinTable struct {
	left, right     database.Table
	leftOn, rightOn []int
	leftCols        []int
	rightCols       []int
	schema          *database.Schema
}

func NewTemporalJoinTable(left, right database.Table, leftOn, rightOn []int, dropRight bool) (*TemporalJoinTable, error) {
	ls, rs := left.Schema(), right.Schema()
	if err := ls.RequireTemporal("left side of temporal join"); err != nil {
		return nil, err
	}
	if err := rs.RequireTemporal("right side of temporal join"); err != nil {
		return nil, err
	}
	if len(leftOn) != len(rightOn) {
		return nil, errors.Wrapf(database.ErrJoinColumns, "%d left join columns, %d right", len(leftOn), len(rightOn))
	}
	if err := checkKeys(ls, leftOn, "left join"); err != nil {
		return nil, errors.Mark(err, database.ErrJoinColumns)
	}
	if err := checkKeys(rs, rightOn, "right join"); err != nil {
		return nil, errors.Mark(err, database.ErrJoinColumns)
	}
	for i := range leftOn {
		lc, rc := ls.Column(leftOn[i]), rs.Column(rightOn[i])
		if lc.Type() != rc.Type() {
			return nil, errors.Wrapf(database.ErrJoinColumns, "%q is %s but %q is %s", lc.Name(), lc.Type(), rc.Name(), rc.Type())
		}
	}

	t := &TemporalJoinTable{left: left, right: right, leftOn: leftOn, rightOn: rightOn}
	cols := database.TimeColumns()
	for i := database.NumTimeColumns; i < ls.Len(); i++ {
		t.leftCols = append(t.leftCols, i)
		cols = append(cols, ls.Column(i))
	}
	dropped := make(map[int]bool, len(rightOn))
	if dropRight {
		for _, c := range rightOn {
			dropped[c] = true
		}
	}
	for i := database.NumTimeColumns; i < rs.Len(); i++ {
		if !dropped[i] {
			t.rightCols = append(t.rightCols, i)
			cols = append(cols, rs.Column(i))
		}
	}
	schema, err := database.NewSchema(cols...)
	if err != nil {
		return nil, err
	}
	t.schema = schema
	return t, nil
}

func (t *TemporalJoinTable) Schema() *database.Schema { return t.schema }

func (t *TemporalJoinTable) Iterate() database.TimeSeriesIterator {
	it := &joinIterator{
		table:  t,
		left:   t.left.Iterate(),
		right:  t.right.Iterate(),
		rights: database.NewRowBuffer(t.right.Schema()),
		out:    database.NewRowBuffer(t.schema),
	}
	it.Cursor = database.NewCursor(it.advance)
	it.view = newBufferView(it.Cursor, t.schema)
	return it
}

type joinIterator struct {
	*database.Cursor
	table       *TemporalJoinTable
	left, right database.TimeSeriesIterator

	group   database.Tuple
	inGroup bool
	lefts   []*database.RowBuffer // cached left series of the group
	size    int
	rights  *database.RowBuffer // right series being paired
	pair    int                 // next left series to pair with rights
	row     database.Tuple
	out     *database.RowBuffer
	view    *bufferView
}

func (it *joinIterator) advance() bool {
	for {
		for it.inGroup && it.pair < it.size {
			l := it.lefts[it.pair]
			it.pair++
			if it.overlap(l, it.rights) {
				it.view.reset(it.out, nil)
				return true
			}
		}
		if it.inGroup && it.nextRight() {
			continue
		}
		if !it.findGroup() {
			return false
		}
	}
}

// findGroup advances both sides to the next pair of time series with equal
// join values and caches the left series sharing them.
func (it *joinIterator) findGroup() bool {
	it.inGroup = false
	ls := it.table.left.Schema()
	for {
		if !it.left.LoadNext() {
			return false
		}
		if !it.right.LoadNext() {
			return false
		}
		l, r := it.left.TimeSeries(), it.right.TimeSeries()
		it.group = database.CaptureTuple(it.group, l, ls, it.table.leftOn)
		switch c := it.group.CompareRecord(r, it.table.rightOn); {
		case c < 0:
			it.right.PushBack()
		case c > 0:
			it.left.PushBack()
		default:
			it.size = 0
			it.cache(l)
			for it.left.LoadNext() {
				l = it.left.TimeSeries()
				if it.group.CompareRecord(l, it.table.leftOn) != 0 {
					it.left.PushBack()
					break
				}
				it.cache(l)
			}
			it.right.PushBack()
			it.inGroup = true
			it.pair = it.size
			return true
		}
	}
}

func (it *joinIterator) cache(ts database.TimeSeries) {
	if it.size == len(it.lefts) {
		it.lefts = append(it.lefts, database.NewRowBuffer(it.table.left.Schema()))
	}
	buf := it.lefts[it.size]
	it.size++
	buf.Reset()
	rows := ts.Rows()
	for rows.LoadNext() {
		buf.Append(rows.Row())
	}
}

// nextRight loads the next right series of the current group.
func (it *joinIterator) nextRight() bool {
	if !it.right.LoadNext() {
		it.inGroup = false
		return false
	}
	r := it.right.TimeSeries()
	if it.group.CompareRecord(r, it.table.rightOn) != 0 {
		it.right.PushBack()
		it.inGroup = false
		return false
	}
	it.rights.Reset()
	rows := r.Rows()
	for rows.LoadNext() {
		it.rights.Append(rows.Row())
	}
	it.pair = 0
	return true
}

// overlap joins the rows of one left and one right series into out and
// reports whether any row was produced. Both inputs are ordered by start and
// free of overlaps, so a two pointer walk visits every overlapping pair.
func (it *joinIterator) overlap(left, right *database.RowBuffer) bool {
	it.out.Reset()
	lrow, rrow := left.Row(0), right.Row(0)
	ls, le := left.Column(database.StartTimeIndex), left.Column(database.EndTimeIndex)
	rs, re := right.Column(database.StartTimeIndex), right.Column(database.EndTimeIndex)
	lSchema, rSchema := it.table.left.Schema(), it.table.right.Schema()
	for i, j := 0, 0; i < left.Len() && j < right.Len(); {
		lStart, lEnd := ls.NumericAt(i), le.NumericAt(i)
		rStart, rEnd := rs.NumericAt(j), re.NumericAt(j)
		start, end := max(lStart, rStart), min(lEnd, rEnd)
		if start < end {
			lrow.Seek(i)
			rrow.Seek(j)
			it.row = append(it.row[:0],
				database.NumericValue(start),
				database.NumericValue(end),
				database.NumericValue(end-start))
			for _, c := range it.table.leftCols {
				it.row = append(it.row, database.ValueFrom(lrow, c, lSchema.Column(c).Type()))
			}
			for _, c := range it.table.rightCols {
				it.row = append(it.row, database.ValueFrom(rrow, c, rSchema.Column(c).Type()))
			}
			it.out.AppendValues(it.row)
		}
		switch {
		case lEnd < rEnd:
			i++
		case rEnd < lEnd:
			j++
		default:
			i++
			j++
		}
	}
	return it.out.Len() > 0
}

func (it *joinIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}
