package engine

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// AggregateTable computes one row per group of consecutive time series with
// equal group by values. The input must be clustered on the group by
// columns, which must be key columns. Without group by columns the whole
// input is one group, and an empty input still yields one row.
type AggregateTable struct {
	source  database.Table
	schema  *database.Schema
	groupBy []int
	outputs []query.Expr
}

func NewAggregateTable(source database.Table, groupBy []int, outputs []query.Expr, names []string) (*AggregateTable, error) {
	if len(outputs) != len(names) {
		return nil, errors.AssertionFailedf("%d outputs for %d names", len(outputs), len(names))
	}
	if err := checkKeys(source.Schema(), groupBy, "group by"); err != nil {
		return nil, err
	}
	g, err := newGroupOutputs(outputs, source.Schema(), groupBy)
	if err != nil {
		return nil, err
	}
	schema, err := database.NewSchema(g.columns(outputs, names)...)
	if err != nil {
		return nil, err
	}
	return &AggregateTable{source: source, schema: schema, groupBy: groupBy, outputs: outputs}, nil
}

func (t *AggregateTable) Schema() *database.Schema { return t.schema }

func (t *AggregateTable) Iterate() database.TimeSeriesIterator {
	// outputs were validated by the constructor
	g, _ := newGroupOutputs(t.outputs, t.source.Schema(), t.groupBy)
	it := &aggregateIterator{
		table:   t,
		source:  t.source.Iterate(),
		outputs: g,
		result:  database.NewRowBuffer(t.schema),
	}
	it.Cursor = database.NewCursor(it.advance)
	it.view = newBufferView(it.Cursor, t.schema)
	return it
}

type aggregateIterator struct {
	*database.Cursor
	table   *AggregateTable
	source  database.TimeSeriesIterator
	outputs *groupOutputs

	group   database.Tuple
	keys    []database.Value
	row     database.Tuple
	started bool
	result  *database.RowBuffer
	view    *bufferView
}

func (it *aggregateIterator) advance() bool {
	first := !it.started
	it.started = true
	if !it.source.LoadNext() {
		if first && len(it.table.groupBy) == 0 {
			// key outputs of a global aggregate read no columns
			it.keys = it.outputs.captureKeys(it.keys, nil)
			it.outputs.reset()
			it.emit()
			return true
		}
		return false
	}

	in := it.table.source.Schema()
	ts := it.source.TimeSeries()
	it.group = database.CaptureTuple(it.group, ts, in, it.table.groupBy)
	it.keys = it.outputs.captureKeys(it.keys, ts)
	it.outputs.reset()
	for {
		rows := ts.Rows()
		for rows.LoadNext() {
			it.outputs.addRow(rows.Row())
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
	it.emit()
	return true
}

func (it *aggregateIterator) emit() {
	it.row = it.outputs.appendResults(it.row[:0], it.keys)
	it.result.Reset()
	it.result.AppendValues(it.row)
	it.view.reset(it.result, nil)
}

func (it *aggregateIterator) TimeSeries() database.TimeSeries {
	it.MustBeValid()
	return it.view
}
