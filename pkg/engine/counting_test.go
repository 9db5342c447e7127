package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(it interface{ LoadNext() bool }) {
	for it.LoadNext() {
	}
}

func TestCountingTable(t *testing.T) {
	c := NewCountingTable(cpuTable(t), nil)
	assert.Equal(t, collect(cpuTable(t)), collect(c), "counting does not change the stream")
	assert.Equal(t, Statistics{TimeSeries: 2, UniqueTimeSeries: 2, Rows: 5, UniqueRows: 5}, *c.Stats)
}

func TestCountingRedelivery(t *testing.T) {
	stats := &Statistics{}
	c := NewCountingTable(cpuTable(t), stats)

	it := c.Iterate()
	require.True(t, it.LoadNext())
	require.True(t, it.PushBack())
	require.True(t, it.LoadNext())
	drain(it.TimeSeries().Rows())
	drain(it.TimeSeries().Rows())

	require.True(t, it.LoadNext())
	rows := it.TimeSeries().Rows()
	require.True(t, rows.LoadNext())
	require.True(t, rows.PushBack())
	drain(rows)
	assert.False(t, it.LoadNext())

	assert.Equal(t, Statistics{TimeSeries: 3, UniqueTimeSeries: 2, Rows: 9, UniqueRows: 5}, *stats)
	assert.Equal(t, "series=2/3 rows=5/9", stats.String())
}
