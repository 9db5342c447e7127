package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTSVInsertsDuration(t *testing.T) {
	content := "host:str:key\t_start_time:num\t_end_time:num\tload:num\n" +
		"a\t10\t20\t1.5\n" +
		"a\t0\t10\t0.5\n" +
		"b\t0\t5\t2\n"
	table, err := ReadTSV(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, []string{StartTimeColumn, EndTimeColumn, DurationColumn, "host", "load"}, table.Schema().Names())
	assert.Equal(t, []seriesDump{
		{Key: "a", Rows: [][2]float64{{0, 0.5}, {10, 1.5}}},
		{Key: "b", Rows: [][2]float64{{0, 2}}},
	}, dump(table))

	rows := table.Series(1).Rows()
	require.True(t, rows.LoadNext())
	assert.Equal(t, 5.0, rows.Row().GetNumeric(DurationIndex))
}

func TestReadTSVPlainTable(t *testing.T) {
	table, err := ReadTSV(strings.NewReader("g:num:key\tok:bool\n1\ttrue\n2\tfalse\n"))
	require.NoError(t, err)
	assert.False(t, table.Schema().IsTemporal())
	assert.Equal(t, 2, table.NumTimeSeries())
}

func TestReadTSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"bad number", "_start_time:num\t_end_time:num\nx\t1\n", ErrTypeMismatch},
		{"bad type", "a:date\n1\n", ErrUnsupportedType},
		{"string time", "_start_time:str\t_end_time:num\n0\t1\n", ErrReservedColumn},
		{"overlap", "_start_time:num\t_end_time:num\n0\t5\n3\t8\n", ErrInvalidTable},
		{"nan bound", "_start_time:num\t_end_time:num\nNaN\t8\n", ErrInvalidTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTSV(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNewTSVTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.tsv")
	require.NoError(t, os.WriteFile(path, []byte("_start_time:num\t_end_time:num\t_duration:num\tv:num\n0\t2\t2\t1\n"), 0644))

	table, err := NewTSVTable(path)
	require.NoError(t, err)
	assert.Equal(t, path, table.Filename())
	assert.Equal(t, 1, table.NumRows())

	fields := HeaderFields(table.Schema())
	assert.Equal(t, "_duration:num", fields[2].String())
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	table, err := ReadTSV(strings.NewReader("x:num\n1\n"))
	require.NoError(t, err)
	c.RegisterTable("b", table)
	c.RegisterTable("a", table)

	got, err := c.GetTable("a")
	require.NoError(t, err)
	assert.Same(t, table, got)
	assert.Equal(t, []string{"a", "b"}, c.Names())

	_, err = c.GetTable("missing")
	assert.Error(t, err)
}
