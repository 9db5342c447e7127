package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuTSV = `_start_time:num	_end_time:num	host:str:key	load:num
0	10	a	1
10	20	a	1
20	30	a	3
5	15	b	2
15	25	b	4
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestQueryCommand(t *testing.T) {
	cpu := writeFile(t, "cpu.tsv", cpuTSV)
	out, _, err := runCommand(t, "--table", "cpu="+cpu, "query", "SELECT host, load FROM cpu WHERE load > 1")
	require.NoError(t, err)
	assert.Equal(t, ""+
		"_start_time:num\t_end_time:num\t_duration:num\thost:str:key\tload:num\n"+
		"20\t30\t10\ta\t3\n"+
		"5\t15\t10\tb\t2\n"+
		"15\t25\t10\tb\t4\n", out)
}

func TestQueryCommandTableFormat(t *testing.T) {
	cpu := writeFile(t, "cpu.tsv", cpuTSV)
	cfg := writeFile(t, "tsq.yaml", "output:\n  color: false\n  max_rows: 1\ntables:\n  cpu: "+cpu+"\n")
	out, _, err := runCommand(t, "--config", cfg, "query", "--format", "table", "SELECT * FROM cpu")
	require.NoError(t, err)
	assert.Contains(t, out, "_start_time  _end_time  _duration  host  load")
	assert.Contains(t, out, "... 1 of 5 rows shown")
}

func TestQueryCommandStats(t *testing.T) {
	cpu := writeFile(t, "cpu.tsv", cpuTSV)
	_, stats, err := runCommand(t, "-t", "cpu="+cpu, "query", "--stats", "SELECT host, load FROM cpu WHERE load > 1")
	require.NoError(t, err)
	assert.Contains(t, stats, "Filter(predicate: (load > 1))  [series=")
	assert.Contains(t, stats, "LinearTableScan(table: cpu)  [series=")
}

func TestExplainCommand(t *testing.T) {
	cpu := writeFile(t, "cpu.tsv", cpuTSV)
	out, _, err := runCommand(t, "-t", "cpu="+cpu, "explain", "--raw", "SELECT host FROM cpu")
	require.NoError(t, err)
	assert.Contains(t, out, "Unoptimized Plan:\n└─ Project(")
	assert.Contains(t, out, "Execution Plan:\n└─ IntervalMerging()")
	assert.Contains(t, out, "LinearTableScan(table: cpu)")

	out, _, err = runCommand(t, "-t", "cpu="+cpu, "query", "--explain", "SELECT host FROM cpu")
	require.NoError(t, err)
	assert.Contains(t, out, "Execution Plan:\n└─ IntervalMerging()")
}

func TestSchemaCommand(t *testing.T) {
	cpu := writeFile(t, "cpu.tsv", cpuTSV)
	out, _, err := runCommand(t, "-t", "cpu="+cpu, "schema")
	require.NoError(t, err)
	assert.Equal(t, "cpu (temporal)\n"+
		"  _start_time:num\n"+
		"  _end_time:num\n"+
		"  _duration:num\n"+
		"  host:str:key\n"+
		"  load:num\n", out)

	_, _, err = runCommand(t, "-t", "cpu="+cpu, "schema", "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestValidateCommand(t *testing.T) {
	out, _, err := runCommand(t, "validate", writeFile(t, "cpu.tsv", cpuTSV))
	require.NoError(t, err)
	assert.Contains(t, out, "Valid interval file with 2 time series and 5 row(s)")

	out, _, err = runCommand(t, "validate", writeFile(t, "bad.tsv", "host\tload\n"))
	assert.Error(t, err)
	assert.Contains(t, out, "Validation failed")
}

func TestInvalidTableFlag(t *testing.T) {
	_, _, err := runCommand(t, "-t", "cpu", "schema")
	assert.ErrorContains(t, err, "name=path")
}

func TestShellLines(t *testing.T) {
	opts := &options{tables: []string{"cpu=" + writeFile(t, "cpu.tsv", cpuTSV)}}
	require.NoError(t, opts.load())
	s, err := opts.openSession()
	require.NoError(t, err)

	var out bytes.Buffer
	quit, err := s.handleLine(`\tables`, "tsv", &out)
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "cpu [_start_time:numeric, _end_time:numeric, _duration:numeric, host:string:key, load:numeric]\n", out.String())

	out.Reset()
	_, err = s.handleLine("SELECT host, SUM(load) AS total FROM cpu GROUP BY host", "tsv", &out)
	require.NoError(t, err)
	assert.Equal(t, "host:str:key\ttotal:num\na\t5\nb\t6\n", out.String())

	out.Reset()
	_, err = s.handleLine(`\explain SELECT * FROM cpu LIMIT 1`, "tsv", &out)
	require.NoError(t, err)
	assert.Equal(t, "└─ Limit(rows: 1)\n   └─ LinearTableScan(table: cpu)\n", out.String())

	_, err = s.handleLine(`\nope`, "tsv", &out)
	assert.ErrorContains(t, err, "unknown command")

	quit, err = s.handleLine("QUIT", "tsv", &out)
	require.NoError(t, err)
	assert.True(t, quit)
}
