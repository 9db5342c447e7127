package engine

import "github.com/bisegni/tsq/pkg/database"

// ScanTable reads a stored table front to back.
type ScanTable struct {
	name   string
	source database.Table
}

func NewScanTable(name string, source database.Table) *ScanTable {
	return &ScanTable{name: name, source: source}
}

func (t *ScanTable) Name() string             { return t.name }
func (t *ScanTable) Schema() *database.Schema { return t.source.Schema() }

func (t *ScanTable) Iterate() database.TimeSeriesIterator {
	return t.source.Iterate()
}
