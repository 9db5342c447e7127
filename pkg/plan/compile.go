package plan

import (
	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/engine"
)

// Compile turns a plan into the operator tree that executes it.
func Compile(n Node) (database.Table, error) {
	c := &compiler{}
	return c.compile(n)
}

// CompileWithStats is Compile with every operator wrapped in a counting
// table; stats maps each node to what its operator delivered.
func CompileWithStats(n Node) (database.Table, map[Node]*engine.Statistics, error) {
	c := &compiler{stats: make(map[Node]*engine.Statistics)}
	t, err := c.compile(n)
	if err != nil {
		return nil, nil, err
	}
	return t, c.stats, nil
}

type compiler struct {
	stats  map[Node]*engine.Statistics
	inputs []database.Table
	out    database.Table
}

func (c *compiler) compile(n Node) (database.Table, error) {
	children := n.Children()
	inputs := make([]database.Table, len(children))
	for i, child := range children {
		t, err := c.compile(child)
		if err != nil {
			return nil, err
		}
		inputs[i] = t
	}
	c.inputs = inputs
	if err := n.Accept(c); err != nil {
		return nil, err
	}
	out := c.out
	if c.stats != nil {
		stats := &engine.Statistics{}
		c.stats[n] = stats
		out = engine.NewCountingTable(out, stats)
	}
	return out, nil
}

func (c *compiler) VisitLinearTableScan(n *LinearTableScanNode) error {
	c.out = engine.NewScanTable(n.Name(), n.Table())
	return nil
}

func (c *compiler) VisitFilter(n *FilterNode) (err error) {
	c.out, err = engine.NewFilterTable(c.inputs[0], n.Predicate())
	return err
}

func (c *compiler) VisitProject(n *ProjectNode) (err error) {
	c.out, err = engine.NewProjectTable(c.inputs[0], n.Exprs(), n.Names())
	return err
}

func (c *compiler) VisitSort(n *SortNode) (err error) {
	c.out, err = engine.NewSortTable(c.inputs[0], n.columns, n.PreSorted())
	return err
}

func (c *compiler) VisitSortedAggregate(n *SortedAggregateNode) (err error) {
	c.out, err = engine.NewAggregateTable(c.inputs[0], n.cols, n.Outputs(), n.Names())
	return err
}

func (c *compiler) VisitSortedTemporalAggregate(n *SortedTemporalAggregateNode) (err error) {
	c.out, err = engine.NewTemporalAggregateTable(c.inputs[0], n.cols, n.Outputs(), n.Names())
	return err
}

func (c *compiler) VisitSortedTemporalJoin(n *SortedTemporalJoinNode) error {
	left, right := n.Left().Schema(), n.Right().Schema()
	lcols, err := indices(left, n.LeftOn())
	if err != nil {
		return err
	}
	rcols, err := indices(right, n.RightOn())
	if err != nil {
		return err
	}
	c.out, err = engine.NewTemporalJoinTable(c.inputs[0], c.inputs[1], lcols, rcols, n.DropRight())
	return err
}

func (c *compiler) VisitIntervalMerging(n *IntervalMergingNode) (err error) {
	c.out, err = engine.NewIntervalMergingTable(c.inputs[0])
	return err
}

func (c *compiler) VisitLimit(n *LimitNode) (err error) {
	c.out, err = engine.NewLimitTable(c.inputs[0], n.Rows())
	return err
}
