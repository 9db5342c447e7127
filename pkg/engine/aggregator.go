package engine

import (
	"math"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/expr"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// Aggregator folds rows into one value. Reset starts a new group.
type Aggregator interface {
	Reset()
	AddRow(r database.Record)
	Result() database.Value
}

// NewAggregator builds the aggregator for a, compiling its arguments.
func NewAggregator(a *query.AggregateExpr) (Aggregator, error) {
	args := make([]expr.Expr, len(a.Args))
	for i, arg := range a.Args {
		var err error
		if args[i], err = expr.Compile(arg); err != nil {
			return nil, err
		}
	}
	switch a.Func {
	case query.AggCount:
		return &countAggregator{}, nil
	case query.AggCountIf:
		return &countIfAggregator{pred: args[0].Boolean()}, nil
	case query.AggMin, query.AggMax:
		return newExtremumAggregator(args[0], a.Func == query.AggMax), nil
	case query.AggSum:
		return &sumAggregator{value: args[0].Numeric()}, nil
	case query.AggAvg:
		return &avgAggregator{sum: sumAggregator{value: args[0].Numeric()}}, nil
	case query.AggWeightedAvg:
		x, w := args[0].Numeric(), args[1].Numeric()
		return &weightedAvgAggregator{
			products: sumAggregator{value: func(r database.Record) float64 { return x(r) * w(r) }},
			weights:  sumAggregator{value: w},
		}, nil
	default:
		return nil, errors.Newf("unsupported aggregate %s", a.Func)
	}
}

// COUNT
type countAggregator struct {
	count int
}

func (a *countAggregator) Reset()                 { a.count = 0 }
func (a *countAggregator) AddRow(database.Record) { a.count++ }

func (a *countAggregator) Result() database.Value {
	return database.NumericValue(float64(a.count))
}

// COUNT_IF
type countIfAggregator struct {
	pred  expr.BooleanExpr
	count int
}

func (a *countIfAggregator) Reset() { a.count = 0 }

func (a *countIfAggregator) AddRow(r database.Record) {
	if a.pred(r) {
		a.count++
	}
}

func (a *countIfAggregator) Result() database.Value {
	return database.NumericValue(float64(a.count))
}

// SUM
type sumAggregator struct {
	value expr.NumericExpr
	sum   float64
}

func (a *sumAggregator) Reset()                   { a.sum = 0 }
func (a *sumAggregator) AddRow(r database.Record) { a.sum += a.value(r) }
func (a *sumAggregator) Result() database.Value   { return database.NumericValue(a.sum) }

// AVG
type avgAggregator struct {
	sum   sumAggregator
	count int
}

func (a *avgAggregator) Reset() {
	a.sum.Reset()
	a.count = 0
}

func (a *avgAggregator) AddRow(r database.Record) {
	a.sum.AddRow(r)
	a.count++
}

func (a *avgAggregator) Result() database.Value {
	return database.NumericValue(a.sum.sum / float64(a.count))
}

// WEIGHTED_AVG
type weightedAvgAggregator struct {
	products sumAggregator
	weights  sumAggregator
}

func (a *weightedAvgAggregator) Reset() {
	a.products.Reset()
	a.weights.Reset()
}

func (a *weightedAvgAggregator) AddRow(r database.Record) {
	a.products.AddRow(r)
	a.weights.AddRow(r)
}

func (a *weightedAvgAggregator) Result() database.Value {
	return database.NumericValue(a.products.sum / a.weights.sum)
}

// MIN and MAX. On booleans MIN is a conjunction and MAX a disjunction.
// Numbers follow the sort order, NaN lowest. An empty numeric group yields
// NaN and an empty string group "".
type extremumAggregator struct {
	arg   expr.Expr
	max   bool
	empty bool
	b     bool
	n     float64
	s     string
}

func newExtremumAggregator(arg expr.Expr, max bool) *extremumAggregator {
	a := &extremumAggregator{arg: arg, max: max}
	a.Reset()
	return a
}

func (a *extremumAggregator) Reset() {
	a.empty = true
	a.b = !a.max
	a.n = math.NaN()
	a.s = ""
}

func (a *extremumAggregator) AddRow(r database.Record) {
	switch a.arg.Type() {
	case database.Boolean:
		v := a.arg.Boolean()(r)
		if a.max {
			a.b = a.b || v
		} else {
			a.b = a.b && v
		}
	case database.Numeric:
		v := a.arg.Numeric()(r)
		c := database.NumericValue(v).Compare(database.NumericValue(a.n))
		if a.empty || (a.max && c > 0) || (!a.max && c < 0) {
			a.n = v
		}
	default:
		v := a.arg.Str()(r)
		if a.empty || (a.max && v > a.s) || (!a.max && v < a.s) {
			a.s = v
		}
	}
	a.empty = false
}

func (a *extremumAggregator) Result() database.Value {
	switch a.arg.Type() {
	case database.Boolean:
		return database.BooleanValue(a.b)
	case database.Numeric:
		return database.NumericValue(a.n)
	default:
		return database.StringValue(a.s)
	}
}

// groupOutputs evaluates the outputs of an aggregation: aggregates fold the
// rows of a group, the other outputs read the group's key columns once.
type groupOutputs struct {
	aggregators []Aggregator // nil for key outputs
	keys        []expr.Expr
}

func newGroupOutputs(outputs []query.Expr, in *database.Schema, groupBy []int) (*groupOutputs, error) {
	grouped := make(map[int]bool, len(groupBy))
	for _, c := range groupBy {
		grouped[c] = true
	}
	g := &groupOutputs{
		aggregators: make([]Aggregator, len(outputs)),
		keys:        make([]expr.Expr, len(outputs)),
	}
	for i, o := range outputs {
		if err := checkBound(o, in); err != nil {
			return nil, err
		}
		if a, ok := o.(*query.AggregateExpr); ok {
			agg, err := NewAggregator(a)
			if err != nil {
				return nil, err
			}
			g.aggregators[i] = agg
			continue
		}
		if query.ContainsAggregate(o) {
			return nil, errors.Newf("%s mixes an aggregate with other operations", o)
		}
		if !query.ReadsOnly(o, func(c *query.ColumnRef) bool { return grouped[c.Index] }) {
			return nil, errors.Wrapf(database.ErrNotKeyColumn, "%s reads columns outside the group by list", o)
		}
		k, err := expr.Compile(o)
		if err != nil {
			return nil, err
		}
		g.keys[i] = k
	}
	return g, nil
}

// columns describes the outputs; key outputs become key columns.
func (g *groupOutputs) columns(outputs []query.Expr, names []string) []database.Column {
	cols := make([]database.Column, len(outputs))
	for i, o := range outputs {
		cols[i] = database.NewColumn(names[i], o.Type(), g.aggregators[i] == nil && len(query.ColumnIndices(o)) > 0)
	}
	return cols
}

func (g *groupOutputs) reset() {
	for _, a := range g.aggregators {
		if a != nil {
			a.Reset()
		}
	}
}

func (g *groupOutputs) addRow(r database.Record) {
	for _, a := range g.aggregators {
		if a != nil {
			a.AddRow(r)
		}
	}
}

// captureKeys evaluates the key outputs on a record of the group.
func (g *groupOutputs) captureKeys(dst []database.Value, r database.Record) []database.Value {
	dst = dst[:0]
	for _, k := range g.keys {
		if k.Source() == nil {
			dst = append(dst, database.Value{})
			continue
		}
		dst = append(dst, k.Value(r))
	}
	return dst
}

// appendResults appends one value per output to dst.
func (g *groupOutputs) appendResults(dst database.Tuple, keys []database.Value) database.Tuple {
	for i, a := range g.aggregators {
		if a != nil {
			dst = append(dst, a.Result())
		} else {
			dst = append(dst, keys[i])
		}
	}
	return dst
}
