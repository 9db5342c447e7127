package expr

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/bisegni/tsq/pkg/query"
	"github.com/cockroachdb/errors"
)

// BooleanExpr, NumericExpr and StringExpr are evaluators specialised by
// result type. They read the record they are given and nothing else.
type (
	BooleanExpr func(r database.Record) bool
	NumericExpr func(r database.Record) float64
	StringExpr  func(r database.Record) string
)

// Expr holds exactly one evaluator, the one matching Type.
type Expr struct {
	typ     database.Type
	boolean BooleanExpr
	numeric NumericExpr
	str     StringExpr
	source  query.Expr
}

func (e Expr) Type() database.Type { return e.typ }

// Source is the analyzed expression e was compiled from.
func (e Expr) Source() query.Expr { return e.source }

func (e Expr) String() string { return e.source.String() }

func (e Expr) Boolean() BooleanExpr {
	if e.typ != database.Boolean {
		panic(errors.AssertionFailedf("%s expression %s used as BOOLEAN", e.typ, e.source))
	}
	return e.boolean
}

func (e Expr) Numeric() NumericExpr {
	if e.typ != database.Numeric {
		panic(errors.AssertionFailedf("%s expression %s used as NUMERIC", e.typ, e.source))
	}
	return e.numeric
}

func (e Expr) Str() StringExpr {
	if e.typ != database.String {
		panic(errors.AssertionFailedf("%s expression %s used as STRING", e.typ, e.source))
	}
	return e.str
}

// Value evaluates e on r into a typed value.
func (e Expr) Value(r database.Record) database.Value {
	switch e.typ {
	case database.Boolean:
		return database.BooleanValue(e.boolean(r))
	case database.Numeric:
		return database.NumericValue(e.numeric(r))
	default:
		return database.StringValue(e.str(r))
	}
}

// AppendTo evaluates e on r and appends the result to col.
func (e Expr) AppendTo(col *database.ColumnBuffer, r database.Record) {
	switch e.typ {
	case database.Boolean:
		col.AppendBoolean(e.boolean(r))
	case database.Numeric:
		col.AppendNumeric(e.numeric(r))
	default:
		col.AppendString(e.str(r))
	}
}

// Compile builds an evaluator for e, children first.
func Compile(e query.Expr) (Expr, error) {
	out, err := compile(e)
	if err != nil {
		return Expr{}, errors.Wrapf(err, "compiling %s", e)
	}
	return out, nil
}

// MustCompile is Compile for expressions that were already compiled once.
func MustCompile(e query.Expr) Expr {
	out, err := Compile(e)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "compiling %s", e))
	}
	return out
}

// CompileBoolean compiles a predicate.
func CompileBoolean(e query.Expr) (BooleanExpr, error) {
	if e.Type() != database.Boolean {
		return nil, errors.Wrapf(database.ErrTypeMismatch, "predicate %s has type %s", e, e.Type())
	}
	out, err := Compile(e)
	if err != nil {
		return nil, err
	}
	return out.boolean, nil
}

func compile(e query.Expr) (Expr, error) {
	switch n := e.(type) {
	case *query.ColumnRef:
		return compileColumn(n), nil
	case *query.Literal:
		return compileLiteral(n), nil
	case *query.UnaryExpr:
		return compileUnary(n)
	case *query.BinaryExpr:
		return compileBinary(n)
	case *query.CallExpr:
		return compileCall(n)
	case *query.AggregateExpr:
		return Expr{}, errors.Newf("aggregate %s outside of an aggregation", n)
	default:
		return Expr{}, errors.AssertionFailedf("unexpected expression %T", e)
	}
}

func compileColumn(c *query.ColumnRef) Expr {
	i := c.Index
	switch c.Typ {
	case database.Boolean:
		return Expr{typ: database.Boolean, source: c, boolean: func(r database.Record) bool { return r.GetBoolean(i) }}
	case database.Numeric:
		return Expr{typ: database.Numeric, source: c, numeric: func(r database.Record) float64 { return r.GetNumeric(i) }}
	default:
		return Expr{typ: database.String, source: c, str: func(r database.Record) string { return r.GetString(i) }}
	}
}

func compileLiteral(l *query.Literal) Expr {
	switch l.Type() {
	case database.Boolean:
		v := l.Value.Boolean()
		return Expr{typ: database.Boolean, source: l, boolean: func(database.Record) bool { return v }}
	case database.Numeric:
		v := l.Value.Numeric()
		return Expr{typ: database.Numeric, source: l, numeric: func(database.Record) float64 { return v }}
	default:
		v := l.Value.Str()
		return Expr{typ: database.String, source: l, str: func(database.Record) string { return v }}
	}
}

func compileUnary(u *query.UnaryExpr) (Expr, error) {
	operand, err := compile(u.Operand)
	if err != nil {
		return Expr{}, err
	}
	switch {
	case u.Op == query.OpNot && operand.typ == database.Boolean:
		f := operand.boolean
		return Expr{typ: database.Boolean, source: u, boolean: func(r database.Record) bool { return !f(r) }}, nil
	case u.Op == query.OpNeg && operand.typ == database.Numeric:
		f := operand.numeric
		return Expr{typ: database.Numeric, source: u, numeric: func(r database.Record) float64 { return -f(r) }}, nil
	}
	return Expr{}, errors.Wrapf(database.ErrTypeMismatch, "%s on %s", u.Op, operand.typ)
}

func compileBinary(b *query.BinaryExpr) (Expr, error) {
	left, err := compile(b.Left)
	if err != nil {
		return Expr{}, err
	}
	right, err := compile(b.Right)
	if err != nil {
		return Expr{}, err
	}
	if left.typ != right.typ {
		return Expr{}, errors.Wrapf(database.ErrTypeMismatch, "%s between %s and %s", b.Op, left.typ, right.typ)
	}
	switch {
	case b.Op == query.OpAnd || b.Op == query.OpOr:
		return compileLogical(b, left, right)
	case b.Op.IsComparison():
		return compileComparison(b, left, right), nil
	case b.Op == query.OpMatch:
		return compileMatch(b, left, right)
	default:
		return compileArithmetic(b, left, right)
	}
}

func compileLogical(b *query.BinaryExpr, left, right Expr) (Expr, error) {
	if left.typ != database.Boolean {
		return Expr{}, errors.Wrapf(database.ErrTypeMismatch, "%s on %s", b.Op, left.typ)
	}
	l, r := left.boolean, right.boolean
	out := Expr{typ: database.Boolean, source: b}
	if b.Op == query.OpAnd {
		out.boolean = func(rec database.Record) bool { return l(rec) && r(rec) }
	} else {
		out.boolean = func(rec database.Record) bool { return l(rec) || r(rec) }
	}
	return out, nil
}

// comparator evaluates both operands and orders them.
func comparator(left, right Expr) func(database.Record) int {
	switch left.typ {
	case database.Boolean:
		l, r := left.boolean, right.boolean
		return func(rec database.Record) int { return database.CompareBooleans(l(rec), r(rec)) }
	case database.Numeric:
		l, r := left.numeric, right.numeric
		return func(rec database.Record) int {
			a, b := l(rec), r(rec)
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			case a == b:
				return 0
			}
			// NaN orders lowest, as in sorting
			return database.NumericValue(a).Compare(database.NumericValue(b))
		}
	default:
		l, r := left.str, right.str
		return func(rec database.Record) int { return strings.Compare(l(rec), r(rec)) }
	}
}

func compileComparison(b *query.BinaryExpr, left, right Expr) Expr {
	c := comparator(left, right)
	var f BooleanExpr
	switch b.Op {
	case query.OpEq:
		f = func(r database.Record) bool { return c(r) == 0 }
	case query.OpNe:
		f = func(r database.Record) bool { return c(r) != 0 }
	case query.OpLt:
		f = func(r database.Record) bool { return c(r) < 0 }
	case query.OpLe:
		f = func(r database.Record) bool { return c(r) <= 0 }
	case query.OpGt:
		f = func(r database.Record) bool { return c(r) > 0 }
	default:
		f = func(r database.Record) bool { return c(r) >= 0 }
	}
	return Expr{typ: database.Boolean, source: b, boolean: f}
}

func compileMatch(b *query.BinaryExpr, left, right Expr) (Expr, error) {
	if left.typ != database.String {
		return Expr{}, errors.Wrapf(database.ErrTypeMismatch, "~= on %s", left.typ)
	}
	ll, lok := b.Left.(*query.Literal)
	rl, rok := b.Right.(*query.Literal)
	if lok && rok && HasWildcard(ll.Value.Str()) && HasWildcard(rl.Value.Str()) {
		return Expr{}, errors.Newf("both operands of %s are patterns", b)
	}
	l, r := left.str, right.str
	return Expr{typ: database.Boolean, source: b, boolean: func(rec database.Record) bool {
		ok, err := MatchPath(l(rec), r(rec))
		if err != nil {
			panic(err)
		}
		return ok
	}}, nil
}

func compileArithmetic(b *query.BinaryExpr, left, right Expr) (Expr, error) {
	if left.typ != database.Numeric {
		return Expr{}, errors.Wrapf(database.ErrTypeMismatch, "%s on %s", b.Op, left.typ)
	}
	l, r := left.numeric, right.numeric
	var f NumericExpr
	switch b.Op {
	case query.OpAdd:
		f = func(rec database.Record) float64 { return l(rec) + r(rec) }
	case query.OpSub:
		f = func(rec database.Record) float64 { return l(rec) - r(rec) }
	case query.OpMul:
		f = func(rec database.Record) float64 { return l(rec) * r(rec) }
	case query.OpDiv:
		f = func(rec database.Record) float64 { return l(rec) / r(rec) }
	case query.OpMod:
		f = func(rec database.Record) float64 { return math.Mod(l(rec), r(rec)) }
	default:
		return Expr{}, errors.AssertionFailedf("unexpected operator %s", b.Op)
	}
	return Expr{typ: database.Numeric, source: b, numeric: f}, nil
}

func compileCall(c *query.CallExpr) (Expr, error) {
	args := make([]Expr, len(c.Args))
	for i, a := range c.Args {
		var err error
		if args[i], err = compile(a); err != nil {
			return Expr{}, err
		}
	}
	switch c.Func {
	case "ABS":
		f := args[0].Numeric()
		return Expr{typ: database.Numeric, source: c, numeric: func(r database.Record) float64 { return math.Abs(f(r)) }}, nil
	case "LOWER":
		f := args[0].Str()
		return Expr{typ: database.String, source: c, str: func(r database.Record) string { return strings.ToLower(f(r)) }}, nil
	case "UPPER":
		f := args[0].Str()
		return Expr{typ: database.String, source: c, str: func(r database.Record) string { return strings.ToUpper(f(r)) }}, nil
	case "LENGTH":
		f := args[0].Str()
		return Expr{typ: database.Numeric, source: c, numeric: func(r database.Record) float64 {
			return float64(utf8.RuneCountInString(f(r)))
		}}, nil
	case "CONCAT":
		fs := make([]StringExpr, len(args))
		for i, a := range args {
			fs[i] = a.Str()
		}
		return Expr{typ: database.String, source: c, str: func(r database.Record) string {
			var sb strings.Builder
			for _, f := range fs {
				sb.WriteString(f(r))
			}
			return sb.String()
		}}, nil
	default:
		return Expr{}, errors.Newf("unknown function %s", c.Func)
	}
}
