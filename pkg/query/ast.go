package query

import (
	"fmt"
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// Expr is an analyzed expression: every node carries its static type and
// every column reference its resolved index.
type Expr interface {
	Type() database.Type
	String() string
	isExpr()
}

// Op is a unary or binary operator.
type Op uint8

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	// OpMatch is approximate path equality with glob wildcards.
	OpMatch
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var opNames = [...]string{
	OpAnd:   "AND",
	OpOr:    "OR",
	OpNot:   "NOT",
	OpNeg:   "-",
	OpEq:    "=",
	OpNe:    "!=",
	OpLt:    "<",
	OpLe:    "<=",
	OpGt:    ">",
	OpGe:    ">=",
	OpMatch: "~=",
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpDiv:   "/",
	OpMod:   "%",
}

func (o Op) String() string { return opNames[o] }

// IsComparison reports whether o compares two operands of the same type.
func (o Op) IsComparison() bool { return o >= OpEq && o <= OpGe }

// Mirror swaps the operand order of a comparison: a < b is b > a.
func (o Op) Mirror() Op {
	switch o {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return o
	}
}

// ColumnRef reads column Index of the input record.
type ColumnRef struct {
	Name  string
	Index int
	Typ   database.Type
}

// NewColumnRef resolves name in schema.
func NewColumnRef(schema *database.Schema, name string) (*ColumnRef, error) {
	i, c, err := schema.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &ColumnRef{Name: name, Index: i, Typ: c.Type()}, nil
}

func (c *ColumnRef) Type() database.Type { return c.Typ }
func (c *ColumnRef) String() string      { return c.Name }

// Literal is a constant.
type Literal struct {
	Value database.Value
}

func NewLiteral(v database.Value) *Literal { return &Literal{Value: v} }

func (l *Literal) Type() database.Type { return l.Value.Type() }
func (l *Literal) String() string      { return l.Value.Quoted() }

// UnaryExpr is NOT or numeric negation.
type UnaryExpr struct {
	Op      Op
	Operand Expr
}

func NewUnary(op Op, operand Expr) (*UnaryExpr, error) {
	want := database.Numeric
	switch op {
	case OpNot:
		want = database.Boolean
	case OpNeg:
	default:
		return nil, errors.AssertionFailedf("%s is not a unary operator", op)
	}
	if operand.Type() != want {
		return nil, errors.Wrapf(database.ErrTypeMismatch, "%s expects %s, got %s in %s", op, want, operand.Type(), operand)
	}
	return &UnaryExpr{Op: op, Operand: operand}, nil
}

func (u *UnaryExpr) Type() database.Type { return u.Operand.Type() }

func (u *UnaryExpr) String() string {
	if u.Op == OpNot {
		return "NOT " + u.Operand.String()
	}
	return "-" + u.Operand.String()
}

// BinaryExpr applies a logical, comparison or arithmetic operator.
type BinaryExpr struct {
	Op          Op
	Left, Right Expr
	typ         database.Type
}

// NewBinary type-checks the operands; mixed-type operands are rejected.
func NewBinary(op Op, left, right Expr) (*BinaryExpr, error) {
	lt, rt := left.Type(), right.Type()
	mismatch := func(want string) error {
		return errors.Wrapf(database.ErrTypeMismatch, "%s expects %s operands, got %s and %s in %s %s %s",
			op, want, lt, rt, left, op, right)
	}
	var typ database.Type
	switch {
	case op == OpAnd || op == OpOr:
		if lt != database.Boolean || rt != database.Boolean {
			return nil, mismatch("BOOLEAN")
		}
		typ = database.Boolean
	case op.IsComparison():
		if lt != rt {
			return nil, mismatch("same-typed")
		}
		typ = database.Boolean
	case op == OpMatch:
		if lt != database.String || rt != database.String {
			return nil, mismatch("STRING")
		}
		typ = database.Boolean
	case op >= OpAdd && op <= OpMod:
		if lt != database.Numeric || rt != database.Numeric {
			return nil, mismatch("NUMERIC")
		}
		typ = database.Numeric
	default:
		return nil, errors.AssertionFailedf("%s is not a binary operator", op)
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, typ: typ}, nil
}

func (b *BinaryExpr) Type() database.Type { return b.typ }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// CallExpr is a scalar function call.
type CallExpr struct {
	Func string
	Args []Expr
	typ  database.Type
}

type signature struct {
	args     []database.Type
	variadic bool
	result   database.Type
}

var scalarFuncs = map[string]signature{
	"ABS":    {args: []database.Type{database.Numeric}, result: database.Numeric},
	"LOWER":  {args: []database.Type{database.String}, result: database.String},
	"UPPER":  {args: []database.Type{database.String}, result: database.String},
	"LENGTH": {args: []database.Type{database.String}, result: database.Numeric},
	"CONCAT": {args: []database.Type{database.String}, variadic: true, result: database.String},
}

// IsScalarFunc reports whether name is a known scalar function.
func IsScalarFunc(name string) bool {
	_, ok := scalarFuncs[strings.ToUpper(name)]
	return ok
}

func NewCall(name string, args ...Expr) (*CallExpr, error) {
	name = strings.ToUpper(name)
	sig, ok := scalarFuncs[name]
	if !ok {
		return nil, errors.Newf("unknown function %s", name)
	}
	if err := checkArgs(name, sig, args); err != nil {
		return nil, err
	}
	return &CallExpr{Func: name, Args: args, typ: sig.result}, nil
}

func checkArgs(name string, sig signature, args []Expr) error {
	if len(args) < len(sig.args) || (!sig.variadic && len(args) > len(sig.args)) {
		return errors.Newf("%s takes %d argument(s), got %d", name, len(sig.args), len(args))
	}
	for i, a := range args {
		want := sig.args[min(i, len(sig.args)-1)]
		if want != database.Undefined && a.Type() != want {
			return errors.Wrapf(database.ErrTypeMismatch, "%s argument %d must be %s, got %s", name, i+1, want, a.Type())
		}
	}
	return nil
}

func (c *CallExpr) Type() database.Type { return c.typ }
func (c *CallExpr) String() string      { return formatCall(c.Func, c.Args) }

// AggFunc names an aggregate function.
type AggFunc string

const (
	AggCount       AggFunc = "COUNT"
	AggCountIf     AggFunc = "COUNT_IF"
	AggMin         AggFunc = "MIN"
	AggMax         AggFunc = "MAX"
	AggSum         AggFunc = "SUM"
	AggAvg         AggFunc = "AVG"
	AggWeightedAvg AggFunc = "WEIGHTED_AVG"
)

// IsAggregateFunc reports whether name is an aggregate function.
func IsAggregateFunc(name string) bool {
	switch AggFunc(strings.ToUpper(name)) {
	case AggCount, AggCountIf, AggMin, AggMax, AggSum, AggAvg, AggWeightedAvg:
		return true
	}
	return false
}

// AggregateExpr folds its arguments over the rows of a group.
type AggregateExpr struct {
	Func AggFunc
	Args []Expr
	typ  database.Type
}

func NewAggregate(name string, args ...Expr) (*AggregateExpr, error) {
	fn := AggFunc(strings.ToUpper(name))
	var sig signature
	switch fn {
	case AggCount:
		if len(args) > 1 {
			return nil, errors.Newf("COUNT takes at most one argument, got %d", len(args))
		}
		if len(args) == 1 {
			sig.args = []database.Type{database.Undefined}
		}
		sig.result = database.Numeric
	case AggCountIf:
		sig = signature{args: []database.Type{database.Boolean}, result: database.Numeric}
	case AggMin, AggMax:
		if len(args) != 1 {
			return nil, errors.Newf("%s takes 1 argument, got %d", fn, len(args))
		}
		sig = signature{args: []database.Type{args[0].Type()}, result: args[0].Type()}
	case AggSum, AggAvg:
		sig = signature{args: []database.Type{database.Numeric}, result: database.Numeric}
	case AggWeightedAvg:
		sig = signature{args: []database.Type{database.Numeric, database.Numeric}, result: database.Numeric}
	default:
		return nil, errors.Newf("unknown aggregate %s", name)
	}
	if len(sig.args) > 0 {
		if err := checkArgs(string(fn), sig, args); err != nil {
			return nil, err
		}
	}
	for _, a := range args {
		if ContainsAggregate(a) {
			return nil, errors.Newf("aggregate %s cannot contain another aggregate", fn)
		}
	}
	return &AggregateExpr{Func: fn, Args: args, typ: sig.result}, nil
}

func (a *AggregateExpr) Type() database.Type { return a.typ }
func (a *AggregateExpr) String() string      { return formatCall(string(a.Func), a.Args) }

func formatCall(name string, args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func (*ColumnRef) isExpr()     {}
func (*Literal) isExpr()       {}
func (*UnaryExpr) isExpr()     {}
func (*BinaryExpr) isExpr()    {}
func (*CallExpr) isExpr()      {}
func (*AggregateExpr) isExpr() {}
