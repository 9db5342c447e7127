package query

import (
	"strings"

	"github.com/bisegni/tsq/pkg/database"
	"github.com/cockroachdb/errors"
)

// Scope resolves column names against one schema. Names may be written
// qualified (alias.col) or bare when the bare name is unambiguous.
type Scope struct {
	schema     *database.Schema
	qualifiers []string
}

// NewScope builds a scope; qualifiers are aliases that may prefix a column
// name without being part of it.
func NewScope(schema *database.Schema, qualifiers ...string) *Scope {
	return &Scope{schema: schema, qualifiers: qualifiers}
}

func (s *Scope) Schema() *database.Schema { return s.schema }

// Resolve finds the column written as name.
func (s *Scope) Resolve(name string) (*ColumnRef, error) {
	if _, ok := s.schema.IndexOf(name); ok {
		return NewColumnRef(s.schema, name)
	}
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		qualifier, rest := name[:dot], name[dot+1:]
		if database.IsReserved(rest) || s.hasQualifier(qualifier) {
			if _, ok := s.schema.IndexOf(rest); ok {
				return NewColumnRef(s.schema, rest)
			}
		}
		return nil, errors.Wrapf(database.ErrUnknownColumn, "%q", name)
	}
	var match string
	for _, n := range s.schema.Names() {
		if strings.HasSuffix(n, "."+name) {
			if match != "" {
				return nil, errors.Newf("column %q is ambiguous: %q or %q", name, match, n)
			}
			match = n
		}
	}
	if match == "" {
		return nil, errors.Wrapf(database.ErrUnknownColumn, "%q", name)
	}
	return NewColumnRef(s.schema, match)
}

func (s *Scope) hasQualifier(q string) bool {
	for _, x := range s.qualifiers {
		if x == q {
			return true
		}
	}
	return false
}

// Analyze resolves names and assigns types to a parsed expression.
func (s *Scope) Analyze(e *ASTExpression) (Expr, error) {
	var out Expr
	for _, or := range e.Or {
		var conj Expr
		for _, c := range or.And {
			x, err := s.condition(c)
			if err != nil {
				return nil, err
			}
			if conj == nil {
				conj = x
			} else if conj, err = NewBinary(OpAnd, conj, x); err != nil {
				return nil, err
			}
		}
		if out == nil {
			out = conj
			continue
		}
		var err error
		if out, err = NewBinary(OpOr, out, conj); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AnalyzeString parses and analyzes input.
func (s *Scope) AnalyzeString(input string) (Expr, error) {
	ast, err := ParseExpression(input)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ast)
}

var comparisonOps = map[string]Op{
	"=":  OpEq,
	"!=": OpNe,
	"<>": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
	"~=": OpMatch,
}

func (s *Scope) condition(c *ASTCondition) (Expr, error) {
	if c.Not != nil {
		x, err := s.condition(c.Not)
		if err != nil {
			return nil, err
		}
		return NewUnary(OpNot, x)
	}
	left, err := s.sum(c.Simple.Operand)
	if err != nil {
		return nil, err
	}
	if c.Simple.Op == nil {
		return left, nil
	}
	right, err := s.sum(c.Simple.Value)
	if err != nil {
		return nil, err
	}
	return NewBinary(comparisonOps[*c.Simple.Op], left, right)
}

var arithmeticOps = map[string]Op{"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod}

func (s *Scope) sum(a *ASTSum) (Expr, error) {
	out, err := s.product(a.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range a.Rest {
		right, err := s.product(r.Right)
		if err != nil {
			return nil, err
		}
		if out, err = NewBinary(arithmeticOps[r.Op], out, right); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Scope) product(p *ASTProduct) (Expr, error) {
	out, err := s.unary(p.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range p.Rest {
		right, err := s.unary(r.Right)
		if err != nil {
			return nil, err
		}
		if out, err = NewBinary(arithmeticOps[r.Op], out, right); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Scope) unary(u *ASTUnary) (Expr, error) {
	if u.Neg != nil {
		x, err := s.unary(u.Neg)
		if err != nil {
			return nil, err
		}
		if l, ok := x.(*Literal); ok && l.Type() == database.Numeric {
			return NewLiteral(database.NumericValue(-l.Value.Numeric())), nil
		}
		return NewUnary(OpNeg, x)
	}
	return s.operand(u.Operand)
}

func (s *Scope) operand(o *ASTOperand) (Expr, error) {
	switch {
	case o.Literal != nil:
		return literal(o.Literal), nil
	case o.Column != nil:
		return s.Resolve(o.Column.String())
	case o.Grouped != nil:
		return s.Analyze(o.Grouped)
	default:
		return s.call(o.Function)
	}
}

func (s *Scope) call(f *ASTFunction) (Expr, error) {
	args := make([]Expr, 0, len(f.Args))
	for _, a := range f.Args {
		x, err := s.Analyze(a)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	if f.Star && !strings.EqualFold(f.Name, string(AggCount)) {
		return nil, errors.Newf("%s(*) is not supported", f.Name)
	}
	if IsAggregateFunc(f.Name) {
		return NewAggregate(f.Name, args...)
	}
	return NewCall(f.Name, args...)
}

func literal(l *ASTLiteral) *Literal {
	switch {
	case l.Number != nil:
		return NewLiteral(database.NumericValue(*l.Number))
	case l.StrVal != nil:
		return NewLiteral(database.StringValue(*l.StrVal))
	default:
		return NewLiteral(database.BooleanValue(strings.EqualFold(*l.Bool, "TRUE")))
	}
}
