package query

import (
	"strconv"
	"strings"
)

// AST for Participle Parser

type ASTSelect struct {
	SelectFields []*ASTSelectField `parser:"'SELECT' @@ (',' @@)*"`
	From         *ASTTableRef      `parser:"'FROM' @@"`
	Join         *ASTJoin          `parser:"@@?"`
	Where        *ASTExpression    `parser:"('WHERE' @@)?"`
	GroupBy      *ASTGroupBy       `parser:"@@?"`
	OrderBy      []*ASTOrderItem   `parser:"('ORDER' 'BY' @@ (',' @@)*)?"`
	Limit        *int              `parser:"('LIMIT' @Number)? ';'?"`
}

type ASTSelectField struct {
	Star       bool           `parser:"  @'*'"`
	Expression *ASTExpression `parser:"| @@"`
	Alias      string         `parser:"  ('AS' @Ident)?"`
}

type ASTTableRef struct {
	Name  string `parser:"@Ident"`
	Alias string `parser:"('AS'? @Ident)?"`
}

type ASTJoin struct {
	Table *ASTTableRef   `parser:"'JOIN' @@"`
	On    *ASTExpression `parser:"'ON' @@"`
}

type ASTGroupBy struct {
	Temporal bool              `parser:"@'TEMPORAL'? 'GROUP' 'BY'"`
	Columns  []*ASTColumnName `parser:"@@ (',' @@)*"`
}

type ASTOrderItem struct {
	Column    *ASTColumnName `parser:"@@"`
	Direction string         `parser:"@('ASC' | 'DESC')?"`
}

type ASTExpression struct {
	Or []*ASTOrCondition `parser:"@@ ('OR' @@)*"`
}

type ASTOrCondition struct {
	And []*ASTCondition `parser:"@@ ('AND' @@)*"`
}

type ASTCondition struct {
	Not    *ASTCondition  `parser:"  'NOT' @@"`
	Simple *ASTComparison `parser:"| @@"`
}

type ASTComparison struct {
	Operand *ASTSum `parser:"@@"`
	Op      *string `parser:"( @('=' | '!=' | '<>' | '<=' | '>=' | '<' | '>' | '~=')"`
	Value   *ASTSum `parser:"  @@ )?"`
}

type ASTSum struct {
	Left *ASTProduct `parser:"@@"`
	Rest []*ASTSumOp `parser:"@@*"`
}

type ASTSumOp struct {
	Op    string      `parser:"@('+' | '-')"`
	Right *ASTProduct `parser:"@@"`
}

type ASTProduct struct {
	Left *ASTUnary       `parser:"@@"`
	Rest []*ASTProductOp `parser:"@@*"`
}

type ASTProductOp struct {
	Op    string    `parser:"@('*' | '/' | '%')"`
	Right *ASTUnary `parser:"@@"`
}

type ASTUnary struct {
	Neg     *ASTUnary   `parser:"  '-' @@"`
	Operand *ASTOperand `parser:"| @@"`
}

type ASTOperand struct {
	Function *ASTFunction   `parser:"  @@"`
	Literal  *ASTLiteral    `parser:"| @@"`
	Column   *ASTColumnName `parser:"| @@"`
	Grouped  *ASTExpression `parser:"| '(' @@ ')'"`
}

type ASTFunction struct {
	Name string           `parser:"@Ident '('"`
	Star bool             `parser:"( @'*'"`
	Args []*ASTExpression `parser:"| @@ (',' @@)* )? ')'"`
}

// ASTColumnName is a column, optionally qualified by a table alias.
type ASTColumnName struct {
	Parts []string `parser:"@Ident ('.' @Ident)?"`
}

func (c *ASTColumnName) String() string {
	return strings.Join(c.Parts, ".")
}

type ASTLiteral struct {
	Number *float64 `parser:"  @Number"`
	StrVal *string  `parser:"| @String"`
	Bool   *string  `parser:"| @('TRUE' | 'FALSE')"`
}

// Helpers

func (e *ASTExpression) String() string {
	var parts []string
	for _, or := range e.Or {
		parts = append(parts, or.String())
	}
	return strings.Join(parts, " OR ")
}

func (o *ASTOrCondition) String() string {
	var parts []string
	for _, and := range o.And {
		parts = append(parts, and.String())
	}
	return strings.Join(parts, " AND ")
}

func (c *ASTCondition) String() string {
	if c.Not != nil {
		return "NOT " + c.Not.String()
	}
	s := c.Simple.Operand.String()
	if c.Simple.Op != nil && c.Simple.Value != nil {
		s += " " + *c.Simple.Op + " " + c.Simple.Value.String()
	}
	return s
}

func (s *ASTSum) String() string {
	out := s.Left.String()
	for _, r := range s.Rest {
		out += " " + r.Op + " " + r.Right.String()
	}
	return out
}

func (p *ASTProduct) String() string {
	out := p.Left.String()
	for _, r := range p.Rest {
		out += " " + r.Op + " " + r.Right.String()
	}
	return out
}

func (u *ASTUnary) String() string {
	if u.Neg != nil {
		return "-" + u.Neg.String()
	}
	return u.Operand.String()
}

func (o *ASTOperand) String() string {
	switch {
	case o.Function != nil:
		return o.Function.String()
	case o.Literal != nil:
		return o.Literal.String()
	case o.Column != nil:
		return o.Column.String()
	case o.Grouped != nil:
		return "(" + o.Grouped.String() + ")"
	}
	return ""
}

func (f *ASTFunction) String() string {
	if f.Star {
		return f.Name + "(*)"
	}
	var args []string
	for _, a := range f.Args {
		args = append(args, a.String())
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

func (l *ASTLiteral) String() string {
	switch {
	case l.Number != nil:
		return strconv.FormatFloat(*l.Number, 'g', -1, 64)
	case l.StrVal != nil:
		return "'" + *l.StrVal + "'"
	case l.Bool != nil:
		return strings.ToUpper(*l.Bool)
	}
	return ""
}

// Name derives the output column name of a select field.
func (f *ASTSelectField) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	if f.Expression == nil {
		return "*"
	}
	return f.Expression.String()
}
