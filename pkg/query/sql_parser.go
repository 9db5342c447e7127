package query

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/cockroachdb/errors"
)

// TableRef names a scanned table and the alias its columns are qualified by.
type TableRef struct {
	Name  string
	Alias string
}

// Qualifier is the alias, or the table name when there is none.
func (t TableRef) Qualifier() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// SelectItem is one entry of the select list; Expr is nil for '*'.
type SelectItem struct {
	Expr  *ASTExpression
	Alias string
}

// OrderItem is one ORDER BY column.
type OrderItem struct {
	Column string
	Desc   bool
}

// SelectQuery represents a parsed query IR (Intermediate Representation).
// Expressions are still unresolved; the planner analyzes them against the
// schemas they apply to.
type SelectQuery struct {
	Items    []SelectItem
	From     TableRef
	Join     *TableRef
	On       *ASTExpression
	Where    *ASTExpression
	GroupBy  []string
	Temporal bool
	OrderBy  []OrderItem
	Limit    int // -1 when absent
}

// IsAggregate reports whether the query groups or aggregates.
func (q *SelectQuery) IsAggregate() bool {
	if len(q.GroupBy) > 0 {
		return true
	}
	for _, it := range q.Items {
		if it.Expr != nil && hasAggregateCall(it.Expr) {
			return true
		}
	}
	return false
}

func hasAggregateCall(e *ASTExpression) bool {
	found := false
	walkAST(e, func(f *ASTFunction) {
		if IsAggregateFunc(f.Name) {
			found = true
		}
	})
	return found
}

func walkAST(e *ASTExpression, fn func(*ASTFunction)) {
	for _, or := range e.Or {
		for _, c := range or.And {
			walkCondition(c, fn)
		}
	}
}

func walkCondition(c *ASTCondition, fn func(*ASTFunction)) {
	if c.Not != nil {
		walkCondition(c.Not, fn)
		return
	}
	walkSum(c.Simple.Operand, fn)
	if c.Simple.Value != nil {
		walkSum(c.Simple.Value, fn)
	}
}

func walkSum(s *ASTSum, fn func(*ASTFunction)) {
	products := []*ASTProduct{s.Left}
	for _, r := range s.Rest {
		products = append(products, r.Right)
	}
	for _, p := range products {
		unaries := []*ASTUnary{p.Left}
		for _, r := range p.Rest {
			unaries = append(unaries, r.Right)
		}
		for _, u := range unaries {
			for u.Neg != nil {
				u = u.Neg
			}
			switch o := u.Operand; {
			case o.Function != nil:
				fn(o.Function)
				for _, a := range o.Function.Args {
					walkAST(a, fn)
				}
			case o.Grouped != nil:
				walkAST(o.Grouped, fn)
			}
		}
	}
}

// Lexer definition
var (
	sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(SELECT|FROM|JOIN|ON|WHERE|TEMPORAL|GROUP|ORDER|BY|ASC|DESC|LIMIT|AS|AND|OR|NOT|TRUE|FALSE)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Number", Pattern: `(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
		{Name: "Operator", Pattern: `>=|<=|!=|<>|~=|[=<>]`},
		{Name: "Punct", Pattern: `[-+/*%,.();]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	options = []participle.Option{
		participle.Lexer(sqlLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	}

	sqlParser  = participle.MustBuild[ASTSelect](options...)
	exprParser = participle.MustBuild[ASTExpression](options...)
)

// ParseQuery parses a SELECT string using Participle
func ParseQuery(input string) (*SelectQuery, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty query")
	}

	ast, err := sqlParser.ParseString("", input)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	return ast.ToSelectQuery(), nil
}

// ParseExpression parses a standalone expression such as a filter.
func ParseExpression(input string) (*ASTExpression, error) {
	ast, err := exprParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	return ast, nil
}

// ToSelectQuery converts the syntax tree to the query IR.
func (s *ASTSelect) ToSelectQuery() *SelectQuery {
	q := &SelectQuery{
		From:  TableRef{Name: s.From.Name, Alias: s.From.Alias},
		Where: s.Where,
		Limit: -1,
	}
	for _, f := range s.SelectFields {
		q.Items = append(q.Items, SelectItem{Expr: f.Expression, Alias: f.Alias})
	}
	if s.Join != nil {
		q.Join = &TableRef{Name: s.Join.Table.Name, Alias: s.Join.Table.Alias}
		q.On = s.Join.On
	}
	if s.GroupBy != nil {
		q.Temporal = s.GroupBy.Temporal
		for _, c := range s.GroupBy.Columns {
			q.GroupBy = append(q.GroupBy, c.String())
		}
	}
	for _, o := range s.OrderBy {
		q.OrderBy = append(q.OrderBy, OrderItem{
			Column: o.Column.String(),
			Desc:   strings.EqualFold(o.Direction, "DESC"),
		})
	}
	if s.Limit != nil {
		q.Limit = *s.Limit
	}
	return q
}
