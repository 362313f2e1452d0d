package sqldsl

import (
	"strconv"
	"strings"
)

// Expr is the interface that all SQL expression types implement.
//
// SQL renders the fragment with one `?` placeholder per bound value and
// Args returns those values in placeholder order.
type Expr interface {
	SQL() string
	Args() []any
}

// noArgs is embedded by expressions that never bind values.
type noArgs struct{}

func (noArgs) Args() []any { return nil }

// QuoteIdent quotes an identifier with double quotes, doubling any
// embedded quote. Identifiers that are already quoted are returned as is.
func QuoteIdent(name string) string {
	if IsQuoted(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IsQuoted reports whether name is wrapped in double quotes.
func IsQuoted(name string) bool {
	return len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"'
}

// Col represents a column reference (e.g., "parcels"."geom").
// Table is a qualifier written as given; Column is always quoted.
type Col struct {
	Table  string
	Column string
	noArgs
}

// C creates a column reference.
func C(table, column string) Col {
	return Col{Table: table, Column: column}
}

// SQL renders the column reference.
func (c Col) SQL() string {
	if c.Table == "" {
		return QuoteIdent(c.Column)
	}
	return c.Table + "." + QuoteIdent(c.Column)
}

// Star selects every column of a table (e.g., "parcels".*).
type Star struct {
	Table string
	noArgs
}

// SQL renders the star projection.
func (s Star) SQL() string {
	if s.Table == "" {
		return "*"
	}
	return s.Table + ".*"
}

// Arg is a single bound parameter.
type Arg struct {
	Value any
}

// Bind creates a bound parameter.
func Bind(v any) Arg { return Arg{Value: v} }

// SQL renders the placeholder.
func (Arg) SQL() string { return "?" }

// Args returns the bound value.
func (a Arg) Args() []any { return []any{a.Value} }

// Lit represents a literal string value (auto-quoted with single quotes).
type Lit string

// SQL renders the literal with single quotes.
func (l Lit) SQL() string {
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'"
}

// Args implements Expr.
func (Lit) Args() []any { return nil }

// Raw is an escape hatch for arbitrary SQL expressions without parameters.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string { return string(r) }

// Args implements Expr.
func (Raw) Args() []any { return nil }

// Fragment is caller supplied SQL carrying its own bound values.
// The text uses `?` placeholders, one per value.
type Fragment struct {
	Text   string
	Values []any
}

// SQL renders the fragment text as-is.
func (f Fragment) SQL() string { return f.Text }

// Args returns the fragment values.
func (f Fragment) Args() []any { return f.Values }

// Int represents an integer literal.
type Int int

// SQL renders the integer.
func (i Int) SQL() string { return strconv.Itoa(int(i)) }

// Args implements Expr.
func (Int) Args() []any { return nil }

// Null represents SQL NULL.
type Null struct{ noArgs }

// SQL renders NULL.
func (Null) SQL() string { return "NULL" }

// Func represents a SQL function call.
type Func struct {
	Name   string
	Params []Expr
}

// Call creates a function call expression.
func Call(name string, args ...Expr) Func {
	return Func{Name: name, Params: args}
}

// SQL renders the function call.
func (f Func) SQL() string {
	args := make([]string, len(f.Params))
	for i, arg := range f.Params {
		args[i] = arg.SQL()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// Args collects the arguments' bound values.
func (f Func) Args() []any { return collectArgs(f.Params...) }

// ArrayAgg renders array_agg(expr ORDER BY order).
// OrderBy is optional.
type ArrayAgg struct {
	Expr    Expr
	OrderBy Expr
}

// SQL renders the aggregate.
func (a ArrayAgg) SQL() string {
	if a.OrderBy == nil {
		return "array_agg(" + a.Expr.SQL() + ")"
	}
	return "array_agg(" + a.Expr.SQL() + " ORDER BY " + a.OrderBy.SQL() + ")"
}

// Args collects bound values of the aggregated and ordering expressions.
func (a ArrayAgg) Args() []any { return collectArgs(a.Expr, a.OrderBy) }

// Alias wraps an expression with an alias (expr AS alias).
type Alias struct {
	Expr Expr
	Name string
}

// SelectAs creates an aliased column expression (expr AS "alias").
func SelectAs(expr Expr, alias string) Alias {
	return Alias{Expr: expr, Name: alias}
}

// SQL renders the aliased expression. The alias is quoted.
func (a Alias) SQL() string {
	return a.Expr.SQL() + " AS " + QuoteIdent(a.Name)
}

// Args returns the wrapped expression's values.
func (a Alias) Args() []any { return a.Expr.Args() }

// Paren wraps an expression in parentheses.
type Paren struct {
	Expr Expr
}

// SQL renders the parenthesized expression.
func (p Paren) SQL() string { return "(" + p.Expr.SQL() + ")" }

// Args returns the wrapped expression's values.
func (p Paren) Args() []any { return p.Expr.Args() }

// collectArgs concatenates the bound values of exprs, skipping nil entries.
func collectArgs(exprs ...Expr) []any {
	var args []any
	for _, e := range exprs {
		if e == nil {
			continue
		}
		args = append(args, e.Args()...)
	}
	return args
}

// CountPlaceholders counts `?` placeholders outside single-quoted literals.
func CountPlaceholders(sql string) int {
	n := 0
	inLit := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			inLit = !inLit
		case '?':
			if !inLit {
				n++
			}
		}
	}
	return n
}
