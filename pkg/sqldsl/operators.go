package sqldsl

import (
	"strings"
)

// Comparison operators

// Eq represents an equality comparison (=).
type Eq struct {
	Left  Expr
	Right Expr
}

func (e Eq) SQL() string { return e.Left.SQL() + " = " + e.Right.SQL() }
func (e Eq) Args() []any { return collectArgs(e.Left, e.Right) }

// Ne represents a not-equal comparison (<>).
type Ne struct {
	Left  Expr
	Right Expr
}

func (n Ne) SQL() string { return n.Left.SQL() + " <> " + n.Right.SQL() }
func (n Ne) Args() []any { return collectArgs(n.Left, n.Right) }

// Lt represents a less-than comparison (<).
type Lt struct {
	Left  Expr
	Right Expr
}

func (l Lt) SQL() string { return l.Left.SQL() + " < " + l.Right.SQL() }
func (l Lt) Args() []any { return collectArgs(l.Left, l.Right) }

// Gt represents a greater-than comparison (>).
type Gt struct {
	Left  Expr
	Right Expr
}

func (g Gt) SQL() string { return g.Left.SQL() + " > " + g.Right.SQL() }
func (g Gt) Args() []any { return collectArgs(g.Left, g.Right) }

// Lte represents a less-than-or-equal comparison (<=).
type Lte struct {
	Left  Expr
	Right Expr
}

func (l Lte) SQL() string { return l.Left.SQL() + " <= " + l.Right.SQL() }
func (l Lte) Args() []any { return collectArgs(l.Left, l.Right) }

// Gte represents a greater-than-or-equal comparison (>=).
type Gte struct {
	Left  Expr
	Right Expr
}

func (g Gte) SQL() string { return g.Left.SQL() + " >= " + g.Right.SQL() }
func (g Gte) Args() []any { return collectArgs(g.Left, g.Right) }

// Compare builds a comparison from an operator token.
// It returns false for operators outside =, <>, !=, <, <=, >, >=.
func Compare(op string, left, right Expr) (Expr, bool) {
	switch op {
	case "=", "==":
		return Eq{Left: left, Right: right}, true
	case "<>", "!=":
		return Ne{Left: left, Right: right}, true
	case "<":
		return Lt{Left: left, Right: right}, true
	case "<=":
		return Lte{Left: left, Right: right}, true
	case ">":
		return Gt{Left: left, Right: right}, true
	case ">=":
		return Gte{Left: left, Right: right}, true
	}
	return nil, false
}

// In represents an IN clause over arbitrary expressions.
type In struct {
	Expr   Expr
	Values []Expr
}

// InArgs creates an IN clause binding every value as a parameter.
func InArgs(expr Expr, values ...any) In {
	exprs := make([]Expr, len(values))
	for i, v := range values {
		exprs[i] = Bind(v)
	}
	return In{Expr: expr, Values: exprs}
}

func (i In) SQL() string {
	if len(i.Values) == 0 {
		return "FALSE"
	}
	parts := make([]string, len(i.Values))
	for n, v := range i.Values {
		parts[n] = v.SQL()
	}
	return i.Expr.SQL() + " IN (" + strings.Join(parts, ", ") + ")"
}

func (i In) Args() []any {
	if len(i.Values) == 0 {
		return nil
	}
	return collectArgs(append([]Expr{i.Expr}, i.Values...)...)
}

// Logical operators

// filterNilExprs removes nil expressions from the slice.
func filterNilExprs(exprs []Expr) []Expr {
	filtered := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// joinExprs renders expressions joined by a separator, wrapped in parentheses if more than one.
func joinExprs(exprs []Expr, sep, emptyVal string) string {
	switch len(exprs) {
	case 0:
		return emptyVal
	case 1:
		return exprs[0].SQL()
	default:
		parts := make([]string, len(exprs))
		for i, e := range exprs {
			parts[i] = e.SQL()
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
}

// AndExpr represents a logical AND of multiple expressions.
type AndExpr struct {
	Exprs []Expr
}

func (a AndExpr) SQL() string { return joinExprs(a.Exprs, " AND ", "TRUE") }
func (a AndExpr) Args() []any { return collectArgs(a.Exprs...) }

// And creates an AND expression from multiple expressions.
// Nil expressions are dropped, so optional clauses can be passed directly.
func And(exprs ...Expr) AndExpr {
	return AndExpr{Exprs: filterNilExprs(exprs)}
}

// OrExpr represents a logical OR of multiple expressions.
type OrExpr struct {
	Exprs []Expr
}

func (o OrExpr) SQL() string { return joinExprs(o.Exprs, " OR ", "FALSE") }
func (o OrExpr) Args() []any { return collectArgs(o.Exprs...) }

// Or creates an OR expression from multiple expressions.
func Or(exprs ...Expr) OrExpr {
	return OrExpr{Exprs: filterNilExprs(exprs)}
}

// NotExpr represents a logical NOT of an expression.
type NotExpr struct {
	Expr Expr
}

func (n NotExpr) SQL() string { return "NOT (" + n.Expr.SQL() + ")" }
func (n NotExpr) Args() []any { return n.Expr.Args() }

// Not creates a NOT expression.
func Not(expr Expr) NotExpr { return NotExpr{Expr: expr} }

// IsNull represents IS NULL check.
type IsNull struct {
	Expr Expr
}

func (i IsNull) SQL() string { return i.Expr.SQL() + " IS NULL" }
func (i IsNull) Args() []any { return i.Expr.Args() }

// IsNotNull represents IS NOT NULL check.
type IsNotNull struct {
	Expr Expr
}

func (i IsNotNull) SQL() string { return i.Expr.SQL() + " IS NOT NULL" }
func (i IsNotNull) Args() []any { return i.Expr.Args() }
