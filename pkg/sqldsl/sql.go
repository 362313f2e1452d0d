package sqldsl

import (
	"strconv"
	"strings"
)

// TableExpr is the interface for table expressions in FROM and JOIN clauses.
type TableExpr interface {
	// TableSQL returns the SQL for use in FROM/JOIN clauses.
	TableSQL() string
	// Qualifier returns the name columns of this table are qualified with:
	// the quoted alias when one is set, the table name otherwise.
	Qualifier() string
}

// TableRef wraps a table name for use as a TableExpr.
// Name is written as given (callers pass already quoted names);
// Alias is a bare identifier and is quoted on render.
type TableRef struct {
	Name  string
	Alias string
}

// TableAs creates a table reference with an alias.
func TableAs(name, alias string) TableRef {
	return TableRef{Name: name, Alias: alias}
}

// TableSQL implements TableExpr.
func (t TableRef) TableSQL() string {
	if t.Alias != "" {
		return t.Name + " AS " + QuoteIdent(t.Alias)
	}
	return t.Name
}

// Qualifier implements TableExpr.
func (t TableRef) Qualifier() string {
	if t.Alias != "" {
		return QuoteIdent(t.Alias)
	}
	return t.Name
}

// JoinClause represents a SQL JOIN clause.
type JoinClause struct {
	Type  string // "INNER", "LEFT", etc.
	Table TableExpr
	On    Expr
}

// InnerJoin creates an INNER JOIN clause.
func InnerJoin(table TableExpr, on Expr) JoinClause {
	return JoinClause{Type: "INNER", Table: table, On: on}
}

// SQL renders the JOIN clause.
func (j JoinClause) SQL() string {
	joinKeyword := j.Type + " JOIN"
	if strings.Contains(j.Type, "JOIN") {
		joinKeyword = j.Type
	}

	// CROSS JOIN doesn't have an ON clause
	if strings.HasPrefix(j.Type, "CROSS") || j.On == nil {
		return joinKeyword + " " + j.Table.TableSQL()
	}
	return joinKeyword + " " + j.Table.TableSQL() + " ON " + j.On.SQL()
}

// Args returns the ON condition's bound values.
func (j JoinClause) Args() []any {
	if j.On == nil {
		return nil
	}
	return j.On.Args()
}

// SelectStmt represents a SELECT query.
//
// SelectStmt is a value: the With* helpers return modified copies and
// never share slices with the receiver.
type SelectStmt struct {
	Distinct bool
	Columns  []Expr
	From     TableExpr
	Joins    []JoinClause
	Where    Expr
	GroupBy  []Expr
	OrderBy  []Expr
	Limit    int
}

// SQL renders the SELECT statement, one clause per line.
func (s SelectStmt) SQL() string {
	lines := []string{"SELECT " + optf(s.Distinct, "DISTINCT ") + s.columnsSQL()}
	if s.From != nil {
		lines = append(lines, "FROM "+s.From.TableSQL())
	}
	for _, j := range s.Joins {
		lines = append(lines, j.SQL())
	}
	if s.Where != nil {
		lines = append(lines, "WHERE "+s.Where.SQL())
	}
	if len(s.GroupBy) > 0 {
		lines = append(lines, "GROUP BY "+joinSQL(s.GroupBy))
	}
	if len(s.OrderBy) > 0 {
		lines = append(lines, "ORDER BY "+joinSQL(s.OrderBy))
	}
	if s.Limit > 0 {
		lines = append(lines, "LIMIT "+strconv.Itoa(s.Limit))
	}
	return strings.Join(lines, "\n")
}

// Args returns every bound value in the order its placeholder appears in SQL.
func (s SelectStmt) Args() []any {
	args := collectArgs(s.Columns...)
	for _, j := range s.Joins {
		args = append(args, j.Args()...)
	}
	args = append(args, collectArgs(s.Where)...)
	args = append(args, collectArgs(s.GroupBy...)...)
	return append(args, collectArgs(s.OrderBy...)...)
}

// Build returns the SQL text and its bound values.
func (s SelectStmt) Build() (string, []any) {
	return s.SQL(), s.Args()
}

// WithColumns returns a copy projecting the given columns.
func (s SelectStmt) WithColumns(cols ...Expr) SelectStmt {
	s.Columns = append([]Expr(nil), cols...)
	return s
}

// WithWhere returns a copy with cond AND-ed into the WHERE clause.
func (s SelectStmt) WithWhere(cond Expr) SelectStmt {
	if s.Where == nil {
		s.Where = cond
		return s
	}
	s.Where = And(s.Where, cond)
	return s
}

func (s SelectStmt) columnsSQL() string {
	if len(s.Columns) == 0 {
		return "*"
	}
	return joinSQL(s.Columns)
}

func joinSQL(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, ", ")
}

// optf returns s if cond is true, empty string otherwise.
func optf(cond bool, s string) string {
	if !cond {
		return ""
	}
	return s
}

// Ident sanitizes a name for use as an unquoted identifier.
// Replaces non-alphanumeric characters with underscores.
func Ident(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
