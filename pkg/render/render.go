// Package render turns sqldsl query descriptions into PostgreSQL text.
//
// Query descriptions use `?` placeholders; rendering goes through bob so
// that placeholders become numbered bind variables ($1, $2, ...) in the
// order the values were bound.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// Query builds the bob SELECT query for stmt.
func Query(stmt sqldsl.SelectStmt) (bob.Query, error) {
	if stmt.From == nil {
		return nil, fmt.Errorf("render: statement has no FROM table")
	}

	mods := make([]bob.Mod[*dialect.SelectQuery], 0, 8)
	if stmt.Distinct {
		mods = append(mods, sm.Distinct())
	}

	if len(stmt.Columns) == 0 {
		mods = append(mods, sm.Columns(psql.Raw("*")))
	}
	for _, col := range stmt.Columns {
		mods = append(mods, sm.Columns(raw(col)))
	}

	mods = append(mods, sm.From(psql.Raw(stmt.From.TableSQL())))

	for _, j := range stmt.Joins {
		if j.Type != "INNER" && j.Type != "" {
			return nil, fmt.Errorf("render: unsupported join type %q", j.Type)
		}
		if j.On == nil {
			return nil, fmt.Errorf("render: join of %s has no condition", j.Table.TableSQL())
		}
		mods = append(mods, sm.InnerJoin(psql.Raw(j.Table.TableSQL())).On(raw(j.On)))
	}

	if stmt.Where != nil {
		mods = append(mods, sm.Where(raw(stmt.Where)))
	}
	for _, g := range stmt.GroupBy {
		mods = append(mods, sm.GroupBy(raw(g)))
	}
	for _, o := range stmt.OrderBy {
		mods = append(mods, sm.OrderBy(raw(o)))
	}
	if stmt.Limit > 0 {
		mods = append(mods, sm.Limit(stmt.Limit))
	}

	return psql.Select(mods...), nil
}

// Postgres renders stmt to PostgreSQL text and its ordered arguments.
func Postgres(ctx context.Context, stmt sqldsl.SelectStmt) (string, []any, error) {
	if err := checkPlaceholders(stmt); err != nil {
		return "", nil, err
	}

	q, err := Query(stmt)
	if err != nil {
		return "", nil, err
	}

	sql, args, err := bob.Build(ctx, q)
	if err != nil {
		return "", nil, fmt.Errorf("render: building query: %w", err)
	}
	return strings.TrimSpace(sql), args, nil
}

// raw wraps an expression so bob binds its values in place of each `?`
// outside a quoted literal.
func raw(e sqldsl.Expr) psql.Expression {
	return psql.Raw(escapeQuoted(e.SQL()), e.Args()...)
}

// escapeQuoted rewrites each `?` inside a single-quoted literal as `\?`,
// which bob emits as a plain question mark.
func escapeQuoted(sql string) string {
	if !strings.Contains(sql, "'") {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 4)
	quoted := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && quoted:
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// checkPlaceholders verifies the description binds exactly one value per
// placeholder before any text reaches the database.
func checkPlaceholders(stmt sqldsl.SelectStmt) error {
	sql, args := stmt.Build()
	if n := sqldsl.CountPlaceholders(sql); n != len(args) {
		return fmt.Errorf("render: %d placeholders but %d arguments", n, len(args))
	}
	return nil
}
