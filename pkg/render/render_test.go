package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

func spatialStmt() sqldsl.SelectStmt {
	return sqldsl.SelectStmt{
		Columns: []sqldsl.Expr{sqldsl.Star{Table: `"parcels"`}},
		From:    sqldsl.TableRef{Name: `"zones"`},
		Joins: []sqldsl.JoinClause{
			sqldsl.InnerJoin(
				sqldsl.TableRef{Name: `"parcels"`},
				sqldsl.And(
					sqldsl.Call("ST_Contains", sqldsl.Bind("POLYGON((0 0,0 1,1 1,1 0,0 0))"), sqldsl.C(`"parcels"`, "geom")),
					sqldsl.Eq{Left: sqldsl.C(`"parcels"`, "status"), Right: sqldsl.Bind("active")},
				),
			),
		},
		Where: sqldsl.Eq{Left: sqldsl.C(`"zones"`, "id"), Right: sqldsl.Bind(7)},
	}
}

func TestPostgres_NumbersPlaceholdersInBindOrder(t *testing.T) {
	sql, args, err := Postgres(context.Background(), spatialStmt())
	require.NoError(t, err)

	assert.Contains(t, sql, `FROM "zones"`)
	assert.Contains(t, sql, `ST_Contains($1, "parcels"."geom")`)
	assert.Contains(t, sql, `"parcels"."status" = $2`)
	assert.Contains(t, sql, `"zones"."id" = $3`)
	assert.NotContains(t, sql, "?")
	assert.Equal(t, []any{"POLYGON((0 0,0 1,1 1,1 0,0 0))", "active", 7}, args)
}

func TestPostgres_GroupedAggregate(t *testing.T) {
	owner := sqldsl.C(`"__spatial_ids_join__"`, "id")
	stmt := sqldsl.SelectStmt{
		Columns: []sqldsl.Expr{
			sqldsl.SelectAs(owner, "__spatial_owner_id__"),
			sqldsl.SelectAs(sqldsl.Call("array_to_string",
				sqldsl.ArrayAgg{Expr: sqldsl.C(`"parcels"`, "id"), OrderBy: sqldsl.C(`"parcels"`, "id")},
				sqldsl.Lit(","),
			), "__spatial_ids__"),
		},
		From: sqldsl.TableRef{Name: `"parcels"`},
		Joins: []sqldsl.JoinClause{
			sqldsl.InnerJoin(
				sqldsl.TableAs(`"zones"`, "__spatial_ids_join__"),
				sqldsl.Call("ST_Contains", sqldsl.C(`"__spatial_ids_join__"`, "geom"), sqldsl.C(`"parcels"`, "geom")),
			),
		},
		Where:   sqldsl.InArgs(owner, 1, 2, 3),
		GroupBy: []sqldsl.Expr{owner},
	}

	sql, args, err := Postgres(context.Background(), stmt)
	require.NoError(t, err)

	assert.Contains(t, sql, `array_to_string(array_agg("parcels"."id" ORDER BY "parcels"."id"), ',') AS "__spatial_ids__"`)
	assert.Contains(t, sql, `"zones" AS "__spatial_ids_join__"`)
	assert.Contains(t, sql, `"__spatial_ids_join__"."id" IN ($1, $2, $3)`)
	assert.Contains(t, sql, "GROUP BY")
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestPostgres_QuestionMarkInsideLiteral(t *testing.T) {
	stmt := sqldsl.SelectStmt{
		From: sqldsl.TableRef{Name: `"parcels"`},
		Where: sqldsl.And(
			sqldsl.Eq{Left: sqldsl.C(`"parcels"`, "id"), Right: sqldsl.Bind(3)},
			sqldsl.Paren{Expr: sqldsl.Fragment{Text: `"parcels".name <> 'what?' AND "parcels".kind = ?`, Values: []any{"lot"}}},
		),
	}

	sql, args, err := Postgres(context.Background(), stmt)
	require.NoError(t, err)

	assert.Contains(t, sql, `"parcels"."id" = $1`)
	assert.Contains(t, sql, `"parcels".name <> 'what?' AND "parcels".kind = $2`)
	assert.NotContains(t, sql, `\?`)
	assert.Equal(t, []any{3, "lot"}, args)
}

func TestEscapeQuoted(t *testing.T) {
	assert.Equal(t, "a = ?", escapeQuoted("a = ?"))
	assert.Equal(t, `a = '\?' AND b = ?`, escapeQuoted("a = '?' AND b = ?"))
	assert.Equal(t, `'it''s \?' = ?`, escapeQuoted("'it''s ?' = ?"))
}

func TestPostgres_RejectsPlaceholderMismatch(t *testing.T) {
	stmt := sqldsl.SelectStmt{
		From:  sqldsl.TableRef{Name: `"zones"`},
		Where: sqldsl.Fragment{Text: "a = ? AND b = ?", Values: []any{1}},
	}

	_, _, err := Postgres(context.Background(), stmt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 placeholders but 1 arguments")
}

func TestQuery_RequiresFrom(t *testing.T) {
	_, err := Query(sqldsl.SelectStmt{})
	require.Error(t, err)
}

func TestQuery_RejectsNonInnerJoins(t *testing.T) {
	stmt := spatialStmt()
	stmt.Joins[0].Type = "LEFT"
	_, err := Query(stmt)
	require.Error(t, err)
}
