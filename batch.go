package geojoin

import (
	"fmt"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// Reserved names used by batch queries.
const (
	// JoinAlias aliases the owner table joined into a batch query.
	JoinAlias = "__spatial_ids_join__"
	// IDsColumn holds the comma-joined target ids of one owner.
	IDsColumn = "__spatial_ids__"
	// OwnerIDColumn holds the owner id of a batch row.
	OwnerIDColumn = "__spatial_owner_id__"
	// IDSeparator joins target ids in IDsColumn.
	IDSeparator = ","
)

// BatchQuery loads target ids for many owners in one round trip. Each row
// carries one owner id in OwnerIDColumn and that owner's target ids, in
// ascending order, joined with IDSeparator in IDsColumn. Owners without
// targets have no row.
type BatchQuery struct {
	Stmt sqldsl.SelectStmt
	// OwnerIDs is the owner id filter, repeated ids removed.
	OwnerIDs []any
	// GroupBy is the owner id column rows are grouped by.
	GroupBy       sqldsl.Expr
	OwnerIDColumn string
	IDsColumn     string
}

func newBatchQuery(stmt sqldsl.SelectStmt, ids []any, group sqldsl.Expr) BatchQuery {
	return BatchQuery{
		Stmt:          stmt,
		OwnerIDs:      ids,
		GroupBy:       group,
		OwnerIDColumn: OwnerIDColumn,
		IDsColumn:     IDsColumn,
	}
}

// SQL renders the batch statement.
func (q BatchQuery) SQL() string { return q.Stmt.SQL() }

// Args returns the batch statement's bound values.
func (q BatchQuery) Args() []any { return q.Stmt.Args() }

// batchColumns projects the owner id and the ordered, comma-joined target
// ids.
func batchColumns(owner, target sqldsl.Expr) []sqldsl.Expr {
	ids := sqldsl.Call("array_to_string",
		sqldsl.ArrayAgg{Expr: target, OrderBy: target},
		sqldsl.Lit(IDSeparator),
	)
	return []sqldsl.Expr{
		sqldsl.SelectAs(owner, OwnerIDColumn),
		sqldsl.SelectAs(ids, IDsColumn),
	}
}

// spatialBatch joins the owner table, aliased JoinAlias, into the target
// table with the spatial predicate between the two geometry columns, keeps
// the requested owners and groups by owner id.
func (b *Builder) spatialBatch(a *Association, ownerIDs []any) (BatchQuery, error) {
	if a.Spatial == nil {
		return BatchQuery{}, fmt.Errorf("%w: %s is not a spatial association", ErrChainResolution, a.Key())
	}
	if len(a.Through) > 0 {
		return BatchQuery{}, fmt.Errorf("%w: %s has intermediate hops and cannot be preloaded in one batch", ErrChainResolution, a.Key())
	}
	ids, err := batchIDs(a, ownerIDs)
	if err != nil {
		return BatchQuery{}, err
	}

	spec := a.Spatial
	joinQ := sqldsl.QuoteIdent(JoinAlias)
	target := a.Target.QuotedTable()

	left, err := ResolveOperand(spec.Geom, OperandContext{DefaultAlias: JoinAlias, ReservedAlias: JoinAlias})
	if err != nil {
		return BatchQuery{}, fmt.Errorf("%s geom: %w", a.Key(), err)
	}
	right, err := ResolveOperand(spec.ForeignGeom, OperandContext{DefaultAlias: target, ReservedAlias: target})
	if err != nil {
		return BatchQuery{}, fmt.Errorf("%s foreign_geom: %w", a.Key(), err)
	}
	pred, err := b.predicates.Build(spec.Relationship, left, right, spec.ScopeOptions)
	if err != nil {
		return BatchQuery{}, fmt.Errorf("%s: %w", a.Key(), err)
	}

	var on []sqldsl.Expr
	if spec.TypeColumn != "" {
		on = append(on, typeClause(target, &TypeFilter{Column: spec.TypeColumn}, a.Owner.TypeName()))
	}
	on = append(on, pred.Clauses()...)

	group := sqldsl.C(joinQ, a.Owner.PK())
	where := []sqldsl.Expr{sqldsl.InArgs(group, ids...)}
	for _, c := range a.Conditions {
		where = append(where, c.expr(target))
	}

	stmt := sqldsl.SelectStmt{
		Columns: batchColumns(group, sqldsl.C(target, a.Target.PK())),
		From:    sqldsl.TableRef{Name: target},
		Joins: []sqldsl.JoinClause{
			sqldsl.InnerJoin(sqldsl.TableAs(a.Owner.QuotedTable(), JoinAlias), sqldsl.And(on...)),
		},
		Where:   sqldsl.And(where...),
		GroupBy: []sqldsl.Expr{group},
	}
	return newBatchQuery(stmt, ids, group), nil
}
