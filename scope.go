package geojoin

import (
	"fmt"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// ScopeContributor builds the queries loading one association.
type ScopeContributor interface {
	// Scope returns the query loading the association's rows for owner.
	Scope(owner Owner) (sqldsl.SelectStmt, error)
	// Preload returns the query loading target ids for every owner id.
	Preload(ownerIDs []any) (BatchQuery, error)
}

// Builder builds association queries. It holds no mutable state and may be
// shared between goroutines.
type Builder struct {
	predicates *PredicateBuilder
}

// NewBuilder returns a builder accepting the relationships in rels.
func NewBuilder(rels Relationships) *Builder {
	return &Builder{predicates: NewPredicateBuilder(rels)}
}

// Predicates returns the predicate builder used for spatial hops.
func (b *Builder) Predicates() *PredicateBuilder {
	return b.predicates
}

// Contributor returns the scope contributor for a's kind.
func (b *Builder) Contributor(a *Association) ScopeContributor {
	if a.Kind == KindSpatial {
		return spatialScope{b: b, assoc: a}
	}
	return plainScope{assoc: a}
}

// Scope returns the lazy load query of a for owner.
func (b *Builder) Scope(a *Association, owner Owner) (sqldsl.SelectStmt, error) {
	return b.Contributor(a).Scope(owner)
}

// BuildBatch returns the preload query of a for ownerIDs.
func (b *Builder) BuildBatch(a *Association, ownerIDs []any) (BatchQuery, error) {
	return b.Contributor(a).Preload(ownerIDs)
}

type spatialScope struct {
	b     *Builder
	assoc *Association
}

func (s spatialScope) Scope(owner Owner) (sqldsl.SelectStmt, error) {
	return s.b.ResolveChain(s.assoc, owner)
}

func (s spatialScope) Preload(ownerIDs []any) (BatchQuery, error) {
	return s.b.spatialBatch(s.assoc, ownerIDs)
}

// plainScope loads foreign key associations from the target table alone.
type plainScope struct {
	assoc *Association
}

func (s plainScope) Scope(owner Owner) (sqldsl.SelectStmt, error) {
	a := s.assoc
	id, err := ownerID(a, owner)
	if err != nil {
		return sqldsl.SelectStmt{}, err
	}

	target := a.Target.QuotedTable()
	clauses := s.typeClauses(target)
	clauses = append(clauses, sqldsl.Eq{Left: sqldsl.C(target, a.ForeignKey), Right: sqldsl.Bind(id)})
	for _, c := range a.Conditions {
		clauses = append(clauses, c.expr(target))
	}

	stmt := sqldsl.SelectStmt{
		Columns: []sqldsl.Expr{sqldsl.Star{Table: target}},
		From:    sqldsl.TableRef{Name: target},
		Where:   sqldsl.And(clauses...),
	}
	if a.Extension != nil {
		stmt = a.Extension(stmt)
	}
	return stmt, nil
}

func (s plainScope) Preload(ownerIDs []any) (BatchQuery, error) {
	a := s.assoc
	ids, err := batchIDs(a, ownerIDs)
	if err != nil {
		return BatchQuery{}, err
	}

	target := a.Target.QuotedTable()
	group := sqldsl.C(target, a.ForeignKey)
	clauses := s.typeClauses(target)
	clauses = append(clauses, sqldsl.InArgs(group, ids...))
	for _, c := range a.Conditions {
		clauses = append(clauses, c.expr(target))
	}

	stmt := sqldsl.SelectStmt{
		Columns: batchColumns(group, sqldsl.C(target, a.Target.PK())),
		From:    sqldsl.TableRef{Name: target},
		Where:   sqldsl.And(clauses...),
		GroupBy: []sqldsl.Expr{group},
	}
	return newBatchQuery(stmt, ids, group), nil
}

func (s plainScope) typeClauses(target string) []sqldsl.Expr {
	if s.assoc.TypeColumn == "" {
		return nil
	}
	tf := &TypeFilter{Column: s.assoc.TypeColumn}
	return []sqldsl.Expr{typeClause(target, tf, s.assoc.Owner.TypeName())}
}

// batchIDs rejects an empty id set and drops repeated ids, keeping the
// first occurrence.
func batchIDs(a *Association, ownerIDs []any) ([]any, error) {
	if len(ownerIDs) == 0 {
		return nil, fmt.Errorf("%s: %w: no owner ids", a.Key(), ErrEmptyBatch)
	}
	seen := make(map[string]bool, len(ownerIDs))
	ids := make([]any, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		if id == nil {
			return nil, fmt.Errorf("%s: %w: nil owner id", a.Key(), ErrConfiguration)
		}
		k := fmt.Sprintf("%T:%v", id, id)
		if seen[k] {
			continue
		}
		seen[k] = true
		ids = append(ids, id)
	}
	return ids, nil
}
