package geojoin

import (
	"fmt"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// plannedLink is a chain link with its joined table resolved.
type plannedLink struct {
	ordinal   int
	link      ChainLink
	table     sqldsl.TableRef
	qualifier string
}

// planChain walks links from the owner table, checking that every hop is
// reachable from the previous one, that no qualifier is joined twice, and
// that at most one hop lacks a join condition.
func planChain(owner Entity, links []ChainLink) ([]plannedLink, error) {
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: empty chain", ErrChainResolution)
	}

	current := owner.QuotedTable()
	seen := map[string]bool{current: true}
	unconditioned := 0

	plan := make([]plannedLink, 0, len(links))
	for i, link := range links {
		if err := link.Target.validate(); err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		if link.Source != "" && sqldsl.QuoteIdent(link.Source) != current {
			return nil, fmt.Errorf("%w: link %d starts from %s, which is not reachable from %s",
				ErrChainResolution, i, link.Source, current)
		}

		table := sqldsl.TableRef{Name: link.Target.QuotedTable(), Alias: link.Alias}
		qualifier := table.Qualifier()
		if seen[qualifier] {
			return nil, fmt.Errorf("%w: link %d joins %s twice; give it an alias", ErrChainResolution, i, qualifier)
		}
		seen[qualifier] = true

		if link.On == nil {
			unconditioned++
			if unconditioned > 1 {
				return nil, fmt.Errorf("%w: more than one link lacks a join condition", ErrChainResolution)
			}
		}

		plan = append(plan, plannedLink{ordinal: i, link: link, table: table, qualifier: qualifier})
		current = qualifier
	}
	return plan, nil
}

// planSpatialChain plans a's chain and checks that its terminal link is the
// spatial hop.
func planSpatialChain(a *Association) ([]plannedLink, error) {
	if a.Kind != KindSpatial || a.Spatial == nil {
		return nil, fmt.Errorf("%w: %s is not a spatial association", ErrChainResolution, a.Key())
	}
	plan, err := planChain(a.Owner, a.Chain())
	if err != nil {
		return nil, err
	}
	if terminal := plan[len(plan)-1]; terminal.link.On != nil {
		return nil, fmt.Errorf("%w: terminal link %s must be the spatial hop", ErrChainResolution, terminal.qualifier)
	}
	return plan, nil
}

// typeClause renders qualifier.column = type name, the name bound.
func typeClause(qualifier string, tf *TypeFilter, fallback string) sqldsl.Expr {
	name := tf.TypeName
	if name == "" {
		name = fallback
	}
	return sqldsl.Eq{Left: sqldsl.C(qualifier, tf.Column), Right: sqldsl.Bind(name)}
}

// ResolveChain builds the lazy load query for one owner of a spatial
// association.
//
// The query starts from the owner table pinned to the owner's primary key
// and inner joins one table per link. The spatial hop compares the owner's
// geometry, bound as a value, against the foreign geometry column of the
// joined table; other hops use their declared condition, parenthesized so
// it combines with the type filter as one clause. A link's type
// filter always comes first in its join condition. Conditions are AND-ed
// into WHERE against the terminal table, whose rows are selected.
func (b *Builder) ResolveChain(a *Association, owner Owner) (sqldsl.SelectStmt, error) {
	plan, err := planSpatialChain(a)
	if err != nil {
		return sqldsl.SelectStmt{}, fmt.Errorf("%s: %w", a.Key(), err)
	}

	id, err := ownerID(a, owner)
	if err != nil {
		return sqldsl.SelectStmt{}, err
	}

	ownerTable := a.Owner.QuotedTable()
	stmt := sqldsl.SelectStmt{
		From:  sqldsl.TableRef{Name: ownerTable},
		Where: sqldsl.Eq{Left: sqldsl.C(ownerTable, a.Owner.PK()), Right: sqldsl.Bind(id)},
	}

	for _, p := range plan {
		var clauses []sqldsl.Expr
		if tf := p.link.TypeFilter; tf != nil {
			clauses = append(clauses, typeClause(p.qualifier, tf, p.link.Target.TypeName()))
		}

		if p.link.On != nil {
			clauses = append(clauses, sqldsl.Paren{Expr: p.link.On})
		} else {
			pred, err := b.lazyPredicate(a, owner, p.qualifier)
			if err != nil {
				return sqldsl.SelectStmt{}, fmt.Errorf("%s link %d: %w", a.Key(), p.ordinal, err)
			}
			clauses = append(clauses, pred.Clauses()...)
		}

		stmt.Joins = append(stmt.Joins, sqldsl.InnerJoin(p.table, sqldsl.And(clauses...)))
	}

	terminal := plan[len(plan)-1].qualifier
	for _, c := range a.Conditions {
		stmt = stmt.WithWhere(c.expr(terminal))
	}
	stmt.Columns = []sqldsl.Expr{sqldsl.Star{Table: terminal}}

	if a.Extension != nil {
		stmt = a.Extension(stmt)
	}
	return stmt, nil
}

// lazyPredicate compares the owner's bound geometry with the foreign
// geometry column on qualifier.
func (b *Builder) lazyPredicate(a *Association, owner Owner, qualifier string) (Predicate, error) {
	spec := a.Spatial
	left, err := ResolveOperand(spec.Geom, OperandContext{Owner: owner, Mode: ValueMode})
	if err != nil {
		return Predicate{}, err
	}
	right, err := ResolveOperand(spec.ForeignGeom, OperandContext{
		DefaultAlias:  qualifier,
		ReservedAlias: qualifier,
		Mode:          ColumnMode,
	})
	if err != nil {
		return Predicate{}, err
	}
	return b.predicates.Build(spec.Relationship, left, right, spec.ScopeOptions)
}

func ownerID(a *Association, owner Owner) (any, error) {
	if owner == nil {
		return nil, fmt.Errorf("%s: %w: no owner", a.Key(), ErrConfiguration)
	}
	id, ok := owner.Read(a.Owner.PK())
	if !ok || id == nil {
		return nil, fmt.Errorf("%s: %w: owner has no %q value", a.Key(), ErrConfiguration, a.Owner.PK())
	}
	return id, nil
}
