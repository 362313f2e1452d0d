package geojoin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// ScopeOptions are extra filters merged into every generated predicate,
// keyed by column. A key of the form "alias.column" is qualified as
// written; a bare key is qualified with the joined table.
//
// Values select the comparison:
//
//	nil                   column IS NULL
//	Range{Min, Max}       column >= Min AND column <= Max (either bound optional)
//	Comparison{Op, Value} column Op Value, Op one of = <> != < <= > >=
//	[]any                 column IN (...)
//	anything else         column = value
//
// Every value is bound as a parameter.
type ScopeOptions map[string]any

// Range is an inclusive range filter. A nil bound is open.
type Range struct {
	Min any
	Max any
}

// Comparison filters a column with an explicit operator.
type Comparison struct {
	Op    string
	Value any
}

func (s ScopeOptions) clone() ScopeOptions {
	if len(s) == 0 {
		return nil
	}
	out := make(ScopeOptions, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// clauses renders the options in sorted key order, qualifying bare keys
// with qualifier.
func (s ScopeOptions) clauses(qualifier string) ([]sqldsl.Expr, error) {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sqldsl.Expr, 0, len(keys))
	for _, key := range keys {
		col, err := scopeColumn(key, qualifier)
		if err != nil {
			return nil, err
		}
		clause, err := scopeClause(col, s[key])
		if err != nil {
			return nil, fmt.Errorf("scope option %q: %w", key, err)
		}
		out = append(out, clause)
	}
	return out, nil
}

func scopeColumn(key, qualifier string) (sqldsl.Col, error) {
	table, column, qualified := strings.Cut(key, ".")
	if !qualified {
		return sqldsl.C(qualifier, key), nil
	}
	if table == "" || column == "" {
		return sqldsl.Col{}, fmt.Errorf("%w: malformed scope option key %q", ErrConfiguration, key)
	}
	return sqldsl.C(sqldsl.QuoteIdent(table), column), nil
}

func scopeClause(col sqldsl.Col, value any) (sqldsl.Expr, error) {
	switch v := value.(type) {
	case nil:
		return sqldsl.IsNull{Expr: col}, nil
	case Range:
		switch {
		case v.Min == nil && v.Max == nil:
			return nil, fmt.Errorf("%w: range has no bounds", ErrConfiguration)
		case v.Max == nil:
			return sqldsl.Gte{Left: col, Right: sqldsl.Bind(v.Min)}, nil
		case v.Min == nil:
			return sqldsl.Lte{Left: col, Right: sqldsl.Bind(v.Max)}, nil
		}
		return sqldsl.And(
			sqldsl.Gte{Left: col, Right: sqldsl.Bind(v.Min)},
			sqldsl.Lte{Left: col, Right: sqldsl.Bind(v.Max)},
		), nil
	case Comparison:
		expr, ok := sqldsl.Compare(strings.TrimSpace(v.Op), col, sqldsl.Bind(v.Value))
		if !ok {
			return nil, fmt.Errorf("%w: unsupported operator %q", ErrConfiguration, v.Op)
		}
		return expr, nil
	case []any:
		return sqldsl.InArgs(col, v...), nil
	}
	return sqldsl.Eq{Left: col, Right: sqldsl.Bind(value)}, nil
}

// validate reports malformed options without rendering against a table.
func (s ScopeOptions) validate() error {
	_, err := s.clauses("")
	return err
}

// Predicate is a resolved boolean condition: the spatial clause followed by
// the scope clauses, AND-ed. Its placeholder count always equals
// len(Args()).
type Predicate struct {
	// Function is the database function of the spatial clause.
	Function string
	clauses  []sqldsl.Expr
}

// Clauses returns the spatial clause followed by every scope clause.
func (p Predicate) Clauses() []sqldsl.Expr {
	return append([]sqldsl.Expr(nil), p.clauses...)
}

// SQL implements sqldsl.Expr.
func (p Predicate) SQL() string {
	return sqldsl.And(p.clauses...).SQL()
}

// Args implements sqldsl.Expr.
func (p Predicate) Args() []any {
	return sqldsl.And(p.clauses...).Args()
}

// PredicateBuilder builds spatial predicates against a relationship
// whitelist.
type PredicateBuilder struct {
	rels Relationships
}

// NewPredicateBuilder returns a builder accepting the relationships in rels.
func NewPredicateBuilder(rels Relationships) *PredicateBuilder {
	return &PredicateBuilder{rels: rels}
}

// Build returns FN(left, right) AND-ed with the scope clauses. Bare scope
// keys are qualified with the right operand's table, or the left one's
// when the right operand is bound.
func (b *PredicateBuilder) Build(rel Relationship, left, right Operand, scope ScopeOptions) (Predicate, error) {
	fn, ok := b.rels.Lookup(rel)
	if !ok {
		return Predicate{}, b.rels.Validate(rel)
	}

	qualifier := right.Table
	if right.Bound {
		qualifier = left.Table
	}
	scoped, err := scope.clauses(qualifier)
	if err != nil {
		return Predicate{}, err
	}

	clauses := make([]sqldsl.Expr, 0, len(scoped)+1)
	clauses = append(clauses, sqldsl.Call(fn, left, right))
	clauses = append(clauses, scoped...)
	return Predicate{Function: fn, clauses: clauses}, nil
}
