package geojoin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// Kind tags how an association's rows are scoped.
type Kind int

const (
	// KindPlain associations join on a foreign key column.
	KindPlain Kind = iota
	// KindSpatial associations join on a geometric predicate.
	KindSpatial
)

// String returns the kind name used in manifests.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "has_many"
	case KindSpatial:
		return "has_many_spatially"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// TypeFilter restricts a joined table to rows of one concrete type.
type TypeFilter struct {
	// Column is the discriminator column on the joined table.
	Column string
	// TypeName is the expected type. Defaults to the joined entity's base
	// type, or the owner's base type on the terminal hop.
	TypeName string
}

// ChainLink is one hop from the owner towards the association target.
// Its ordinal is its position in the chain.
type ChainLink struct {
	// Source is the qualifier the hop starts from. Empty means the previous
	// link, or the owner table for the first one.
	Source string
	// Target is the entity joined by this hop.
	Target Entity
	// Alias names the joined table. Defaults to the table name.
	Alias string
	// On is the plain join condition. Nil marks the spatial hop.
	On sqldsl.Expr
	// TypeFilter is prepended to the join condition when set.
	TypeFilter *TypeFilter
}

// Condition is an extra row filter on the association target. SQL uses `?`
// placeholders, one per Arg, and {table} is replaced with the target's
// qualifier. The text is passed through verbatim, parenthesized.
type Condition struct {
	SQL  string
	Args []any
}

func (c Condition) validate() error {
	if strings.TrimSpace(c.SQL) == "" {
		return fmt.Errorf("%w: empty condition", ErrConfiguration)
	}
	if n := sqldsl.CountPlaceholders(c.SQL); n != len(c.Args) {
		return fmt.Errorf("%w: condition %q has %d placeholders but %d arguments", ErrConfiguration, c.SQL, n, len(c.Args))
	}
	return nil
}

func (c Condition) expr(qualifier string) sqldsl.Expr {
	return sqldsl.Paren{Expr: sqldsl.Fragment{Text: strings.ReplaceAll(c.SQL, "{table}", qualifier), Values: c.Args}}
}

// Extension adjusts every lazy scope of an association, after the core
// query is built.
type Extension func(sqldsl.SelectStmt) sqldsl.SelectStmt

// SpatialOptions declares a spatially related collection.
type SpatialOptions struct {
	Relationship Relationship
	// Geom is the owner side geometry.
	Geom GeomRef
	// ForeignGeom is the target side geometry column. Defaults to the
	// column (or attribute) named by Geom.
	ForeignGeom GeomRef
	ScopeOptions ScopeOptions
	// TypeColumn is the target's polymorphic discriminator column.
	TypeColumn string
	// Through lists intermediate hops joined before the target.
	Through    []ChainLink
	Conditions []Condition
	Extension  Extension
}

// PlainOptions declares a foreign key collection.
type PlainOptions struct {
	// ForeignKey is the target column referencing the owner's primary key.
	ForeignKey string
	// TypeColumn is the target's polymorphic discriminator column.
	TypeColumn string
	Conditions []Condition
	Extension  Extension
}

// SpatialAssociationSpec is the normalized, immutable configuration of a
// spatial association.
type SpatialAssociationSpec struct {
	Relationship Relationship
	Geom         GeometryOperandDescriptor
	ForeignGeom  GeometryOperandDescriptor
	ScopeOptions ScopeOptions
	TypeColumn   string
}

// Association is a declared collection. It is immutable once returned by a
// Registry.
type Association struct {
	Name   string
	Kind   Kind
	Owner  Entity
	Target Entity

	// Spatial is set for KindSpatial.
	Spatial *SpatialAssociationSpec
	// ForeignKey and TypeColumn are set for KindPlain.
	ForeignKey string
	TypeColumn string

	Through    []ChainLink
	Conditions []Condition
	Extension  Extension
}

// Key returns the registry key, "Owner.name".
func (a *Association) Key() string {
	return a.Owner.Name + "." + a.Name
}

// Chain returns the hops from the owner to the target: every Through link
// followed by the terminal link. The terminal link of a spatial
// association has no On condition. A terminal table equal to the owner
// table is aliased with the association name.
func (a *Association) Chain() []ChainLink {
	links := make([]ChainLink, 0, len(a.Through)+1)
	links = append(links, a.Through...)

	terminal := ChainLink{Target: a.Target}
	if a.Target.QuotedTable() == a.Owner.QuotedTable() {
		terminal.Alias = sqldsl.Ident(a.Name)
	}

	typeColumn := a.TypeColumn
	if a.Spatial != nil {
		typeColumn = a.Spatial.TypeColumn
	}
	if typeColumn != "" {
		terminal.TypeFilter = &TypeFilter{Column: typeColumn, TypeName: a.Owner.TypeName()}
	}

	if a.Kind == KindPlain {
		q := sqldsl.TableRef{Name: a.Target.QuotedTable(), Alias: terminal.Alias}.Qualifier()
		terminal.On = sqldsl.Eq{
			Left:  sqldsl.C(q, a.ForeignKey),
			Right: sqldsl.C(a.Owner.QuotedTable(), a.Owner.PK()),
		}
	}
	return append(links, terminal)
}

// Registry holds declared associations. It is safe for concurrent use.
type Registry struct {
	rels Relationships

	mu     sync.RWMutex
	assocs map[string]*Association
}

// NewRegistry returns an empty registry validating against rels.
func NewRegistry(rels Relationships) *Registry {
	return &Registry{rels: rels, assocs: make(map[string]*Association)}
}

// Relationships returns the whitelist the registry validates against.
func (r *Registry) Relationships() Relationships {
	return r.rels
}

// HasManySpatially declares that owner records relate to target records
// through opts.Relationship. Every part of the declaration is validated
// immediately, so a returned association can always be resolved.
func (r *Registry) HasManySpatially(owner Entity, name string, target Entity, opts SpatialOptions) (*Association, error) {
	if err := r.rels.Validate(opts.Relationship); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner.Name, name, err)
	}
	if err := validateEndpoints(owner, name, target); err != nil {
		return nil, err
	}

	geom, err := NormalizeGeom(opts.Geom)
	if err != nil {
		return nil, fmt.Errorf("%s.%s geom: %w", owner.Name, name, err)
	}
	foreignRef := opts.ForeignGeom
	if foreignRef == nil {
		foreignRef = ColumnRef(firstNonEmpty(geom.Column, geom.Name))
	}
	foreign, err := NormalizeGeom(foreignRef)
	if err != nil {
		return nil, fmt.Errorf("%s.%s foreign_geom: %w", owner.Name, name, err)
	}
	if foreign.Column == "" {
		return nil, fmt.Errorf("%s.%s foreign_geom: %w: no column", owner.Name, name, ErrConfiguration)
	}
	if err := opts.ScopeOptions.validate(); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner.Name, name, err)
	}

	a := &Association{
		Name:   name,
		Kind:   KindSpatial,
		Owner:  owner,
		Target: target,
		Spatial: &SpatialAssociationSpec{
			Relationship: opts.Relationship.normalize(),
			Geom:         geom,
			ForeignGeom:  foreign,
			ScopeOptions: opts.ScopeOptions.clone(),
			TypeColumn:   opts.TypeColumn,
		},
		Through:    append([]ChainLink(nil), opts.Through...),
		Conditions: append([]Condition(nil), opts.Conditions...),
		Extension:  opts.Extension,
	}
	if err := validateConditions(a); err != nil {
		return nil, err
	}
	if _, err := planSpatialChain(a); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key(), err)
	}
	if err := r.add(a); err != nil {
		return nil, err
	}
	return a, nil
}

// HasMany declares a plain foreign key association.
func (r *Registry) HasMany(owner Entity, name string, target Entity, opts PlainOptions) (*Association, error) {
	if err := validateEndpoints(owner, name, target); err != nil {
		return nil, err
	}
	if opts.ForeignKey == "" {
		return nil, fmt.Errorf("%s.%s: %w: no foreign key", owner.Name, name, ErrConfiguration)
	}

	a := &Association{
		Name:       name,
		Kind:       KindPlain,
		Owner:      owner,
		Target:     target,
		ForeignKey: opts.ForeignKey,
		TypeColumn: opts.TypeColumn,
		Conditions: append([]Condition(nil), opts.Conditions...),
		Extension:  opts.Extension,
	}
	if err := validateConditions(a); err != nil {
		return nil, err
	}
	if err := r.add(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Association returns the association declared on owner under name.
func (r *Registry) Association(owner, name string) (*Association, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assocs[owner+"."+name]
	return a, ok
}

// Associations returns every declared association ordered by key.
func (r *Registry) Associations() []*Association {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Association, 0, len(r.assocs))
	for _, a := range r.assocs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (r *Registry) add(a *Association) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assocs[a.Key()]; exists {
		return fmt.Errorf("%w: association %s declared twice", ErrConfiguration, a.Key())
	}
	r.assocs[a.Key()] = a
	return nil
}

func validateEndpoints(owner Entity, name string, target Entity) error {
	if name == "" {
		return fmt.Errorf("%w: association on %s has no name", ErrConfiguration, owner.Name)
	}
	if err := owner.validate(); err != nil {
		return fmt.Errorf("%s.%s owner: %w", owner.Name, name, err)
	}
	if err := target.validate(); err != nil {
		return fmt.Errorf("%s.%s target: %w", owner.Name, name, err)
	}
	return nil
}

func validateConditions(a *Association) error {
	for i, c := range a.Conditions {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%s condition %d: %w", a.Key(), i, err)
		}
	}
	return nil
}
