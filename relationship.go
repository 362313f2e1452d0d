package geojoin

import (
	"fmt"
	"sort"
	"strings"
)

// Relationship names a geometric test between two geometry values.
type Relationship string

// Supported relationships. Each maps to the PostGIS function of the same
// name with an ST_ prefix.
const (
	Contains         Relationship = "contains"
	ContainsProperly Relationship = "containsproperly"
	Covers           Relationship = "covers"
	CoveredBy        Relationship = "coveredby"
	Crosses          Relationship = "crosses"
	Disjoint         Relationship = "disjoint"
	Equals           Relationship = "equals"
	Intersects       Relationship = "intersects"
	OrderingEquals   Relationship = "orderingequals"
	Overlaps         Relationship = "overlaps"
	Touches          Relationship = "touches"
	Within           Relationship = "within"
)

// String returns the relationship name.
func (r Relationship) String() string {
	return string(r)
}

// normalize lowercases and trims the name so "Contains" and "contains"
// select the same function.
func (r Relationship) normalize() Relationship {
	return Relationship(strings.ToLower(strings.TrimSpace(string(r))))
}

// Relationships is an immutable whitelist mapping relationship names to the
// database functions implementing them. Build it once at startup and inject
// it into a Registry and Builder.
type Relationships struct {
	funcs map[Relationship]string
}

// DefaultRelationships returns the PostGIS predicate whitelist.
func DefaultRelationships() Relationships {
	return NewRelationships(map[Relationship]string{
		Contains:         "ST_Contains",
		ContainsProperly: "ST_ContainsProperly",
		Covers:           "ST_Covers",
		CoveredBy:        "ST_CoveredBy",
		Crosses:          "ST_Crosses",
		Disjoint:         "ST_Disjoint",
		Equals:           "ST_Equals",
		Intersects:       "ST_Intersects",
		OrderingEquals:   "ST_OrderingEquals",
		Overlaps:         "ST_Overlaps",
		Touches:          "ST_Touches",
		Within:           "ST_Within",
	})
}

// NewRelationships builds a whitelist from name to function mappings.
// The map is copied; later changes to funcs are not observed.
func NewRelationships(funcs map[Relationship]string) Relationships {
	copied := make(map[Relationship]string, len(funcs))
	for rel, fn := range funcs {
		copied[rel.normalize()] = fn
	}
	return Relationships{funcs: copied}
}

// Lookup returns the database function for rel.
func (r Relationships) Lookup(rel Relationship) (string, bool) {
	fn, ok := r.funcs[rel.normalize()]
	return fn, ok
}

// Validate returns ErrInvalidRelationship if rel is not whitelisted.
func (r Relationships) Validate(rel Relationship) error {
	if _, ok := r.Lookup(rel); ok {
		return nil
	}
	names := make([]string, 0, len(r.funcs))
	for _, n := range r.Names() {
		names = append(names, string(n))
	}
	return fmt.Errorf("%w: %q, expected one of [%s]", ErrInvalidRelationship, rel, strings.Join(names, ", "))
}

// Names returns the whitelisted relationship names in sorted order.
func (r Relationships) Names() []Relationship {
	names := make([]Relationship, 0, len(r.funcs))
	for rel := range r.funcs {
		names = append(names, rel)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Len returns the number of whitelisted relationships.
func (r Relationships) Len() int {
	return len(r.funcs)
}
