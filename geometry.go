package geojoin

import (
	"fmt"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// GeomRef is a declared geometry reference: either a ColumnRef or a
// StructuredGeom. It is normalized once, at declaration, into a
// GeometryOperandDescriptor.
type GeomRef interface {
	geomRef()
}

// ColumnRef names a geometry column on the implicit table of the
// resolution context.
type ColumnRef string

func (ColumnRef) geomRef() {}

// StructuredGeom is the explicit geometry reference form.
type StructuredGeom struct {
	// Class is the entity the geometry belongs to. Informational.
	Class string
	// TableAlias qualifies Column. Defaults to the context's reserved alias.
	TableAlias string
	// Column is the geometry column, used when comparing two tables.
	Column string
	// Name is the owner attribute holding the geometry value.
	// Defaults to Column.
	Name string
	// Value is a literal geometry bound in place of the owner attribute.
	Value any
}

func (StructuredGeom) geomRef() {}

// GeometryOperandDescriptor is the normalized geometry reference.
type GeometryOperandDescriptor struct {
	// Structured is false for descriptors built from a ColumnRef.
	Structured bool
	Class      string
	TableAlias string
	Column     string
	Name       string
	Value      any
}

// NormalizeGeom converts a declared reference into its descriptor.
// It returns ErrConfiguration when ref is nil or names no column, attribute
// or value.
func NormalizeGeom(ref GeomRef) (GeometryOperandDescriptor, error) {
	switch g := ref.(type) {
	case ColumnRef:
		if g == "" {
			return GeometryOperandDescriptor{}, fmt.Errorf("%w: empty geometry column", ErrConfiguration)
		}
		return GeometryOperandDescriptor{Column: string(g)}, nil
	case StructuredGeom:
		if g.Column == "" && g.Name == "" && g.Value == nil {
			return GeometryOperandDescriptor{}, fmt.Errorf("%w: geometry needs a column, name or value", ErrConfiguration)
		}
		return GeometryOperandDescriptor{
			Structured: true,
			Class:      g.Class,
			TableAlias: g.TableAlias,
			Column:     g.Column,
			Name:       g.Name,
			Value:      g.Value,
		}, nil
	case *StructuredGeom:
		if g == nil {
			break
		}
		return NormalizeGeom(*g)
	}
	return GeometryOperandDescriptor{}, fmt.Errorf("%w: missing geometry reference", ErrConfiguration)
}

// OperandMode selects how a descriptor is resolved.
type OperandMode int

const (
	// ColumnMode resolves to a table qualified column, for join conditions
	// between two tables.
	ColumnMode OperandMode = iota
	// ValueMode resolves to a bound value read from the owner, for
	// comparisons against one concrete record.
	ValueMode
)

// OperandContext carries what a descriptor is resolved against.
type OperandContext struct {
	// DefaultAlias qualifies bare column references.
	DefaultAlias string
	// ReservedAlias qualifies structured references without a TableAlias.
	ReservedAlias string
	// Owner supplies values in ValueMode.
	Owner Owner
	Mode  OperandMode
}

// Operand is a resolved geometry operand. It renders either as a qualified
// column or as a single bound parameter.
type Operand struct {
	Table  string
	Column string
	Value  any
	Bound  bool
}

// SQL implements sqldsl.Expr.
func (o Operand) SQL() string {
	if o.Bound {
		return "?"
	}
	return sqldsl.C(o.Table, o.Column).SQL()
}

// Args implements sqldsl.Expr.
func (o Operand) Args() []any {
	if o.Bound {
		return []any{o.Value}
	}
	return nil
}

// ResolveOperand resolves d against ctx. It has no side effects: the same
// descriptor and context always produce the same operand.
func ResolveOperand(d GeometryOperandDescriptor, ctx OperandContext) (Operand, error) {
	if ctx.Mode == ValueMode {
		return resolveValue(d, ctx)
	}

	if d.Column == "" {
		return Operand{}, fmt.Errorf("%w: geometry has no column to compare", ErrConfiguration)
	}
	table := ctx.DefaultAlias
	if d.Structured {
		table = firstNonEmpty(d.TableAlias, ctx.ReservedAlias, ctx.DefaultAlias)
	}
	if table != "" {
		table = sqldsl.QuoteIdent(table)
	}
	return Operand{Table: table, Column: d.Column}, nil
}

func resolveValue(d GeometryOperandDescriptor, ctx OperandContext) (Operand, error) {
	if d.Value != nil {
		return Operand{Value: d.Value, Bound: true}, nil
	}
	attr := firstNonEmpty(d.Name, d.Column)
	if attr == "" {
		return Operand{}, fmt.Errorf("%w: geometry has no attribute or value to bind", ErrConfiguration)
	}
	if ctx.Owner == nil {
		return Operand{}, fmt.Errorf("%w: no owner to read geometry %q from", ErrConfiguration, attr)
	}
	v, ok := ctx.Owner.Read(attr)
	if !ok {
		return Operand{}, fmt.Errorf("%w: owner has no geometry attribute %q", ErrConfiguration, attr)
	}
	return Operand{Value: v, Bound: true}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
