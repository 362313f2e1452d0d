// Package manifest reads YAML declaration files: an entity catalog and the
// associations declared between those entities.
//
//	entities:
//	  - name: Zone
//	    table: zones
//	  - name: Parcel
//	    table: parcels
//	associations:
//	  - owner: Zone
//	    name: parcels
//	    target: Parcel
//	    relationship: contains
//	    geom: geom
//	    scope_options:
//	      status: active
//	      area: {min: 10, max: 500}
//
// geom and foreign_geom take a column name or an object with class,
// table_alias, column and name keys.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/sqldsl"
)

// File is a parsed manifest.
type File struct {
	Entities     []Entity      `json:"entities"`
	Associations []Association `json:"associations"`
}

// Entity declares a mapped table.
type Entity struct {
	Name       string `json:"name"`
	Table      string `json:"table"`
	PrimaryKey string `json:"primary_key,omitempty"`
	BaseType   string `json:"base_type,omitempty"`
}

// Association declares one association. Kind is has_many_spatially
// (the default) or has_many.
type Association struct {
	Owner        string                `json:"owner"`
	Name         string                `json:"name"`
	Target       string                `json:"target"`
	Kind         string                `json:"kind,omitempty"`
	Relationship string                `json:"relationship,omitempty"`
	Geom         *Geom                 `json:"geom,omitempty"`
	ForeignGeom  *Geom                 `json:"foreign_geom,omitempty"`
	ScopeOptions map[string]ScopeValue `json:"scope_options,omitempty"`
	TypeColumn   string                `json:"type_column,omitempty"`
	ForeignKey   string                `json:"foreign_key,omitempty"`
	Through      []Link                `json:"through,omitempty"`
	Conditions   []Condition           `json:"conditions,omitempty"`
}

// Link declares one intermediate hop.
type Link struct {
	Source     string `json:"source,omitempty"`
	Target     string `json:"target"`
	Alias      string `json:"alias,omitempty"`
	On         string `json:"on"`
	TypeColumn string `json:"type_column,omitempty"`
	TypeName   string `json:"type_name,omitempty"`
}

// Condition is an extra row filter. It is written as a string or as an
// object with sql and args keys.
type Condition struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

// UnmarshalJSON accepts a bare SQL string.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = Condition{SQL: text}
		return nil
	}
	type plain Condition
	var p plain
	if err := decodeNumbers(data, &p); err != nil {
		return err
	}
	for i, v := range p.Args {
		p.Args[i] = normalize(v)
	}
	*c = Condition(p)
	return nil
}

// Geom is a geometry reference: a bare column or a structured object.
type Geom struct {
	Column     string
	Structured *StructuredGeom
}

// StructuredGeom is the object form of Geom.
type StructuredGeom struct {
	Class      string `json:"class,omitempty"`
	TableAlias string `json:"table_alias,omitempty"`
	Column     string `json:"column,omitempty"`
	Name       string `json:"name,omitempty"`
}

// UnmarshalJSON accepts a string or an object.
func (g *Geom) UnmarshalJSON(data []byte) error {
	var column string
	if err := json.Unmarshal(data, &column); err == nil {
		*g = Geom{Column: column}
		return nil
	}
	var s StructuredGeom
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return fmt.Errorf("geometry must be a column name or an object: %w", err)
	}
	*g = Geom{Structured: &s}
	return nil
}

// MarshalJSON writes the form the reference was read from.
func (g Geom) MarshalJSON() ([]byte, error) {
	if g.Structured != nil {
		return json.Marshal(g.Structured)
	}
	return json.Marshal(g.Column)
}

// Ref converts the reference for declaration. A nil Geom yields nil.
func (g *Geom) Ref() geojoin.GeomRef {
	if g == nil {
		return nil
	}
	if s := g.Structured; s != nil {
		return geojoin.StructuredGeom{Class: s.Class, TableAlias: s.TableAlias, Column: s.Column, Name: s.Name}
	}
	return geojoin.ColumnRef(g.Column)
}

// ScopeValue is one scope option value: a scalar, a list, null, a range
// object ({min, max}) or a comparison object ({op, value}).
type ScopeValue struct {
	Value any
}

// UnmarshalJSON decodes the value, keeping integers as int64.
func (v *ScopeValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := decodeNumbers(data, &raw); err != nil {
		return err
	}
	parsed, err := scopeValue(raw)
	if err != nil {
		return err
	}
	v.Value = parsed
	return nil
}

// MarshalJSON writes the value back in manifest form.
func (v ScopeValue) MarshalJSON() ([]byte, error) {
	switch x := v.Value.(type) {
	case geojoin.Range:
		out := map[string]any{}
		if x.Min != nil {
			out["min"] = x.Min
		}
		if x.Max != nil {
			out["max"] = x.Max
		}
		return json.Marshal(out)
	case geojoin.Comparison:
		return json.Marshal(map[string]any{"op": x.Op, "value": x.Value})
	}
	return json.Marshal(v.Value)
}

func scopeValue(raw any) (any, error) {
	switch x := raw.(type) {
	case map[string]any:
		if op, ok := x["op"]; ok {
			opStr, isStr := op.(string)
			if !isStr || len(x) != 2 {
				return nil, fmt.Errorf("comparison needs exactly op and value, got %v", x)
			}
			val, ok := x["value"]
			if !ok {
				return nil, fmt.Errorf("comparison needs exactly op and value, got %v", x)
			}
			return geojoin.Comparison{Op: opStr, Value: normalize(val)}, nil
		}
		r := geojoin.Range{Min: normalize(x["min"]), Max: normalize(x["max"])}
		for k := range x {
			if k != "min" && k != "max" {
				return nil, fmt.Errorf("unknown scope option key %q", k)
			}
		}
		return r, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out, nil
	}
	return normalize(raw), nil
}

func decodeNumbers(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// normalize turns json.Number into int64 when integral, float64 otherwise.
func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Parse reads a manifest. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &f, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Marshal writes f back as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Catalog returns the declared entities by name.
func (f *File) Catalog() (map[string]geojoin.Entity, error) {
	out := make(map[string]geojoin.Entity, len(f.Entities))
	for i, e := range f.Entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entities[%d]: %w: no name", i, geojoin.ErrConfiguration)
		}
		if _, dup := out[e.Name]; dup {
			return nil, fmt.Errorf("entities[%d]: %w: %s declared twice", i, geojoin.ErrConfiguration, e.Name)
		}
		out[e.Name] = geojoin.Entity{
			Name:       e.Name,
			Table:      e.Table,
			PrimaryKey: e.PrimaryKey,
			BaseType:   e.BaseType,
		}
	}
	return out, nil
}

// Declare declares every association of f in reg, stopping at the first
// invalid one.
func (f *File) Declare(reg *geojoin.Registry) error {
	catalog, err := f.Catalog()
	if err != nil {
		return err
	}
	for i, a := range f.Associations {
		if err := declare(reg, catalog, a); err != nil {
			return fmt.Errorf("associations[%d]: %w", i, err)
		}
	}
	return nil
}

func declare(reg *geojoin.Registry, catalog map[string]geojoin.Entity, a Association) error {
	owner, err := lookup(catalog, a.Owner)
	if err != nil {
		return err
	}
	target, err := lookup(catalog, a.Target)
	if err != nil {
		return err
	}
	conditions := make([]geojoin.Condition, len(a.Conditions))
	for i, c := range a.Conditions {
		conditions[i] = geojoin.Condition{SQL: c.SQL, Args: c.Args}
	}

	switch a.Kind {
	case "", geojoin.KindSpatial.String():
	case geojoin.KindPlain.String():
		_, err := reg.HasMany(owner, a.Name, target, geojoin.PlainOptions{
			ForeignKey: a.ForeignKey,
			TypeColumn: a.TypeColumn,
			Conditions: conditions,
		})
		return err
	default:
		return fmt.Errorf("%w: unknown association kind %q", geojoin.ErrConfiguration, a.Kind)
	}

	through := make([]geojoin.ChainLink, len(a.Through))
	for i, l := range a.Through {
		link, err := chainLink(catalog, l)
		if err != nil {
			return fmt.Errorf("through[%d]: %w", i, err)
		}
		through[i] = link
	}

	var scope geojoin.ScopeOptions
	if len(a.ScopeOptions) > 0 {
		scope = make(geojoin.ScopeOptions, len(a.ScopeOptions))
		for k, v := range a.ScopeOptions {
			scope[k] = v.Value
		}
	}

	_, err = reg.HasManySpatially(owner, a.Name, target, geojoin.SpatialOptions{
		Relationship: geojoin.Relationship(a.Relationship),
		Geom:         a.Geom.Ref(),
		ForeignGeom:  a.ForeignGeom.Ref(),
		ScopeOptions: scope,
		TypeColumn:   a.TypeColumn,
		Through:      through,
		Conditions:   conditions,
	})
	return err
}

func chainLink(catalog map[string]geojoin.Entity, l Link) (geojoin.ChainLink, error) {
	target, err := lookup(catalog, l.Target)
	if err != nil {
		return geojoin.ChainLink{}, err
	}
	link := geojoin.ChainLink{Source: l.Source, Target: target, Alias: l.Alias}
	if l.On != "" {
		link.On = sqldsl.Raw(l.On)
	}
	if l.TypeColumn != "" {
		link.TypeFilter = &geojoin.TypeFilter{Column: l.TypeColumn, TypeName: l.TypeName}
	}
	return link, nil
}

func lookup(catalog map[string]geojoin.Entity, name string) (geojoin.Entity, error) {
	e, ok := catalog[name]
	if !ok {
		return geojoin.Entity{}, fmt.Errorf("%w: unknown entity %q", geojoin.ErrConfiguration, name)
	}
	return e, nil
}
