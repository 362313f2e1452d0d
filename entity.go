package geojoin

import (
	"fmt"

	"github.com/pthm/geojoin/pkg/sqldsl"
)

// Entity describes a mapped table as supplied by the schema collaborator.
// The core treats every field as an opaque string.
type Entity struct {
	// Name identifies the entity in declarations (e.g., "Zone").
	Name string
	// Table is the quoted table name (e.g., `"zones"` or `"gis"."zones"`).
	// An unquoted name is quoted as a single identifier.
	Table string
	// PrimaryKey is the primary key column. Defaults to "id".
	PrimaryKey string
	// BaseType is the base type name written to polymorphic discriminator
	// columns. Defaults to Name.
	BaseType string
}

// QuotedTable returns the table name ready for FROM and JOIN clauses.
func (e Entity) QuotedTable() string {
	return sqldsl.QuoteIdent(e.Table)
}

// PK returns the primary key column name.
func (e Entity) PK() string {
	if e.PrimaryKey == "" {
		return "id"
	}
	return e.PrimaryKey
}

// TypeName returns the base type name used for discrimination.
func (e Entity) TypeName() string {
	if e.BaseType == "" {
		return e.Name
	}
	return e.BaseType
}

func (e Entity) validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: entity has no name", ErrConfiguration)
	}
	if e.Table == "" {
		return fmt.Errorf("%w: entity %s has no table", ErrConfiguration, e.Name)
	}
	return nil
}

// Owner is the record an association is traversed from.
type Owner interface {
	// Read returns the value of attr and whether the record has it.
	Read(attr string) (any, bool)
}

// Record is a map backed Owner.
type Record map[string]any

// Read implements Owner.
func (r Record) Read(attr string) (any, bool) {
	v, ok := r[attr]
	return v, ok
}
