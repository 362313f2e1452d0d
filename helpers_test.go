package geojoin_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/sqldsl"
)

const zoneWKT = "SRID=4326;POLYGON((0 0,0 10,10 10,10 0,0 0))"

var (
	zone     = geojoin.Entity{Name: "Zone", Table: `"zones"`}
	parcel   = geojoin.Entity{Name: "Parcel", Table: `"parcels"`}
	district = geojoin.Entity{Name: "District", Table: `"districts"`, BaseType: "Area"}
	note     = geojoin.Entity{Name: "Note", Table: `"notes"`}
)

func newRegistry() (*geojoin.Registry, *geojoin.Builder) {
	rels := geojoin.DefaultRelationships()
	return geojoin.NewRegistry(rels), geojoin.NewBuilder(rels)
}

// declareParcels declares Zone.parcels: parcels contained in the zone.
func declareParcels(t *testing.T, reg *geojoin.Registry) *geojoin.Association {
	t.Helper()
	a, err := reg.HasManySpatially(zone, "parcels", parcel, geojoin.SpatialOptions{
		Relationship: geojoin.Contains,
		Geom:         geojoin.ColumnRef("geom"),
		ScopeOptions: geojoin.ScopeOptions{"status": "active"},
	})
	require.NoError(t, err)
	return a
}

// declareDistrictParcels declares Zone.district_parcels: zone -> district
// (type filtered) -> parcels within the zone geometry.
func declareDistrictParcels(t *testing.T, reg *geojoin.Registry) *geojoin.Association {
	t.Helper()
	a, err := reg.HasManySpatially(zone, "district_parcels", parcel, geojoin.SpatialOptions{
		Relationship: geojoin.Within,
		Geom:         geojoin.ColumnRef("geom"),
		TypeColumn:   "owner_type",
		Through: []geojoin.ChainLink{{
			Target:     district,
			On:         sqldsl.Raw(`"districts"."zone_id" = "zones"."id"`),
			TypeFilter: &geojoin.TypeFilter{Column: "kind", TypeName: "Residential"},
		}},
		Conditions: []geojoin.Condition{{SQL: "{table}.deleted_at IS NULL"}},
	})
	require.NoError(t, err)
	return a
}

func zoneRecord(id int) geojoin.Record {
	return geojoin.Record{"id": id, "geom": zoneWKT}
}

func assertGolden(t *testing.T, name string, e sqldsl.Expr) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(e.SQL()+"\n"))
}
