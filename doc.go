// Package geojoin builds queries for spatial associations: collections
// whose records relate to an owner through a geometric predicate evaluated
// by PostGIS rather than through a foreign key.
//
// # Declaring
//
// Relationships are validated against an immutable whitelist injected into
// the Registry. Declarations fail fast:
//
//	rels := geojoin.DefaultRelationships()
//	reg := geojoin.NewRegistry(rels)
//
//	zone := geojoin.Entity{Name: "Zone", Table: `"zones"`}
//	parcel := geojoin.Entity{Name: "Parcel", Table: `"parcels"`}
//
//	parcels, err := reg.HasManySpatially(zone, "parcels", parcel, geojoin.SpatialOptions{
//	    Relationship: geojoin.Contains,
//	    Geom:         geojoin.ColumnRef("geom"),
//	    ScopeOptions: geojoin.ScopeOptions{"status": "active"},
//	})
//
// # Lazy Loading
//
// Scope builds one query for one owner. The owner's geometry is bound as a
// parameter:
//
//	b := geojoin.NewBuilder(rels)
//	stmt, err := b.Scope(parcels, geojoin.Record{"id": 7, "geom": wkb})
//
//	SELECT "parcels".*
//	FROM "zones"
//	INNER JOIN "parcels" ON (ST_Contains(?, "parcels"."geom") AND "parcels"."status" = ?)
//	WHERE "zones"."id" = ?
//
// # Batch Preloading
//
// BuildBatch builds one grouped query for many owners. Each row holds an
// owner id and its target ids joined with commas; owners without targets
// have no row:
//
//	q, err := b.BuildBatch(parcels, []any{1, 2, 3})
//
// Queries are sqldsl values with `?` placeholders. Render them for
// PostgreSQL with package render, or execute them with package loader.
package geojoin
