package testutil

import (
	"context"
	"database/sql"
	"fmt"
)

// Fixtures inserts spatial test data.
type Fixtures struct {
	db  *sql.DB
	ctx context.Context
}

// NewFixtures creates a new Fixtures instance.
func NewFixtures(ctx context.Context, db *sql.DB) *Fixtures {
	return &Fixtures{db: db, ctx: ctx}
}

// Square returns the WKT of the axis aligned square with corner (x, y) and
// side size.
func Square(x, y, size float64) string {
	return fmt.Sprintf("POLYGON((%[1]g %[2]g,%[1]g %[4]g,%[3]g %[4]g,%[3]g %[2]g,%[1]g %[2]g))",
		x, y, x+size, y+size)
}

// Zone inserts a zone covering wkt.
func (f *Fixtures) Zone(id int64, name, wkt string) error {
	_, err := f.db.ExecContext(f.ctx,
		"INSERT INTO zones (id, name, geom) VALUES ($1, $2, ST_GeomFromText($3, 4326))",
		id, name, wkt)
	if err != nil {
		return fmt.Errorf("insert zone %d: %w", id, err)
	}
	return nil
}

// District inserts a district of the given kind in zone zoneID.
func (f *Fixtures) District(id, zoneID int64, kind string) error {
	_, err := f.db.ExecContext(f.ctx,
		"INSERT INTO districts (id, zone_id, kind) VALUES ($1, $2, $3)",
		id, zoneID, kind)
	if err != nil {
		return fmt.Errorf("insert district %d: %w", id, err)
	}
	return nil
}

// Parcel inserts a parcel covering wkt.
func (f *Fixtures) Parcel(id int64, status, wkt string) error {
	_, err := f.db.ExecContext(f.ctx,
		"INSERT INTO parcels (id, status, geom) VALUES ($1, $2, ST_GeomFromText($3, 4326))",
		id, status, wkt)
	if err != nil {
		return fmt.Errorf("insert parcel %d: %w", id, err)
	}
	return nil
}
