package doctor

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/manifest"
)

func TestReport_Print(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{Category: CategoryPostGIS, Status: StatusPass, Message: "PostGIS 3.4 installed"})
	r.AddCheck(CheckResult{
		Category: CategoryIndexes,
		Status:   StatusWarn,
		Message:  "No spatial index on zones.geom",
		Details:  "Used by Zone.parcels",
		FixHint:  "CREATE INDEX ON zones USING GIST (geom)",
	})
	r.AddCheck(CheckResult{Category: CategoryPostGIS, Status: StatusFail, Message: "broken"})

	var buf bytes.Buffer
	r.Print(&buf, true)

	assert.Equal(t, `
PostGIS
  ✓ PostGIS 3.4 installed
  ✗ broken

Spatial Indexes
  ⚠ No spatial index on zones.geom
      Used by Zone.parcels
      Fix: CREATE INDEX ON zones USING GIST (geom)

Summary: 1 passed, 1 warnings, 1 errors
`, buf.String())
	assert.True(t, r.HasErrors())

	buf.Reset()
	r.Print(&buf, false)
	assert.NotContains(t, buf.String(), "Used by")
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "fail", StatusFail.String())
	assert.Equal(t, "unknown", Status(9).String())
	assert.Equal(t, "?", Status(9).Symbol())
}

func TestSplitTable(t *testing.T) {
	tests := []struct {
		in, schema, table string
	}{
		{"zones", "", "zones"},
		{`"zones"`, "", "zones"},
		{"gis.zones", "gis", "zones"},
		{`"gis"."zones"`, "gis", "zones"},
	}
	for _, tt := range tests {
		schema, table := splitTable(tt.in)
		assert.Equal(t, tt.schema, schema, tt.in)
		assert.Equal(t, tt.table, table, tt.in)
	}
}

func TestColumns(t *testing.T) {
	f, err := manifest.Load("testdata/spatial.yaml")
	require.NoError(t, err)
	reg := geojoin.NewRegistry(geojoin.DefaultRelationships())
	require.NoError(t, f.Declare(reg))

	d := &Doctor{reg: reg}

	var got []string
	for _, c := range d.columns() {
		got = append(got, c.entity.Table+"."+c.name)
	}
	assert.Equal(t, []string{"zones.geom", "parcels.geom", "districts.kind", "parcels.owner_type"}, got)
	assert.Equal(t, "Zone.parcels, Zone.residential_parcels", d.columns()[0].usedBy)

	var names []string
	for _, e := range d.entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"District", "Parcel", "Zone"}, names)
}

func TestRun_InvalidManifestSkipsDatabase(t *testing.T) {
	for _, path := range []string{"testdata/invalid.yaml", "testdata/missing.yaml"} {
		report, err := New(nil, path).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Checks, 1, path)
		assert.Equal(t, StatusFail, report.Checks[0].Status)
		assert.Equal(t, CategoryManifest, report.Checks[0].Category)
	}
}
