package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/internal/cli"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		sqlOwner, sqlPreload, sqlManifest = "", "", ""
		validateManifest = ""
		configShowSource = false
		cfgFile, quiet, verbose = "", false, 0
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", "testdata/geojoin.yaml"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(22), "a-3"}, parseIDs(" 1, 22,,a-3 "))
	assert.Empty(t, parseIDs(""))
}

func TestParseOwner(t *testing.T) {
	rec, err := parseOwner(`{"id": 7, "geom": "POINT(1 1)", "area": 2.5}`)
	require.NoError(t, err)
	assert.Equal(t, geojoin.Record{"id": int64(7), "geom": "POINT(1 1)", "area": 2.5}, rec)

	_, err = parseOwner(`[1]`)
	assert.Error(t, err)
}

func TestLookupAssociation(t *testing.T) {
	reg, err := loadRegistry("../../pkg/manifest/testdata/zones.yaml")
	require.NoError(t, err)

	a, err := lookupAssociation(reg, "Zone.parcels")
	require.NoError(t, err)
	assert.Equal(t, "Zone.parcels", a.Key())

	_, err = lookupAssociation(reg, "Zone.roads")
	assert.Equal(t, cli.ExitManifest, cli.ExitCode(err))

	_, err = lookupAssociation(reg, "parcels")
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
}

func TestLoadRegistry_Missing(t *testing.T) {
	_, err := loadRegistry("testdata/missing.yaml")
	assert.Equal(t, cli.ExitManifest, cli.ExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 3 associations")
	assert.Contains(t, out, "Zone.district_parcels (within Parcel) through 1 link(s)")
	assert.Contains(t, out, "Zone.notes (has_many via notable_id)")
}

func TestSQLCommand_Preload(t *testing.T) {
	out, err := run(t, "sql", "Zone.parcels", "--preload", "1,2")
	require.NoError(t, err)
	assert.Contains(t, out, `AS "__spatial_ids_join__"`)
	assert.Contains(t, out, `GROUP BY "__spatial_ids_join__"."id"`)
	assert.Contains(t, out, "-- $1 = ")
}

func TestSQLCommand_Lazy(t *testing.T) {
	out, err := run(t, "sql", "Zone.parcels", "--owner", `{"id": 1, "geom": "POINT(1 1)"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `ST_Contains($`)
	assert.Contains(t, out, `"zones"."id" = $`)
}

func TestSQLCommand_NeedsOneMode(t *testing.T) {
	_, err := run(t, "sql", "Zone.parcels")
	require.Error(t, err)
	assert.Equal(t, cli.ExitGeneral, cli.ExitCode(err))
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show", "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file: testdata/geojoin.yaml")
	assert.Contains(t, out, "manifest: ../../pkg/manifest/testdata/zones.yaml")
	assert.Contains(t, out, "level: warn")
}
