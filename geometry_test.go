package geojoin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/geojoin"
)

func TestNormalizeGeom(t *testing.T) {
	tests := []struct {
		name    string
		ref     geojoin.GeomRef
		want    geojoin.GeometryOperandDescriptor
		wantErr bool
	}{
		{
			name: "bare column",
			ref:  geojoin.ColumnRef("geom"),
			want: geojoin.GeometryOperandDescriptor{Column: "geom"},
		},
		{
			name: "structured",
			ref:  geojoin.StructuredGeom{Class: "Zone", TableAlias: "z", Column: "boundary", Name: "area"},
			want: geojoin.GeometryOperandDescriptor{Structured: true, Class: "Zone", TableAlias: "z", Column: "boundary", Name: "area"},
		},
		{
			name: "structured pointer",
			ref:  &geojoin.StructuredGeom{Value: "POINT(1 1)"},
			want: geojoin.GeometryOperandDescriptor{Structured: true, Value: "POINT(1 1)"},
		},
		{name: "nil", ref: nil, wantErr: true},
		{name: "empty column", ref: geojoin.ColumnRef(""), wantErr: true},
		{name: "structured without column name or value", ref: geojoin.StructuredGeom{Class: "Zone", TableAlias: "z"}, wantErr: true},
		{name: "nil pointer", ref: (*geojoin.StructuredGeom)(nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geojoin.NormalizeGeom(tt.ref)
			if tt.wantErr {
				assert.True(t, geojoin.IsConfigurationErr(err), "want ErrConfiguration, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOperand_ColumnMode(t *testing.T) {
	ctx := geojoin.OperandContext{DefaultAlias: `"parcels"`, ReservedAlias: geojoin.JoinAlias}

	tests := []struct {
		name string
		d    geojoin.GeometryOperandDescriptor
		want string
	}{
		{
			name: "bare column uses default alias",
			d:    geojoin.GeometryOperandDescriptor{Column: "geom"},
			want: `"parcels"."geom"`,
		},
		{
			name: "structured without alias uses reserved alias",
			d:    geojoin.GeometryOperandDescriptor{Structured: true, Column: "geom"},
			want: `"__spatial_ids_join__"."geom"`,
		},
		{
			name: "structured alias wins",
			d:    geojoin.GeometryOperandDescriptor{Structured: true, TableAlias: "z", Column: "geom"},
			want: `"z"."geom"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := geojoin.ResolveOperand(tt.d, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, op.SQL())
			assert.Empty(t, op.Args())
		})
	}

	t.Run("structured without reserved alias falls back to default", func(t *testing.T) {
		op, err := geojoin.ResolveOperand(
			geojoin.GeometryOperandDescriptor{Structured: true, Column: "geom"},
			geojoin.OperandContext{DefaultAlias: `"parcels"`},
		)
		require.NoError(t, err)
		assert.Equal(t, `"parcels"."geom"`, op.SQL())
	})

	t.Run("no column", func(t *testing.T) {
		_, err := geojoin.ResolveOperand(geojoin.GeometryOperandDescriptor{Structured: true, Name: "geom"}, ctx)
		assert.True(t, geojoin.IsConfigurationErr(err))
	})
}

func TestResolveOperand_ValueMode(t *testing.T) {
	owner := geojoin.Record{"geom": "POINT(1 1)", "area": "POLYGON EMPTY"}

	tests := []struct {
		name    string
		d       geojoin.GeometryOperandDescriptor
		owner   geojoin.Owner
		want    any
		wantErr bool
	}{
		{name: "bare column reads attribute", d: geojoin.GeometryOperandDescriptor{Column: "geom"}, owner: owner, want: "POINT(1 1)"},
		{name: "name preferred over column", d: geojoin.GeometryOperandDescriptor{Structured: true, Column: "geom", Name: "area"}, owner: owner, want: "POLYGON EMPTY"},
		{name: "literal value needs no owner", d: geojoin.GeometryOperandDescriptor{Structured: true, Value: "POINT(2 2)"}, want: "POINT(2 2)"},
		{name: "missing attribute", d: geojoin.GeometryOperandDescriptor{Column: "shape"}, owner: owner, wantErr: true},
		{name: "missing owner", d: geojoin.GeometryOperandDescriptor{Column: "geom"}, wantErr: true},
		{name: "nothing to read", d: geojoin.GeometryOperandDescriptor{Structured: true, TableAlias: "z"}, owner: owner, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := geojoin.ResolveOperand(tt.d, geojoin.OperandContext{Owner: tt.owner, Mode: geojoin.ValueMode})
			if tt.wantErr {
				assert.True(t, geojoin.IsConfigurationErr(err), "want ErrConfiguration, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "?", op.SQL())
			assert.Equal(t, []any{tt.want}, op.Args())
		})
	}
}

func TestResolveOperand_Idempotent(t *testing.T) {
	d := geojoin.GeometryOperandDescriptor{Structured: true, Column: "geom"}
	ctx := geojoin.OperandContext{DefaultAlias: `"parcels"`, ReservedAlias: geojoin.JoinAlias}

	first, err := geojoin.ResolveOperand(d, ctx)
	require.NoError(t, err)
	second, err := geojoin.ResolveOperand(d, ctx)
	require.NoError(t, err)

	assert.Equal(t, first.SQL(), second.SQL())
	assert.Equal(t, first, second)
}
