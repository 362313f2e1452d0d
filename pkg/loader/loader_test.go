package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/render"
)

// fakeRows replays fixed rows through the RowScanner interface.
type fakeRows struct {
	cols []string
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = fmt.Sprint(row[i])
		case *sql.NullString:
			if row[i] == nil {
				*p = sql.NullString{}
				continue
			}
			*p = sql.NullString{String: fmt.Sprint(row[i]), Valid: true}
		case *any:
			*p = row[i]
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

// failingQuerier records queries and fails every one of them.
type failingQuerier struct {
	err     error
	queries []string
}

func (q *failingQuerier) QueryContext(_ context.Context, query string, _ ...any) (*sql.Rows, error) {
	q.queries = append(q.queries, query)
	return nil, q.err
}

var (
	zone   = geojoin.Entity{Name: "Zone", Table: `"zones"`}
	parcel = geojoin.Entity{Name: "Parcel", Table: `"parcels"`}
)

func declare(t *testing.T) (*geojoin.Builder, *geojoin.Association) {
	t.Helper()
	rels := geojoin.DefaultRelationships()
	reg := geojoin.NewRegistry(rels)
	a, err := reg.HasManySpatially(zone, "parcels", parcel, geojoin.SpatialOptions{
		Relationship: geojoin.Contains,
		Geom:         geojoin.ColumnRef("geom"),
	})
	require.NoError(t, err)
	return geojoin.NewBuilder(rels), a
}

func TestDecodeBatch(t *testing.T) {
	rows := &fakeRows{
		cols: []string{geojoin.OwnerIDColumn, geojoin.IDsColumn},
		rows: [][]any{
			{1, "10,20"},
			{3, "30"},
		},
	}

	got, err := DecodeBatch(rows)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"1": {"10", "20"}, "3": {"30"}}, got)
}

func TestDecodeBatch_RowError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := DecodeBatch(&fakeRows{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestFillMissing(t *testing.T) {
	found := map[string][]string{"1": {"10", "20"}, "3": {"30"}}

	got := fillMissing(found, []any{1, 2, 3})
	assert.Equal(t, map[string][]string{
		"1": {"10", "20"},
		"2": {},
		"3": {"30"},
	}, got)
}

func TestCollectBatch_GroupedResult(t *testing.T) {
	b, a := declare(t)
	batch, err := b.BuildBatch(a, []any{1, 2, 3})
	require.NoError(t, err)

	text, args, err := render.Postgres(context.Background(), batch.Stmt)
	require.NoError(t, err)
	assert.Contains(t, text, `INNER JOIN "zones" AS "__spatial_ids_join__"`)
	assert.Contains(t, text, `GROUP BY "__spatial_ids_join__"."id"`)
	assert.Equal(t, []any{1, 2, 3}, args)

	// One row per owner with at least one target, as GROUP BY returns them.
	rows := &fakeRows{
		cols: []string{geojoin.OwnerIDColumn, geojoin.IDsColumn},
		rows: [][]any{
			{1, "10,20"},
			{3, "30"},
		},
	}
	got, err := collectBatch(rows, batch.OwnerIDs)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"1": {"10", "20"},
		"2": {},
		"3": {"30"},
	}, got)
}

func TestCollectBatch_RowError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := collectBatch(&fakeRows{err: boom}, []any{1})
	assert.ErrorIs(t, err, boom)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{}, SplitIDs(""))
	assert.Equal(t, []string{"7"}, SplitIDs("7"))
	assert.Equal(t, []string{"1", "2", "3"}, SplitIDs("1,2,3"))
}

func TestDecodeRecords(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"id", "name", "geom"},
		rows: [][]any{
			{int64(10), []byte("north lot"), nil},
			{int64(20), "south lot", []byte{0x01}},
		},
	}

	got, err := DecodeRecords(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, geojoin.Record{"id": int64(10), "name": "north lot", "geom": nil}, got[0])
	assert.Equal(t, "\x01", got[1]["geom"])
}

func TestPreload_EmptyOwnerIDsSkipsQuery(t *testing.T) {
	b, a := declare(t)
	q := &failingQuerier{err: errors.New("should not be called")}

	got, err := New(q, b).Preload(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, q.queries)
}

func TestPreload_PropagatesQueryError(t *testing.T) {
	b, a := declare(t)
	boom := errors.New("relation \"parcels\" does not exist")
	q := &failingQuerier{err: boom}

	core, logs := observer.New(zap.DebugLevel)
	_, err := New(q, b, WithLogger(zap.New(core))).Preload(context.Background(), a, []any{1, 2})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Zone.parcels")
	require.Len(t, q.queries, 1)
	assert.Contains(t, q.queries[0], "IN ($1, $2)")
	assert.NotContains(t, q.queries[0], "?")

	entries := logs.FilterMessage("executing association query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Zone.parcels", entries[0].ContextMap()["association"])
	assert.Equal(t, int64(2), entries[0].ContextMap()["args"])
}

func TestRelated_PropagatesBuildError(t *testing.T) {
	b, a := declare(t)
	q := &failingQuerier{err: errors.New("should not be called")}

	_, err := New(q, b).Related(context.Background(), a, geojoin.Record{"id": 1})
	assert.True(t, geojoin.IsConfigurationErr(err), "got %v", err)
	assert.Empty(t, q.queries)
}

func TestPreloadAll_FirstErrorWins(t *testing.T) {
	b, a := declare(t)
	boom := errors.New("timeout")
	q := &failingQuerier{err: boom}

	_, err := New(q, b).PreloadAll(context.Background(),
		Request{Association: a, OwnerIDs: []any{1}},
	)
	assert.ErrorIs(t, err, boom)
}

func TestPreloadAll_EmptyRequests(t *testing.T) {
	b, _ := declare(t)
	got, err := New(&failingQuerier{}, b).PreloadAll(context.Background(), Request{Association: mustPlain(t), OwnerIDs: nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string][]string{"Zone.notes": {}}, got)
}

func mustPlain(t *testing.T) *geojoin.Association {
	t.Helper()
	reg := geojoin.NewRegistry(geojoin.DefaultRelationships())
	a, err := reg.HasMany(zone, "notes", geojoin.Entity{Name: "Note", Table: `"notes"`}, geojoin.PlainOptions{ForeignKey: "zone_id"})
	require.NoError(t, err)
	return a
}
