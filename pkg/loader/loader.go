// Package loader executes association queries built by geojoin.
//
// The loader is the only I/O layer: query construction stays pure, and the
// loader renders each query for PostgreSQL, runs it through a Querier and
// decodes the rows. It never retries; errors from the database are returned
// as is, wrapped with the association they belong to.
//
//	l := loader.New(db, geojoin.NewBuilder(rels), loader.WithLogger(logger))
//	ids, err := l.Preload(ctx, parcels, []any{1, 2, 3})
//	// ids["1"] == []string{"10", "20"}, ids["2"] == []string{}
//
// The tests against a live PostGIS database run with
// `go test -tags integration ./pkg/loader/`. They start a container through
// Docker unless GEOJOIN_TEST_DATABASE_URL names a server.
package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/render"
	"github.com/pthm/geojoin/pkg/sqldsl"
)

// Querier executes queries against PostgreSQL.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RowScanner is the subset of *sql.Rows the decoders read.
type RowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Loader runs lazy and batch association queries.
type Loader struct {
	q   Querier
	b   *geojoin.Builder
	log *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger logs every executed query at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// New returns a loader executing through q.
func New(q Querier, b *geojoin.Builder, opts ...Option) *Loader {
	l := &Loader{q: q, b: b, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Related loads the rows of a for one owner.
func (l *Loader) Related(ctx context.Context, a *geojoin.Association, owner geojoin.Owner) ([]geojoin.Record, error) {
	stmt, err := l.b.Scope(a, owner)
	if err != nil {
		return nil, err
	}

	rows, err := l.query(ctx, a, "related", stmt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records, err := DecodeRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding rows: %w", a.Key(), err)
	}
	return records, nil
}

// Preload loads target ids of a for every owner id in one query. Every
// requested owner is a key of the result, formatted with fmt.Sprint; owners
// without targets map to an empty slice. An empty ownerIDs returns an
// empty map without querying.
func (l *Loader) Preload(ctx context.Context, a *geojoin.Association, ownerIDs []any) (map[string][]string, error) {
	if len(ownerIDs) == 0 {
		return map[string][]string{}, nil
	}

	batch, err := l.b.BuildBatch(a, ownerIDs)
	if err != nil {
		return nil, err
	}

	rows, err := l.query(ctx, a, "preload", batch.Stmt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids, err := collectBatch(rows, batch.OwnerIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding batch: %w", a.Key(), err)
	}
	return ids, nil
}

// collectBatch decodes grouped batch rows and adds an empty entry for every
// requested owner the rows did not mention.
func collectBatch(rows RowScanner, ownerIDs []any) (map[string][]string, error) {
	found, err := DecodeBatch(rows)
	if err != nil {
		return nil, err
	}
	return fillMissing(found, ownerIDs), nil
}

// Request names one association to preload.
type Request struct {
	Association *geojoin.Association
	OwnerIDs    []any
}

// PreloadAll runs every request concurrently and returns the results keyed
// by association key. The first failure cancels the others.
func (l *Loader) PreloadAll(ctx context.Context, reqs ...Request) (map[string]map[string][]string, error) {
	var mu sync.Mutex
	out := make(map[string]map[string][]string, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		g.Go(func() error {
			ids, err := l.Preload(ctx, req.Association, req.OwnerIDs)
			if err != nil {
				return err
			}
			mu.Lock()
			out[req.Association.Key()] = ids
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) query(ctx context.Context, a *geojoin.Association, op string, stmt sqldsl.SelectStmt) (*sql.Rows, error) {
	text, args, err := render.Postgres(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Key(), err)
	}

	l.log.Debug("executing association query",
		zap.String("op", op),
		zap.String("association", a.Key()),
		zap.Int("args", len(args)),
	)

	rows, err := l.q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %s query: %w", a.Key(), op, err)
	}
	return rows, nil
}

// DecodeBatch reads batch rows into owner id to target ids. Owners absent
// from rows are absent from the result.
func DecodeBatch(rows RowScanner) (map[string][]string, error) {
	out := make(map[string][]string)
	for rows.Next() {
		var owner string
		var ids sql.NullString
		if err := rows.Scan(&owner, &ids); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], SplitIDs(ids.String)...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SplitIDs splits an aggregated id list. An empty list yields no ids.
func SplitIDs(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, geojoin.IDSeparator)
}

// DecodeRecords reads every row into a Record keyed by column name.
// Byte slices are converted to strings.
func DecodeRecords(rows RowScanner) ([]geojoin.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []geojoin.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(geojoin.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func fillMissing(found map[string][]string, ownerIDs []any) map[string][]string {
	out := make(map[string][]string, len(ownerIDs))
	for _, id := range ownerIDs {
		key := fmt.Sprint(id)
		if ids, ok := found[key]; ok {
			out[key] = ids
			continue
		}
		out[key] = []string{}
	}
	return out
}
