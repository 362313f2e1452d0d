// Package doctor provides health checks for the database behind a geojoin
// manifest.
//
// The doctor command validates that the manifest declares cleanly and that
// every table, geometry column and type column it names exists in the
// database, with PostGIS installed and spatial indexes on the columns the
// preload queries filter on.
//
// Example usage:
//
//	d := doctor.New(db, "geojoin.manifest.yaml")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/pkg/manifest"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause query failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// Check categories, in report order.
const (
	CategoryManifest = "Manifest"
	CategoryPostGIS  = "PostGIS"
	CategoryTables   = "Tables"
	CategoryColumns  = "Columns"
	CategoryIndexes  = "Spatial Indexes"
)

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	Category string
	Name     string
	Status   Status
	Message  string
	// Details is printed in verbose mode.
	Details string
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report grouped by category in the order categories
// were first seen.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var order []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			order = append(order, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	for _, cat := range order {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Catalog answers questions about the database catalog.
type Catalog interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Doctor checks a manifest against a database.
type Doctor struct {
	db           Catalog
	manifestPath string

	reg *geojoin.Registry
}

// New creates a new Doctor instance.
func New(db Catalog, manifestPath string) *Doctor {
	return &Doctor{db: db, manifestPath: manifestPath}
}

// Run executes all health checks and returns a report. Database checks are
// skipped when the manifest does not declare cleanly.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if !d.checkManifest(report) {
		return report, nil
	}
	if err := d.checkPostGIS(ctx, report); err != nil {
		return nil, fmt.Errorf("checking postgis: %w", err)
	}
	if err := d.checkTables(ctx, report); err != nil {
		return nil, fmt.Errorf("checking tables: %w", err)
	}
	if err := d.checkColumns(ctx, report); err != nil {
		return nil, fmt.Errorf("checking columns: %w", err)
	}
	if err := d.checkIndexes(ctx, report); err != nil {
		return nil, fmt.Errorf("checking spatial indexes: %w", err)
	}
	return report, nil
}

func (d *Doctor) checkManifest(report *Report) bool {
	f, err := manifest.Load(d.manifestPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryManifest,
			Name:     "parse",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Manifest %s could not be read", d.manifestPath),
			Details:  err.Error(),
			FixHint:  "Run 'geojoin validate' for details",
		})
		return false
	}

	reg := geojoin.NewRegistry(geojoin.DefaultRelationships())
	if err := f.Declare(reg); err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryManifest,
			Name:     "declare",
			Status:   StatusFail,
			Message:  "Manifest declares an invalid association",
			Details:  err.Error(),
			FixHint:  "Run 'geojoin validate' for details",
		})
		return false
	}
	d.reg = reg

	report.AddCheck(CheckResult{
		Category: CategoryManifest,
		Name:     "declare",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Manifest is valid (%d entities, %d associations)", len(f.Entities), len(reg.Associations())),
	})
	return true
}

func (d *Doctor) checkPostGIS(ctx context.Context, report *Report) error {
	var version string
	err := d.db.QueryRowContext(ctx,
		`SELECT extversion FROM pg_extension WHERE extname = 'postgis'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		report.AddCheck(CheckResult{
			Category: CategoryPostGIS,
			Name:     "extension",
			Status:   StatusFail,
			Message:  "PostGIS extension is not installed",
			FixHint:  "Run 'CREATE EXTENSION postgis' in the database",
		})
		return nil
	}
	if err != nil {
		return err
	}

	report.AddCheck(CheckResult{
		Category: CategoryPostGIS,
		Name:     "extension",
		Status:   StatusPass,
		Message:  fmt.Sprintf("PostGIS %s installed", version),
	})
	return nil
}

func (d *Doctor) checkTables(ctx context.Context, report *Report) error {
	for _, e := range d.entities() {
		schema, table := splitTable(e.Table)
		var exists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
				AND table_name = $2
			)
		`, schema, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("table %s: %w", e.Table, err)
		}

		if !exists {
			report.AddCheck(CheckResult{
				Category: CategoryTables,
				Name:     e.Name,
				Status:   StatusFail,
				Message:  fmt.Sprintf("Table %s for %s does not exist", e.Table, e.Name),
				FixHint:  "Create the table or fix the entity's table in the manifest",
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: CategoryTables,
			Name:     e.Name,
			Status:   StatusPass,
			Message:  fmt.Sprintf("Table %s exists", e.Table),
		})
	}
	return nil
}

// column is one column an association query reads.
type column struct {
	entity   geojoin.Entity
	name     string
	geometry bool
	usedBy   string
}

func (d *Doctor) checkColumns(ctx context.Context, report *Report) error {
	for _, c := range d.columns() {
		udt, err := d.columnType(ctx, c.entity.Table, c.name)
		if err != nil {
			return fmt.Errorf("column %s.%s: %w", c.entity.Table, c.name, err)
		}

		ref := fmt.Sprintf("%s.%s", c.entity.Table, c.name)
		switch {
		case udt == "":
			report.AddCheck(CheckResult{
				Category: CategoryColumns,
				Name:     ref,
				Status:   StatusFail,
				Message:  fmt.Sprintf("Column %s does not exist", ref),
				Details:  "Used by " + c.usedBy,
				FixHint:  "Add the column or fix the declaration",
			})
		case c.geometry && udt != "geometry" && udt != "geography":
			report.AddCheck(CheckResult{
				Category: CategoryColumns,
				Name:     ref,
				Status:   StatusFail,
				Message:  fmt.Sprintf("Column %s is %s, not a geometry", ref, udt),
				Details:  "Used by " + c.usedBy,
			})
		default:
			report.AddCheck(CheckResult{
				Category: CategoryColumns,
				Name:     ref,
				Status:   StatusPass,
				Message:  fmt.Sprintf("Column %s exists (%s)", ref, udt),
				Details:  "Used by " + c.usedBy,
			})
		}
	}
	return nil
}

// columnType returns the udt name of the column, or "" when it is missing.
func (d *Doctor) columnType(ctx context.Context, qualified, name string) (string, error) {
	schema, table := splitTable(qualified)
	var udt string
	err := d.db.QueryRowContext(ctx, `
		SELECT udt_name FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
		AND table_name = $2
		AND column_name = $3
	`, schema, table, name).Scan(&udt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return udt, err
}

func (d *Doctor) checkIndexes(ctx context.Context, report *Report) error {
	for _, c := range d.columns() {
		if !c.geometry {
			continue
		}
		schema, table := splitTable(c.entity.Table)
		var indexed bool
		err := d.db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pg_index i
				JOIN pg_class t ON t.oid = i.indrelid
				JOIN pg_namespace n ON n.oid = t.relnamespace
				JOIN pg_class ic ON ic.oid = i.indexrelid
				JOIN pg_am am ON am.oid = ic.relam
				JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(i.indkey)
				WHERE n.nspname = COALESCE(NULLIF($1::text, ''), current_schema())
				AND t.relname = $2
				AND a.attname = $3
				AND am.amname IN ('gist', 'spgist', 'brin')
			)
		`, schema, table, c.name).Scan(&indexed)
		if err != nil {
			return fmt.Errorf("index on %s.%s: %w", c.entity.Table, c.name, err)
		}

		ref := fmt.Sprintf("%s.%s", c.entity.Table, c.name)
		if !indexed {
			report.AddCheck(CheckResult{
				Category: CategoryIndexes,
				Name:     ref,
				Status:   StatusWarn,
				Message:  fmt.Sprintf("No spatial index on %s", ref),
				Details:  "Used by " + c.usedBy,
				FixHint:  fmt.Sprintf("CREATE INDEX ON %s USING GIST (%s)", c.entity.Table, c.name),
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: CategoryIndexes,
			Name:     ref,
			Status:   StatusPass,
			Message:  fmt.Sprintf("%s has a spatial index", ref),
		})
	}
	return nil
}

// entities returns every entity the declared associations join, sorted by
// name.
func (d *Doctor) entities() []geojoin.Entity {
	seen := map[string]geojoin.Entity{}
	for _, a := range d.reg.Associations() {
		seen[a.Owner.Name] = a.Owner
		seen[a.Target.Name] = a.Target
		for _, l := range a.Through {
			seen[l.Target.Name] = l.Target
		}
	}
	out := make([]geojoin.Entity, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// columns returns the distinct columns read by the declared associations in
// declaration key order.
func (d *Doctor) columns() []column {
	var out []column
	index := map[string]int{}
	add := func(e geojoin.Entity, name string, geometry bool, usedBy string) {
		key := e.Table + "." + name
		if i, ok := index[key]; ok {
			out[i].usedBy += ", " + usedBy
			return
		}
		index[key] = len(out)
		out = append(out, column{entity: e, name: name, geometry: geometry, usedBy: usedBy})
	}

	for _, a := range d.reg.Associations() {
		for _, l := range a.Through {
			if l.TypeFilter != nil {
				add(l.Target, l.TypeFilter.Column, false, a.Key())
			}
		}
		if a.TypeColumn != "" {
			add(a.Target, a.TypeColumn, false, a.Key())
		}
		if a.Kind != geojoin.KindSpatial {
			add(a.Target, a.ForeignKey, false, a.Key())
			continue
		}
		spec := a.Spatial
		// Owner geometry read from a record attribute has no column to check.
		if spec.Geom.Column != "" && spec.Geom.TableAlias == "" {
			add(a.Owner, spec.Geom.Column, true, a.Key())
		}
		add(a.Target, spec.ForeignGeom.Column, true, a.Key())
	}
	return out
}

// splitTable unquotes a possibly schema qualified table name.
func splitTable(qualified string) (schema, table string) {
	parts := strings.SplitN(qualified, ".", 2)
	for i := range parts {
		parts[i] = strings.Trim(parts[i], `"`)
	}
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", parts[0]
}
