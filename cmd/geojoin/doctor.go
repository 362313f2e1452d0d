package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/pthm/geojoin/internal/cli"
	"github.com/pthm/geojoin/internal/doctor"
)

var (
	doctorDB       string
	doctorManifest string
	doctorVerbose  bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Check that the tables, geometry columns and spatial indexes the manifest relies on exist.`,
	Example: `  # Run health checks
  geojoin doctor --db postgres://localhost/gis

  # Run with verbose output
  geojoin doctor --db postgres://localhost/gis --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveString(doctorManifest, cfg.Manifest)

		dsn, err := resolveDSN(doctorDB)
		if err != nil {
			return err
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		if err := db.PingContext(ctx); err != nil {
			return cli.DBConnectError("connecting to database", err)
		}

		out := cmd.OutOrStdout()
		if !quiet {
			fmt.Fprintln(out, "geojoin doctor - Health Check")
		}

		report, err := doctor.New(db, path).Run(ctx)
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}
		report.Print(out, doctorVerbose || verbose > 0)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVar(&doctorManifest, "manifest", "", "path to the manifest file")
	f.BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}
