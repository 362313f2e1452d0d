package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/internal/cli"
	"github.com/pthm/geojoin/pkg/render"
	"github.com/pthm/geojoin/pkg/sqldsl"
)

var (
	sqlManifest string
	sqlOwner    string
	sqlPreload  string
)

var sqlCmd = &cobra.Command{
	Use:   "sql OWNER.NAME",
	Short: "Print the query of an association",
	Long: `Print the PostgreSQL query loading an association, followed by its
arguments. --owner prints the lazy query for one owner record; --preload
prints the batch query for a list of owner ids.`,
	Example: `  # Lazy query for one zone
  geojoin sql Zone.parcels --owner '{"id": 1, "geom": "SRID=4326;POINT(1 1)"}'

  # Batch query for three zones
  geojoin sql Zone.parcels --preload 1,2,3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (sqlOwner == "") == (sqlPreload == "") {
			return cli.GeneralError("exactly one of --owner or --preload is required", nil)
		}

		reg, err := loadRegistry(resolveString(sqlManifest, cfg.Manifest))
		if err != nil {
			return err
		}
		a, err := lookupAssociation(reg, args[0])
		if err != nil {
			return err
		}

		b := geojoin.NewBuilder(reg.Relationships())
		var stmt sqldsl.SelectStmt
		if sqlOwner != "" {
			owner, err := parseOwner(sqlOwner)
			if err != nil {
				return cli.GeneralError("reading --owner", err)
			}
			stmt, err = b.Scope(a, owner)
			if err != nil {
				return cli.ManifestError("building lazy query", err)
			}
		} else {
			q, err := b.BuildBatch(a, parseIDs(sqlPreload))
			if err != nil {
				return cli.ManifestError("building preload query", err)
			}
			stmt = q.Stmt
		}

		text, queryArgs, err := render.Postgres(context.Background(), stmt)
		if err != nil {
			return cli.GeneralError("rendering query", err)
		}
		logger.Debug("rendered query", zap.String("association", a.Key()), zap.Int("args", len(queryArgs)))

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, text)
		if !quiet {
			for i, v := range queryArgs {
				fmt.Fprintf(out, "-- $%d = %v\n", i+1, v)
			}
		}
		return nil
	},
}

func init() {
	f := sqlCmd.Flags()
	f.StringVar(&sqlManifest, "manifest", "", "path to the manifest file")
	f.StringVar(&sqlOwner, "owner", "", "owner record as a JSON object")
	f.StringVar(&sqlPreload, "preload", "", "comma separated owner ids")
}
