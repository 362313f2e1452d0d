package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/internal/cli"
	"github.com/pthm/geojoin/pkg/loader"
)

var (
	preloadDB       string
	preloadManifest string
	preloadIDs      string
	preloadTimeout  string
)

var preloadCmd = &cobra.Command{
	Use:   "preload OWNER.NAME",
	Short: "Run a preload query",
	Long:  `Run the batch query of an association and print the target ids of every owner.`,
	Example: `  # Parcels of zones 1, 2 and 3
  geojoin preload Zone.parcels --ids 1,2,3 --db postgres://localhost/gis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := parseIDs(preloadIDs)
		if len(ids) == 0 {
			return cli.GeneralError("--ids is required", nil)
		}

		timeout, err := time.ParseDuration(resolveString(preloadTimeout, cfg.Preload.Timeout))
		if err != nil {
			return cli.ConfigError("preload timeout", err)
		}

		reg, err := loadRegistry(resolveString(preloadManifest, cfg.Manifest))
		if err != nil {
			return err
		}
		a, err := lookupAssociation(reg, args[0])
		if err != nil {
			return err
		}

		dsn, err := resolveDSN(preloadDB)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		found, err := runPreload(ctx, dsn, reg, a, ids)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(found)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	f := preloadCmd.Flags()
	f.StringVar(&preloadDB, "db", "", "database URL")
	f.StringVar(&preloadManifest, "manifest", "", "path to the manifest file")
	f.StringVar(&preloadIDs, "ids", "", "comma separated owner ids")
	f.StringVar(&preloadTimeout, "timeout", "", "query timeout (default from config)")
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

func runPreload(ctx context.Context, dsn string, reg *geojoin.Registry, a *geojoin.Association, ids []any) (map[string][]string, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}

	l := loader.New(db, geojoin.NewBuilder(reg.Relationships()), loader.WithLogger(logger))
	found, err := l.Preload(ctx, a, ids)
	if err != nil {
		return nil, cli.GeneralError("preload failed", err)
	}
	return found, nil
}
