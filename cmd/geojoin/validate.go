package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/geojoin"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate manifest declarations",
	Long:  `Parse the manifest and declare every association, reporting the first invalid one.`,
	Example: `  # Validate a specific manifest
  geojoin validate --manifest spatial/zones.yaml

  # Validate using config file settings
  geojoin validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveString(validateManifest, cfg.Manifest)

		reg, err := loadRegistry(path)
		if err != nil {
			return err
		}

		if !quiet {
			out := cmd.OutOrStdout()
			assocs := reg.Associations()
			fmt.Fprintf(out, "Manifest is valid. Found %d associations:\n", len(assocs))
			for _, a := range assocs {
				fmt.Fprintf(out, "  - %s\n", describe(a))
			}
		}
		return nil
	},
}

func describe(a *geojoin.Association) string {
	if a.Kind != geojoin.KindSpatial {
		return fmt.Sprintf("%s (%s via %s)", a.Key(), a.Kind, a.ForeignKey)
	}
	s := fmt.Sprintf("%s (%s %s)", a.Key(), a.Spatial.Relationship, a.Target.Name)
	if n := len(a.Through); n > 0 {
		s += fmt.Sprintf(" through %d link(s)", n)
	}
	return s
}

func init() {
	validateCmd.Flags().StringVar(&validateManifest, "manifest", "", "path to the manifest file")
}
