// Package main provides the geojoin CLI for inspecting and running spatial
// association queries declared in a manifest.
//
// The CLI supports:
//   - validate: Parse the manifest and declare every association
//   - sql: Print the lazy or preload query of one association
//   - preload: Run a preload query against PostgreSQL
//   - doctor: Check the database against the manifest
//   - config show: Print the effective configuration
//   - version: Print build information
//
// Usage:
//
//	geojoin [flags] <command>
//
// Only preload and doctor need database access.
package main

func main() {
	Execute()
}
