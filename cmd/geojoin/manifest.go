package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pthm/geojoin"
	"github.com/pthm/geojoin/internal/cli"
	"github.com/pthm/geojoin/pkg/manifest"
)

// loadRegistry parses the manifest at path and declares its associations.
func loadRegistry(path string) (*geojoin.Registry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, cli.ManifestError(fmt.Sprintf("manifest not found: %s", path), nil)
	}
	f, err := manifest.Load(path)
	if err != nil {
		return nil, cli.ManifestError("parsing manifest", err)
	}
	reg := geojoin.NewRegistry(geojoin.DefaultRelationships())
	if err := f.Declare(reg); err != nil {
		return nil, cli.ManifestError("declaring associations", err)
	}
	return reg, nil
}

// lookupAssociation resolves an OWNER.NAME reference.
func lookupAssociation(reg *geojoin.Registry, ref string) (*geojoin.Association, error) {
	owner, name, ok := strings.Cut(ref, ".")
	if !ok || owner == "" || name == "" {
		return nil, cli.GeneralError(fmt.Sprintf("association must be written OWNER.NAME, got %q", ref), nil)
	}
	a, ok := reg.Association(owner, name)
	if !ok {
		return nil, cli.ManifestError(fmt.Sprintf("no association %s declared", ref), nil)
	}
	return a, nil
}

// parseIDs splits a comma separated id list. Integer ids become int64.
func parseIDs(s string) []any {
	var ids []any
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, n)
			continue
		}
		ids = append(ids, part)
	}
	return ids
}

// parseOwner decodes a JSON object into a record, keeping integers as int64.
func parseOwner(s string) (geojoin.Record, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("owner must be a JSON object: %w", err)
	}
	rec := make(geojoin.Record, len(raw))
	for k, v := range raw {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		rec[k] = v
	}
	return rec, nil
}
