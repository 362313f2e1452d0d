package geojoin_test

import (
	"strings"
	"testing"

	"github.com/pthm/geojoin"
)

func TestDefaultRelationships(t *testing.T) {
	rels := geojoin.DefaultRelationships()
	if rels.Len() != 12 {
		t.Fatalf("Len() = %d, want 12", rels.Len())
	}

	tests := []struct {
		rel  geojoin.Relationship
		want string
	}{
		{geojoin.Contains, "ST_Contains"},
		{geojoin.ContainsProperly, "ST_ContainsProperly"},
		{geojoin.CoveredBy, "ST_CoveredBy"},
		{geojoin.OrderingEquals, "ST_OrderingEquals"},
		{geojoin.Within, "ST_Within"},
		{"Intersects", "ST_Intersects"},
		{" touches ", "ST_Touches"},
	}
	for _, tt := range tests {
		t.Run(string(tt.rel), func(t *testing.T) {
			fn, ok := rels.Lookup(tt.rel)
			if !ok || fn != tt.want {
				t.Errorf("Lookup(%q) = %q, %v; want %q", tt.rel, fn, ok, tt.want)
			}
		})
	}
}

func TestRelationships_Validate(t *testing.T) {
	rels := geojoin.DefaultRelationships()
	if err := rels.Validate(geojoin.Overlaps); err != nil {
		t.Errorf("Validate(overlaps) = %v", err)
	}

	err := rels.Validate("nearby")
	if !geojoin.IsInvalidRelationshipErr(err) {
		t.Fatalf("Validate(nearby) = %v, want ErrInvalidRelationship", err)
	}
	if !strings.Contains(err.Error(), `"nearby"`) || !strings.Contains(err.Error(), "contains, containsproperly") {
		t.Errorf("error should name the relationship and the whitelist, got: %s", err)
	}
}

func TestRelationships_Names(t *testing.T) {
	names := geojoin.DefaultRelationships().Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
}

func TestNewRelationships_CopiesInput(t *testing.T) {
	funcs := map[geojoin.Relationship]string{"dwithin": "ST_DWithin"}
	rels := geojoin.NewRelationships(funcs)
	funcs["contains"] = "ST_Contains"

	if _, ok := rels.Lookup("contains"); ok {
		t.Error("whitelist should not observe changes to the input map")
	}
	if fn, _ := rels.Lookup("DWithin"); fn != "ST_DWithin" {
		t.Errorf("Lookup(DWithin) = %q", fn)
	}
}
