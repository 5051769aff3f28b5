package flux

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOverrideLookupPrecedence(t *testing.T) {
	table := NewOverrideTable(map[string]float64{
		"abyss:region-1:sub-0": -3.0,
		"abyss:region-1:*":     -2.0,
		"abyss:*:*":            -1.0,
		"*:*:*":                0.5,
	})

	cases := []struct {
		plane, region, sub string
		want               float64
	}{
		{"abyss", "region-1", "sub-0", -3.0},
		{"abyss", "region-1", "sub-9", -2.0},
		{"abyss", "region-7", "sub-0", -1.0},
		{"mortal", "region-0", "sub-0", 0.5},
	}
	for _, tc := range cases {
		got, ok := table.Lookup(tc.plane, tc.region, tc.sub)
		if !ok {
			t.Fatalf("no match for %s:%s:%s", tc.plane, tc.region, tc.sub)
		}
		if got != tc.want {
			t.Errorf("Lookup(%s:%s:%s) = %f, want %f", tc.plane, tc.region, tc.sub, got, tc.want)
		}
	}
}

func TestOverrideLookupNilSafe(t *testing.T) {
	var table *OverrideTable
	if _, ok := table.Lookup("mortal", "r", "s"); ok {
		t.Fatal("nil table matched")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	if err := os.WriteFile(path, []byte(`{"abyss:*:*": -2.5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rate, ok := table.Lookup("abyss", "any", "thing"); !ok || rate != -2.5 {
		t.Fatalf("got %f, %v", rate, ok)
	}
}

func TestLoadOverridesMissingFileIsNotAnError(t *testing.T) {
	table, err := LoadOverrides(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file errored: %v", err)
	}
	if table != nil {
		t.Fatal("expected nil table for missing file")
	}
}

func TestLoadOverridesEmptyPath(t *testing.T) {
	table, err := LoadOverrides("")
	if err != nil || table != nil {
		t.Fatalf("got %v, %v", table, err)
	}
}

func TestLoadOverridesBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Fatal("expected parse error")
	}
}
