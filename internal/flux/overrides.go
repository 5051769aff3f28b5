package flux

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// OverrideTable is the externally configured flux map, keyed by
// plane:region:subregion with "*" wildcards at each level. When a key
// matches it beats the whole in-atlas hierarchy. A nil table means no
// overrides, which is not an error.
type OverrideTable struct {
	rates map[string]float64
}

// LoadOverrides reads a JSON override file, e.g.
//
//	{"abyss:*:*": -2.5, "mortal:region-0-0:sub-1": 0.4}
//
// A missing file yields an empty table.
func LoadOverrides(path string) (*OverrideTable, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var rates map[string]float64
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	return &OverrideTable{rates: rates}, nil
}

// NewOverrideTable builds a table directly, for tests and embedding hosts.
func NewOverrideTable(rates map[string]float64) *OverrideTable {
	return &OverrideTable{rates: rates}
}

// Lookup resolves the most specific matching override for a location.
func (t *OverrideTable) Lookup(plane, region, subregion string) (float64, bool) {
	if t == nil || len(t.rates) == 0 {
		return 0, false
	}
	keys := [4]string{
		plane + ":" + region + ":" + subregion,
		plane + ":" + region + ":*",
		plane + ":*:*",
		"*:*:*",
	}
	for _, k := range keys {
		if rate, ok := t.rates[k]; ok {
			return rate, true
		}
	}
	return 0, false
}
