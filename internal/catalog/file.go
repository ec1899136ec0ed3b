package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// File is the on-disk override for rarity weights and case definitions.
type File struct {
	RarityWeights map[string]float64 `json:"rarity_weights"`
	Cases         []Case             `json:"cases"`
}

// Load returns the weight table and case catalog. An empty path yields the
// built-in defaults; sections missing from the file also fall back to them.
func Load(path string) (WeightTable, *Catalog, error) {
	if path == "" {
		return DefaultWeights(), DefaultCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return WeightTable{}, nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return WeightTable{}, nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	weights := DefaultWeights()
	if len(f.RarityWeights) > 0 {
		weights, err = NewWeightTable(f.RarityWeights)
		if err != nil {
			return WeightTable{}, nil, fmt.Errorf("invalid rarity_weights in %s: %w", path, err)
		}
	}

	cases := DefaultCatalog()
	if len(f.Cases) > 0 {
		cases, err = NewCatalog(f.Cases)
		if err != nil {
			return WeightTable{}, nil, fmt.Errorf("invalid cases in %s: %w", path, err)
		}
	}

	return weights, cases, nil
}
