package catalog

import (
	"fmt"
	"maps"
	"strings"
)

// Rarity labels known to the default tables.
const (
	RarityCommon          = "common"
	RarityUncommon        = "uncommon"
	RarityRare            = "rare"
	RarityMythical        = "mythical"
	RarityLegendary       = "legendary"
	RarityAncient         = "ancient"
	RarityExceedinglyRare = "exceedinglyrare"
	RarityImmortal        = "immortal"
	RarityUnique          = "unique"
)

// UnknownRarityWeight is applied to labels missing from a WeightTable.
const UnknownRarityWeight = 1.0

// WeightTable maps rarity labels to relative selection weights.
// It is read-only once built; use NewWeightTable to construct one.
type WeightTable struct {
	weights map[string]float64
}

// DefaultWeights returns the standard rarity weighting.
func DefaultWeights() WeightTable {
	return WeightTable{weights: map[string]float64{
		RarityCommon:          60,
		RarityUncommon:        25,
		RarityRare:            10,
		RarityMythical:        4,
		RarityLegendary:       1.5,
		RarityAncient:         0.75,
		RarityExceedinglyRare: 0.4,
		RarityImmortal:        0.2,
		RarityUnique:          0.1,
	}}
}

// NewWeightTable validates and copies weights. Labels are lower-cased.
func NewWeightTable(weights map[string]float64) (WeightTable, error) {
	if len(weights) == 0 {
		return WeightTable{}, fmt.Errorf("weight table is empty")
	}
	out := make(map[string]float64, len(weights))
	for label, w := range weights {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			return WeightTable{}, fmt.Errorf("weight table has an empty rarity label")
		}
		if w <= 0 {
			return WeightTable{}, fmt.Errorf("rarity %q: weight must be positive, got %v", label, w)
		}
		out[label] = w
	}
	return WeightTable{weights: out}, nil
}

// Weight returns the weight for a rarity label.
// An empty label is weighted as common; unknown labels get UnknownRarityWeight.
func (t WeightTable) Weight(rarity string) float64 {
	if rarity == "" {
		rarity = RarityCommon
	}
	if w, ok := t.weights[rarity]; ok {
		return w
	}
	return UnknownRarityWeight
}

// Map returns a copy of the table.
func (t WeightTable) Map() map[string]float64 {
	return maps.Clone(t.weights)
}
