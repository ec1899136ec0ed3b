package catalog

import "caseopener-rest-api/internal/model"

// StarterItems is inserted when a spin finds the catalog empty.
func StarterItems() []model.Item {
	return []model.Item{
		{Name: "Rusty Pistol", Value: 5, Rarity: RarityCommon, Image: "static/imgs/weapon/placeholder_pistol.png"},
		{Name: "Worn SMG", Value: 18, Rarity: RarityUncommon, Image: "static/imgs/weapon/placeholder_smg.png"},
		{Name: "Shiny Rifle", Value: 120, Rarity: RarityRare, Image: "static/imgs/weapon/placeholder_rifle.png"},
		{Name: "Mythic Blade", Value: 480, Rarity: RarityMythical, Image: "static/imgs/weapon/placeholder_blade.png"},
		{Name: "Dragon Relic", Value: 1500, Rarity: RarityLegendary, Image: "static/imgs/weapon/placeholder_relic.png"},
	}
}

// DefaultIngestValue is used for scanned items whose rarity has no base value.
const DefaultIngestValue = 10

var ingestValues = map[string]int64{
	RarityCommon:          5,
	RarityUncommon:        15,
	RarityRare:            60,
	RarityMythical:        140,
	RarityLegendary:       400,
	RarityAncient:         750,
	RarityExceedinglyRare: 1100,
	RarityImmortal:        2000,
	RarityUnique:          3500,
}

// IngestValue returns the base value assigned to a newly scanned item.
func IngestValue(rarity string) int64 {
	if v, ok := ingestValues[rarity]; ok {
		return v
	}
	return DefaultIngestValue
}

// RarityForValue infers a rarity for legacy items stored without one.
func RarityForValue(value int64) string {
	switch {
	case value >= 1000:
		return RarityLegendary
	case value >= 200:
		return RarityRare
	case value >= 50:
		return RarityUncommon
	default:
		return RarityCommon
	}
}
