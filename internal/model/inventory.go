package model

import "time"

// InventoryEntry is one (user, item) row of an inventory.
// Item is nil when the referenced catalog item no longer exists.
type InventoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	Item      *Item     `json:"item,omitempty"`
}

// InventoryValue sums value x quantity over entries. Orphaned entries count as zero.
func InventoryValue(entries []InventoryEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.Item == nil {
			continue
		}
		total += e.Item.Value * e.Quantity
	}
	return total
}

// InventoryCount sums quantities over entries.
func InventoryCount(entries []InventoryEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
