package model

import (
	"strings"
	"time"
)

// PlaceholderImage is served for items without artwork.
const PlaceholderImage = "static/placeholder-item.svg"

// Item is a catalog entry that can be won from a case.
// An empty Rarity marks a legacy row without a rarity label.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	Image     string    `json:"image,omitempty"`
	Rarity    string    `json:"rarity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemView is the client-facing shape of an item.
type ItemView struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Rarity *string `json:"rarity"`
	Value  int64   `json:"value"`
	Image  string  `json:"image"`
}

// View converts the item for serialization.
func (i Item) View() ItemView {
	v := ItemView{
		ID:    i.ID,
		Name:  i.Name,
		Value: i.Value,
		Image: NormalizeImage(i.Image),
	}
	if i.Rarity != "" {
		r := i.Rarity
		v.Rarity = &r
	}
	return v
}

// NormalizeImage strips leading slashes and falls back to the placeholder.
func NormalizeImage(image string) string {
	image = strings.TrimLeft(strings.TrimSpace(image), "/")
	if image == "" {
		return PlaceholderImage
	}
	return image
}
