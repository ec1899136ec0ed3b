package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Case is a purchasable container with a price and an eligible rarity set.
// An empty Rarities list makes every catalog item eligible.
type Case struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Rarities []string `json:"rarities"`
	Image    string   `json:"image,omitempty"`
}

// Catalog is an ordered, read-only set of case definitions.
type Catalog struct {
	cases []Case
	byID  map[int]int
}

// NewCatalog validates cases and builds a lookup index.
func NewCatalog(cases []Case) (*Catalog, error) {
	c := &Catalog{
		cases: make([]Case, 0, len(cases)),
		byID:  make(map[int]int, len(cases)),
	}
	for _, cs := range cases {
		if _, dup := c.byID[cs.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %d", cs.ID)
		}
		if cs.Price < 0 {
			return nil, fmt.Errorf("case %d: price must not be negative", cs.ID)
		}
		if cs.Name == "" {
			return nil, fmt.Errorf("case %d: name is required", cs.ID)
		}
		rarities := make([]string, 0, len(cs.Rarities))
		for _, r := range cs.Rarities {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				rarities = append(rarities, r)
			}
		}
		cs.Rarities = rarities
		c.byID[cs.ID] = len(c.cases)
		c.cases = append(c.cases, cs)
	}
	return c, nil
}

// DefaultCatalog returns the built-in Alpha and Omega case lines.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultCases())
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCases builds five Alpha cases followed by five Omega cases.
func DefaultCases() []Case {
	alpha := []string{RarityCommon, RarityUncommon, RarityRare, RarityMythical, RarityLegendary}
	omega := []string{RarityUncommon, RarityRare, RarityMythical, RarityLegendary, RarityAncient, RarityExceedinglyRare, RarityImmortal}

	cases := make([]Case, 0, 10)
	for i := range 5 {
		cases = append(cases, Case{
			ID:       i,
			Name:     fmt.Sprintf("Alpha Case %d", i+1),
			Price:    int64(i+1) * 25,
			Rarities: slices.Clone(alpha),
			Image:    fmt.Sprintf("static/imgs/weapon/case/alpha/alpha_case_%02d.png", i+1),
		})
	}
	for i := range 5 {
		cases = append(cases, Case{
			ID:       5 + i,
			Name:     fmt.Sprintf("Omega Case %d", i+1),
			Price:    200 + int64(i)*35,
			Rarities: slices.Clone(omega),
			Image:    fmt.Sprintf("static/imgs/weapon/case/omega/omega_case_%02d.png", i+1),
		})
	}
	return cases
}

// Get returns the case with the given id.
func (c *Catalog) Get(id int) (Case, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Case{}, false
	}
	cs := c.cases[idx]
	cs.Rarities = slices.Clone(cs.Rarities)
	return cs, true
}

// List returns all cases in definition order.
func (c *Catalog) List() []Case {
	out := make([]Case, len(c.cases))
	for i, cs := range c.cases {
		cs.Rarities = slices.Clone(cs.Rarities)
		out[i] = cs
	}
	return out
}

// Len returns the number of cases.
func (c *Catalog) Len() int {
	return len(c.cases)
}
