// Package skill holds skill definitions and a player's skill acquisition state.
// This package is PURE and must NOT import any infrastructure packages.
package skill

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Definition is an immutable catalog entry. Max100 and Max200 are the computing allocations (TFLOPS)
// that reach 100 % and 200 % mastery.
type Definition struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Category       string  `json:"category"`
	Price          int64   `json:"price" validate:"gte=0"`
	FileSizeGB     float64 `json:"file_size_gb" validate:"gt=0"`
	UnlockLevel    int     `json:"unlock_level" validate:"gte=1"`
	PrerequisiteID string  `json:"prerequisite_id,omitempty"`
	Max100         float64 `json:"max100" validate:"gt=0"`
	Max200         float64 `json:"max200" validate:"gtfield=Max100"`
}

// Catalog indexes definitions by id.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog validates defs and builds a catalog. Prerequisites must refer to entries of the same catalog.
func NewCatalog(defs []Definition) (*Catalog, error) {
	v := validator.New()
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := v.Struct(d); err != nil {
			return nil, fmt.Errorf("skill %q: %w", d.ID, err)
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("skill %q defined twice", d.ID)
		}
		c.defs[d.ID] = d
	}
	for _, d := range c.defs {
		if d.PrerequisiteID == "" {
			continue
		}
		if _, ok := c.defs[d.PrerequisiteID]; !ok {
			return nil, fmt.Errorf("skill %q: unknown prerequisite %q", d.ID, d.PrerequisiteID)
		}
	}
	return c, nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// All returns every definition ordered by unlock level then id.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnlockLevel != out[j].UnlockLevel {
			return out[i].UnlockLevel < out[j].UnlockLevel
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DefaultDefinitions is the built-in skill tree.
var DefaultDefinitions = []Definition{
	{ID: "web-dev", Name: "Web Development", Category: "programming", Price: 150, FileSizeGB: 1.5, UnlockLevel: 1, Max100: 1, Max200: 4},
	{ID: "python", Name: "Python", Category: "programming", Price: 200, FileSizeGB: 2, UnlockLevel: 1, Max100: 2, Max200: 6},
	{ID: "video-editing", Name: "Video Editing", Category: "media", Price: 400, FileSizeGB: 8, UnlockLevel: 2, Max100: 3, Max200: 9},
	{ID: "data-analysis", Name: "Data Analysis", Category: "data", Price: 500, FileSizeGB: 5, UnlockLevel: 3, PrerequisiteID: "python", Max100: 4, Max200: 12},
	{ID: "cybersecurity", Name: "Cybersecurity", Category: "security", Price: 1200, FileSizeGB: 10, UnlockLevel: 6, PrerequisiteID: "web-dev", Max100: 5, Max200: 15},
	{ID: "machine-learning", Name: "Machine Learning", Category: "data", Price: 2000, FileSizeGB: 20, UnlockLevel: 8, PrerequisiteID: "data-analysis", Max100: 8, Max200: 24},
	{ID: "blockchain", Name: "Blockchain", Category: "security", Price: 3000, FileSizeGB: 25, UnlockLevel: 12, PrerequisiteID: "cybersecurity", Max100: 6, Max200: 20},
}

// DefaultCatalog builds the catalog of DefaultDefinitions.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions)
	if err != nil {
		panic(err)
	}
	return c
}
