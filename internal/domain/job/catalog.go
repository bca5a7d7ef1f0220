// Package job holds job definitions and the jobs a player is currently working.
// This package is PURE and must NOT import any infrastructure packages.
package job

import (
	"fmt"
	"sort"

	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/skill"
	"github.com/go-playground/validator/v10"
)

// DefaultPayInterval is the pay cycle in seconds when a definition leaves it unset.
const DefaultPayInterval = 300

// Definition is an immutable job offer. Requirements are held for as long as the job is worked.
type Definition struct {
	ID             string           `json:"id" validate:"required"`
	Name           string           `json:"name" validate:"required"`
	Tier           string           `json:"tier" validate:"oneof=Entry Junior Senior Expert"`
	RequiredSkills []string         `json:"required_skills"`
	Requirements   resource.Amounts `json:"requirements"`
	BaseSalary     int64            `json:"base_salary" validate:"gte=0"`
	PayInterval    int              `json:"pay_interval" validate:"gte=0"`
	DataGeneration float64          `json:"data_generation" validate:"gte=0"`
	UnlockLevel    int              `json:"unlock_level" validate:"gte=1"`
}

// Catalog indexes job definitions by id.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog validates defs against skills and builds a catalog.
func NewCatalog(defs []Definition, skills *skill.Catalog) (*Catalog, error) {
	v := validator.New()
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := v.Struct(d); err != nil {
			return nil, fmt.Errorf("job %q: %w", d.ID, err)
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("job %q defined twice", d.ID)
		}
		for _, sid := range d.RequiredSkills {
			if _, ok := skills.Get(sid); !ok {
				return nil, fmt.Errorf("job %q: unknown required skill %q", d.ID, sid)
			}
		}
		if d.PayInterval == 0 {
			d.PayInterval = DefaultPayInterval
		}
		c.defs[d.ID] = d
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

// DefaultDefinitions is the built-in job board.
var DefaultDefinitions = []Definition{
	{ID: "data-entry", Name: "Data Entry", Tier: "Entry",
		Requirements: resource.Amounts{Memory: 1, CPU: 0.5, Bandwidth: 5},
		BaseSalary:   20, PayInterval: 300, DataGeneration: 0.05, UnlockLevel: 1},
	{ID: "freelance-web", Name: "Freelance Web Developer", Tier: "Junior", RequiredSkills: []string{"web-dev"},
		Requirements: resource.Amounts{Memory: 2, CPU: 1, Bandwidth: 10, Computing: 1},
		BaseSalary:   60, PayInterval: 300, DataGeneration: 0.1, UnlockLevel: 1},
	{ID: "script-automation", Name: "Script Automation", Tier: "Junior", RequiredSkills: []string{"python"},
		Requirements: resource.Amounts{Memory: 2, CPU: 1, Bandwidth: 5, Computing: 2},
		BaseSalary:   80, PayInterval: 300, DataGeneration: 0.08, UnlockLevel: 2},
	{ID: "content-creator", Name: "Content Creator", Tier: "Senior", RequiredSkills: []string{"video-editing"},
		Requirements: resource.Amounts{Memory: 4, CPU: 2, Bandwidth: 40, Computing: 3},
		BaseSalary:   150, PayInterval: 600, DataGeneration: 0.5, UnlockLevel: 3},
	{ID: "data-analyst", Name: "Data Analyst", Tier: "Senior", RequiredSkills: []string{"python", "data-analysis"},
		Requirements: resource.Amounts{Memory: 4, CPU: 2, Bandwidth: 20, Computing: 4},
		BaseSalary:   250, PayInterval: 600, DataGeneration: 0.3, UnlockLevel: 5},
	{ID: "security-auditor", Name: "Security Auditor", Tier: "Expert", RequiredSkills: []string{"cybersecurity"},
		Requirements: resource.Amounts{Memory: 4, CPU: 2, Bandwidth: 30, Computing: 4},
		BaseSalary:   400, PayInterval: 900, DataGeneration: 0.2, UnlockLevel: 8},
	{ID: "ml-engineer", Name: "ML Engineer", Tier: "Expert", RequiredSkills: []string{"data-analysis", "machine-learning"},
		Requirements: resource.Amounts{Memory: 8, CPU: 4, Bandwidth: 50, Computing: 8},
		BaseSalary:   900, PayInterval: 900, DataGeneration: 1.0, UnlockLevel: 12},
}

// DefaultCatalog builds the catalog of DefaultDefinitions against the default skill tree.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions, skill.DefaultCatalog())
	if err != nil {
		panic(err)
	}
	return c
}
