// Package company implements the company ledger: roster, derived income and level progression.
// This package is PURE and must NOT import any infrastructure packages.
package company

import (
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
)

// Tier sizes a company.
type Tier int

const (
	TierSmall Tier = iota
	TierMedium
	TierLarge
	TierCorporation
)

func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "Small"
	case TierMedium:
		return "Medium"
	case TierLarge:
		return "Large"
	case TierCorporation:
		return "Corporation"
	default:
		return "Unknown"
	}
}

// ParseTier maps a tier name to its Tier.
func ParseTier(name string) (Tier, bool) {
	for t := TierSmall; t <= TierCorporation; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// TierSpec holds the fixed values of one company tier.
type TierSpec struct {
	BaseIncome   float64
	MaxEmployees int
	DataPerTick  float64 // GB
	CreationCost int64
	UnlockLevel  int
}

// Tiers is the company tier table.
var Tiers = map[Tier]TierSpec{
	TierSmall:       {BaseIncome: 50, MaxEmployees: 5, DataPerTick: 0.10, CreationCost: 1000, UnlockLevel: 1},
	TierMedium:      {BaseIncome: 200, MaxEmployees: 10, DataPerTick: 0.50, CreationCost: 10000, UnlockLevel: 10},
	TierLarge:       {BaseIncome: 800, MaxEmployees: 20, DataPerTick: 2.0, CreationCost: 50000, UnlockLevel: 20},
	TierCorporation: {BaseIncome: 3000, MaxEmployees: 50, DataPerTick: 8.0, CreationCost: 250000, UnlockLevel: 35},
}

// Company is a player-owned business. TotalIncome, TotalExpenses, NetProfit and the level thresholds
// are caches of the roster and are rewritten by Recompute after every mutation.
type Company struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Tier              Tier                 `json:"tier"`
	Level             int                  `json:"level"`
	OwnerID           string               `json:"owner_id"`
	CreatedAt         time.Time            `json:"created_at"`
	BaseIncome        float64              `json:"base_income"`
	MaxEmployees      int                  `json:"max_employees"`
	Employees         []*employee.Employee `json:"employees"`
	TotalIncome       float64              `json:"total_income"`
	TotalExpenses     int64                `json:"total_expenses"`
	NetProfit         float64              `json:"net_profit"`
	CumulativeIncome  float64              `json:"cumulative_income"`
	RequiredIncome    float64              `json:"required_income"`
	RequiredEmployees int                  `json:"required_employees"`
}

// New creates a level-1 company of tier with an empty roster.
func New(id, name string, tier Tier, ownerID string, now time.Time) (*Company, error) {
	spec, ok := Tiers[tier]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown company tier %d", int(tier))
	}
	c := &Company{
		ID:           id,
		Name:         name,
		Tier:         tier,
		Level:        1,
		OwnerID:      ownerID,
		CreatedAt:    now,
		BaseIncome:   spec.BaseIncome,
		MaxEmployees: spec.MaxEmployees,
	}
	c.Recompute()
	return c, nil
}

// DataPerTick is the data the company generates for its owner each settlement.
func (c *Company) DataPerTick() float64 {
	return Tiers[c.Tier].DataPerTick
}

// Find returns the employee with id, or nil.
func (c *Company) Find(id string) *employee.Employee {
	for _, e := range c.Employees {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Hire adds e to the roster. A full roster or a duplicate id is rejected without mutation.
func (c *Company) Hire(e *employee.Employee) error {
	if len(c.Employees) >= c.MaxEmployees {
		return reject.Capacity(reject.CodeRosterFull, "company %s already employs %d/%d", c.ID, len(c.Employees), c.MaxEmployees)
	}
	if c.Find(e.ID) != nil {
		return reject.State(reject.CodeAlreadyExists, "employee %s already works at company %s", e.ID, c.ID)
	}
	c.Employees = append(c.Employees, e)
	c.Recompute()
	return nil
}

// Dismiss removes the employee with id and returns it. Paying the compensation is the caller's job.
// An unknown id fails and leaves the ledger untouched.
func (c *Company) Dismiss(id string) (*employee.Employee, error) {
	for i, e := range c.Employees {
		if e.ID != id {
			continue
		}
		c.Employees = append(c.Employees[:i], c.Employees[i+1:]...)
		c.Recompute()
		return e, nil
	}
	return nil, reject.State(reject.CodeNotFound, "employee %s not found at company %s", id, c.ID)
}

// Recompute rewrites the derived fields from the roster. Idempotent.
func (c *Company) Recompute() {
	bonuses := make([]float64, 0, len(c.Employees))
	var expenses int64
	for _, e := range c.Employees {
		bonuses = append(bonuses, e.IncomeBonus)
		expenses += e.Salary
	}
	c.TotalExpenses = expenses
	c.TotalIncome = c.BaseIncome * rules.AggregateBonus(bonuses)
	c.NetProfit = c.TotalIncome - float64(expenses)
	c.RequiredIncome, c.RequiredEmployees = rules.NextLevelThresholds(c.BaseIncome, c.Level, c.MaxEmployees)
}

// Settle books one cycle of income and returns the rounded net profit owed to the owner.
// A negative result is a charge.
func (c *Company) Settle() int64 {
	c.Recompute()
	c.CumulativeIncome += c.TotalIncome
	return int64(math.Round(c.NetProfit))
}

// CanLevelUp reports whether both level thresholds are met.
func (c *Company) CanLevelUp() bool {
	return c.TotalIncome >= c.RequiredIncome && len(c.Employees) >= c.RequiredEmployees
}

// LevelUp advances one level and grows base income.
func (c *Company) LevelUp() error {
	if !c.CanLevelUp() {
		return reject.State(reject.CodeNotEligible,
			"company %s needs income %.2f (has %.2f) and %d employees (has %d)",
			c.ID, c.RequiredIncome, c.TotalIncome, c.RequiredEmployees, len(c.Employees))
	}
	c.Level++
	c.BaseIncome *= rules.LevelUpIncomeGrowth
	c.Recompute()
	return nil
}

// Validate checks the roster bound and each employee.
func (c *Company) Validate() error {
	if c.Level < 1 {
		return fmt.Errorf("company %s: level %d below 1", c.ID, c.Level)
	}
	if len(c.Employees) > c.MaxEmployees {
		return fmt.Errorf("company %s: %d employees exceed max %d", c.ID, len(c.Employees), c.MaxEmployees)
	}
	for _, e := range c.Employees {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("company %s: %w", c.ID, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Company) Clone() *Company {
	cp := *c
	cp.Employees = make([]*employee.Employee, len(c.Employees))
	for i, e := range c.Employees {
		cp.Employees[i] = e.Clone()
	}
	return &cp
}
