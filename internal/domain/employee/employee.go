// Package employee models company workers: AI agents and human proxies.
// This package is PURE and must NOT import any infrastructure packages.
package employee

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
)

// Kind tags the employee variant.
type Kind string

const (
	KindAI         Kind = "AI"
	KindHumanProxy Kind = "HUMAN_PROXY"
)

// AITier ranks AI employees.
type AITier int

const (
	TierCommon AITier = iota
	TierRare
	TierEpic
	TierLegendary
)

func (t AITier) String() string {
	switch t {
	case TierCommon:
		return "Common"
	case TierRare:
		return "Rare"
	case TierEpic:
		return "Epic"
	case TierLegendary:
		return "Legendary"
	default:
		return "Unknown"
	}
}

// ParseAITier maps a tier name to its AITier.
func ParseAITier(name string) (AITier, bool) {
	for t := TierCommon; t <= TierLegendary; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// AITierSpec holds the fixed game-design values of one AI tier.
type AITierSpec struct {
	BaseBonus            float64
	MaxLevel             int
	Salary               int64
	TrainingCostPerLevel int64
	HireCost             int64
}

// AITiers is the AI tier table.
var AITiers = map[AITier]AITierSpec{
	TierCommon:    {BaseBonus: 1.1, MaxLevel: 10, Salary: 5, TrainingCostPerLevel: 50, HireCost: 100},
	TierRare:      {BaseBonus: 1.3, MaxLevel: 20, Salary: 15, TrainingCostPerLevel: 150, HireCost: 500},
	TierEpic:      {BaseBonus: 1.6, MaxLevel: 30, Salary: 40, TrainingCostPerLevel: 400, HireCost: 2000},
	TierLegendary: {BaseBonus: 2.0, MaxLevel: 50, Salary: 100, TrainingCostPerLevel: 1000, HireCost: 10000},
}

// ProvidedResources is the hardware a human proxy brings along.
type ProvidedResources struct {
	Memory    float64 `json:"memory" validate:"gte=0"`
	CPU       float64 `json:"cpu" validate:"gte=0"`
	Bandwidth float64 `json:"bandwidth" validate:"gte=0"`
	Computing float64 `json:"computing" validate:"gte=0"`
}

// Value weighs the resources into a single score.
func (r ProvidedResources) Value() float64 {
	return rules.ResourceValue(r.Memory, r.CPU, r.Bandwidth, r.Computing)
}

// ProxyBonus is the income bonus of a human proxy at level offering r.
func ProxyBonus(level int, r ProvidedResources) float64 {
	return rules.HumanProxyBonus(level, r.Memory, r.CPU, r.Bandwidth, r.Computing)
}

// AIProfile is the AI-only payload.
type AIProfile struct {
	Tier                 AITier `json:"tier"`
	Level                int    `json:"level"`
	MaxLevel             int    `json:"max_level"`
	TrainingCostPerLevel int64  `json:"training_cost_per_level"`
}

// ProxyProfile is the human-proxy-only payload.
type ProxyProfile struct {
	LinkedPlayerID string            `json:"linked_player_id"`
	ResumeID       string            `json:"resume_id,omitempty"`
	ProxyLevel     int               `json:"proxy_level"`
	Resources      ProvidedResources `json:"resources"`
}

// Employee is a tagged variant: exactly one of AI or Proxy is set, matching Kind.
type Employee struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        Kind          `json:"kind"`
	HiredAt     time.Time     `json:"hired_at"`
	Salary      int64         `json:"salary"`
	IncomeBonus float64       `json:"income_bonus"`
	AI          *AIProfile    `json:"ai,omitempty"`
	Proxy       *ProxyProfile `json:"proxy,omitempty"`
}

// NewAI creates a level-1 AI employee of tier.
func NewAI(id, name string, tier AITier, hiredAt time.Time) (*Employee, error) {
	spec, ok := AITiers[tier]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown AI tier %d", int(tier))
	}
	return &Employee{
		ID:          id,
		Name:        name,
		Kind:        KindAI,
		HiredAt:     hiredAt,
		Salary:      spec.Salary,
		IncomeBonus: spec.BaseBonus,
		AI: &AIProfile{
			Tier:                 tier,
			Level:                1,
			MaxLevel:             spec.MaxLevel,
			TrainingCostPerLevel: spec.TrainingCostPerLevel,
		},
	}, nil
}

// NewHumanProxy creates a human proxy employee. Its bonus derives from level and resources.
func NewHumanProxy(id, name, linkedPlayerID string, level int, res ProvidedResources, salary int64, hiredAt time.Time) *Employee {
	return &Employee{
		ID:          id,
		Name:        name,
		Kind:        KindHumanProxy,
		HiredAt:     hiredAt,
		Salary:      salary,
		IncomeBonus: ProxyBonus(level, res),
		Proxy: &ProxyProfile{
			LinkedPlayerID: linkedPlayerID,
			ProxyLevel:     level,
			Resources:      res,
		},
	}
}

// TrainingCost is the price of the next training level.
func (e *Employee) TrainingCost() (int64, error) {
	if err := e.checkTrainable(); err != nil {
		return 0, err
	}
	return e.AI.TrainingCostPerLevel, nil
}

// Train raises an AI employee one level. Max-level employees are rejected untouched.
func (e *Employee) Train() error {
	if err := e.checkTrainable(); err != nil {
		return err
	}
	e.AI.Level++
	e.IncomeBonus = AITiers[e.AI.Tier].BaseBonus + float64(e.AI.Level-1)*rules.TrainingBonusStep
	return nil
}

func (e *Employee) checkTrainable() error {
	if e.Kind != KindAI || e.AI == nil {
		return reject.State(reject.CodeInvalidState, "employee %s is not an AI and cannot be trained", e.ID)
	}
	if e.AI.Level >= e.AI.MaxLevel {
		return reject.State(reject.CodeMaxLevel, "employee %s is already at max level %d", e.ID, e.AI.MaxLevel)
	}
	return nil
}

// DismissalCompensation is the payout owed when e is dismissed.
func (e *Employee) DismissalCompensation() int64 {
	return rules.DismissalCompensation(e.Salary)
}

// Validate checks the variant invariants.
func (e *Employee) Validate() error {
	if e.IncomeBonus < 1 {
		return fmt.Errorf("employee %s: income bonus %.3f below 1.0", e.ID, e.IncomeBonus)
	}
	switch e.Kind {
	case KindAI:
		if e.AI == nil || e.Proxy != nil {
			return fmt.Errorf("employee %s: AI payload mismatch", e.ID)
		}
		if e.AI.Level < 1 || e.AI.Level > e.AI.MaxLevel {
			return fmt.Errorf("employee %s: level %d outside 1..%d", e.ID, e.AI.Level, e.AI.MaxLevel)
		}
	case KindHumanProxy:
		if e.Proxy == nil || e.AI != nil {
			return fmt.Errorf("employee %s: proxy payload mismatch", e.ID)
		}
	default:
		return fmt.Errorf("employee %s: unknown kind %q", e.ID, e.Kind)
	}
	return nil
}

// Clone returns a deep copy.
func (e *Employee) Clone() *Employee {
	c := *e
	if e.AI != nil {
		ai := *e.AI
		c.AI = &ai
	}
	if e.Proxy != nil {
		p := *e.Proxy
		c.Proxy = &p
	}
	return &c
}
