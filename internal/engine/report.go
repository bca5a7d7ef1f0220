package engine

import (
	"fmt"

	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
)

// Fault records one entity that failed during settlement. The rest of the tick still ran.
type Fault struct {
	Component string `json:"component"`
	EntityID  string `json:"entity_id"`
	Error     string `json:"error"`
}

// TickReport carries everything one session's settlement changed.
type TickReport struct {
	PlayerID        string                 `json:"player_id"`
	Tick            int64                  `json:"tick"`
	CurrencyBefore  int64                  `json:"currency_before"`
	CurrencyAfter   int64                  `json:"currency_after"`
	CompanyNet      int64                  `json:"company_net"`
	CompanyCharged  int64                  `json:"company_charged"`
	Shortfall       int64                  `json:"shortfall"`
	JobPayout       int64                  `json:"job_payout"`
	CyclesCompleted int                    `json:"cycles_completed"`
	MoodDelta       int64                  `json:"mood_delta"`
	DataGenerated   float64                `json:"data_generated"`
	StorageFull     bool                   `json:"storage_full"`
	StorageStatus   resource.StorageStatus `json:"storage_status"`
	LevelsGained    int                    `json:"levels_gained"`
	Faults          []Fault                `json:"faults,omitempty"`
}

// guard runs fn and turns an error or a panic into a Fault on the report.
func (r *TickReport) guard(component, entityID string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn()
	}()
	if err != nil {
		r.Faults = append(r.Faults, Fault{Component: component, EntityID: entityID, Error: err.Error()})
	}
}

// generate stores rate GB of data and tracks the outcome.
func (r *TickReport) generate(pool *resource.Pool, rate float64) bool {
	if rate <= 0 {
		return true
	}
	if !pool.GenerateData(rate) {
		r.StorageFull = true
		return false
	}
	r.DataGenerated += rate
	return true
}
