package job

import (
	"sort"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
)

// Instance is a job a player works in one slot.
type Instance struct {
	SlotID          int              `json:"slot_id"`
	JobID           string           `json:"job_id"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedCycles int              `json:"completed_cycles"`
	TotalEarned     int64            `json:"total_earned"`
	SkillMastery    float64          `json:"skill_mastery"`
	Reserved        resource.Amounts `json:"reserved"`
	Elapsed         float64          `json:"elapsed"` // seconds accrued toward the next pay cycle
}

// Cycle is the outcome of advancing a job.
type Cycle struct {
	Completed int
	Payout    int64
}

// Advance accrues elapsed seconds and completes every pay cycle that became due.
func (i *Instance) Advance(def Definition, seconds float64) Cycle {
	interval := float64(def.PayInterval)
	if interval <= 0 {
		interval = DefaultPayInterval
	}
	i.Elapsed += seconds
	var c Cycle
	for i.Elapsed >= interval {
		i.Elapsed -= interval
		pay := rules.JobPayout(def.BaseSalary, i.SkillMastery)
		i.CompletedCycles++
		i.TotalEarned += pay
		c.Completed++
		c.Payout += pay
	}
	return c
}

// SkillChecker reports whether a skill is installed.
type SkillChecker interface {
	IsInstalled(skillID string) bool
}

// Roster is the set of jobs one player holds, keyed by slot.
type Roster struct {
	catalog *Catalog
	slots   map[int]*Instance
}

// NewRoster restores a roster from persisted instances. Instances unknown to the catalog are dropped.
func NewRoster(catalog *Catalog, instances []Instance) *Roster {
	r := &Roster{catalog: catalog, slots: make(map[int]*Instance, len(instances))}
	for _, inst := range instances {
		if _, ok := catalog.Get(inst.JobID); !ok {
			continue
		}
		cp := inst
		r.slots[inst.SlotID] = &cp
	}
	return r
}

// Catalog returns the definitions backing the roster.
func (r *Roster) Catalog() *Catalog { return r.catalog }

// Get returns the instance in slotID, or nil.
func (r *Roster) Get(slotID int) *Instance { return r.slots[slotID] }

// Instances returns copies ordered by slot.
func (r *Roster) Instances() []Instance {
	out := make([]Instance, 0, len(r.slots))
	for _, inst := range r.slots {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

// Active returns live instances ordered by slot.
func (r *Roster) Active() []*Instance {
	out := make([]*Instance, 0, len(r.slots))
	for _, inst := range r.slots {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

// Start takes jobID into the first free slot. A rejected start reserves nothing.
func (r *Roster) Start(jobID string, level int, skills SkillChecker, pool *resource.Pool, now time.Time) (*Instance, error) {
	def, ok := r.catalog.Get(jobID)
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown job %q", jobID)
	}
	if level < def.UnlockLevel {
		return nil, reject.State(reject.CodeLevelTooLow, "job %q unlocks at level %d, player is %d", jobID, def.UnlockLevel, level)
	}
	for _, sid := range def.RequiredSkills {
		if !skills.IsInstalled(sid) {
			return nil, reject.State(reject.CodeMissingSkill, "job %q requires skill %q installed", jobID, sid)
		}
	}
	for _, inst := range r.slots {
		if inst.JobID == jobID {
			return nil, reject.State(reject.CodeAlreadyExists, "job %q already worked in slot %d", jobID, inst.SlotID)
		}
	}
	slot, ok := r.freeSlot(rules.JobSlots(level))
	if !ok {
		return nil, reject.Capacity(reject.CodeNoJobSlot, "all %d job slots are taken", rules.JobSlots(level))
	}
	if !pool.Allocate(def.Requirements) {
		return nil, reject.Capacity(reject.CodeInsufficientResource,
			"job %q needs memory %.2f cpu %.2f bandwidth %.2f computing %.2f", jobID,
			def.Requirements.Memory, def.Requirements.CPU, def.Requirements.Bandwidth, def.Requirements.Computing)
	}
	inst := &Instance{
		SlotID:       slot,
		JobID:        jobID,
		StartedAt:    now,
		SkillMastery: 100,
		Reserved:     def.Requirements,
	}
	r.slots[slot] = inst
	return inst, nil
}

func (r *Roster) freeSlot(slots int) (int, bool) {
	for s := 0; s < slots; s++ {
		if _, taken := r.slots[s]; !taken {
			return s, true
		}
	}
	return 0, false
}

// Resign leaves the job in slotID and returns its reservation to pool.
func (r *Roster) Resign(slotID int, pool *resource.Pool) (*Instance, error) {
	inst, ok := r.slots[slotID]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "no job in slot %d", slotID)
	}
	pool.ReleaseAmounts(inst.Reserved)
	delete(r.slots, slotID)
	return inst, nil
}
