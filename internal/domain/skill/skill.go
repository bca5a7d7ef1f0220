package skill

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
)

// Status is the acquisition state of a skill for one player.
type Status string

const (
	StatusLocked      Status = "LOCKED"
	StatusAvailable   Status = "AVAILABLE"
	StatusDownloading Status = "DOWNLOADING"
	StatusInstalled   Status = "INSTALLED"
)

// Instance is a purchased skill. Locked and Available skills have no instance.
type Instance struct {
	SkillID            string    `json:"skill_id"`
	Status             Status    `json:"status"`
	AcquiredAt         time.Time `json:"acquired_at"`
	DownloadProgress   float64   `json:"download_progress"`
	AllocatedComputing float64   `json:"allocated_computing"`
	MasteryPercent     float64   `json:"mastery_percent"`
	InUse              bool      `json:"in_use"`
	PricePaid          int64     `json:"price_paid"`
	FileSizeGB         float64   `json:"file_size_gb"`
}

// Installed reports whether the skill is usable.
func (i *Instance) Installed() bool { return i.Status == StatusInstalled }

// Set is one player's skills. It mutates the player's pool for storage, currency and computing.
type Set struct {
	catalog   *Catalog
	instances map[string]*Instance
}

// NewSet restores a set from persisted instances. Instances unknown to the catalog are dropped.
func NewSet(catalog *Catalog, instances []Instance) *Set {
	s := &Set{catalog: catalog, instances: make(map[string]*Instance, len(instances))}
	for _, inst := range instances {
		if _, ok := catalog.Get(inst.SkillID); !ok {
			continue
		}
		cp := inst
		s.instances[inst.SkillID] = &cp
	}
	return s
}

// Catalog returns the definitions backing the set.
func (s *Set) Catalog() *Catalog { return s.catalog }

// Get returns the instance for skillID, or nil.
func (s *Set) Get(skillID string) *Instance {
	return s.instances[skillID]
}

// Instances returns copies of all instances ordered by skill id.
func (s *Set) Instances() []Instance {
	out := make([]Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

// StatusOf reports the acquisition state of skillID for a player at level.
func (s *Set) StatusOf(skillID string, level int) Status {
	if inst, ok := s.instances[skillID]; ok {
		return inst.Status
	}
	def, ok := s.catalog.Get(skillID)
	if !ok || level < def.UnlockLevel {
		return StatusLocked
	}
	if def.PrerequisiteID != "" && !s.IsInstalled(def.PrerequisiteID) {
		return StatusLocked
	}
	return StatusAvailable
}

// IsInstalled reports whether skillID is installed.
func (s *Set) IsInstalled(skillID string) bool {
	inst, ok := s.instances[skillID]
	return ok && inst.Installed()
}

// Purchase debits the price, reserves the file's storage and starts the download.
// Every precondition is checked before anything is mutated.
func (s *Set) Purchase(skillID string, level int, pool *resource.Pool, now time.Time) (*Instance, error) {
	def, ok := s.catalog.Get(skillID)
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown skill %q", skillID)
	}
	if _, owned := s.instances[skillID]; owned {
		return nil, reject.State(reject.CodeAlreadyExists, "skill %q already purchased", skillID)
	}
	if level < def.UnlockLevel {
		return nil, reject.State(reject.CodeLevelTooLow, "skill %q unlocks at level %d, player is %d", skillID, def.UnlockLevel, level)
	}
	if def.PrerequisiteID != "" && !s.IsInstalled(def.PrerequisiteID) {
		return nil, reject.State(reject.CodeMissingPrerequisite, "skill %q requires %q installed", skillID, def.PrerequisiteID)
	}
	if pool.Currency() < def.Price {
		return nil, reject.Capacity(reject.CodeInsufficientCurrency, "skill %q costs %d, balance %d", skillID, def.Price, pool.Currency())
	}
	if pool.Available(resource.Storage) < def.FileSizeGB {
		return nil, reject.Capacity(reject.CodeInsufficientStorage, "skill %q needs %.2f GB, %.2f GB free",
			skillID, def.FileSizeGB, pool.Available(resource.Storage))
	}
	if !pool.ReserveStorage(def.FileSizeGB) {
		return nil, reject.Capacity(reject.CodeInsufficientStorage, "skill %q storage reservation failed", skillID)
	}
	if !pool.TrySpendCurrency(def.Price) {
		pool.ReleaseStorage(def.FileSizeGB)
		return nil, reject.Capacity(reject.CodeInsufficientCurrency, "skill %q payment failed", skillID)
	}
	inst := &Instance{
		SkillID:    skillID,
		Status:     StatusDownloading,
		AcquiredAt: now,
		PricePaid:  def.Price,
		FileSizeGB: def.FileSizeGB,
	}
	s.instances[skillID] = inst
	return inst, nil
}

// DownloadDuration is how long skillID takes to download at bandwidthMbps.
func (s *Set) DownloadDuration(skillID string, bandwidthMbps float64) (time.Duration, error) {
	def, ok := s.catalog.Get(skillID)
	if !ok {
		return 0, reject.State(reject.CodeNotFound, "unknown skill %q", skillID)
	}
	secs := rules.DownloadSeconds(def.FileSizeGB, bandwidthMbps)
	if math.IsInf(secs, 1) {
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// AdvanceDownload moves the download forward by deltaSeconds at bandwidthMbps.
// It reports whether this call completed the download.
func (s *Set) AdvanceDownload(skillID string, deltaSeconds, bandwidthMbps float64) (bool, error) {
	inst, ok := s.instances[skillID]
	if !ok {
		return false, reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	if inst.Status != StatusDownloading {
		return false, reject.State(reject.CodeInvalidState, "skill %q is %s, not downloading", skillID, inst.Status)
	}
	if deltaSeconds <= 0 {
		return false, nil
	}
	total := rules.DownloadSeconds(inst.FileSizeGB, bandwidthMbps)
	if math.IsInf(total, 1) {
		return false, nil
	}
	step := 100.0
	if total > 0 {
		step = deltaSeconds / total * 100
	}
	inst.DownloadProgress = math.Min(100, inst.DownloadProgress+step)
	if inst.DownloadProgress < 100 {
		return false, nil
	}
	inst.Status = StatusInstalled
	inst.MasteryPercent = rules.MasteryFloor
	return true, nil
}

// CancelDownload abandons an in-flight download, refunding the price and freeing its storage.
func (s *Set) CancelDownload(skillID string, pool *resource.Pool) error {
	inst, ok := s.instances[skillID]
	if !ok {
		return reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	if inst.Status != StatusDownloading {
		return reject.State(reject.CodeInvalidState, "skill %q is %s, not downloading", skillID, inst.Status)
	}
	pool.ReleaseStorage(inst.FileSizeGB)
	if err := pool.EarnCurrency(inst.PricePaid); err != nil {
		return fmt.Errorf("refund skill %q: %w", skillID, err)
	}
	delete(s.instances, skillID)
	return nil
}

// AllocateComputing sets the computing assigned to an installed skill and recomputes its mastery.
// The difference is drawn from or returned to pool; the total across skills never exceeds capacity.
func (s *Set) AllocateComputing(skillID string, amount float64, pool *resource.Pool) error {
	inst, ok := s.instances[skillID]
	if !ok {
		return reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	if !inst.Installed() {
		return reject.State(reject.CodeInvalidState, "skill %q is %s, not installed", skillID, inst.Status)
	}
	if amount < 0 || math.IsNaN(amount) {
		return reject.State(reject.CodeInvalidAmount, "computing allocation must be non-negative, got %v", amount)
	}
	capacity := pool.Capacity(resource.Computing)
	if s.TotalAllocated()-inst.AllocatedComputing+amount > capacity+1e-9 {
		return reject.Capacity(reject.CodeInsufficientResource,
			"allocating %.2f TFLOPS to %q exceeds computing capacity %.2f", amount, skillID, capacity)
	}
	delta := amount - inst.AllocatedComputing
	switch {
	case delta > 0:
		if !pool.TryAllocate(0, 0, 0, delta) {
			return reject.Capacity(reject.CodeInsufficientResource,
				"only %.2f TFLOPS free, %.2f more requested for %q", pool.Available(resource.Computing), delta, skillID)
		}
	case delta < 0:
		pool.Release(0, 0, 0, -delta)
	}
	def, _ := s.catalog.Get(skillID)
	inst.AllocatedComputing = amount
	inst.MasteryPercent = rules.Mastery(amount, def.Max100, def.Max200)
	return nil
}

// TotalAllocated sums the computing assigned across skills.
func (s *Set) TotalAllocated() float64 {
	var total float64
	for _, inst := range s.instances {
		total += inst.AllocatedComputing
	}
	return total
}

// SetInUse flags an installed skill as actively used.
func (s *Set) SetInUse(skillID string, inUse bool) error {
	inst, ok := s.instances[skillID]
	if !ok {
		return reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	if !inst.Installed() {
		return reject.State(reject.CodeInvalidState, "skill %q is %s, not installed", skillID, inst.Status)
	}
	inst.InUse = inUse
	return nil
}

// Mastery returns the mastery of skillID, 0 when it is not installed.
func (s *Set) Mastery(skillID string) float64 {
	inst, ok := s.instances[skillID]
	if !ok || !inst.Installed() {
		return 0
	}
	return inst.MasteryPercent
}

// MeanMastery averages the mastery of skillIDs. An empty list yields 100.
func (s *Set) MeanMastery(skillIDs []string) float64 {
	if len(skillIDs) == 0 {
		return 100
	}
	var sum float64
	for _, id := range skillIDs {
		sum += s.Mastery(id)
	}
	return sum / float64(len(skillIDs))
}

// Downloading returns the ids of skills still downloading, sorted.
func (s *Set) Downloading() []string {
	var ids []string
	for id, inst := range s.instances {
		if inst.Status == StatusDownloading {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ReservedStorage is the storage held by purchased skill files.
func (s *Set) ReservedStorage() float64 {
	var total float64
	for _, inst := range s.instances {
		total += inst.FileSizeGB
	}
	return total
}
