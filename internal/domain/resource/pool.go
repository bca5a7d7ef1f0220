// Package resource owns a player's hardware capacities, currency and mood.
// This package is PURE and must NOT import any infrastructure packages.
package resource

import (
	"math"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
)

// Kind identifies one hardware resource.
type Kind int

const (
	Memory Kind = iota
	CPU
	Bandwidth
	Computing
	Storage
)

const kindCount = 5

// Allocatable lists the resources that jobs and skills reserve. Storage fills through data generation instead.
var Allocatable = []Kind{Memory, CPU, Bandwidth, Computing}

func (k Kind) String() string {
	switch k {
	case Memory:
		return "memory"
	case CPU:
		return "cpu"
	case Bandwidth:
		return "bandwidth"
	case Computing:
		return "computing"
	case Storage:
		return "storage"
	default:
		return "unknown"
	}
}

// ParseKind maps a resource name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k := Memory; k <= Storage; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Storage fill thresholds.
const (
	StorageNearFullRatio = 0.80
	StorageFullRatio     = 0.95
)

// StorageStatus buckets storage usage against the near-full and full thresholds.
type StorageStatus string

const (
	StorageNormal   StorageStatus = "NORMAL"
	StorageNearFull StorageStatus = "NEAR_FULL"
	StorageFull     StorageStatus = "FULL"
)

// Amounts is a four-resource request or reservation (memory GB, CPU cores, bandwidth Mbps, computing TFLOPS).
type Amounts struct {
	Memory    float64 `json:"memory" validate:"gte=0"`
	CPU       float64 `json:"cpu" validate:"gte=0"`
	Bandwidth float64 `json:"bandwidth" validate:"gte=0"`
	Computing float64 `json:"computing" validate:"gte=0"`
}

// IsZero reports whether every amount is zero.
func (a Amounts) IsZero() bool {
	return a.Memory == 0 && a.CPU == 0 && a.Bandwidth == 0 && a.Computing == 0
}

func (a Amounts) values() [4]float64 {
	return [4]float64{a.Memory, a.CPU, a.Bandwidth, a.Computing}
}

// State is the persisted field set of a Pool.
type State struct {
	MemoryTotal    float64 `json:"memory_total"`
	MemoryUsed     float64 `json:"memory_used"`
	CPUTotal       float64 `json:"cpu_total"`
	CPUUsed        float64 `json:"cpu_used"`
	BandwidthTotal float64 `json:"bandwidth_total"`
	BandwidthUsed  float64 `json:"bandwidth_used"`
	ComputingTotal float64 `json:"computing_total"`
	ComputingUsed  float64 `json:"computing_used"`
	StorageTotal   float64 `json:"storage_total"`
	StorageUsed    float64 `json:"storage_used"`
	Currency       int64   `json:"currency"`
	Mood           int64   `json:"mood"`
}

// DefaultState is the starting pool of a new player.
func DefaultState() State {
	return State{
		MemoryTotal:    8,
		CPUTotal:       4,
		BandwidthTotal: 100,
		ComputingTotal: 10,
		StorageTotal:   256,
		Currency:       1000,
		Mood:           50,
	}
}

// Pool holds capacity/usage pairs plus currency and mood.
// Usage never exceeds capacity for the allocatable resources; it is mutated only through the methods below.
type Pool struct {
	capacity [kindCount]float64
	usage    [kindCount]float64
	currency int64
	mood     int64
}

// New builds a pool from a persisted state. Negative values are floored at zero.
func New(st State) *Pool {
	p := &Pool{currency: max(st.Currency, 0), mood: st.Mood}
	caps := [kindCount]float64{st.MemoryTotal, st.CPUTotal, st.BandwidthTotal, st.ComputingTotal, st.StorageTotal}
	used := [kindCount]float64{st.MemoryUsed, st.CPUUsed, st.BandwidthUsed, st.ComputingUsed, st.StorageUsed}
	for i := range caps {
		p.capacity[i] = quantize(math.Max(caps[i], 0))
		p.usage[i] = quantize(math.Max(used[i], 0))
	}
	return p
}

// State exports the pool for persistence.
func (p *Pool) State() State {
	return State{
		MemoryTotal:    p.capacity[Memory],
		MemoryUsed:     p.usage[Memory],
		CPUTotal:       p.capacity[CPU],
		CPUUsed:        p.usage[CPU],
		BandwidthTotal: p.capacity[Bandwidth],
		BandwidthUsed:  p.usage[Bandwidth],
		ComputingTotal: p.capacity[Computing],
		ComputingUsed:  p.usage[Computing],
		StorageTotal:   p.capacity[Storage],
		StorageUsed:    p.usage[Storage],
		Currency:       p.currency,
		Mood:           p.mood,
	}
}

// TryAllocate reserves all four amounts or nothing.
func (p *Pool) TryAllocate(memory, cpu, bandwidth, computing float64) bool {
	req := [4]float64{quantize(memory), quantize(cpu), quantize(bandwidth), quantize(computing)}
	for i, amount := range req {
		if amount < 0 || amount > p.Available(Kind(i)) {
			return false
		}
	}
	for i, amount := range req {
		p.usage[i] = quantize(p.usage[i] + amount)
	}
	return true
}

// Allocate is TryAllocate for an Amounts value.
func (p *Pool) Allocate(a Amounts) bool {
	return p.TryAllocate(a.Memory, a.CPU, a.Bandwidth, a.Computing)
}

// Release returns reserved amounts. Usage is floored at zero even when over-released.
func (p *Pool) Release(memory, cpu, bandwidth, computing float64) {
	for i, amount := range [4]float64{memory, cpu, bandwidth, computing} {
		if amount <= 0 {
			continue
		}
		p.usage[i] = quantize(math.Max(p.usage[i]-quantize(amount), 0))
	}
}

// ReleaseAmounts is Release for an Amounts value.
func (p *Pool) ReleaseAmounts(a Amounts) {
	p.Release(a.Memory, a.CPU, a.Bandwidth, a.Computing)
}

// UpgradeCapacity raises the capacity of one resource. There is no upper bound.
func (p *Pool) UpgradeCapacity(kind Kind, amount float64) error {
	if kind < Memory || kind > Storage {
		return reject.State(reject.CodeNotFound, "unknown resource kind %d", int(kind))
	}
	if amount < 0 || math.IsNaN(amount) {
		return reject.State(reject.CodeInvalidAmount, "capacity upgrade must be non-negative, got %v", amount)
	}
	p.capacity[kind] = quantize(p.capacity[kind] + amount)
	return nil
}

// EarnCurrency credits the balance.
func (p *Pool) EarnCurrency(amount int64) error {
	if amount < 0 {
		return reject.State(reject.CodeInvalidAmount, "earned amount must be non-negative, got %d", amount)
	}
	p.currency += amount
	return nil
}

// TrySpendCurrency debits amount iff the balance covers it.
func (p *Pool) TrySpendCurrency(amount int64) bool {
	if amount < 0 || p.currency < amount {
		return false
	}
	p.currency -= amount
	return true
}

// ChangeMood adds delta without clamping.
func (p *Pool) ChangeMood(delta int64) {
	p.mood += delta
}

// GenerateData stores rate GB of generated data iff free storage covers it.
// A false return is the storage-full path; surfacing it is the caller's job.
func (p *Pool) GenerateData(rate float64) bool {
	return p.ReserveStorage(rate)
}

// ReserveStorage occupies gb of storage iff free storage covers it.
func (p *Pool) ReserveStorage(gb float64) bool {
	gb = quantize(gb)
	if gb < 0 || gb > p.Available(Storage) {
		return false
	}
	p.usage[Storage] = quantize(p.usage[Storage] + gb)
	return true
}

// ReleaseStorage frees gb of storage, floored at zero. Used for cancelled downloads and data clean-up.
func (p *Pool) ReleaseStorage(gb float64) {
	if gb <= 0 {
		return
	}
	p.usage[Storage] = quantize(math.Max(p.usage[Storage]-quantize(gb), 0))
}

// Capacity returns the total of one resource.
func (p *Pool) Capacity(kind Kind) float64 { return p.capacity[kind] }

// Usage returns the used amount of one resource.
func (p *Pool) Usage(kind Kind) float64 { return p.usage[kind] }

// Available returns capacity minus usage, never negative.
func (p *Pool) Available(kind Kind) float64 {
	return math.Max(quantize(p.capacity[kind]-p.usage[kind]), 0)
}

// UsagePercent returns usage as a percentage of capacity. A zero-capacity resource reports 0.
func (p *Pool) UsagePercent(kind Kind) float64 {
	if p.capacity[kind] <= 0 {
		return 0
	}
	return p.usage[kind] / p.capacity[kind] * 100
}

// IdlePercent is 100 minus UsagePercent.
func (p *Pool) IdlePercent(kind Kind) float64 {
	return 100 - p.UsagePercent(kind)
}

// AverageIdlePercent is the arithmetic mean of the idle percentages of the allocatable resources.
func (p *Pool) AverageIdlePercent() float64 {
	var sum float64
	for _, k := range Allocatable {
		sum += p.IdlePercent(k)
	}
	return sum / float64(len(Allocatable))
}

// StorageStatus classifies storage fill.
func (p *Pool) StorageStatus() StorageStatus {
	if p.capacity[Storage] <= 0 {
		return StorageFull
	}
	ratio := p.usage[Storage] / p.capacity[Storage]
	switch {
	case ratio >= StorageFullRatio:
		return StorageFull
	case ratio >= StorageNearFullRatio:
		return StorageNearFull
	default:
		return StorageNormal
	}
}

// Currency returns the balance.
func (p *Pool) Currency() int64 { return p.currency }

// Mood returns the current mood.
func (p *Pool) Mood() int64 { return p.mood }

// quantize snaps a value to a 1e-9 grid so that allocate/release round trips restore usage exactly.
func quantize(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
