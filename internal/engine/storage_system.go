// Package engine - storage_system.go
// Storage System: base activity data, fill-level warnings and data clean-up.
package engine

import (
	"math"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
)

// StorageWarningPayload reports a storage threshold crossing.
type StorageWarningPayload struct {
	Status       resource.StorageStatus `json:"status"`
	UsagePercent float64                `json:"usage_percent"`
	UsedGB       float64                `json:"used_gb"`
	CapacityGB   float64                `json:"capacity_gb"`
}

// StorageSystem tracks the player's disk.
type StorageSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewStorageSystem creates the storage system.
func NewStorageSystem(eventLog *events.EventLog, log *logger.Logger) *StorageSystem {
	return &StorageSystem{eventLog: eventLog, logger: log}
}

// Settle stores the data produced by the player's own activity. Busier machines produce more.
func (st *StorageSystem) Settle(s *Session, report *TickReport) {
	report.guard("storage", s.player.ID, func() error {
		report.generate(s.pool, rules.BaseActivityData(s.pool.AverageIdlePercent()))
		return nil
	})
}

// CheckThresholds raises a warning when storage moves into a fuller band.
func (st *StorageSystem) CheckThresholds(s *Session, now time.Time) resource.StorageStatus {
	status := s.pool.StorageStatus()
	prev := s.storage
	s.storage = status
	if status == prev || status == resource.StorageNormal {
		return status
	}
	if prev == resource.StorageFull && status == resource.StorageNearFull {
		return status
	}
	p := StorageWarningPayload{
		Status:       status,
		UsagePercent: s.pool.UsagePercent(resource.Storage),
		UsedGB:       s.pool.Usage(resource.Storage),
		CapacityGB:   s.pool.Capacity(resource.Storage),
	}
	emit(st.eventLog, events.EventTypeStorageWarning, s, s.player.ID, now, p)
	st.logger.Warn("storage threshold crossed", "player", s.player.ID, "status", string(status), "percent", p.UsagePercent)
	return status
}

// ClearData deletes up to gb of generated data. Storage held by skill files is never touched.
func (st *StorageSystem) ClearData(s *Session, gb float64, now time.Time) (float64, error) {
	if gb <= 0 || math.IsNaN(gb) {
		return 0, reject.State(reject.CodeInvalidAmount, "amount to clear must be positive, got %v", gb)
	}
	generated := math.Max(0, s.pool.Usage(resource.Storage)-s.skills.ReservedStorage())
	cleared := math.Min(gb, generated)
	s.pool.ReleaseStorage(cleared)
	st.CheckThresholds(s, now)
	return cleared, nil
}
