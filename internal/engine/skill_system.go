// Package engine - skill_system.go
// Skill System: purchases, downloads and computing allocation for player skills.
package engine

import (
	"math"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/skill"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
)

// SkillPayload describes a skill acquisition change.
type SkillPayload struct {
	SkillID          string  `json:"skill_id"`
	Price            int64   `json:"price,omitempty"`
	FileSizeGB       float64 `json:"file_size_gb,omitempty"`
	DownloadSeconds  float64 `json:"download_seconds,omitempty"`
	Progress         float64 `json:"progress"`
	MasteryPercent   float64 `json:"mastery_percent,omitempty"`
	AllocatedCompute float64 `json:"allocated_computing,omitempty"`
}

// progressMilestones are the download percentages announced before completion.
var progressMilestones = []float64{25, 50, 75}

// SkillSystem owns skill mutations for a session.
type SkillSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewSkillSystem creates the skill system.
func NewSkillSystem(eventLog *events.EventLog, log *logger.Logger, m *metrics.Collector) *SkillSystem {
	return &SkillSystem{eventLog: eventLog, logger: log, metrics: m}
}

// Purchase buys skillID and starts its download.
func (ss *SkillSystem) Purchase(s *Session, skillID string, now time.Time) (skill.Instance, error) {
	inst, err := s.skills.Purchase(skillID, s.player.Level, s.pool, now)
	if err != nil {
		return skill.Instance{}, err
	}
	eta, _ := s.skills.DownloadDuration(skillID, s.pool.Capacity(resource.Bandwidth))
	emit(ss.eventLog, events.EventTypeSkillPurchased, s, skillID, now, SkillPayload{
		SkillID:         skillID,
		Price:           inst.PricePaid,
		FileSizeGB:      inst.FileSizeGB,
		DownloadSeconds: eta.Seconds(),
	})
	return *inst, nil
}

// Cancel abandons a download, refunding its price and storage.
func (ss *SkillSystem) Cancel(s *Session, skillID string, now time.Time) error {
	inst := s.skills.Get(skillID)
	if inst == nil {
		return reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	p := SkillPayload{SkillID: skillID, Price: inst.PricePaid, FileSizeGB: inst.FileSizeGB, Progress: inst.DownloadProgress}
	if err := s.skills.CancelDownload(skillID, s.pool); err != nil {
		return err
	}
	emit(ss.eventLog, events.EventTypeDownloadCancelled, s, skillID, now, p)
	return nil
}

// Allocate assigns computing to an installed skill.
func (ss *SkillSystem) Allocate(s *Session, skillID string, amount float64, now time.Time) (skill.Instance, error) {
	if err := s.skills.AllocateComputing(skillID, amount, s.pool); err != nil {
		return skill.Instance{}, err
	}
	inst := s.skills.Get(skillID)
	emit(ss.eventLog, events.EventTypeComputingAllocated, s, skillID, now, SkillPayload{
		SkillID:          skillID,
		Progress:         inst.DownloadProgress,
		MasteryPercent:   inst.MasteryPercent,
		AllocatedCompute: inst.AllocatedComputing,
	})
	return *inst, nil
}

// SetInUse flags an installed skill.
func (ss *SkillSystem) SetInUse(s *Session, skillID string, inUse bool) error {
	return s.skills.SetInUse(skillID, inUse)
}

// Advance moves one download forward. Milestones and completion are announced.
func (ss *SkillSystem) Advance(s *Session, skillID string, delta time.Duration, now time.Time) (bool, error) {
	inst := s.skills.Get(skillID)
	if inst == nil {
		return false, reject.State(reject.CodeNotFound, "skill %q not purchased", skillID)
	}
	before := inst.DownloadProgress
	done, err := s.skills.AdvanceDownload(skillID, delta.Seconds(), s.pool.Capacity(resource.Bandwidth))
	if err != nil {
		return false, err
	}
	if done {
		emit(ss.eventLog, events.EventTypeDownloadCompleted, s, skillID, now, SkillPayload{
			SkillID: skillID, Progress: 100, MasteryPercent: inst.MasteryPercent,
		})
		ss.metrics.RecordDownloadCompleted()
		return true, nil
	}
	if m, crossed := crossedMilestone(before, inst.DownloadProgress); crossed {
		emit(ss.eventLog, events.EventTypeDownloadProgress, s, skillID, now, SkillPayload{SkillID: skillID, Progress: m})
	}
	return false, nil
}

// AdvanceAll moves every in-flight download forward and returns the ones that completed.
func (ss *SkillSystem) AdvanceAll(s *Session, delta time.Duration, now time.Time) []string {
	var completed []string
	for _, id := range s.skills.Downloading() {
		done, err := ss.Advance(s, id, delta, now)
		if err != nil {
			ss.logger.Warn("download advance failed", "player", s.player.ID, "skill", id, "error", err)
			continue
		}
		if done {
			completed = append(completed, id)
		}
	}
	return completed
}

// crossedMilestone returns the highest milestone in (before, after].
func crossedMilestone(before, after float64) (float64, bool) {
	best := math.NaN()
	for _, m := range progressMilestones {
		if before < m && after >= m {
			best = m
		}
	}
	return best, !math.IsNaN(best)
}
