// Package engine - job_system.go
// Job System: starting, resigning and paying the jobs a player works.
package engine

import (
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/job"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
)

// JobPayload describes a job lifecycle change or a paid cycle.
type JobPayload struct {
	SlotID          int     `json:"slot_id"`
	JobID           string  `json:"job_id"`
	Payout          int64   `json:"payout,omitempty"`
	CyclesCompleted int     `json:"cycles_completed"`
	TotalEarned     int64   `json:"total_earned"`
	SkillMastery    float64 `json:"skill_mastery"`
	StorageFull     bool    `json:"storage_full,omitempty"`
}

// JobSystem owns job mutations for a session.
type JobSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewJobSystem creates the job system.
func NewJobSystem(eventLog *events.EventLog, log *logger.Logger) *JobSystem {
	return &JobSystem{eventLog: eventLog, logger: log}
}

// Start takes a job, reserving its resource requirements.
func (js *JobSystem) Start(s *Session, jobID string, now time.Time) (job.Instance, error) {
	inst, err := s.jobs.Start(jobID, s.player.Level, s.skills, s.pool, now)
	if err != nil {
		return job.Instance{}, err
	}
	if def, ok := s.jobs.Catalog().Get(jobID); ok {
		inst.SkillMastery = s.skills.MeanMastery(def.RequiredSkills)
	}
	emit(js.eventLog, events.EventTypeJobStarted, s, jobID, now, JobPayload{
		SlotID: inst.SlotID, JobID: jobID, SkillMastery: inst.SkillMastery,
	})
	return *inst, nil
}

// Resign leaves the job in slotID. Earnings already paid are kept.
func (js *JobSystem) Resign(s *Session, slotID int, now time.Time) (job.Instance, error) {
	inst, err := s.jobs.Resign(slotID, s.pool)
	if err != nil {
		return job.Instance{}, err
	}
	emit(js.eventLog, events.EventTypeJobResigned, s, inst.JobID, now, JobPayload{
		SlotID: inst.SlotID, JobID: inst.JobID, CyclesCompleted: inst.CompletedCycles, TotalEarned: inst.TotalEarned,
	})
	return *inst, nil
}

// Settle refreshes each job's mastery from its required skills, pays every completed cycle and stores
// the data the work produced. Full storage is reported but never withholds pay.
func (js *JobSystem) Settle(s *Session, report *TickReport, tickSeconds float64, now time.Time) {
	for _, inst := range s.jobs.Active() {
		report.guard("job", inst.JobID, func() error {
			def, ok := s.jobs.Catalog().Get(inst.JobID)
			if !ok {
				return reject.State(reject.CodeNotFound, "job %q missing from catalog", inst.JobID)
			}
			inst.SkillMastery = s.skills.MeanMastery(def.RequiredSkills)
			cycle := inst.Advance(def, tickSeconds)
			if cycle.Completed == 0 {
				return nil
			}
			if err := s.pool.EarnCurrency(cycle.Payout); err != nil {
				return err
			}
			report.JobPayout += cycle.Payout
			report.CyclesCompleted += cycle.Completed

			p := JobPayload{
				SlotID:          inst.SlotID,
				JobID:           inst.JobID,
				Payout:          cycle.Payout,
				CyclesCompleted: inst.CompletedCycles,
				TotalEarned:     inst.TotalEarned,
				SkillMastery:    inst.SkillMastery,
			}
			for i := 0; i < cycle.Completed; i++ {
				if !report.generate(s.pool, def.DataGeneration) {
					p.StorageFull = true
				}
			}
			emit(js.eventLog, events.EventTypeSalaryPaid, s, inst.JobID, now, p)
			return nil
		})
	}
}
