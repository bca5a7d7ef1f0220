// Package engine - mood_system.go
// Mood System: housing and pets lift mood every tick.
package engine

import (
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/lifestyle"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
)

// MoodPayload records a mood change and where it came from.
type MoodPayload struct {
	Delta   int64    `json:"delta"`
	Mood    int64    `json:"mood"`
	Housing string   `json:"housing"`
	Pets    []string `json:"pets,omitempty"`
	Item    string   `json:"item,omitempty"`
}

// MoodSystem owns lifestyle purchases and the per-tick mood bonus.
type MoodSystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewMoodSystem creates the mood system.
func NewMoodSystem(eventLog *events.EventLog, log *logger.Logger) *MoodSystem {
	return &MoodSystem{eventLog: eventLog, logger: log}
}

// MoveIn buys a new home.
func (ms *MoodSystem) MoveIn(s *Session, id lifestyle.ItemID) error {
	return s.lifestyle.MoveIn(id, s.player.Level, s.pool)
}

// Adopt buys a pet.
func (ms *MoodSystem) Adopt(s *Session, id lifestyle.ItemID) error {
	return s.lifestyle.Adopt(id, s.player.Level, s.pool)
}

// Rehome gives a pet away.
func (ms *MoodSystem) Rehome(s *Session, id lifestyle.ItemID) error {
	return s.lifestyle.Rehome(id)
}

// Settle applies the summed mood bonus of the player's home and pets.
func (ms *MoodSystem) Settle(s *Session, report *TickReport, now time.Time) {
	report.guard("mood", s.player.ID, func() error {
		delta := s.lifestyle.MoodBonus()
		if delta == 0 {
			return nil
		}
		s.pool.ChangeMood(delta)
		report.MoodDelta += delta

		pets := make([]string, len(s.lifestyle.Pets))
		for i, p := range s.lifestyle.Pets {
			pets[i] = string(p)
		}
		emit(ms.eventLog, events.EventTypeMoodApplied, s, s.player.ID, now, MoodPayload{
			Delta: delta, Mood: s.pool.Mood(), Housing: string(s.lifestyle.Housing), Pets: pets,
		})
		return nil
	})
}
