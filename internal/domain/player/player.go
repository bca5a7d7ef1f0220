// Package player defines the player profile that gates unlocks and job slots.
// This package is PURE and must NOT import any infrastructure packages.
package player

import (
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/rules"
)

// ExperiencePerTick is granted to every player on each settlement.
const ExperiencePerTick = 10

// Player is the progression state of a participant.
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Experience int64     `json:"experience"` // toward the next level
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a level-1 player.
func New(id, name string, now time.Time) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Level:     1,
		CreatedAt: now,
	}
}

// GainExperience adds xp and returns how many levels were gained.
func (p *Player) GainExperience(xp int64) int {
	if xp <= 0 {
		return 0
	}
	p.Experience += xp
	gained := 0
	for p.Experience >= rules.ExperienceForLevel(p.Level) {
		p.Experience -= rules.ExperienceForLevel(p.Level)
		p.Level++
		gained++
	}
	return gained
}

// JobSlots is how many jobs the player may hold at once.
func (p *Player) JobSlots() int {
	return rules.JobSlots(p.Level)
}

// ExperienceToNext is what remains until the next level.
func (p *Player) ExperienceToNext() int64 {
	return rules.ExperienceForLevel(p.Level) - p.Experience
}
