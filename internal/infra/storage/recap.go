// Package storage - recap.go
// Offline recap: what happened to a player's economy while they were away.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
)

// Recap rebuilds an offline summary from the event log.
type Recap struct {
	eventRepo EventRepository
}

// NewRecap creates a recap reader.
func NewRecap(eventRepo EventRepository) *Recap {
	return &Recap{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the "while you were away" screen.
type RecapEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"`
	Impact    string    `json:"impact"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Summary totals a player's economy over the recap window.
type Summary struct {
	PlayerID           string       `json:"player_id"`
	Since              time.Time    `json:"since"`
	Ticks              int          `json:"ticks"`
	CompanyIncome      int64        `json:"company_income"`
	CompanyCharges     int64        `json:"company_charges"`
	JobIncome          int64        `json:"job_income"`
	DataGenerated      float64      `json:"data_generated"`
	DownloadsCompleted int          `json:"downloads_completed"`
	LevelsGained       int          `json:"levels_gained"`
	StorageWarnings    int          `json:"storage_warnings"`
	Events             []RecapEvent `json:"events"`
}

// Net is everything earned minus everything charged.
func (s Summary) Net() int64 {
	return s.CompanyIncome + s.JobIncome - s.CompanyCharges
}

// Since builds the recap of playerID's events after since.
func (r *Recap) Since(ctx context.Context, playerID string, since time.Time) (*Summary, error) {
	records, err := r.eventRepo.GetSince(ctx, playerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for player: %w", err)
	}

	sum := &Summary{PlayerID: playerID, Since: since}
	for _, e := range records {
		if err := r.apply(sum, e); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return sum, nil
}

// apply folds one event into the summary. Per-tick noise is counted but not listed.
func (r *Recap) apply(sum *Summary, e EventRecord) error {
	switch events.EventType(e.EventType) {
	case events.EventTypeTickCompleted:
		var p engine.TickReport
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		sum.Ticks++
		sum.CompanyIncome += p.CompanyNet
		sum.CompanyCharges += p.CompanyCharged
		sum.JobIncome += p.JobPayout
		sum.DataGenerated += p.DataGenerated
		if p.Shortfall > 0 {
			r.list(sum, e, fmt.Sprintf("Your companies lost %d more than you could cover.", p.Shortfall), "NEGATIVE")
		}
		return nil
	case events.EventTypeDownloadCompleted:
		var p engine.SkillPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		sum.DownloadsCompleted++
		r.list(sum, e, fmt.Sprintf("Skill %s finished installing.", p.SkillID), "POSITIVE")
	case events.EventTypePlayerLevelUp:
		var p struct {
			Level int `json:"level"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		sum.LevelsGained++
		r.list(sum, e, fmt.Sprintf("You reached level %d.", p.Level), "POSITIVE")
	case events.EventTypeStorageWarning:
		var p engine.StorageWarningPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		sum.StorageWarnings++
		r.list(sum, e, fmt.Sprintf("Storage is %s (%.0f%% used).", p.Status, p.UsagePercent), "NEGATIVE")
	}
	return nil
}

func (r *Recap) list(sum *Summary, e EventRecord, summary, impact string) {
	sum.Events = append(sum.Events, RecapEvent{
		Timestamp: e.Timestamp,
		EventType: e.EventType,
		Summary:   summary,
		Impact:    impact,
	})
}
