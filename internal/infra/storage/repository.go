// Package storage provides the persistence layer for the settlement server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// EventRecord mirrors events.GameEvent for persistence. Payloads are stored as raw JSON.
type EventRecord struct {
	ID        string          `json:"id" db:"id"`
	PlayerID  string          `json:"player_id" db:"player_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	TargetID  string          `json:"target_id" db:"target_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	Tick      int64           `json:"tick" db:"tick"`
}

// EventRepository defines the interface for event persistence.
// The engine never sees it; events reach it through events.EventPersister.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event EventRecord) error

	// GetByPlayer retrieves all events of a player, oldest first.
	GetByPlayer(ctx context.Context, playerID string) ([]EventRecord, error)

	// GetSince retrieves a player's events strictly after since.
	GetSince(ctx context.Context, playerID string, since time.Time) ([]EventRecord, error)

	// GetByEventType retrieves a player's events of one type.
	GetByEventType(ctx context.Context, playerID, eventType string) ([]EventRecord, error)

	// Prune deletes events older than before and returns how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SessionSnapshot is the serialized state of one player's session.
type SessionSnapshot struct {
	PlayerID  string    `json:"player_id" db:"player_id"`
	Data      []byte    `json:"data" db:"data"`
	Tick      int64     `json:"tick" db:"tick"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SnapshotRepository stores the latest snapshot per player.
type SnapshotRepository interface {
	// Upsert updates or inserts a snapshot.
	Upsert(ctx context.Context, snapshot SessionSnapshot) error

	// Get retrieves a player's snapshot. A missing snapshot is (nil, nil).
	Get(ctx context.Context, playerID string) (*SessionSnapshot, error)

	// List retrieves every snapshot.
	List(ctx context.Context) ([]SessionSnapshot, error)

	// Delete removes a player's snapshot.
	Delete(ctx context.Context, playerID string) error
}

// ResumeRecord is one serialized resume.
type ResumeRecord struct {
	ID       string `json:"id" db:"id"`
	PlayerID string `json:"player_id" db:"player_id"`
	Status   string `json:"status" db:"status"`
	Data     []byte `json:"data" db:"data"`
}

// ResumeRepository stores the shared resume board.
type ResumeRepository interface {
	// ReplaceAll swaps the stored board for resumes in one transaction.
	ReplaceAll(ctx context.Context, resumes []ResumeRecord) error

	// List retrieves the stored board.
	List(ctx context.Context) ([]ResumeRecord, error)
}
