package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
)

// SessionStore adapts the repositories to engine.SessionStore.
type SessionStore struct {
	snapshots SnapshotRepository
	resumes   ResumeRepository
}

// NewSessionStore creates the engine-facing save layer.
func NewSessionStore(snapshots SnapshotRepository, resumes ResumeRepository) *SessionStore {
	return &SessionStore{snapshots: snapshots, resumes: resumes}
}

// SaveSession serializes st as one snapshot.
func (s *SessionStore) SaveSession(ctx context.Context, st engine.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", st.Player.ID, err)
	}
	return s.snapshots.Upsert(ctx, SessionSnapshot{
		PlayerID:  st.Player.ID,
		Data:      data,
		Tick:      st.LastTick,
		UpdatedAt: st.SavedAt,
	})
}

// LoadSessions decodes every stored snapshot.
func (s *SessionStore) LoadSessions(ctx context.Context) ([]engine.SessionState, error) {
	snaps, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]engine.SessionState, 0, len(snaps))
	for _, snap := range snaps {
		var st engine.SessionState
		if err := json.Unmarshal(snap.Data, &st); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", snap.PlayerID, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// LoadSession decodes one player's snapshot. A missing snapshot is (nil, nil).
func (s *SessionStore) LoadSession(ctx context.Context, playerID string) (*engine.SessionState, error) {
	snap, err := s.snapshots.Get(ctx, playerID)
	if err != nil || snap == nil {
		return nil, err
	}
	var st engine.SessionState
	if err := json.Unmarshal(snap.Data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", playerID, err)
	}
	return &st, nil
}

// SaveResumes stores the whole board.
func (s *SessionStore) SaveResumes(ctx context.Context, resumes []resume.Resume) error {
	records := make([]ResumeRecord, 0, len(resumes))
	for _, r := range resumes {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal resume %s: %w", r.ID, err)
		}
		records = append(records, ResumeRecord{ID: r.ID, PlayerID: r.PlayerID, Status: string(r.Status), Data: data})
	}
	return s.resumes.ReplaceAll(ctx, records)
}

// LoadResumes decodes the stored board.
func (s *SessionStore) LoadResumes(ctx context.Context) ([]resume.Resume, error) {
	records, err := s.resumes.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]resume.Resume, 0, len(records))
	for _, rec := range records {
		var r resume.Resume
		if err := json.Unmarshal(rec.Data, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resume %s: %w", rec.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

var (
	_ engine.SessionStore  = (*SessionStore)(nil)
	_ engine.SessionLoader = (*SessionStore)(nil)
)

// EventPersister writes events from the EventLog into an EventRepository.
type EventPersister struct {
	repo    EventRepository
	metrics *metrics.Collector
	timeout time.Duration
}

// NewEventPersister creates the write-through persister. m may be nil.
func NewEventPersister(repo EventRepository, m *metrics.Collector) *EventPersister {
	return &EventPersister{repo: repo, metrics: m, timeout: 5 * time.Second}
}

// Append implements events.EventPersister.
func (p *EventPersister) Append(e events.GameEvent) error {
	start := time.Now()
	err := p.append(e)
	if p.metrics != nil {
		p.metrics.RecordEventWrite(time.Since(start), err)
	}
	return err
}

func (p *EventPersister) append(e events.GameEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, EventRecord{
		ID:        e.ID,
		PlayerID:  e.ActorID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		TargetID:  e.TargetID,
		Payload:   payload,
		Tick:      e.TickNumber,
	})
}

var _ events.EventPersister = (*EventPersister)(nil)
