package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
)

// SessionStore persists session snapshots and the resume board.
type SessionStore interface {
	SaveSession(ctx context.Context, st SessionState) error
	LoadSessions(ctx context.Context) ([]SessionState, error)
	SaveResumes(ctx context.Context, resumes []resume.Resume) error
	LoadResumes(ctx context.Context) ([]resume.Resume, error)
}

// SessionLoader fetches a single player's snapshot. A missing snapshot is (nil, nil).
type SessionLoader interface {
	LoadSession(ctx context.Context, playerID string) (*SessionState, error)
}

// Reload returns playerID's live session, restoring it from loader when the engine does not hold it.
// It returns (nil, nil) when loader has no snapshot for the player.
func (e *Engine) Reload(ctx context.Context, loader SessionLoader, playerID string) (*Session, error) {
	if s, err := e.Session(playerID); err == nil {
		return s, nil
	}
	st, err := loader.LoadSession(ctx, playerID)
	if err != nil || st == nil {
		return nil, err
	}
	s, err := RestoreSession(*st, e.catalogs)
	if err != nil {
		return nil, err
	}
	if err := e.AddSession(s); err != nil {
		// A concurrent request may have restored it first.
		if live, lerr := e.Session(playerID); lerr == nil {
			return live, nil
		}
		return nil, err
	}
	e.logger.Info("session reloaded", "player", playerID, "tick", st.LastTick)
	return s, nil
}

// SaveAll snapshots every session and the resume board. One failing session does not stop the others.
func (e *Engine) SaveAll(ctx context.Context, store SessionStore) error {
	var errs []error
	now := e.clock.Now()
	for _, s := range e.Sessions() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := s.State()
		st.SavedAt = now
		err := store.SaveSession(ctx, st)
		e.metrics.RecordSnapshot(err)
		if err != nil {
			e.logger.Error("snapshot failed", "player", st.Player.ID, "error", err)
			errs = append(errs, fmt.Errorf("save %s: %w", st.Player.ID, err))
		}
	}
	if err := store.SaveResumes(ctx, e.board.All()); err != nil {
		errs = append(errs, fmt.Errorf("save resumes: %w", err))
	}
	return errors.Join(errs...)
}

// LoadAll restores sessions and the board from store and resumes the tick counter.
// It returns the number of sessions restored.
func (e *Engine) LoadAll(ctx context.Context, store SessionStore) (int, error) {
	resumes, err := store.LoadResumes(ctx)
	if err != nil {
		return 0, fmt.Errorf("load resumes: %w", err)
	}
	e.board.Restore(resumes)

	states, err := store.LoadSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sessions: %w", err)
	}
	var (
		loaded int
		errs   []error
		last   = e.TickNumber()
	)
	for _, st := range states {
		s, err := RestoreSession(st, e.catalogs)
		if err == nil {
			err = e.AddSession(s)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
		last = max(last, st.LastTick)
	}
	e.SetTickNumber(last)
	e.logger.Info("sessions restored", "count", loaded, "tick", last)
	return loaded, errors.Join(errs...)
}
