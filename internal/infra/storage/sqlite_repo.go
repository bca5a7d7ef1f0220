package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const eventColumns = `id, player_id, timestamp, event_type, target_id, payload, tick`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event EventRecord) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}
	query := `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.PlayerID, event.Timestamp.UnixNano(), event.EventType,
		event.TargetID, string(payload), event.Tick,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			e       EventRecord
			ts      int64
			payload string
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &ts, &e.EventType, &e.TargetID, &payload, &e.Tick); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Payload = []byte(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByPlayer(ctx context.Context, playerID string) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE player_id = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, playerID)
}

func (r *SQLiteEventRepository) GetSince(ctx context.Context, playerID string, since time.Time) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE player_id = ? AND timestamp > ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, playerID, since.UnixNano())
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, playerID, eventType string) ([]EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE player_id = ? AND event_type = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, playerID, eventType)
}

func (r *SQLiteEventRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, snapshot SessionSnapshot) error {
	updated := snapshot.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	query := `
		INSERT INTO session_snapshots (player_id, data, tick, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			data=excluded.data,
			tick=excluded.tick,
			updated_at=excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, snapshot.PlayerID, snapshot.Data, snapshot.Tick, updated.UnixNano()); err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snapshot.PlayerID, err)
	}
	return nil
}

func (r *SQLiteSnapshotRepository) Get(ctx context.Context, playerID string) (*SessionSnapshot, error) {
	query := `SELECT player_id, data, tick, updated_at FROM session_snapshots WHERE player_id = ?`
	var (
		s  SessionSnapshot
		ts int64
	)
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(&s.PlayerID, &s.Data, &s.Tick, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", playerID, err)
	}
	s.UpdatedAt = time.Unix(0, ts).UTC()
	return &s, nil
}

func (r *SQLiteSnapshotRepository) List(ctx context.Context) ([]SessionSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT player_id, data, tick, updated_at FROM session_snapshots ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []SessionSnapshot
	for rows.Next() {
		var (
			s  SessionSnapshot
			ts int64
		)
		if err := rows.Scan(&s.PlayerID, &s.Data, &s.Tick, &ts); err != nil {
			return nil, err
		}
		s.UpdatedAt = time.Unix(0, ts).UTC()
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (r *SQLiteSnapshotRepository) Delete(ctx context.Context, playerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE player_id = ?`, playerID)
	return err
}

// ---------------------------------------------------------
// SQLiteResumeRepository
// ---------------------------------------------------------

type SQLiteResumeRepository struct {
	db *sql.DB
}

func NewSQLiteResumeRepository(db *sql.DB) *SQLiteResumeRepository {
	return &SQLiteResumeRepository{db: db}
}

func (r *SQLiteResumeRepository) ReplaceAll(ctx context.Context, resumes []ResumeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin resume transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resumes`); err != nil {
		return fmt.Errorf("failed to clear resumes: %w", err)
	}
	for _, rs := range resumes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO resumes (id, player_id, status, data) VALUES (?, ?, ?, ?)`,
			rs.ID, rs.PlayerID, rs.Status, rs.Data); err != nil {
			return fmt.Errorf("failed to insert resume %s: %w", rs.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteResumeRepository) List(ctx context.Context) ([]ResumeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, player_id, status, data FROM resumes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var out []ResumeRecord
	for rows.Next() {
		var rs ResumeRecord
		if err := rows.Scan(&rs.ID, &rs.PlayerID, &rs.Status, &rs.Data); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

var (
	_ EventRepository    = (*SQLiteEventRepository)(nil)
	_ SnapshotRepository = (*SQLiteSnapshotRepository)(nil)
	_ ResumeRepository   = (*SQLiteResumeRepository)(nil)
)
