// Package storage - postgres.go
// PostgreSQL implementations of the repositories, on a pgx connection pool.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS session_snapshots (
		player_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		tick BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resumes (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		status TEXT NOT NULL,
		data JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_log (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL,
		tick BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_player ON event_log(player_id, timestamp)`,
}

// ConnectPostgres opens a pool, verifies it and creates the schemas. Zero limits keep pgx defaults.
func ConnectPostgres(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 && minConns <= cfg.MaxConns {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, q := range postgresSchemas {
		if _, err := pool.Exec(ctx, q); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schemas: %w", err)
		}
	}
	return pool, nil
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Append inserts a new event into the immutable ledger.
func (r *PostgresEventRepository) Append(ctx context.Context, event EventRecord) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO event_log (id, player_id, timestamp, event_type, target_id, payload, tick)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.PlayerID, event.Timestamp, event.EventType, event.TargetID, []byte(payload), event.Tick,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// GetByPlayer retrieves all events of a player.
func (r *PostgresEventRepository) GetByPlayer(ctx context.Context, playerID string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `
		SELECT id, player_id, timestamp, event_type, target_id, payload, tick
		FROM event_log
		WHERE player_id = $1
		ORDER BY timestamp ASC
	`, playerID)
}

// GetSince retrieves a player's events after since.
func (r *PostgresEventRepository) GetSince(ctx context.Context, playerID string, since time.Time) ([]EventRecord, error) {
	return r.queryEvents(ctx, `
		SELECT id, player_id, timestamp, event_type, target_id, payload, tick
		FROM event_log
		WHERE player_id = $1 AND timestamp > $2
		ORDER BY timestamp ASC
	`, playerID, since)
}

// GetByEventType retrieves a player's events of one type.
func (r *PostgresEventRepository) GetByEventType(ctx context.Context, playerID, eventType string) ([]EventRecord, error) {
	return r.queryEvents(ctx, `
		SELECT id, player_id, timestamp, event_type, target_id, payload, tick
		FROM event_log
		WHERE player_id = $1 AND event_type = $2
		ORDER BY timestamp ASC
	`, playerID, eventType)
}

// Prune deletes events older than before.
func (r *PostgresEventRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_log WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// queryEvents is a helper to execute queries and scan results.
func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]EventRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var payload []byte
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Timestamp, &e.EventType, &e.TargetID, &payload, &e.Tick); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}

// PostgresSnapshotRepository implements SnapshotRepository using PostgreSQL.
type PostgresSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotRepository creates a new PostgreSQL snapshot repository.
func NewPostgresSnapshotRepository(pool *pgxpool.Pool) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{pool: pool}
}

// Upsert writes the latest snapshot of a player.
func (r *PostgresSnapshotRepository) Upsert(ctx context.Context, snapshot SessionSnapshot) error {
	updated := snapshot.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_snapshots (player_id, data, tick, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (player_id) DO UPDATE SET data = $2, tick = $3, updated_at = $4`,
		snapshot.PlayerID, snapshot.Data, snapshot.Tick, updated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snapshot.PlayerID, err)
	}
	return nil
}

// Get retrieves a player's snapshot, or nil when there is none.
func (r *PostgresSnapshotRepository) Get(ctx context.Context, playerID string) (*SessionSnapshot, error) {
	var s SessionSnapshot
	err := r.pool.QueryRow(ctx,
		`SELECT player_id, data, tick, updated_at FROM session_snapshots WHERE player_id = $1`,
		playerID,
	).Scan(&s.PlayerID, &s.Data, &s.Tick, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot %s: %w", playerID, err)
	}
	return &s, nil
}

// List retrieves every snapshot.
func (r *PostgresSnapshotRepository) List(ctx context.Context) ([]SessionSnapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT player_id, data, tick, updated_at FROM session_snapshots ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SessionSnapshot
	for rows.Next() {
		var s SessionSnapshot
		if err := rows.Scan(&s.PlayerID, &s.Data, &s.Tick, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a player's snapshot.
func (r *PostgresSnapshotRepository) Delete(ctx context.Context, playerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE player_id = $1`, playerID)
	return err
}

// PostgresResumeRepository implements ResumeRepository using PostgreSQL.
type PostgresResumeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresResumeRepository creates a new PostgreSQL resume repository.
func NewPostgresResumeRepository(pool *pgxpool.Pool) *PostgresResumeRepository {
	return &PostgresResumeRepository{pool: pool}
}

// ReplaceAll swaps the stored board in one transaction.
func (r *PostgresResumeRepository) ReplaceAll(ctx context.Context, resumes []ResumeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin resume transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM resumes`); err != nil {
		return fmt.Errorf("failed to clear resumes: %w", err)
	}
	batch := &pgx.Batch{}
	for _, rs := range resumes {
		batch.Queue(`INSERT INTO resumes (id, player_id, status, data) VALUES ($1, $2, $3, $4)`,
			rs.ID, rs.PlayerID, rs.Status, rs.Data)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert resumes: %w", err)
	}
	return tx.Commit(ctx)
}

// List retrieves the stored board.
func (r *PostgresResumeRepository) List(ctx context.Context) ([]ResumeRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, player_id, status, data FROM resumes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var out []ResumeRecord
	for rows.Next() {
		var rs ResumeRecord
		if err := rows.Scan(&rs.ID, &rs.PlayerID, &rs.Status, &rs.Data); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Ensure the Postgres repositories implement their interfaces
var (
	_ EventRepository    = (*PostgresEventRepository)(nil)
	_ SnapshotRepository = (*PostgresSnapshotRepository)(nil)
	_ ResumeRepository   = (*PostgresResumeRepository)(nil)
)
