package main

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/ByteLife/internal/config"
	"github.com/MRamiBalles/ByteLife/internal/infra/storage"
)

// backend is the persistence chosen by db_driver. The memory driver leaves every field nil.
type backend struct {
	events storage.EventRepository
	store  *storage.SessionStore
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.DBDriver {
	case "memory":
		return &backend{close: func() {}}, nil
	case "sqlite":
		db, err := storage.InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		snapshots := storage.NewCachedSnapshotRepository(storage.NewSQLiteSnapshotRepository(db), cfg.SnapshotCacheSize, storage.DefaultCacheTTL)
		return &backend{
			events: storage.NewSQLiteEventRepository(db),
			store:  storage.NewSessionStore(snapshots, storage.NewSQLiteResumeRepository(db)),
			close:  func() { db.Close() },
		}, nil
	case "postgres":
		pool, err := storage.ConnectPostgres(ctx, cfg.DatabaseURL, int32(cfg.DBMaxOpenConns), int32(cfg.DBMaxIdleConns))
		if err != nil {
			return nil, err
		}
		snapshots := storage.NewCachedSnapshotRepository(storage.NewPostgresSnapshotRepository(pool), cfg.SnapshotCacheSize, storage.DefaultCacheTTL)
		return &backend{
			events: storage.NewPostgresEventRepository(pool),
			store:  storage.NewSessionStore(snapshots, storage.NewPostgresResumeRepository(pool)),
			close:  pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
