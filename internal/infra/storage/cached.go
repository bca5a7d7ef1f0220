// Package storage - cached.go
// In-process LRU for session snapshots (not the source of truth).
package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL bounds how long a cached snapshot is served.
const DefaultCacheTTL = 15 * time.Minute

// CachedSnapshotRepository reads through an LRU in front of another SnapshotRepository.
// Writes go to the backing store first and then refresh the cache.
type CachedSnapshotRepository struct {
	next  SnapshotRepository
	cache *expirable.LRU[string, SessionSnapshot]
}

// NewCachedSnapshotRepository wraps next with a cache holding up to size snapshots for ttl.
func NewCachedSnapshotRepository(next SnapshotRepository, size int, ttl time.Duration) *CachedSnapshotRepository {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSnapshotRepository{
		next:  next,
		cache: expirable.NewLRU[string, SessionSnapshot](size, nil, ttl),
	}
}

// Upsert writes through to the backing store.
func (c *CachedSnapshotRepository) Upsert(ctx context.Context, snapshot SessionSnapshot) error {
	if err := c.next.Upsert(ctx, snapshot); err != nil {
		c.cache.Remove(snapshot.PlayerID)
		return err
	}
	c.cache.Add(snapshot.PlayerID, snapshot)
	return nil
}

// Get serves from cache, falling back to the backing store on a miss.
func (c *CachedSnapshotRepository) Get(ctx context.Context, playerID string) (*SessionSnapshot, error) {
	if s, ok := c.cache.Get(playerID); ok {
		return &s, nil
	}
	s, err := c.next.Get(ctx, playerID)
	if err != nil || s == nil {
		return s, err
	}
	c.cache.Add(playerID, *s)
	return s, nil
}

// List always reads the backing store.
func (c *CachedSnapshotRepository) List(ctx context.Context) ([]SessionSnapshot, error) {
	return c.next.List(ctx)
}

// Delete removes the snapshot everywhere.
func (c *CachedSnapshotRepository) Delete(ctx context.Context, playerID string) error {
	c.cache.Remove(playerID)
	return c.next.Delete(ctx, playerID)
}

// Len is the number of cached snapshots.
func (c *CachedSnapshotRepository) Len() int {
	return c.cache.Len()
}

var _ SnapshotRepository = (*CachedSnapshotRepository)(nil)
