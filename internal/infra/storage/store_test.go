package storage

import (
	"context"
	"testing"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/clock"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, persister events.EventPersister, c clock.Clock) *engine.Engine {
	t.Helper()
	return engine.NewEngine(events.NewEventLog(persister), logger.Discard(), engine.Options{Clock: c})
}

func TestSessionStoreRoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewSessionStore(NewSQLiteSnapshotRepository(db), NewSQLiteResumeRepository(db))
	fc := clock.NewFake(time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC))

	e := newEngine(t, nil, fc)
	_, err := e.Register("p1", "Ada")
	require.NoError(t, err)
	_, err = e.Register("p2", "Bob")
	require.NoError(t, err)
	require.NoError(t, e.CreditCurrency("p1", 500, "test"))
	c, err := e.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)
	_, err = e.HireAI("p1", c.ID, "Bot", employee.TierCommon)
	require.NoError(t, err)
	_, err = e.PublishResume("p2", employee.ProvidedResources{Memory: 1}, 10)
	require.NoError(t, err)
	_, err = e.OnTick(ctx)
	require.NoError(t, err)

	require.NoError(t, e.SaveAll(ctx, store))

	restored := newEngine(t, nil, fc)
	n, err := restored.LoadAll(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, restored.Resumes(), 1)

	want, _ := e.State("p1")
	got, _ := restored.State("p1")
	assert.Equal(t, want.Pool, got.Pool)
	require.Len(t, got.Companies, 1)
	assert.Equal(t, want.Companies[0].Employees[0].ID, got.Companies[0].Employees[0].ID)

	one, err := store.LoadSession(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, int64(1), one.LastTick)

	none, err := store.LoadSession(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventPersisterWritesThrough(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	m := metrics.New()
	e := newEngine(t, NewEventPersister(repo, m), clock.Real{})

	_, err := e.Register("p1", "Ada")
	require.NoError(t, err)
	_, err = e.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)

	stored, err := repo.GetByEventType(ctx, "p1", string(events.EventTypeCompanyCreated))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, string(stored[0].Payload), `"tier":"Small"`)
	assert.Equal(t, int64(1), m.EventsWritten)
}
