package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/lifestyle"
	"github.com/MRamiBalles/ByteLife/internal/domain/player"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
	"github.com/MRamiBalles/ByteLife/internal/domain/skill"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/clock"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine  *Engine
	log     *events.EventLog
	clock   *clock.Fake
	metrics *metrics.Collector
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	el := events.NewEventLog(nil)
	fc := clock.NewFake(t0)
	m := metrics.New()
	e := NewEngine(el, logger.Discard(), Options{Workers: workers, Clock: fc, Metrics: m})
	return &fixture{engine: e, log: el, clock: fc, metrics: m}
}

func (f *fixture) register(t *testing.T, id string, currency int64) {
	t.Helper()
	_, err := f.engine.Register(id, "Player "+id)
	require.NoError(t, err)
	if extra := currency - resource.DefaultState().Currency; extra > 0 {
		require.NoError(t, f.engine.CreditCurrency(id, extra, "test"))
	}
}

func (f *fixture) currency(t *testing.T, id string) int64 {
	t.Helper()
	st, err := f.engine.State(id)
	require.NoError(t, err)
	return st.Pool.Currency
}

func TestSmallCompanyTick(t *testing.T) {
	f := newFixture(t, 2)
	f.register(t, "p1", 1500)

	c, err := f.engine.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)
	_, err = f.engine.HireAI("p1", c.ID, "Bot", employee.TierCommon)
	require.NoError(t, err)
	require.Equal(t, int64(400), f.currency(t, "p1"))

	reports, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, int64(50), r.CompanyNet)
	assert.Equal(t, int64(450), r.CurrencyAfter)
	assert.Empty(t, r.Faults)
	// 0.10 from the company plus 0.05 from an idle machine.
	assert.InDelta(t, 0.15, r.DataGenerated, 1e-9)

	st, _ := f.engine.State("p1")
	assert.InDelta(t, 55.0, st.Companies[0].CumulativeIncome, 1e-9)
	assert.Len(t, f.log.GetByType(events.EventTypeIncomeSettled), 1)
	assert.Len(t, f.log.GetByType(events.EventTypeTickCompleted), 1)
}

func TestLossIsChargedUpToBalance(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)
	c, err := f.engine.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)
	require.NoError(t, f.engine.CreditCurrency("p1", 40, "test"))

	// A proxy on a large salary pushes the company into loss.
	_, err = f.engine.Register("p2", "Worker")
	require.NoError(t, err)
	rs, err := f.engine.PublishResume("p2", employee.ProvidedResources{Memory: 1}, 250)
	require.NoError(t, err)
	_, err = f.engine.HireProxy("p1", c.ID, rs.ID)
	require.NoError(t, err)

	reports, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	var r TickReport
	for _, rep := range reports {
		if rep.PlayerID == "p1" {
			r = rep
		}
	}
	// income 50 * 2.22 = 111, salary 250, net -139.
	assert.Equal(t, int64(40), r.CompanyCharged)
	assert.Equal(t, int64(99), r.Shortfall)
	assert.Equal(t, int64(0), r.CurrencyAfter)
}

func TestJobPaysEveryInterval(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)

	inst, err := f.engine.StartJob("p1", "data-entry")
	require.NoError(t, err)
	assert.Equal(t, 100.0, inst.SkillMastery)

	for i := 0; i < 3; i++ {
		_, err := f.engine.OnTick(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1060), f.currency(t, "p1"))
	paid := f.log.GetByType(events.EventTypeSalaryPaid)
	require.Len(t, paid, 3)
	assert.Equal(t, int64(2), paid[1].TickNumber)

	st, _ := f.engine.State("p1")
	assert.Equal(t, 3, st.Jobs[0].CompletedCycles)
	assert.Equal(t, int64(60), st.Jobs[0].TotalEarned)
}

func TestFullStorageStillPaysAndIsReported(t *testing.T) {
	start := resource.DefaultState()
	start.Currency = 2000
	start.StorageUsed = start.StorageTotal
	el := events.NewEventLog(nil)
	e := NewEngine(el, logger.Discard(), Options{Clock: clock.NewFake(t0), StartPool: &start})
	_, err := e.Register("p1", "One")
	require.NoError(t, err)
	_, err = e.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)
	_, err = e.StartJob("p1", "data-entry")
	require.NoError(t, err)

	reports, err := e.OnTick(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.True(t, r.StorageFull)
	assert.Empty(t, r.Faults)
	assert.Equal(t, int64(20), r.JobPayout)
	assert.Equal(t, int64(50), r.CompanyNet)
	assert.Equal(t, int64(1070), r.CurrencyAfter)
	assert.Zero(t, r.DataGenerated)

	paid := el.GetByType(events.EventTypeSalaryPaid)
	require.Len(t, paid, 1)
	p, ok := paid[0].Payload.(JobPayload)
	require.True(t, ok)
	assert.True(t, p.StorageFull)
	assert.Equal(t, int64(20), p.Payout)
}

func TestFaultInOneCompanyDoesNotStopTheTick(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 2000)
	bad, err := f.engine.CreateCompany("p1", "Broken", company.TierSmall)
	require.NoError(t, err)
	_, err = f.engine.CreateCompany("p1", "Fine", company.TierSmall)
	require.NoError(t, err)

	s, err := f.engine.Session("p1")
	require.NoError(t, err)
	s.company(bad.ID).Employees = append(s.company(bad.ID).Employees, nil)

	reports, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	r := reports[0]

	require.Len(t, r.Faults, 1)
	assert.Equal(t, "company", r.Faults[0].Component)
	assert.Equal(t, bad.ID, r.Faults[0].EntityID)
	assert.Contains(t, r.Faults[0].Error, "panic")
	assert.Equal(t, int64(50), r.CompanyNet)
	assert.Equal(t, int64(1), f.metrics.SettlementFaults)
}

func TestSessionsSettleInParallel(t *testing.T) {
	f := newFixture(t, 4)
	const players = 20
	for i := 0; i < players; i++ {
		f.register(t, fmt.Sprintf("p%02d", i), 1000)
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = f.engine.CreateCompany(id, "Co", company.TierSmall)
		}(fmt.Sprintf("p%02d", i))
	}
	wg.Wait()

	reports, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, players)
	for _, r := range reports {
		assert.Equal(t, int64(50), r.CompanyNet, r.PlayerID)
		assert.Equal(t, int64(50), r.CurrencyAfter, r.PlayerID)
	}
	assert.Equal(t, int64(1), f.engine.TickNumber())
}

func TestCancelledTickReturnsError(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := f.engine.OnTick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
}

func TestDownloadLifecycle(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)

	inst, err := f.engine.PurchaseSkill("p1", "web-dev")
	require.NoError(t, err)
	assert.Equal(t, skill.StatusDownloading, inst.Status)
	assert.Equal(t, int64(850), f.currency(t, "p1"))

	// 1.5 GB over 100 Mbps takes 122.88 s.
	done, err := f.engine.AdvanceDownload("p1", "web-dev", 60*time.Second)
	require.NoError(t, err)
	assert.False(t, done)
	progress := f.log.GetByType(events.EventTypeDownloadProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, 25.0, progress[0].Payload.(SkillPayload).Progress)

	f.engine.AdvanceDownloads(70 * time.Second)

	st, _ := f.engine.State("p1")
	require.Len(t, st.Skills, 1)
	assert.Equal(t, skill.StatusInstalled, st.Skills[0].Status)
	assert.Equal(t, 20.0, st.Skills[0].MasteryPercent)
	assert.Len(t, f.log.GetByType(events.EventTypeDownloadCompleted), 1)
	assert.Equal(t, int64(1), f.metrics.DownloadsCompleted)

	got, err := f.engine.AllocateComputing("p1", "web-dev", 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.MasteryPercent)
}

func TestRejectionsAreCounted(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 100)

	_, err := f.engine.CreateCompany("p1", "Acme", company.TierMedium)
	assert.True(t, reject.HasCode(err, reject.CodeLevelTooLow))
	_, err = f.engine.StartJob("p1", "freelance-web")
	assert.True(t, reject.HasCode(err, reject.CodeMissingSkill))
	_, err = f.engine.CreateCompany("nobody", "Acme", company.TierSmall)
	assert.True(t, reject.HasCode(err, reject.CodeNotFound))

	assert.Equal(t, int64(3), f.metrics.RejectedActions)
}

func TestStorageWarningOnceWhenFilling(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)
	s, err := f.engine.Session("p1")
	require.NoError(t, err)
	s.pool.GenerateData(0.81 * s.pool.Capacity(resource.Storage))

	for i := 0; i < 2; i++ {
		_, err := f.engine.OnTick(context.Background())
		require.NoError(t, err)
	}
	warnings := f.log.GetByType(events.EventTypeStorageWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, resource.StorageNearFull, warnings[0].Payload.(StorageWarningPayload).Status)

	cleared, err := f.engine.ClearData("p1", 1000)
	require.NoError(t, err)
	assert.Greater(t, cleared, 200.0)
	st, _ := f.engine.State("p1")
	assert.Equal(t, resource.StorageNormal, st.StorageStatus)
}

func TestMoodAppliedEveryTick(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 5000)
	s, err := f.engine.Session("p1")
	require.NoError(t, err)
	s.player.Level = 3

	err = f.engine.AdoptPet("p1", lifestyle.PetFish)
	assert.True(t, reject.IsCapacity(err), "the dorm has no room for pets")
	require.NoError(t, f.engine.MoveIn("p1", lifestyle.HousingApartment))
	require.NoError(t, f.engine.AdoptPet("p1", lifestyle.PetFish))

	before, _ := f.engine.State("p1")
	_, err = f.engine.OnTick(context.Background())
	require.NoError(t, err)
	after, _ := f.engine.State("p1")

	assert.Equal(t, before.Pool.Mood+2, after.Pool.Mood)
	assert.Len(t, f.log.GetByType(events.EventTypeMoodApplied), 1)
}

func TestProxyHireAndRemoveReleasesResume(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "boss", 1000)
	f.register(t, "worker", 1000)

	rs, err := f.engine.PublishResume("worker", employee.ProvidedResources{Memory: 2, CPU: 1}, 20)
	require.NoError(t, err)
	c, err := f.engine.CreateCompany("boss", "Acme", company.TierSmall)
	require.NoError(t, err)

	_, err = f.engine.HireProxy("worker", c.ID, rs.ID)
	assert.True(t, reject.HasCode(err, reject.CodeNotFound), "worker owns no such company")

	emp, err := f.engine.HireProxy("boss", c.ID, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, "worker", emp.Proxy.LinkedPlayerID)
	got, _ := f.engine.Board().Get(rs.ID)
	assert.Equal(t, resume.StatusHired, got.Status)
	assert.Empty(t, f.engine.Resumes())

	require.NoError(t, f.engine.RemoveCompany("boss", c.ID))
	got, _ = f.engine.Board().Get(rs.ID)
	assert.Equal(t, resume.StatusAvailable, got.Status)
}

func TestLevelUpRefreshesPublishedResume(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)
	rs, err := f.engine.PublishResume("p1", employee.ProvidedResources{Memory: 1}, 20)
	require.NoError(t, err)
	require.Equal(t, 1, rs.PlayerLevel)

	s, err := f.engine.Session("p1")
	require.NoError(t, err)
	// One tick short of level 2.
	s.player.Experience = 100 - player.ExperiencePerTick

	reports, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, reports[0].LevelsGained)

	got, ok := f.engine.Board().Get(rs.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.PlayerLevel)
	assert.InDelta(t, rs.IncomeBonus+0.01, got.IncomeBonus, 1e-9)
}

func TestPublishResumeChecksOffer(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1000)

	_, err := f.engine.PublishResume("p1", employee.ProvidedResources{Memory: 64}, 10)
	assert.True(t, reject.IsCapacity(err))

	_, err = f.engine.WithdrawResume("p1", "missing")
	assert.True(t, reject.HasCode(err, reject.CodeNotFound))
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]SessionState
	resumes  []resume.Resume
}

func (m *memStore) SaveSession(_ context.Context, st SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = map[string]SessionState{}
	}
	m.sessions[st.Player.ID] = st
	return nil
}

func (m *memStore) LoadSessions(context.Context) ([]SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionState, 0, len(m.sessions))
	for _, st := range m.sessions {
		out = append(out, st)
	}
	return out, nil
}

func (m *memStore) LoadSession(_ context.Context, playerID string) (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[playerID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStore) SaveResumes(_ context.Context, rs []resume.Resume) error {
	m.resumes = rs
	return nil
}

func (m *memStore) LoadResumes(context.Context) ([]resume.Resume, error) {
	return m.resumes, nil
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 1500)
	c, err := f.engine.CreateCompany("p1", "Acme", company.TierSmall)
	require.NoError(t, err)
	_, err = f.engine.HireAI("p1", c.ID, "Bot", employee.TierCommon)
	require.NoError(t, err)
	_, err = f.engine.StartJob("p1", "data-entry")
	require.NoError(t, err)
	_, err = f.engine.OnTick(context.Background())
	require.NoError(t, err)

	store := &memStore{}
	require.NoError(t, f.engine.SaveAll(context.Background(), store))
	assert.Equal(t, int64(1), f.metrics.SnapshotsSaved)

	g := newFixture(t, 1)
	n, err := g.engine.LoadAll(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), g.engine.TickNumber())

	want, _ := f.engine.State("p1")
	got, _ := g.engine.State("p1")
	assert.Equal(t, want.Pool, got.Pool)
	assert.Equal(t, want.Jobs, got.Jobs)
	require.Len(t, got.Companies, 1)
	assert.Equal(t, want.Companies[0].CumulativeIncome, got.Companies[0].CumulativeIncome)

	// Both engines settle the next tick identically.
	r1, err := f.engine.OnTick(context.Background())
	require.NoError(t, err)
	r2, err := g.engine.OnTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r1[0].CurrencyAfter, r2[0].CurrencyAfter)
}

func TestReloadRestoresOnlyMissingSessions(t *testing.T) {
	f := newFixture(t, 1)
	f.register(t, "p1", 700)
	store := &memStore{}
	require.NoError(t, f.engine.SaveAll(context.Background(), store))

	g := newFixture(t, 1)
	s, err := g.engine.Reload(context.Background(), store, "p1")
	require.NoError(t, err)
	require.NotNil(t, s)
	want, _ := f.engine.State("p1")
	got, err := g.engine.State("p1")
	require.NoError(t, err)
	assert.Equal(t, want.Pool, got.Pool)

	again, err := g.engine.Reload(context.Background(), store, "p1")
	require.NoError(t, err)
	assert.Same(t, s, again, "a live session is never replaced")

	none, err := g.engine.Reload(context.Background(), store, "ghost")
	require.NoError(t, err)
	assert.Nil(t, none)
	_, err = g.engine.Session("ghost")
	assert.True(t, reject.HasCode(err, reject.CodeNotFound))
}

type countingHandler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingHandler) OnTick(context.Context) ([]TickReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func (c *countingHandler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestTickerFiresUntilStopped(t *testing.T) {
	h := &countingHandler{}
	tk := NewTicker(h, 5*time.Millisecond, logger.Discard())
	done := make(chan struct{})
	go func() {
		tk.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return h.count() >= 2 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
