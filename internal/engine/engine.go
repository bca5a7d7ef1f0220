package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/player"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/clock"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
	"golang.org/x/sync/errgroup"
)

// TickSeconds is the game time one settlement covers.
const TickSeconds = 300

// Options tune an Engine. Zero values pick defaults.
type Options struct {
	Workers     int
	MaxSessions int
	Clock       clock.Clock
	Metrics     *metrics.Collector
	Catalogs    *Catalogs
	Board       *resume.Board
	StartPool   *resource.State
}

// Engine owns every player session and drives settlement.
type Engine struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	clock    clock.Clock
	catalogs Catalogs
	board    *resume.Board

	workers     int
	maxSessions int
	startPool   resource.State
	tickNumber  atomic.Int64

	mu       sync.RWMutex
	sessions map[string]*Session

	// Sub-systems
	companySystem *CompanySystem
	skillSystem   *SkillSystem
	jobSystem     *JobSystem
	moodSystem    *MoodSystem
	storageSystem *StorageSystem
}

// NewEngine initializes the settlement systems and dependencies.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Catalogs == nil {
		cat := DefaultCatalogs()
		opts.Catalogs = &cat
	}
	if opts.Board == nil {
		opts.Board = resume.NewBoard(nil)
	}
	startPool := resource.DefaultState()
	if opts.StartPool != nil {
		startPool = *opts.StartPool
	}

	return &Engine{
		eventLog:    eventLog,
		logger:      log,
		metrics:     opts.Metrics,
		clock:       opts.Clock,
		catalogs:    *opts.Catalogs,
		board:       opts.Board,
		workers:     opts.Workers,
		maxSessions: opts.MaxSessions,
		startPool:   startPool,
		sessions:    make(map[string]*Session),

		companySystem: NewCompanySystem(eventLog, log, opts.Board),
		skillSystem:   NewSkillSystem(eventLog, log, opts.Metrics),
		jobSystem:     NewJobSystem(eventLog, log),
		moodSystem:    NewMoodSystem(eventLog, log),
		storageSystem: NewStorageSystem(eventLog, log),
	}
}

// Start spawns the settlement ticker and the download timer. Both stop with ctx.
func (e *Engine) Start(ctx context.Context, tickInterval, downloadStep time.Duration) {
	e.logger.Info("starting settlement engine", "tick_interval", tickInterval.String(), "download_step", downloadStep.String())

	go NewTicker(e, tickInterval, e.logger).Start(ctx)
	go e.runDownloads(ctx, downloadStep)
}

func (e *Engine) runDownloads(ctx context.Context, step time.Duration) {
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("download timer stopped")
			return
		case <-t.C:
			e.AdvanceDownloads(step)
		}
	}
}

// EventLog exposes the notification sink.
func (e *Engine) EventLog() *events.EventLog { return e.eventLog }

// Board exposes the shared resume board.
func (e *Engine) Board() *resume.Board { return e.board }

// Catalogs exposes the skill and job definitions.
func (e *Engine) Catalogs() Catalogs { return e.catalogs }

// TickNumber is the number of the last started tick.
func (e *Engine) TickNumber() int64 { return e.tickNumber.Load() }

// SetTickNumber resumes the tick counter, e.g. after loading snapshots.
func (e *Engine) SetTickNumber(n int64) { e.tickNumber.Store(n) }

// Register creates a new player with the starting pool.
func (e *Engine) Register(playerID, name string) (*Session, error) {
	if playerID == "" {
		return nil, reject.State(reject.CodeInvalidState, "player id is required")
	}
	s := NewSession(player.New(playerID, name, e.clock.Now()), e.startPool, e.catalogs)
	if err := e.AddSession(s); err != nil {
		return nil, err
	}
	e.logger.Info("player registered", "player", playerID)
	return s, nil
}

// AddSession tracks an existing (e.g. restored) session.
func (e *Engine) AddSession(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.sessions[s.PlayerID()]; exists {
		return reject.State(reject.CodeAlreadyExists, "player %s already has a session", s.PlayerID())
	}
	if e.maxSessions > 0 && len(e.sessions) >= e.maxSessions {
		return reject.Capacity(reject.CodeInsufficientResource, "server holds the maximum of %d sessions", e.maxSessions)
	}
	e.sessions[s.PlayerID()] = s
	e.metrics.SetSessions(len(e.sessions))
	return nil
}

// RemoveSession stops settling a player.
func (e *Engine) RemoveSession(playerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[playerID]
	delete(e.sessions, playerID)
	e.metrics.SetSessions(len(e.sessions))
	return ok
}

// Session returns the session of playerID.
func (e *Engine) Session(playerID string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[playerID]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "player %s has no session", playerID)
	}
	return s, nil
}

// Sessions returns all sessions ordered by player id.
func (e *Engine) Sessions() []*Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID() < out[j].PlayerID() })
	return out
}

// State exports a player's session.
func (e *Engine) State(playerID string) (SessionState, error) {
	s, err := e.Session(playerID)
	if err != nil {
		return SessionState{}, err
	}
	return s.State(), nil
}

// OnTick settles every session once. Sessions settle in parallel; each one serially, under its lock.
// A cancelled ctx stops sessions that have not started yet.
func (e *Engine) OnTick(ctx context.Context) ([]TickReport, error) {
	start := time.Now()
	tick := e.tickNumber.Add(1)
	sessions := e.Sessions()
	reports := make([]TickReport, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range sessions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = e.settleSession(s, tick)
			return nil
		})
	}
	err := g.Wait()
	e.metrics.RecordTick(time.Since(start))

	done := reports[:0]
	for _, r := range reports {
		if r.PlayerID != "" {
			done = append(done, r)
		}
	}
	if err != nil {
		return done, fmt.Errorf("tick %d: %w", tick, err)
	}
	return done, nil
}

// settleSession runs one tick for s: companies, jobs, mood, base activity data, then the summary event.
func (e *Engine) settleSession(s *Session, tick int64) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := e.clock.Now()
	s.lastTick = tick
	report := TickReport{PlayerID: s.player.ID, Tick: tick, CurrencyBefore: s.pool.Currency()}

	e.companySystem.Settle(s, &report, now)
	e.jobSystem.Settle(s, &report, TickSeconds, now)
	e.moodSystem.Settle(s, &report, now)
	e.storageSystem.Settle(s, &report)
	report.StorageStatus = e.storageSystem.CheckThresholds(s, now)

	report.guard("player", s.player.ID, func() error {
		gained := s.player.GainExperience(player.ExperiencePerTick)
		if gained > 0 {
			report.LevelsGained = gained
			emit(e.eventLog, events.EventTypePlayerLevelUp, s, s.player.ID, now, map[string]int{
				"level": s.player.Level, "job_slots": s.player.JobSlots(),
			})
			e.board.RefreshLevel(s.player.ID, s.player.Level)
		}
		return nil
	})

	report.CurrencyAfter = s.pool.Currency()
	for _, f := range report.Faults {
		e.logger.Error("settlement fault", "player", s.player.ID, "component", f.Component, "entity", f.EntityID, "error", f.Error)
	}
	if report.StorageFull {
		e.logger.Warn("storage full, generated data dropped", "player", s.player.ID, "tick", tick)
	}
	emit(e.eventLog, events.EventTypeTickCompleted, s, s.player.ID, now, report)
	e.metrics.RecordSettlement(report.CompanyNet-report.CompanyCharged, report.JobPayout, len(report.Faults), report.StorageFull)
	return report
}

// AdvanceDownloads moves every player's downloads forward by delta.
func (e *Engine) AdvanceDownloads(delta time.Duration) {
	for _, s := range e.Sessions() {
		s.mu.Lock()
		e.skillSystem.AdvanceAll(s, delta, e.clock.Now())
		s.mu.Unlock()
	}
}

// do runs fn under the session lock of playerID and counts rejections.
func (e *Engine) do(playerID string, fn func(s *Session, now time.Time) error) error {
	err := e.locked(playerID, fn)
	if _, ok := reject.As(err); ok {
		e.metrics.RecordRejection()
	}
	return err
}

func (e *Engine) locked(playerID string, fn func(s *Session, now time.Time) error) error {
	s, err := e.Session(playerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s, e.clock.Now())
}

// emit appends a notification for the session's player.
func emit(el *events.EventLog, t events.EventType, s *Session, targetID string, now time.Time, payload any) {
	if el == nil {
		return
	}
	el.Append(events.GameEvent{
		Timestamp:  now,
		Type:       t,
		ActorID:    s.player.ID,
		TargetID:   targetID,
		Payload:    payload,
		TickNumber: s.lastTick,
	})
}
