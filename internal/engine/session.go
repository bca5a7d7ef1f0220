package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/job"
	"github.com/MRamiBalles/ByteLife/internal/domain/lifestyle"
	"github.com/MRamiBalles/ByteLife/internal/domain/player"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/skill"
)

// Catalogs bundles the immutable definitions every session shares.
type Catalogs struct {
	Skills *skill.Catalog
	Jobs   *job.Catalog
}

// DefaultCatalogs returns the built-in skill tree and job board.
func DefaultCatalogs() Catalogs {
	return Catalogs{Skills: skill.DefaultCatalog(), Jobs: job.DefaultCatalog()}
}

// SessionState is the persisted field set of one player's economy.
type SessionState struct {
	Player        player.Player          `json:"player"`
	Pool          resource.State         `json:"pool"`
	Companies     []*company.Company     `json:"companies"`
	Skills        []skill.Instance       `json:"skills"`
	Jobs          []job.Instance         `json:"jobs"`
	Lifestyle     lifestyle.Lifestyle    `json:"lifestyle"`
	StorageStatus resource.StorageStatus `json:"storage_status"`
	LastTick      int64                  `json:"last_tick"`
	SavedAt       time.Time              `json:"saved_at"`
}

// Session is one player's economy. Player actions and settlement serialize on its mutex.
type Session struct {
	mu        sync.Mutex
	player    *player.Player
	pool      *resource.Pool
	companies []*company.Company
	skills    *skill.Set
	jobs      *job.Roster
	lifestyle lifestyle.Lifestyle
	storage   resource.StorageStatus
	lastTick  int64
}

// NewSession starts a fresh economy for p.
func NewSession(p *player.Player, pool resource.State, cat Catalogs) *Session {
	return &Session{
		player:    p,
		pool:      resource.New(pool),
		skills:    skill.NewSet(cat.Skills, nil),
		jobs:      job.NewRoster(cat.Jobs, nil),
		lifestyle: lifestyle.New(),
		storage:   resource.StorageNormal,
	}
}

// RestoreSession rebuilds a session from a persisted state.
func RestoreSession(st SessionState, cat Catalogs) (*Session, error) {
	if st.Player.ID == "" {
		return nil, fmt.Errorf("restore session: missing player id")
	}
	p := st.Player
	if p.Level < 1 {
		p.Level = 1
	}
	companies := make([]*company.Company, 0, len(st.Companies))
	for _, c := range st.Companies {
		if c == nil {
			continue
		}
		cp := c.Clone()
		cp.Recompute()
		if err := cp.Validate(); err != nil {
			return nil, fmt.Errorf("restore session %s: %w", p.ID, err)
		}
		companies = append(companies, cp)
	}
	ls := st.Lifestyle
	if ls.Housing == "" {
		ls = lifestyle.New()
	}
	status := st.StorageStatus
	if status == "" {
		status = resource.StorageNormal
	}
	return &Session{
		player:    &p,
		pool:      resource.New(st.Pool),
		companies: companies,
		skills:    skill.NewSet(cat.Skills, st.Skills),
		jobs:      job.NewRoster(cat.Jobs, st.Jobs),
		lifestyle: ls,
		storage:   status,
		lastTick:  st.LastTick,
	}, nil
}

// PlayerID identifies the session.
func (s *Session) PlayerID() string { return s.player.ID }

// State exports a deep copy of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	companies := make([]*company.Company, len(s.companies))
	for i, c := range s.companies {
		companies[i] = c.Clone()
	}
	ls := s.lifestyle
	ls.Pets = append([]lifestyle.ItemID{}, s.lifestyle.Pets...)
	return SessionState{
		Player:        *s.player,
		Pool:          s.pool.State(),
		Companies:     companies,
		Skills:        s.skills.Instances(),
		Jobs:          s.jobs.Instances(),
		Lifestyle:     ls,
		StorageStatus: s.storage,
		LastTick:      s.lastTick,
	}
}

// company returns the owned company with id, or nil.
func (s *Session) company(id string) *company.Company {
	for _, c := range s.companies {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) removeCompany(id string) *company.Company {
	for i, c := range s.companies {
		if c.ID == id {
			s.companies = append(s.companies[:i], s.companies[i+1:]...)
			return c
		}
	}
	return nil
}

// sortedCompanies returns companies in creation order.
func (s *Session) sortedCompanies() []*company.Company {
	out := append([]*company.Company(nil), s.companies...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
