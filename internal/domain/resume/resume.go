// Package resume implements player resumes and the shared board companies hire human proxies from.
package resume

import (
	"sort"
	"sync"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
)

// Status is the lifecycle state of a resume.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHired     Status = "HIRED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Resume advertises a player as a human proxy.
type Resume struct {
	ID                string                     `json:"id"`
	PlayerID          string                     `json:"player_id"`
	PlayerName        string                     `json:"player_name"`
	PlayerLevel       int                        `json:"player_level"`
	Offered           employee.ProvidedResources `json:"offered"`
	ExpectedSalary    int64                      `json:"expected_salary"`
	IncomeBonus       float64                    `json:"income_bonus"`
	Status            Status                     `json:"status"`
	EmployerCompanyID string                     `json:"employer_company_id,omitempty"`
	EmployerID        string                     `json:"employer_id,omitempty"`
	PublishedAt       time.Time                  `json:"published_at"`
}

func (r *Resume) recompute() {
	r.IncomeBonus = employee.ProxyBonus(r.PlayerLevel, r.Offered)
}

// Board holds every resume. It is shared between sessions and safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	resumes map[string]*Resume
}

// NewBoard restores a board from persisted resumes.
func NewBoard(resumes []Resume) *Board {
	b := &Board{resumes: make(map[string]*Resume, len(resumes))}
	for _, r := range resumes {
		cp := r
		cp.recompute()
		b.resumes[r.ID] = &cp
	}
	return b
}

// Restore replaces the board's content with persisted resumes.
func (b *Board) Restore(resumes []Resume) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resumes = make(map[string]*Resume, len(resumes))
	for _, r := range resumes {
		cp := r
		cp.recompute()
		b.resumes[r.ID] = &cp
	}
}

// Publish lists a new resume. A player may have only one live (available or hired) resume.
func (b *Board) Publish(id, playerID, playerName string, level int, offered employee.ProvidedResources, salary int64, now time.Time) (Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if salary < 0 {
		return Resume{}, reject.State(reject.CodeInvalidAmount, "expected salary must be non-negative, got %d", salary)
	}
	if live := b.liveFor(playerID); live != nil {
		return Resume{}, reject.State(reject.CodeAlreadyExists, "player %s already has resume %s (%s)", playerID, live.ID, live.Status)
	}
	r := &Resume{
		ID:             id,
		PlayerID:       playerID,
		PlayerName:     playerName,
		PlayerLevel:    level,
		Offered:        offered,
		ExpectedSalary: salary,
		Status:         StatusAvailable,
		PublishedAt:    now,
	}
	r.recompute()
	b.resumes[id] = r
	return *r, nil
}

// Update refreshes the advertised level and resources of an available resume.
func (b *Board) Update(id string, level int, offered employee.ProvidedResources) (Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.lookup(id, StatusAvailable)
	if err != nil {
		return Resume{}, err
	}
	r.PlayerLevel = level
	r.Offered = offered
	r.recompute()
	return *r, nil
}

// RefreshLevel re-derives the bonus of playerID's available resume at level. It reports false when the
// player has no resume on the board.
func (b *Board) RefreshLevel(playerID string, level int) (Resume, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.liveFor(playerID)
	if r == nil || r.Status != StatusAvailable {
		return Resume{}, false
	}
	r.PlayerLevel = level
	r.recompute()
	return *r, true
}

// Withdraw takes an available resume off the board.
func (b *Board) Withdraw(id string) (Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.lookup(id, StatusAvailable)
	if err != nil {
		return Resume{}, err
	}
	r.Status = StatusWithdrawn
	return *r, nil
}

// Claim marks an available resume hired by employerID's company. Players cannot hire themselves.
func (b *Board) Claim(id, employerID, companyID string) (Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.lookup(id, StatusAvailable)
	if err != nil {
		return Resume{}, err
	}
	if r.PlayerID == employerID {
		return Resume{}, reject.State(reject.CodeNotEligible, "player %s cannot hire their own resume", employerID)
	}
	r.Status = StatusHired
	r.EmployerID = employerID
	r.EmployerCompanyID = companyID
	return *r, nil
}

// Release returns a hired resume to the board, e.g. after dismissal.
func (b *Board) Release(id string) (Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.lookup(id, StatusHired)
	if err != nil {
		return Resume{}, err
	}
	r.Status = StatusAvailable
	r.EmployerID = ""
	r.EmployerCompanyID = ""
	return *r, nil
}

// Get returns a copy of the resume with id.
func (b *Board) Get(id string) (Resume, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.resumes[id]
	if !ok {
		return Resume{}, false
	}
	return *r, true
}

// Available lists available resumes, best bonus first.
func (b *Board) Available() []Resume {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Resume
	for _, r := range b.resumes {
		if r.Status == StatusAvailable {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IncomeBonus != out[j].IncomeBonus {
			return out[i].IncomeBonus > out[j].IncomeBonus
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// All returns every resume ordered by id.
func (b *Board) All() []Resume {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Resume, 0, len(b.resumes))
	for _, r := range b.resumes {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Board) lookup(id string, want Status) (*Resume, error) {
	r, ok := b.resumes[id]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "resume %s not found", id)
	}
	if r.Status != want {
		return nil, reject.State(reject.CodeInvalidState, "resume %s is %s, expected %s", id, r.Status, want)
	}
	return r, nil
}

func (b *Board) liveFor(playerID string) *Resume {
	for _, r := range b.resumes {
		if r.PlayerID == playerID && r.Status != StatusWithdrawn {
			return r
		}
	}
	return nil
}
