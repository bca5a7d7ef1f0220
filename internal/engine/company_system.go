// Package engine - company_system.go
// Company System: founding, staffing and per-tick settlement of player companies.
package engine

import (
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/MRamiBalles/ByteLife/internal/platform/logger"
	"github.com/google/uuid"
)

// CompanyPayload describes a company lifecycle change.
type CompanyPayload struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	Level     int    `json:"level"`
	Cost      int64  `json:"cost,omitempty"`
}

// EmployeePayload describes a roster change.
type EmployeePayload struct {
	CompanyID   string  `json:"company_id"`
	EmployeeID  string  `json:"employee_id"`
	Kind        string  `json:"kind"`
	Level       int     `json:"level,omitempty"`
	IncomeBonus float64 `json:"income_bonus"`
	Cost        int64   `json:"cost"`
	ResumeID    string  `json:"resume_id,omitempty"`
}

// IncomeSettledPayload records one company's settlement.
type IncomeSettledPayload struct {
	CompanyID     string  `json:"company_id"`
	Income        float64 `json:"income"`
	Expenses      int64   `json:"expenses"`
	Net           int64   `json:"net"`
	Charged       int64   `json:"charged,omitempty"`
	Shortfall     int64   `json:"shortfall,omitempty"`
	DataGenerated float64 `json:"data_generated"`
	StorageFull   bool    `json:"storage_full,omitempty"`
}

// CompanySystem owns company mutations for a session.
type CompanySystem struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	board    *resume.Board
}

// NewCompanySystem creates the company system. board supplies human proxies.
func NewCompanySystem(eventLog *events.EventLog, log *logger.Logger, board *resume.Board) *CompanySystem {
	return &CompanySystem{eventLog: eventLog, logger: log, board: board}
}

// Create founds a company of tier, debiting its creation cost.
func (cs *CompanySystem) Create(s *Session, name string, tier company.Tier, now time.Time) (*company.Company, error) {
	spec, ok := company.Tiers[tier]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown company tier %d", int(tier))
	}
	if s.player.Level < spec.UnlockLevel {
		return nil, reject.State(reject.CodeLevelTooLow, "%s companies unlock at level %d", tier, spec.UnlockLevel)
	}
	c, err := company.New(uuid.NewString(), name, tier, s.player.ID, now)
	if err != nil {
		return nil, err
	}
	if !s.pool.TrySpendCurrency(spec.CreationCost) {
		return nil, reject.Capacity(reject.CodeInsufficientCurrency, "%s company costs %d, balance %d",
			tier, spec.CreationCost, s.pool.Currency())
	}
	s.companies = append(s.companies, c)

	emit(cs.eventLog, events.EventTypeCompanyCreated, s, c.ID, now, CompanyPayload{
		CompanyID: c.ID, Name: c.Name, Tier: tier.String(), Level: c.Level, Cost: spec.CreationCost,
	})
	cs.logger.Info("company created", "player", s.player.ID, "company", c.ID, "tier", tier.String())
	return c, nil
}

// Remove closes a company. Nobody is compensated; hired resumes go back on the board.
func (cs *CompanySystem) Remove(s *Session, companyID string, now time.Time) error {
	c := s.removeCompany(companyID)
	if c == nil {
		return reject.State(reject.CodeNotFound, "company %s not found", companyID)
	}
	for _, e := range c.Employees {
		cs.releaseResume(e)
	}
	emit(cs.eventLog, events.EventTypeCompanyRemoved, s, c.ID, now, CompanyPayload{
		CompanyID: c.ID, Name: c.Name, Tier: c.Tier.String(), Level: c.Level,
	})
	return nil
}

// HireAI buys a new AI employee of tier for a company.
func (cs *CompanySystem) HireAI(s *Session, companyID, name string, tier employee.AITier, now time.Time) (*employee.Employee, error) {
	c, err := cs.hiringCompany(s, companyID)
	if err != nil {
		return nil, err
	}
	spec, ok := employee.AITiers[tier]
	if !ok {
		return nil, reject.State(reject.CodeNotFound, "unknown AI tier %d", int(tier))
	}
	e, err := employee.NewAI(uuid.NewString(), name, tier, now)
	if err != nil {
		return nil, err
	}
	if !s.pool.TrySpendCurrency(spec.HireCost) {
		return nil, reject.Capacity(reject.CodeInsufficientCurrency, "%s AI costs %d, balance %d", tier, spec.HireCost, s.pool.Currency())
	}
	if err := c.Hire(e); err != nil {
		_ = s.pool.EarnCurrency(spec.HireCost)
		return nil, err
	}
	cs.emitEmployee(events.EventTypeEmployeeHired, s, c, e, spec.HireCost, now)
	return e, nil
}

// HireProxy hires the player behind an available resume.
func (cs *CompanySystem) HireProxy(s *Session, companyID, resumeID string, now time.Time) (*employee.Employee, error) {
	c, err := cs.hiringCompany(s, companyID)
	if err != nil {
		return nil, err
	}
	r, err := cs.board.Claim(resumeID, s.player.ID, c.ID)
	if err != nil {
		return nil, err
	}
	e := employee.NewHumanProxy(uuid.NewString(), r.PlayerName, r.PlayerID, r.PlayerLevel, r.Offered, r.ExpectedSalary, now)
	e.Proxy.ResumeID = r.ID
	if err := c.Hire(e); err != nil {
		cs.releaseResume(e)
		return nil, err
	}
	cs.emitEmployee(events.EventTypeEmployeeHired, s, c, e, 0, now)
	return e, nil
}

func (cs *CompanySystem) hiringCompany(s *Session, companyID string) (*company.Company, error) {
	c := s.company(companyID)
	if c == nil {
		return nil, reject.State(reject.CodeNotFound, "company %s not found", companyID)
	}
	if len(c.Employees) >= c.MaxEmployees {
		return nil, reject.Capacity(reject.CodeRosterFull, "company %s already employs %d/%d", c.ID, len(c.Employees), c.MaxEmployees)
	}
	return c, nil
}

// Dismiss fires an employee after paying twice their salary.
func (cs *CompanySystem) Dismiss(s *Session, companyID, employeeID string, now time.Time) (int64, error) {
	c := s.company(companyID)
	if c == nil {
		return 0, reject.State(reject.CodeNotFound, "company %s not found", companyID)
	}
	e := c.Find(employeeID)
	if e == nil {
		return 0, reject.State(reject.CodeNotFound, "employee %s not found at company %s", employeeID, companyID)
	}
	comp := e.DismissalCompensation()
	if !s.pool.TrySpendCurrency(comp) {
		return 0, reject.Capacity(reject.CodeInsufficientCurrency, "dismissal costs %d, balance %d", comp, s.pool.Currency())
	}
	if _, err := c.Dismiss(employeeID); err != nil {
		_ = s.pool.EarnCurrency(comp)
		return 0, err
	}
	cs.releaseResume(e)
	cs.emitEmployee(events.EventTypeEmployeeDismissed, s, c, e, comp, now)
	return comp, nil
}

// Train levels up an AI employee for its tier's training cost.
func (cs *CompanySystem) Train(s *Session, companyID, employeeID string, now time.Time) (*employee.Employee, error) {
	c := s.company(companyID)
	if c == nil {
		return nil, reject.State(reject.CodeNotFound, "company %s not found", companyID)
	}
	e := c.Find(employeeID)
	if e == nil {
		return nil, reject.State(reject.CodeNotFound, "employee %s not found at company %s", employeeID, companyID)
	}
	cost, err := e.TrainingCost()
	if err != nil {
		return nil, err
	}
	if !s.pool.TrySpendCurrency(cost) {
		return nil, reject.Capacity(reject.CodeInsufficientCurrency, "training costs %d, balance %d", cost, s.pool.Currency())
	}
	if err := e.Train(); err != nil {
		_ = s.pool.EarnCurrency(cost)
		return nil, err
	}
	c.Recompute()
	cs.emitEmployee(events.EventTypeEmployeeTrained, s, c, e, cost, now)
	return e, nil
}

// LevelUp advances a company that meets its thresholds.
func (cs *CompanySystem) LevelUp(s *Session, companyID string, now time.Time) (*company.Company, error) {
	c := s.company(companyID)
	if c == nil {
		return nil, reject.State(reject.CodeNotFound, "company %s not found", companyID)
	}
	if err := c.LevelUp(); err != nil {
		return nil, err
	}
	emit(cs.eventLog, events.EventTypeCompanyUpgraded, s, c.ID, now, CompanyPayload{
		CompanyID: c.ID, Name: c.Name, Tier: c.Tier.String(), Level: c.Level,
	})
	return c, nil
}

// Settle pays every company's net profit to its owner and stores the tier's data output.
// A loss is charged to the owner, clamped to the balance; the uncovered part is reported as shortfall.
func (cs *CompanySystem) Settle(s *Session, report *TickReport, now time.Time) {
	for _, c := range s.sortedCompanies() {
		report.guard("company", c.ID, func() error {
			net := c.Settle()
			p := IncomeSettledPayload{CompanyID: c.ID, Income: c.TotalIncome, Expenses: c.TotalExpenses, Net: net}
			if net >= 0 {
				if err := s.pool.EarnCurrency(net); err != nil {
					return err
				}
				report.CompanyNet += net
			} else {
				loss := -net
				charged := min(loss, s.pool.Currency())
				s.pool.TrySpendCurrency(charged)
				p.Charged = charged
				p.Shortfall = loss - charged
				report.CompanyCharged += charged
				report.Shortfall += p.Shortfall
				if p.Shortfall > 0 {
					cs.logger.Warn("company loss exceeds balance", "player", s.player.ID, "company", c.ID, "shortfall", p.Shortfall)
				}
			}
			if report.generate(s.pool, c.DataPerTick()) {
				p.DataGenerated = c.DataPerTick()
			} else {
				p.StorageFull = true
			}
			emit(cs.eventLog, events.EventTypeIncomeSettled, s, c.ID, now, p)
			return nil
		})
	}
}

func (cs *CompanySystem) releaseResume(e *employee.Employee) {
	if e.Kind != employee.KindHumanProxy || e.Proxy == nil || e.Proxy.ResumeID == "" {
		return
	}
	if _, err := cs.board.Release(e.Proxy.ResumeID); err != nil {
		cs.logger.Warn("resume release failed", "resume", e.Proxy.ResumeID, "error", err)
	}
}

func (cs *CompanySystem) emitEmployee(t events.EventType, s *Session, c *company.Company, e *employee.Employee, cost int64, now time.Time) {
	p := EmployeePayload{
		CompanyID:   c.ID,
		EmployeeID:  e.ID,
		Kind:        string(e.Kind),
		IncomeBonus: e.IncomeBonus,
		Cost:        cost,
	}
	if e.AI != nil {
		p.Level = e.AI.Level
	}
	if e.Proxy != nil {
		p.Level = e.Proxy.ProxyLevel
		p.ResumeID = e.Proxy.ResumeID
	}
	emit(cs.eventLog, t, s, e.ID, now, p)
}
