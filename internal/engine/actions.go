package engine

import (
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/job"
	"github.com/MRamiBalles/ByteLife/internal/domain/lifestyle"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/MRamiBalles/ByteLife/internal/domain/resume"
	"github.com/MRamiBalles/ByteLife/internal/domain/skill"
	"github.com/MRamiBalles/ByteLife/internal/events"
	"github.com/google/uuid"
)

// CreditPayload records currency or capacity granted from outside the economy (the shop).
type CreditPayload struct {
	Amount    float64 `json:"amount"`
	Resource  string  `json:"resource,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Balance   int64   `json:"balance"`
}

// ResumePayload describes a resume board change.
type ResumePayload struct {
	ResumeID       string  `json:"resume_id"`
	ExpectedSalary int64   `json:"expected_salary"`
	IncomeBonus    float64 `json:"income_bonus"`
}

// --- Companies ---

// CreateCompany founds a company for playerID.
func (e *Engine) CreateCompany(playerID, name string, tier company.Tier) (company.Company, error) {
	var out company.Company
	err := e.do(playerID, func(s *Session, now time.Time) error {
		c, err := e.companySystem.Create(s, name, tier, now)
		if err != nil {
			return err
		}
		out = *c.Clone()
		return nil
	})
	return out, err
}

// RemoveCompany closes a company. Its employees leave without compensation.
func (e *Engine) RemoveCompany(playerID, companyID string) error {
	return e.do(playerID, func(s *Session, now time.Time) error {
		return e.companySystem.Remove(s, companyID, now)
	})
}

// HireAI buys and hires an AI employee.
func (e *Engine) HireAI(playerID, companyID, name string, tier employee.AITier) (employee.Employee, error) {
	var out employee.Employee
	err := e.do(playerID, func(s *Session, now time.Time) error {
		emp, err := e.companySystem.HireAI(s, companyID, name, tier, now)
		if err != nil {
			return err
		}
		out = *emp.Clone()
		return nil
	})
	return out, err
}

// HireProxy hires another player through their published resume.
func (e *Engine) HireProxy(playerID, companyID, resumeID string) (employee.Employee, error) {
	var out employee.Employee
	err := e.do(playerID, func(s *Session, now time.Time) error {
		emp, err := e.companySystem.HireProxy(s, companyID, resumeID, now)
		if err != nil {
			return err
		}
		out = *emp.Clone()
		return nil
	})
	return out, err
}

// DismissEmployee fires an employee and returns the compensation paid.
func (e *Engine) DismissEmployee(playerID, companyID, employeeID string) (int64, error) {
	var paid int64
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		paid, err = e.companySystem.Dismiss(s, companyID, employeeID, now)
		return err
	})
	return paid, err
}

// TrainEmployee raises an AI employee one level.
func (e *Engine) TrainEmployee(playerID, companyID, employeeID string) (employee.Employee, error) {
	var out employee.Employee
	err := e.do(playerID, func(s *Session, now time.Time) error {
		emp, err := e.companySystem.Train(s, companyID, employeeID, now)
		if err != nil {
			return err
		}
		out = *emp.Clone()
		return nil
	})
	return out, err
}

// LevelUpCompany upgrades a company whose income and staff meet the thresholds.
func (e *Engine) LevelUpCompany(playerID, companyID string) (company.Company, error) {
	var out company.Company
	err := e.do(playerID, func(s *Session, now time.Time) error {
		c, err := e.companySystem.LevelUp(s, companyID, now)
		if err != nil {
			return err
		}
		out = *c.Clone()
		return nil
	})
	return out, err
}

// --- Skills ---

// PurchaseSkill buys a skill and starts its download.
func (e *Engine) PurchaseSkill(playerID, skillID string) (skill.Instance, error) {
	var out skill.Instance
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		out, err = e.skillSystem.Purchase(s, skillID, now)
		return err
	})
	return out, err
}

// CancelDownload aborts a download and refunds it.
func (e *Engine) CancelDownload(playerID, skillID string) error {
	return e.do(playerID, func(s *Session, now time.Time) error {
		return e.skillSystem.Cancel(s, skillID, now)
	})
}

// AllocateComputing sets the computing assigned to an installed skill.
func (e *Engine) AllocateComputing(playerID, skillID string, amount float64) (skill.Instance, error) {
	var out skill.Instance
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		out, err = e.skillSystem.Allocate(s, skillID, amount, now)
		return err
	})
	return out, err
}

// SetSkillInUse flags whether a skill is actively used.
func (e *Engine) SetSkillInUse(playerID, skillID string, inUse bool) error {
	return e.do(playerID, func(s *Session, _ time.Time) error {
		return e.skillSystem.SetInUse(s, skillID, inUse)
	})
}

// AdvanceDownload moves one download forward by delta. It reports whether the skill got installed.
func (e *Engine) AdvanceDownload(playerID, skillID string, delta time.Duration) (bool, error) {
	var done bool
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		done, err = e.skillSystem.Advance(s, skillID, delta, now)
		return err
	})
	return done, err
}

// --- Jobs ---

// StartJob takes a job in a free slot.
func (e *Engine) StartJob(playerID, jobID string) (job.Instance, error) {
	var out job.Instance
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		out, err = e.jobSystem.Start(s, jobID, now)
		return err
	})
	return out, err
}

// ResignJob leaves the job in slotID.
func (e *Engine) ResignJob(playerID string, slotID int) (job.Instance, error) {
	var out job.Instance
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		out, err = e.jobSystem.Resign(s, slotID, now)
		return err
	})
	return out, err
}

// --- Lifestyle and storage ---

// MoveIn buys a new home.
func (e *Engine) MoveIn(playerID string, id lifestyle.ItemID) error {
	return e.do(playerID, func(s *Session, _ time.Time) error {
		return e.moodSystem.MoveIn(s, id)
	})
}

// AdoptPet buys a pet.
func (e *Engine) AdoptPet(playerID string, id lifestyle.ItemID) error {
	return e.do(playerID, func(s *Session, _ time.Time) error {
		return e.moodSystem.Adopt(s, id)
	})
}

// RehomePet gives a pet away.
func (e *Engine) RehomePet(playerID string, id lifestyle.ItemID) error {
	return e.do(playerID, func(s *Session, _ time.Time) error {
		return e.moodSystem.Rehome(s, id)
	})
}

// ClearData deletes generated data and returns how much was freed.
func (e *Engine) ClearData(playerID string, gb float64) (float64, error) {
	var cleared float64
	err := e.do(playerID, func(s *Session, now time.Time) error {
		var err error
		cleared, err = e.storageSystem.ClearData(s, gb, now)
		return err
	})
	return cleared, err
}

// --- Shop credits ---

// CreditCurrency adds purchased currency to a player's balance.
func (e *Engine) CreditCurrency(playerID string, amount int64, reference string) error {
	return e.do(playerID, func(s *Session, now time.Time) error {
		if err := s.pool.EarnCurrency(amount); err != nil {
			return err
		}
		emit(e.eventLog, events.EventTypeCurrencyCredited, s, s.player.ID, now, CreditPayload{
			Amount: float64(amount), Reference: reference, Balance: s.pool.Currency(),
		})
		e.logger.Info("currency credited", "player", s.player.ID, "amount", amount, "reference", reference)
		return nil
	})
}

// UpgradeCapacity grows one resource's capacity.
func (e *Engine) UpgradeCapacity(playerID string, kind resource.Kind, amount float64, reference string) error {
	return e.do(playerID, func(s *Session, now time.Time) error {
		if err := s.pool.UpgradeCapacity(kind, amount); err != nil {
			return err
		}
		emit(e.eventLog, events.EventTypeCapacityUpgraded, s, s.player.ID, now, CreditPayload{
			Amount: amount, Resource: kind.String(), Reference: reference, Balance: s.pool.Currency(),
		})
		if kind == resource.Storage {
			e.storageSystem.CheckThresholds(s, now)
		}
		return nil
	})
}

// --- Resumes ---

// PublishResume lists the player on the job market. Offered resources cannot exceed the player's own capacity.
func (e *Engine) PublishResume(playerID string, offered employee.ProvidedResources, salary int64) (resume.Resume, error) {
	var out resume.Resume
	err := e.do(playerID, func(s *Session, now time.Time) error {
		if salary < 0 {
			return reject.State(reject.CodeInvalidAmount, "expected salary must not be negative, got %d", salary)
		}
		if err := e.checkOffer(s, offered); err != nil {
			return err
		}
		r, err := e.board.Publish(uuid.NewString(), s.player.ID, s.player.Name, s.player.Level, offered, salary, now)
		if err != nil {
			return err
		}
		out = r
		emit(e.eventLog, events.EventTypeResumePublished, s, r.ID, now, ResumePayload{
			ResumeID: r.ID, ExpectedSalary: r.ExpectedSalary, IncomeBonus: r.IncomeBonus,
		})
		return nil
	})
	return out, err
}

// WithdrawResume takes the player's resume off the market.
func (e *Engine) WithdrawResume(playerID, resumeID string) (resume.Resume, error) {
	var out resume.Resume
	err := e.do(playerID, func(s *Session, now time.Time) error {
		r, ok := e.board.Get(resumeID)
		if !ok || r.PlayerID != s.player.ID {
			return reject.State(reject.CodeNotFound, "resume %s not found", resumeID)
		}
		r, err := e.board.Withdraw(resumeID)
		if err != nil {
			return err
		}
		out = r
		emit(e.eventLog, events.EventTypeResumeWithdrawn, s, r.ID, now, ResumePayload{
			ResumeID: r.ID, ExpectedSalary: r.ExpectedSalary, IncomeBonus: r.IncomeBonus,
		})
		return nil
	})
	return out, err
}

// Resumes lists the resumes open for hire, best bonus first.
func (e *Engine) Resumes() []resume.Resume {
	return e.board.Available()
}

func (e *Engine) checkOffer(s *Session, offered employee.ProvidedResources) error {
	limits := []struct {
		kind resource.Kind
		v    float64
	}{
		{resource.Memory, offered.Memory},
		{resource.CPU, offered.CPU},
		{resource.Bandwidth, offered.Bandwidth},
		{resource.Computing, offered.Computing},
	}
	for _, l := range limits {
		if l.v < 0 {
			return reject.State(reject.CodeInvalidAmount, "offered %s must not be negative", l.kind)
		}
		if l.v > s.pool.Capacity(l.kind) {
			return reject.Capacity(reject.CodeInsufficientResource, "offered %s %.2f exceeds capacity %.2f", l.kind, l.v, s.pool.Capacity(l.kind))
		}
	}
	return nil
}
