package network

import (
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/ByteLife/internal/domain/company"
	"github.com/MRamiBalles/ByteLife/internal/domain/employee"
	"github.com/MRamiBalles/ByteLife/internal/domain/lifestyle"
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/engine"
	"github.com/go-playground/validator/v10"
)

// Action types accepted from clients.
const (
	ActionCreateCompany     = "CREATE_COMPANY"
	ActionRemoveCompany     = "REMOVE_COMPANY"
	ActionHireAI            = "HIRE_AI"
	ActionHireProxy         = "HIRE_PROXY"
	ActionDismiss           = "DISMISS"
	ActionTrain             = "TRAIN"
	ActionLevelUpCompany    = "LEVEL_UP_COMPANY"
	ActionPurchaseSkill     = "PURCHASE_SKILL"
	ActionCancelDownload    = "CANCEL_DOWNLOAD"
	ActionAllocateComputing = "ALLOCATE_COMPUTING"
	ActionSetSkillInUse     = "SET_SKILL_IN_USE"
	ActionStartJob          = "START_JOB"
	ActionResignJob         = "RESIGN_JOB"
	ActionMoveIn            = "MOVE_IN"
	ActionAdoptPet          = "ADOPT_PET"
	ActionRehomePet         = "REHOME_PET"
	ActionClearData         = "CLEAR_DATA"
	ActionPublishResume     = "PUBLISH_RESUME"
	ActionWithdrawResume    = "WITHDRAW_RESUME"
	ActionListResumes       = "LIST_RESUMES"
	ActionGetState          = "GET_STATE"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type      string          `json:"type" validate:"required"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type createCompanyPayload struct {
	Name string `json:"name" validate:"required,max=64"`
	Tier string `json:"tier" validate:"required,oneof=Small Medium Large Corporation"`
}

type companyPayload struct {
	CompanyID string `json:"company_id" validate:"required"`
}

type hireAIPayload struct {
	CompanyID string `json:"company_id" validate:"required"`
	Name      string `json:"name" validate:"required,max=64"`
	Tier      string `json:"tier" validate:"required,oneof=Common Rare Epic Legendary"`
}

type hireProxyPayload struct {
	CompanyID string `json:"company_id" validate:"required"`
	ResumeID  string `json:"resume_id" validate:"required"`
}

type employeePayload struct {
	CompanyID  string `json:"company_id" validate:"required"`
	EmployeeID string `json:"employee_id" validate:"required"`
}

type skillPayload struct {
	SkillID string `json:"skill_id" validate:"required"`
}

type allocatePayload struct {
	SkillID string  `json:"skill_id" validate:"required"`
	Amount  float64 `json:"amount" validate:"gte=0"`
}

type inUsePayload struct {
	SkillID string `json:"skill_id" validate:"required"`
	InUse   bool   `json:"in_use"`
}

type jobPayload struct {
	JobID string `json:"job_id" validate:"required"`
}

type resignPayload struct {
	SlotID int `json:"slot_id" validate:"gte=0"`
}

type itemPayload struct {
	ItemID string `json:"item_id" validate:"required"`
}

type clearDataPayload struct {
	GB float64 `json:"gb" validate:"gt=0"`
}

type publishResumePayload struct {
	Offered        employee.ProvidedResources `json:"offered"`
	ExpectedSalary int64                      `json:"expected_salary" validate:"gte=0"`
}

type resumePayload struct {
	ResumeID string `json:"resume_id" validate:"required"`
}

// ErrorPayload is sent back when an action fails.
type ErrorPayload struct {
	Kind   string `json:"kind,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Dispatcher routes player actions to the engine.
type Dispatcher struct {
	engine   *engine.Engine
	validate *validator.Validate
}

// NewDispatcher creates an action router.
func NewDispatcher(eng *engine.Engine) *Dispatcher {
	return &Dispatcher{engine: eng, validate: validator.New()}
}

// decode unmarshals and validates an action payload.
func (d *Dispatcher) decode(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := d.validate.Struct(into); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// Dispatch executes one action for playerID and returns the result to send back.
func (d *Dispatcher) Dispatch(playerID string, a PlayerAction) (any, error) {
	eng := d.engine
	switch a.Type {
	case ActionCreateCompany:
		var p createCompanyPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		tier, _ := company.ParseTier(p.Tier)
		return eng.CreateCompany(playerID, p.Name, tier)
	case ActionRemoveCompany:
		var p companyPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return nil, eng.RemoveCompany(playerID, p.CompanyID)
	case ActionHireAI:
		var p hireAIPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		tier, _ := employee.ParseAITier(p.Tier)
		return eng.HireAI(playerID, p.CompanyID, p.Name, tier)
	case ActionHireProxy:
		var p hireProxyPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.HireProxy(playerID, p.CompanyID, p.ResumeID)
	case ActionDismiss:
		var p employeePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		paid, err := eng.DismissEmployee(playerID, p.CompanyID, p.EmployeeID)
		return map[string]int64{"compensation": paid}, err
	case ActionTrain:
		var p employeePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.TrainEmployee(playerID, p.CompanyID, p.EmployeeID)
	case ActionLevelUpCompany:
		var p companyPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.LevelUpCompany(playerID, p.CompanyID)
	case ActionPurchaseSkill:
		var p skillPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.PurchaseSkill(playerID, p.SkillID)
	case ActionCancelDownload:
		var p skillPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return nil, eng.CancelDownload(playerID, p.SkillID)
	case ActionAllocateComputing:
		var p allocatePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.AllocateComputing(playerID, p.SkillID, p.Amount)
	case ActionSetSkillInUse:
		var p inUsePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return nil, eng.SetSkillInUse(playerID, p.SkillID, p.InUse)
	case ActionStartJob:
		var p jobPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.StartJob(playerID, p.JobID)
	case ActionResignJob:
		var p resignPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.ResignJob(playerID, p.SlotID)
	case ActionMoveIn, ActionAdoptPet, ActionRehomePet:
		var p itemPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return nil, d.lifestyle(playerID, a.Type, lifestyle.ItemID(p.ItemID))
	case ActionClearData:
		var p clearDataPayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		cleared, err := eng.ClearData(playerID, p.GB)
		return map[string]float64{"cleared_gb": cleared}, err
	case ActionPublishResume:
		var p publishResumePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.PublishResume(playerID, p.Offered, p.ExpectedSalary)
	case ActionWithdrawResume:
		var p resumePayload
		if err := d.decode(a.Payload, &p); err != nil {
			return nil, err
		}
		return eng.WithdrawResume(playerID, p.ResumeID)
	case ActionListResumes:
		return eng.Resumes(), nil
	case ActionGetState:
		return eng.State(playerID)
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (d *Dispatcher) lifestyle(playerID, action string, id lifestyle.ItemID) error {
	switch action {
	case ActionMoveIn:
		return d.engine.MoveIn(playerID, id)
	case ActionAdoptPet:
		return d.engine.AdoptPet(playerID, id)
	default:
		return d.engine.RehomePet(playerID, id)
	}
}

// errorPayload renders err for the client. Rejections keep their code.
func errorPayload(err error) ErrorPayload {
	if rej, ok := reject.As(err); ok {
		return ErrorPayload{Kind: string(rej.Kind), Code: rej.Code, Reason: rej.Reason}
	}
	return ErrorPayload{Code: "BAD_REQUEST", Reason: err.Error()}
}
