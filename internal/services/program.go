package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/workflow"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type ProgramQuery struct {
	DranefID         *uuid.UUID
	DpanefID         *uuid.UUID
	CommuneID        *uuid.UUID
	Year             *int
	ValidationStatus string
}

type ProgramInput struct {
	Code          string     `json:"code"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	StartYear     int        `json:"start_year"`
	EndYear       int        `json:"end_year"`
	RegionID      *uuid.UUID `json:"region_id"`
	DranefID      *uuid.UUID `json:"dranef_id"`
	DpanefID      *uuid.UUID `json:"dpanef_id"`
	CommuneID     *uuid.UUID `json:"commune_id"`
	AdpUserID     *uuid.UUID `json:"adp_user_id"`
	TotalBudgetDH float64    `json:"total_budget_dh"`
}

// ProgramPatch carries the editable fields; status moves go through ValidationService.
type ProgramPatch struct {
	Title         OptionalString  `json:"title"`
	Description   OptionalString  `json:"description"`
	TotalBudgetDH OptionalFloat64 `json:"total_budget_dh"`
	CommuneID     OptionalUUID    `json:"commune_id"`
}

// ProgramView is a program with what the caller may do next.
type ProgramView struct {
	*types.Program
	StatusLabel string                   `json:"status_label"`
	NextActions []types.ValidationStatus `json:"next_actions"`
	CanCancel   bool                     `json:"can_cancel"`
	CanUnlock   bool                     `json:"can_unlock"`
	LockedForMe bool                     `json:"locked_for_me"`
}

func viewOf(p *types.Program, level rbac.ScopeLevel) *ProgramView {
	status := workflow.Normalize(p.ValidationStatus)
	next := workflow.NextActions(status, level)
	if next == nil {
		next = []types.ValidationStatus{}
	}
	return &ProgramView{
		Program:     p,
		StatusLabel: workflow.Label(status),
		NextActions: next,
		CanCancel:   workflow.CanCancel(status, level),
		CanUnlock:   workflow.CanUnlock(status, level),
		LockedForMe: programLocked(p, level),
	}
}

type ProgramService interface {
	List(dbc dbctx.Context, q ProgramQuery) ([]*types.Program, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*ProgramView, error)
	Create(dbc dbctx.Context, in ProgramInput) (*types.Program, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch ProgramPatch) (*types.Program, error)
}

type programService struct {
	db        *gorm.DB
	log       *logger.Logger
	tx        repos.TxRunner
	programs  repos.ProgramRepo
	history   repos.ValidationHistoryRepo
	territory TerritoryService
	guard     programGuard
}

func NewProgramService(
	db *gorm.DB,
	baseLog *logger.Logger,
	tx repos.TxRunner,
	programs repos.ProgramRepo,
	history repos.ValidationHistoryRepo,
	territory TerritoryService,
) ProgramService {
	return &programService{
		db:        db,
		log:       baseLog.With("service", "ProgramService"),
		tx:        tx,
		programs:  programs,
		history:   history,
		territory: territory,
		guard:     programGuard{programs: programs, territory: territory},
	}
}

func (s *programService) List(dbc dbctx.Context, q ProgramQuery) ([]*types.Program, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if q.ValidationStatus != "" {
		st, err := workflow.ParseStatus(q.ValidationStatus)
		if err != nil {
			return nil, invalid("invalid_status", "unknown validation_status %q", q.ValidationStatus)
		}
		q.ValidationStatus = string(st)
	}
	rows, err := s.programs.List(dbc, repos.ProgramFilter{
		DranefID:         q.DranefID,
		DpanefID:         q.DpanefID,
		CommuneID:        q.CommuneID,
		Year:             q.Year,
		ValidationStatus: q.ValidationStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	return rbac.Filter(rows, rd.Scope, h), nil
}

func (s *programService) Get(dbc dbctx.Context, id uuid.UUID) (*ProgramView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.load(dbc, rd.Scope, id, false)
	if err != nil {
		return nil, err
	}
	return viewOf(p, rd.Scope.Level), nil
}

func (s *programService) Create(dbc dbctx.Context, in ProgramInput) (*types.Program, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Title = strings.TrimSpace(in.Title)
	if in.Code == "" || in.Title == "" {
		return nil, invalid("invalid_request", "code and title are required")
	}
	if in.StartYear <= 0 || in.EndYear < in.StartYear {
		return nil, invalid("invalid_request", "start_year must be set and not after end_year")
	}
	if in.TotalBudgetDH < 0 {
		return nil, invalid("invalid_request", "total_budget_dh cannot be negative")
	}

	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	if in.CommuneID != nil && !h.HasCommune(*in.CommuneID) {
		return nil, invalid("invalid_commune", "unknown commune %s", *in.CommuneID)
	}
	place, err := h.Complete(Placement{RegionID: in.RegionID, DranefID: in.DranefID, DpanefID: in.DpanefID, CommuneID: in.CommuneID})
	if err != nil {
		return nil, err
	}

	actor := rd.UserID
	p := &types.Program{
		Code:             in.Code,
		Title:            in.Title,
		Description:      strings.TrimSpace(in.Description),
		StartYear:        in.StartYear,
		EndYear:          in.EndYear,
		RegionID:         place.RegionID,
		DranefID:         place.DranefID,
		DpanefID:         place.DpanefID,
		CommuneID:        place.CommuneID,
		AdpUserID:        in.AdpUserID,
		TotalBudgetDH:    in.TotalBudgetDH,
		ValidationStatus: types.StatusBrouillon,
		CreatedBy:        &actor,
	}
	if p.AdpUserID == nil && rd.Scope.Level == rbac.ScopeLocal {
		p.AdpUserID = &actor
	}
	if !rbac.AllowsItem(*p, rd.Scope, h) {
		return nil, apierr.Forbidden("out_of_scope", fmt.Errorf("%w: program outside your territory", pkgerrors.ErrForbidden))
	}

	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		if err := s.programs.Create(inner, p); err != nil {
			if repos.IsDuplicateKey(err) {
				return apierr.Conflict("duplicate_code", fmt.Errorf("%w: program code %q already exists", pkgerrors.ErrConflict, p.Code))
			}
			return fmt.Errorf("create program: %w", err)
		}
		return s.history.Create(inner, historyEntry(rd, p.ID, workflow.HistoryCreated, "", types.StatusBrouillon, "", nil))
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("program created", "pdfcp_id", p.ID, "code", p.Code, "actor_id", rd.UserID)
	return p, nil
}

func (s *programService) Patch(dbc dbctx.Context, id uuid.UUID, patch ProgramPatch) (*types.Program, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if patch.Title.Set && patch.Title.Value == nil {
		return nil, invalid("invalid_request", "title cannot be empty")
	}
	if patch.TotalBudgetDH.Set && patch.TotalBudgetDH.Value != nil && *patch.TotalBudgetDH.Value < 0 {
		return nil, invalid("invalid_request", "total_budget_dh cannot be negative")
	}

	var out *types.Program
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.editable(inner, rd.Scope, id)
		if err != nil {
			return err
		}
		updates := patchSet{}
		updates.setString("title", patch.Title)
		updates.setString("description", patch.Description)
		if patch.TotalBudgetDH.Set {
			updates["total_budget_dh"] = 0.0
			if patch.TotalBudgetDH.Value != nil {
				updates["total_budget_dh"] = *patch.TotalBudgetDH.Value
			}
		}
		if patch.CommuneID.Set {
			moved := *p
			if err := s.relocate(inner, &moved, updates, patch.CommuneID.Value); err != nil {
				return err
			}
			h, err := s.territory.Hierarchy(inner)
			if err != nil {
				return err
			}
			if !rbac.AllowsItem(moved, rd.Scope, h) {
				return apierr.Forbidden("out_of_scope", fmt.Errorf("%w: program would leave your territory", pkgerrors.ErrForbidden))
			}
		}
		if len(updates) == 0 {
			out = p
			return nil
		}
		if err := s.programs.UpdateFields(inner, p.ID, updates); err != nil {
			return fmt.Errorf("update program: %w", err)
		}
		out, err = s.programs.GetByID(inner, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// relocate moves p to another commune and rederives the upper levels. The
// same columns are recorded in updates.
func (s *programService) relocate(dbc dbctx.Context, p *types.Program, updates patchSet, communeID *uuid.UUID) error {
	if communeID == nil {
		p.CommuneID = nil
		updates["commune_id"] = nil
		return nil
	}
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return err
	}
	if !h.HasCommune(*communeID) {
		return invalid("invalid_commune", "unknown commune %s", *communeID)
	}
	place, err := h.Complete(Placement{CommuneID: communeID})
	if err != nil {
		return err
	}
	p.CommuneID = place.CommuneID
	p.DpanefID = place.DpanefID
	updates["commune_id"] = *communeID
	updates["dpanef_id"] = *place.DpanefID
	if place.DranefID != nil {
		p.DranefID = place.DranefID
		updates["dranef_id"] = *place.DranefID
	}
	if place.RegionID != nil {
		p.RegionID = place.RegionID
		updates["region_id"] = *place.RegionID
	}
	return nil
}
