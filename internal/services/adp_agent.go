package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

var agentStatuses = []string{types.AgentStatusActive, types.AgentStatusInactive}

type AdpAgentInput struct {
	Matricule  string      `json:"matricule"`
	FullName   string      `json:"full_name"`
	UserID     *uuid.UUID  `json:"user_id"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	CommuneIDs []uuid.UUID `json:"commune_ids"`
	DpanefID   *uuid.UUID  `json:"dpanef_id"`
	DranefID   *uuid.UUID  `json:"dranef_id"`
	Status     string      `json:"status"`
}

type AdpAgentPatch struct {
	FullName   OptionalString `json:"full_name"`
	UserID     OptionalUUID   `json:"user_id"`
	Email      OptionalString `json:"email"`
	Phone      OptionalString `json:"phone"`
	CommuneIDs *[]uuid.UUID   `json:"commune_ids"`
	DpanefID   OptionalUUID   `json:"dpanef_id"`
	Status     OptionalString `json:"status"`
}

// AdpAgentService is the ADP registry. Reads are scope-filtered; writes need
// access to the ADP management menu and stay inside the caller's territory.
type AdpAgentService interface {
	List(dbc dbctx.Context) ([]*types.AdpAgent, error)
	Create(dbc dbctx.Context, in AdpAgentInput) (*types.AdpAgent, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch AdpAgentPatch) (*types.AdpAgent, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type adpAgentService struct {
	db        *gorm.DB
	log       *logger.Logger
	tx        repos.TxRunner
	repo      repos.AdpAgentRepo
	territory TerritoryService
}

func NewAdpAgentService(db *gorm.DB, baseLog *logger.Logger, tx repos.TxRunner, repo repos.AdpAgentRepo, territory TerritoryService) AdpAgentService {
	return &adpAgentService{
		db:        db,
		log:       baseLog.With("service", "AdpAgentService"),
		tx:        tx,
		repo:      repo,
		territory: territory,
	}
}

func (s *adpAgentService) List(dbc dbctx.Context) ([]*types.AdpAgent, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	return rbac.Filter(rows, rd.Scope, h), nil
}

func (s *adpAgentService) Create(dbc dbctx.Context, in AdpAgentInput) (*types.AdpAgent, error) {
	rd, err := s.manager(dbc)
	if err != nil {
		return nil, err
	}
	row := &types.AdpAgent{
		Matricule:  strings.TrimSpace(in.Matricule),
		FullName:   strings.TrimSpace(in.FullName),
		UserID:     in.UserID,
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		CommuneIDs: datatypes.JSONSlice[uuid.UUID](in.CommuneIDs),
		DpanefID:   in.DpanefID,
		DranefID:   in.DranefID,
		Status:     strings.TrimSpace(in.Status),
	}
	if row.Matricule == "" || row.FullName == "" {
		return nil, invalid("invalid_request", "matricule and full_name are required")
	}
	if row.Status == "" {
		row.Status = types.AgentStatusActive
	}
	if row.CommuneIDs == nil {
		row.CommuneIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		if err := s.check(inner, rd.Scope, row); err != nil {
			return err
		}
		existing, err := s.repo.List(inner)
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		for _, a := range existing {
			if strings.EqualFold(a.Matricule, row.Matricule) {
				return apierr.Conflict("matricule_taken", fmt.Errorf("%w: matricule %s already registered", pkgerrors.ErrConflict, row.Matricule))
			}
		}
		if err := s.repo.Create(inner, row); err != nil {
			return fmt.Errorf("create agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("adp agent created", "agent_id", row.ID, "matricule", row.Matricule, "by", rd.UserID)
	return row, nil
}

func (s *adpAgentService) Patch(dbc dbctx.Context, id uuid.UUID, patch AdpAgentPatch) (*types.AdpAgent, error) {
	rd, err := s.manager(dbc)
	if err != nil {
		return nil, err
	}
	var out *types.AdpAgent
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		cur, err := s.visible(inner, rd.Scope, id)
		if err != nil {
			return err
		}
		updates := patchSet{}
		if patch.FullName.Set {
			if patch.FullName.Value == nil {
				return invalid("invalid_request", "full_name cannot be empty")
			}
			updates["full_name"] = *patch.FullName.Value
		}
		if patch.UserID.Set {
			cur.UserID = patch.UserID.Value
			updates.setUUID("user_id", patch.UserID)
		}
		if patch.Email.Set {
			updates["email"] = strings.ToLower(patch.Email.Or(""))
		}
		updates.setString("phone", patch.Phone)
		if patch.Status.Set {
			cur.Status = patch.Status.Or(types.AgentStatusActive)
			updates["status"] = cur.Status
		}
		if patch.CommuneIDs != nil || patch.DpanefID.Set {
			if patch.CommuneIDs != nil {
				cur.CommuneIDs = datatypes.JSONSlice[uuid.UUID](*patch.CommuneIDs)
				if cur.CommuneIDs == nil {
					cur.CommuneIDs = datatypes.JSONSlice[uuid.UUID]{}
				}
			}
			if patch.DpanefID.Set {
				cur.DpanefID = patch.DpanefID.Value
			}
			cur.DranefID = nil
			if !patch.DpanefID.Set {
				cur.DpanefID = nil
			}
			updates["commune_ids"] = cur.CommuneIDs
		}
		if err := s.check(inner, rd.Scope, cur); err != nil {
			return err
		}
		if _, ok := updates["commune_ids"]; ok {
			updates["dpanef_id"] = cur.DpanefID
			updates["dranef_id"] = cur.DranefID
		}
		if len(updates) > 0 {
			if err := s.repo.UpdateFields(inner, id, updates); err != nil {
				return fmt.Errorf("update agent: %w", err)
			}
		}
		out, err = s.repo.GetByID(inner, id)
		if err != nil {
			return fmt.Errorf("reload agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *adpAgentService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	rd, err := s.manager(dbc)
	if err != nil {
		return err
	}
	row, err := s.visible(dbc, rd.Scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(dbc, row.ID); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	s.log.Info("adp agent deleted", "agent_id", row.ID, "by", rd.UserID)
	return nil
}

func (s *adpAgentService) manager(dbc dbctx.Context) (*ctxutil.RequestData, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(rd.Scope.Level, rbac.MenuGestionADP) {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("%w: ADP management", pkgerrors.ErrForbidden))
	}
	return rd, nil
}

func (s *adpAgentService) visible(dbc dbctx.Context, scope rbac.UserScope, id uuid.UUID) (*types.AdpAgent, error) {
	row, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	if row == nil || !rbac.AllowsItem(row, scope, h) {
		return nil, notFound("adp agent")
	}
	return row, nil
}

// check validates the agent's communes, derives the missing upper anchors
// and refuses placements outside the caller's scope.
func (s *adpAgentService) check(dbc dbctx.Context, scope rbac.UserScope, a *types.AdpAgent) error {
	if err := checkEnum("invalid_status", "status", a.Status, agentStatuses); err != nil {
		return err
	}
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return err
	}
	for _, c := range a.CommuneIDs {
		if !h.HasCommune(c) {
			return invalid("invalid_commune", "unknown commune %s", c)
		}
	}
	if a.DpanefID != nil && !h.HasDpanef(*a.DpanefID) {
		return invalid("invalid_dpanef", "unknown dpanef %s", *a.DpanefID)
	}
	p := Placement{DranefID: a.DranefID, DpanefID: a.DpanefID}
	if len(a.CommuneIDs) > 0 {
		p.CommuneID = &a.CommuneIDs[0]
	}
	if p, err = h.Complete(p); err != nil {
		return err
	}
	a.DpanefID, a.DranefID = p.DpanefID, p.DranefID
	if !rbac.AllowsItem(a, scope, h) {
		return apierr.Forbidden("out_of_scope", fmt.Errorf("%w: agent outside your territory", pkgerrors.ErrForbidden))
	}
	return nil
}
