package services

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
	"github.com/anef-maroc/pdfcp-backend/internal/stats"
)

type DashboardService interface {
	Stats(dbc dbctx.Context, f stats.Filters) (*stats.Dashboard, error)
}

type dashboardService struct {
	db            *gorm.DB
	log           *logger.Logger
	agents        repos.AdpAgentRepo
	programs      repos.ProgramRepo
	activities    repos.ActivityRepo
	organizations repos.OrganizationRepo
	conflicts     repos.ConflictRepo
	territory     TerritoryService
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	agents repos.AdpAgentRepo,
	programs repos.ProgramRepo,
	activities repos.ActivityRepo,
	organizations repos.OrganizationRepo,
	conflicts repos.ConflictRepo,
	territory TerritoryService,
) DashboardService {
	return &dashboardService{
		db:            db,
		log:           baseLog.With("service", "DashboardService"),
		agents:        agents,
		programs:      programs,
		activities:    activities,
		organizations: organizations,
		conflicts:     conflicts,
		territory:     territory,
	}
}

type dashboardLoad struct {
	h             *Hierarchy
	agents        []*types.AdpAgent
	programs      []*types.Program
	activities    []*types.Activity
	organizations []*types.Organization
	conflicts     []*types.Conflict
	dranefs       []*types.Dranef
}

func (s *dashboardService) Stats(dbc dbctx.Context, f stats.Filters) (*stats.Dashboard, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	l, err := s.load(dbc)
	if err != nil {
		return nil, err
	}
	scope := rd.Scope
	in := stats.Inputs{
		Agents:        values(rbac.Filter(l.agents, scope, l.h)),
		Programs:      values(rbac.Filter(l.programs, scope, l.h)),
		Activities:    values(rbac.Filter(l.activities, scope, l.h)),
		Organizations: values(rbac.Filter(l.organizations, scope, l.h)),
		Conflicts:     values(rbac.Filter(l.conflicts, scope, l.h)),
		Dranefs:       values(visibleDranefs(l.dranefs, scope, l.h)),
	}
	out := stats.Compute(in, f, l.h)
	s.log.Debug("dashboard computed", "user_id", rd.UserID, "scope", scope.Level, "programs", out.Stats.TotalPdfcp)
	return &out, nil
}

// load reads every source list concurrently outside a transaction.
func (s *dashboardService) load(dbc dbctx.Context) (*dashboardLoad, error) {
	l := &dashboardLoad{}
	run := func(inner dbctx.Context) []func() error {
		return []func() error{
			func() (err error) {
				l.h, err = s.territory.Hierarchy(inner)
				return err
			},
			func() (err error) {
				l.agents, err = s.agents.List(inner)
				return wrap("list agents", err)
			},
			func() (err error) {
				l.programs, err = s.programs.List(inner, repos.ProgramFilter{})
				return wrap("list programs", err)
			},
			func() (err error) {
				l.activities, err = s.activities.List(inner, repos.FieldFilter{})
				return wrap("list activities", err)
			},
			func() (err error) {
				l.organizations, err = s.organizations.List(inner, repos.FieldFilter{})
				return wrap("list organizations", err)
			},
			func() (err error) {
				l.conflicts, err = s.conflicts.List(inner, repos.FieldFilter{})
				return wrap("list conflicts", err)
			},
			func() (err error) {
				l.dranefs, err = s.territory.ListDranef(inner, nil)
				return err
			},
		}
	}
	if dbc.Tx != nil {
		for _, fn := range run(dbc) {
			if err := fn(); err != nil {
				return nil, err
			}
		}
		return l, nil
	}
	g, gctx := errgroup.WithContext(dbc.Ctx)
	for _, fn := range run(dbctx.Context{Ctx: gctx}) {
		g.Go(fn)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return l, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// visibleDranefs keeps the DRANEF rows a scope can report on.
func visibleDranefs(all []*types.Dranef, scope rbac.UserScope, h *Hierarchy) []*types.Dranef {
	if scope.Level.Unrestricted() {
		return all
	}
	keep := map[uuid.UUID]bool{}
	switch scope.Level {
	case rbac.ScopeRegional:
		if scope.DranefID != nil {
			keep[*scope.DranefID] = true
		}
	case rbac.ScopeProvincial:
		if scope.DpanefID != nil {
			if dr, ok := h.DranefOfDpanef(*scope.DpanefID); ok {
				keep[dr] = true
			}
		}
	case rbac.ScopeLocal:
		for _, c := range scope.CommuneIDs {
			if dp, ok := h.DpanefOfCommune(c); ok {
				if dr, ok := h.DranefOfDpanef(dp); ok {
					keep[dr] = true
				}
			}
		}
	}
	out := make([]*types.Dranef, 0, len(keep))
	for _, d := range all {
		if keep[d.ID] {
			out = append(out, d)
		}
	}
	return out
}
