package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/reconcile"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

// ComparatifView holds the three layers of one program: the line matching,
// the per-key totals with their deltas and rates, and the per-action summary.
type ComparatifView struct {
	Program    *ProgramView          `json:"program"`
	Comparatif reconcile.Comparatif  `json:"comparatif"`
	ByKey      []reconcile.KeyTotals `json:"by_key"`
	Summary    reconcile.Summary     `json:"summary"`
}

type AlertQuery struct {
	PdfcpID   *uuid.UUID
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	Type      string
	Severity  string
}

type AlertsView struct {
	Alerts  []reconcile.Alert      `json:"alerts"`
	Summary reconcile.AlertSummary `json:"summary"`
}

// ReportingService derives the reconciliation reports from the action lines.
type ReportingService interface {
	Comparatif(dbc dbctx.Context, pdfcpID uuid.UUID) (*ComparatifView, error)
	Alerts(dbc dbctx.Context, q AlertQuery) (*AlertsView, error)
	KPIs(dbc dbctx.Context, q ProgramQuery) (*reconcile.KPIs, error)
}

type reportingService struct {
	db        *gorm.DB
	log       *logger.Logger
	programs  repos.ProgramRepo
	actions   repos.ActionRepo
	territory TerritoryService
	guard     programGuard
}

func NewReportingService(db *gorm.DB, baseLog *logger.Logger, programs repos.ProgramRepo, actions repos.ActionRepo, territory TerritoryService) ReportingService {
	return &reportingService{
		db:        db,
		log:       baseLog.With("service", "ReportingService"),
		programs:  programs,
		actions:   actions,
		territory: territory,
		guard:     programGuard{programs: programs, territory: territory},
	}
}

func values[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}

func (s *reportingService) Comparatif(dbc dbctx.Context, pdfcpID uuid.UUID) (*ComparatifView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.load(dbc, rd.Scope, pdfcpID, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.actions.ListByProgram(dbc, p.ID, repos.ActionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	lines := values(rows)
	return &ComparatifView{
		Program:    viewOf(p, rd.Scope.Level),
		Comparatif: reconcile.BuildComparatif(lines),
		ByKey:      nonNil(reconcile.Aggregate(lines)),
		Summary:    reconcile.SummarizeByAction(lines),
	}, nil
}

// scoped loads the programs visible to the caller and all of their lines.
func (s *reportingService) scoped(dbc dbctx.Context, scope rbac.UserScope, f repos.ProgramFilter) ([]*types.Program, []*types.Action, *Hierarchy, error) {
	var (
		rows []*types.Program
		h    *Hierarchy
	)
	if dbc.Tx != nil {
		var err error
		if rows, err = s.programs.List(dbc, f); err != nil {
			return nil, nil, nil, fmt.Errorf("list programs: %w", err)
		}
		if h, err = s.territory.Hierarchy(dbc); err != nil {
			return nil, nil, nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(dbc.Ctx)
		inner := dbctx.Context{Ctx: gctx}
		g.Go(func() error {
			var err error
			rows, err = s.programs.List(inner, f)
			if err != nil {
				return fmt.Errorf("list programs: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			h, err = s.territory.Hierarchy(inner)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, nil, nil, err
		}
	}

	visible := rbac.Filter(rows, scope, h)
	ids := make([]uuid.UUID, 0, len(visible))
	for _, p := range visible {
		ids = append(ids, p.ID)
	}
	lines, err := s.actions.ListByPrograms(dbc, ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list actions: %w", err)
	}
	return visible, lines, h, nil
}

func (s *reportingService) Alerts(dbc dbctx.Context, q AlertQuery) (*AlertsView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	f := reconcile.AlertFilter{
		PdfcpID:   q.PdfcpID,
		DranefID:  q.DranefID,
		DpanefID:  q.DpanefID,
		CommuneID: q.CommuneID,
		Type:      reconcile.AlertType(strings.TrimSpace(q.Type)),
		Severity:  reconcile.Severity(strings.TrimSpace(q.Severity)),
	}
	if f.Type != "" && !oneOf(string(f.Type), alertTypeNames()) {
		return nil, invalid("invalid_request", "unknown alert type %q", q.Type)
	}
	if err := checkEnum("invalid_request", "severity", string(f.Severity), []string{
		string(reconcile.SeverityInfo), string(reconcile.SeverityWarning), string(reconcile.SeverityCritique),
	}); err != nil {
		return nil, err
	}

	programs, lines, h, err := s.scoped(dbc, rd.Scope, repos.ProgramFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]types.Program, len(programs))
	for _, p := range programs {
		byID[p.ID] = *p
	}
	alerts := reconcile.BuildAlerts(reconcile.Aggregate(values(lines)), byID)
	alerts = f.Apply(rbac.Filter(alerts, rd.Scope, h))
	return &AlertsView{Alerts: alerts, Summary: reconcile.Summarize(alerts)}, nil
}

func alertTypeNames() []string {
	out := make([]string, 0, len(reconcile.AlertTypes))
	for _, t := range reconcile.AlertTypes {
		out = append(out, string(t))
	}
	return out
}

func (s *reportingService) KPIs(dbc dbctx.Context, q ProgramQuery) (*reconcile.KPIs, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	programs, lines, _, err := s.scoped(dbc, rd.Scope, repos.ProgramFilter{
		DranefID:  q.DranefID,
		DpanefID:  q.DpanefID,
		CommuneID: q.CommuneID,
		Year:      q.Year,
	})
	if err != nil {
		return nil, err
	}
	k := reconcile.ComputeKPIs(values(programs), values(lines))
	return &k, nil
}
