package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/notify"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/workflow"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

const (
	NotificationStatusChange = "status_change"
	NotificationUnlocked     = "pdfcp_unlocked"
)

// ValidationService moves programs through the validation workflow. Every
// move writes a history row in the same transaction.
type ValidationService interface {
	Transition(dbc dbctx.Context, programID uuid.UUID, target, note string) (*ProgramView, error)
	Cancel(dbc dbctx.Context, programID uuid.UUID, reason string) (*ProgramView, error)
	Unlock(dbc dbctx.Context, programID uuid.UUID, motif string) (*ProgramView, error)
}

type validationService struct {
	db            *gorm.DB
	log           *logger.Logger
	tx            repos.TxRunner
	programs      repos.ProgramRepo
	actions       repos.ActionRepo
	history       repos.ValidationHistoryRepo
	users         repos.UserRepo
	notifications NotificationService
	emitter       SSEEmitter
	metrics       *observability.Metrics
	guard         programGuard
}

func NewValidationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	tx repos.TxRunner,
	programs repos.ProgramRepo,
	actions repos.ActionRepo,
	history repos.ValidationHistoryRepo,
	users repos.UserRepo,
	territory TerritoryService,
	notifications NotificationService,
	emitter SSEEmitter,
	metrics *observability.Metrics,
) ValidationService {
	return &validationService{
		db:            db,
		log:           baseLog.With("service", "ValidationService"),
		tx:            tx,
		programs:      programs,
		actions:       actions,
		history:       history,
		users:         users,
		notifications: notifications,
		emitter:       emitter,
		metrics:       metrics,
		guard:         programGuard{programs: programs, territory: territory},
	}
}

func transitionErr(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidTransition):
		return apierr.Conflict("invalid_transition", err)
	case errors.Is(err, workflow.ErrForbiddenTransition):
		return apierr.Forbidden("forbidden_transition", err)
	}
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if ae, ok := apierr.As(err); ok && ae.Status < 500 {
		return "rejected"
	}
	return "error"
}

func (s *validationService) Transition(dbc dbctx.Context, programID uuid.UUID, target, note string) (*ProgramView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	to, err := workflow.ParseStatus(target)
	if err != nil {
		return nil, invalid("invalid_status", "unknown target status %q", target)
	}
	note = strings.TrimSpace(note)

	ctx, span := observability.StartSpan(dbc.Ctx, "pdfcp.transition",
		attribute.String("pdfcp.id", programID.String()),
		attribute.String("pdfcp.target", string(to)),
		attribute.String("actor.scope", string(rd.Scope.Level)),
	)
	dbc = dbctx.Context{Ctx: ctx, Tx: dbc.Tx}

	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.load(inner, rd.Scope, programID, true)
		if err != nil {
			return err
		}
		from := workflow.Normalize(p.ValidationStatus)
		if err := workflow.CheckTransition(from, to, rd.Scope.Level); err != nil {
			return transitionErr(err)
		}
		switch {
		case to == types.StatusBrouillon:
			return s.cancel(inner, rd, p, note)
		case from == types.StatusVerrouille && to == types.StatusValideCentral:
			return s.unlock(inner, rd, p, note)
		}
		return s.advance(inner, rd, p, from, to, note)
	})
	s.metrics.IncTransition(string(to), outcomeOf(err))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return s.reload(dbc, programID, rd.Scope.Level)
}

func (s *validationService) Cancel(dbc dbctx.Context, programID uuid.UUID, reason string) (*ProgramView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason_required", "a cancellation reason is required")
	}
	ctx, span := observability.StartSpan(dbc.Ctx, "pdfcp.cancel", attribute.String("pdfcp.id", programID.String()))
	dbc = dbctx.Context{Ctx: ctx, Tx: dbc.Tx}

	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.load(inner, rd.Scope, programID, true)
		if err != nil {
			return err
		}
		from := workflow.Normalize(p.ValidationStatus)
		if !workflow.CanCancel(from, rd.Scope.Level) {
			if from == types.StatusBrouillon || from == types.StatusVerrouille {
				return transitionErr(fmt.Errorf("cancel from %s: %w", from, workflow.ErrInvalidTransition))
			}
			return transitionErr(fmt.Errorf("cancel from %s: %w", from, workflow.ErrForbiddenTransition))
		}
		return s.cancel(inner, rd, p, reason)
	})
	s.metrics.IncTransition(string(types.StatusBrouillon), outcomeOf(err))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return s.reload(dbc, programID, rd.Scope.Level)
}

func (s *validationService) Unlock(dbc dbctx.Context, programID uuid.UUID, motif string) (*ProgramView, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	motif = strings.TrimSpace(motif)
	if motif == "" {
		return nil, invalid("reason_required", "an unlock motif is required")
	}
	ctx, span := observability.StartSpan(dbc.Ctx, "pdfcp.unlock", attribute.String("pdfcp.id", programID.String()))
	dbc = dbctx.Context{Ctx: ctx, Tx: dbc.Tx}

	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.load(inner, rd.Scope, programID, true)
		if err != nil {
			return err
		}
		from := workflow.Normalize(p.ValidationStatus)
		if !workflow.CanUnlock(from, rd.Scope.Level) {
			if from != types.StatusVerrouille {
				return transitionErr(fmt.Errorf("unlock from %s: %w", from, workflow.ErrInvalidTransition))
			}
			return transitionErr(fmt.Errorf("unlock: %w", workflow.ErrForbiddenTransition))
		}
		return s.unlock(inner, rd, p, motif)
	})
	s.metrics.IncTransition(string(types.StatusValideCentral), outcomeOf(err))
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return s.reload(dbc, programID, rd.Scope.Level)
}

func (s *validationService) advance(inner dbctx.Context, rd *ctxutil.RequestData, p *types.Program, from, to types.ValidationStatus, note string) error {
	now := time.Now().UTC()
	updates := map[string]any{"validation_status": to}
	if note != "" {
		updates["validation_note"] = note
	}
	switch to {
	case types.StatusConcerteADP:
		updates["validated_adp_by"] = rd.UserID
		updates["validated_adp_at"] = now
	case types.StatusValideDPANEF:
		updates["validated_dpanef_by"] = rd.UserID
		updates["validated_dpanef_at"] = now
	case types.StatusValideCentral:
		updates["visa_dranef_by"] = rd.UserID
		updates["visa_dranef_at"] = now
	case types.StatusVerrouille:
		updates["locked"] = true
	}
	if err := s.programs.UpdateFields(inner, p.ID, updates); err != nil {
		return fmt.Errorf("update program status: %w", err)
	}
	if to == types.StatusVerrouille {
		n, err := s.actions.SetLockedForProgram(inner, p.ID, true)
		if err != nil {
			return fmt.Errorf("lock action lines: %w", err)
		}
		s.log.Info("program locked", "pdfcp_id", p.ID, "lines", n)
	}
	if err := s.history.Create(inner, historyEntry(rd, p.ID, workflow.HistoryAction(to), from, to, note, nil)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	recipients, err := s.nextValidators(inner, p, to)
	if err != nil {
		return err
	}
	if p.AdpUserID != nil {
		recipients = append(recipients, *p.AdpUserID)
	}
	if p.CreatedBy != nil {
		recipients = append(recipients, *p.CreatedBy)
	}
	recipients = dedupe(recipients, rd.UserID)
	msg := fmt.Sprintf("Le PDFCP %s est passé au statut %s.", p.Code, workflow.Label(to))
	if note != "" {
		msg += " " + note
	}
	if _, err := s.notifications.Notify(inner, NotificationDraft{
		Recipients: recipients,
		Type:       NotificationStatusChange,
		Severity:   notify.SeverityInfo,
		Title:      "Changement de statut PDFCP",
		Message:    msg,
		Link:       programLink(p.ID),
		EntityType: "pdfcp",
		EntityID:   &p.ID,
		Metadata: map[string]any{
			"from_status":  from,
			"to_status":    to,
			"performed_by": rd.FullName,
		},
	}); err != nil {
		return err
	}
	s.announce(inner, p.ID, from, to, append(recipients, rd.UserID))
	return nil
}

// cancel returns the program to BROUILLON and releases every line.
func (s *validationService) cancel(inner dbctx.Context, rd *ctxutil.RequestData, p *types.Program, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason_required", "a cancellation reason is required")
	}
	from := workflow.Normalize(p.ValidationStatus)
	now := time.Now().UTC()
	if err := s.programs.UpdateFields(inner, p.ID, map[string]any{
		"validation_status": types.StatusBrouillon,
		"locked":            false,
		"annulation_motif":  reason,
		"annulation_date":   now,
		"annulation_par":    rd.UserID,
	}); err != nil {
		return fmt.Errorf("cancel program: %w", err)
	}
	if _, err := s.actions.SetLockedForProgram(inner, p.ID, false); err != nil {
		return fmt.Errorf("unlock action lines: %w", err)
	}
	meta := map[string]any{"cancellation_reason": reason}
	row := historyEntry(rd, p.ID, workflow.CancellationAction(from), from, types.StatusBrouillon, workflow.CancellationNote(reason), meta)
	if err := s.history.Create(inner, row); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	recipients, err := s.territoryValidators(inner, p)
	if err != nil {
		return err
	}
	if p.AdpUserID != nil {
		recipients = append(recipients, *p.AdpUserID)
	}
	recipients = dedupe(recipients, rd.UserID)
	if _, err := s.notifications.Notify(inner, NotificationDraft{
		Recipients: recipients,
		Type:       workflow.CancellationAction(from),
		Severity:   notify.SeverityCritical,
		Title:      "Validation PDFCP annulée",
		Message:    fmt.Sprintf("Le PDFCP %s a été renvoyé en brouillon par %s. Motif: %s", p.Code, rd.FullName, reason),
		Link:       programLink(p.ID),
		EntityType: "pdfcp",
		EntityID:   &p.ID,
		Metadata: map[string]any{
			"cancellation_reason": reason,
			"cancelled_by_name":   rd.FullName,
			"cancelled_by_role":   string(rd.Scope.Level),
			"cancelled_at":        now.Format(time.RFC3339),
			"previous_status":     from,
		},
	}); err != nil {
		return err
	}
	s.log.Info("program validation cancelled", "pdfcp_id", p.ID, "from", from, "by", rd.UserID)
	s.announce(inner, p.ID, from, types.StatusBrouillon, append(recipients, rd.UserID))
	return nil
}

func (s *validationService) unlock(inner dbctx.Context, rd *ctxutil.RequestData, p *types.Program, motif string) error {
	motif = strings.TrimSpace(motif)
	if motif == "" {
		return invalid("reason_required", "an unlock motif is required")
	}
	now := time.Now().UTC()
	if err := s.programs.UpdateFields(inner, p.ID, map[string]any{
		"validation_status": types.StatusValideCentral,
		"locked":            false,
		"unlock_motif":      motif,
		"unlock_at":         now,
		"unlock_by":         rd.UserID,
	}); err != nil {
		return fmt.Errorf("unlock program: %w", err)
	}
	if _, err := s.actions.SetLockedForProgram(inner, p.ID, false); err != nil {
		return fmt.Errorf("unlock action lines: %w", err)
	}
	row := historyEntry(rd, p.ID, workflow.HistoryUnlocked, types.StatusVerrouille, types.StatusValideCentral, motif, nil)
	if err := s.history.Create(inner, row); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	var recipients []uuid.UUID
	if p.AdpUserID != nil {
		recipients = dedupe([]uuid.UUID{*p.AdpUserID}, rd.UserID)
	}
	if _, err := s.notifications.Notify(inner, NotificationDraft{
		Recipients: recipients,
		Type:       NotificationUnlocked,
		Severity:   notify.SeverityWarning,
		Title:      "PDFCP déverrouillé",
		Message:    fmt.Sprintf("Le PDFCP %s a été déverrouillé. Motif: %s", p.Code, motif),
		Link:       programLink(p.ID),
		EntityType: "pdfcp",
		EntityID:   &p.ID,
		Metadata:   map[string]any{"unlock_motif": motif, "unlocked_by_name": rd.FullName},
	}); err != nil {
		return err
	}
	s.log.Info("program unlocked", "pdfcp_id", p.ID, "by", rd.UserID)
	s.announce(inner, p.ID, types.StatusVerrouille, types.StatusValideCentral, append(recipients, rd.UserID))
	return nil
}

// territoryValidators lists the provincial and regional users anchored on the program's territory.
func (s *validationService) territoryValidators(dbc dbctx.Context, p *types.Program) ([]uuid.UUID, error) {
	users, err := s.users.ListByTerritory(dbc, p.DpanefID, p.DranefID)
	if err != nil {
		return nil, fmt.Errorf("list territory users: %w", err)
	}
	var out []uuid.UUID
	for _, u := range users {
		switch u.Scope().Level {
		case rbac.ScopeProvincial, rbac.ScopeRegional:
			out = append(out, u.ID)
		}
	}
	return out, nil
}

// nextValidators lists territory users who can take the program one step further.
func (s *validationService) nextValidators(dbc dbctx.Context, p *types.Program, status types.ValidationStatus) ([]uuid.UUID, error) {
	if status == types.StatusVerrouille {
		return nil, nil
	}
	users, err := s.users.ListByTerritory(dbc, p.DpanefID, p.DranefID)
	if err != nil {
		return nil, fmt.Errorf("list territory users: %w", err)
	}
	var out []uuid.UUID
	for _, u := range users {
		if len(workflow.NextActions(status, u.Scope().Level)) > 0 {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

// announce pushes the status change to the users concerned once committed.
func (s *validationService) announce(dbc dbctx.Context, programID uuid.UUID, from, to types.ValidationStatus, users []uuid.UUID) {
	if s.emitter == nil {
		return
	}
	payload := map[string]any{"pdfcp_id": programID, "from_status": from, "to_status": to}
	targets := dedupe(users)
	afterCommit(dbc, func() {
		for _, id := range targets {
			s.emitter.Emit(dbc.Ctx, realtime.SSEMessage{
				Channel: realtime.UserChannel(id),
				Event:   realtime.SSEEventProgramStatus,
				Data:    payload,
			})
		}
	})
}

func (s *validationService) reload(dbc dbctx.Context, id uuid.UUID, level rbac.ScopeLevel) (*ProgramView, error) {
	p, err := s.programs.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("reload program: %w", err)
	}
	if p == nil {
		return nil, apierr.NotFound(fmt.Errorf("program %w", pkgerrors.ErrNotFound))
	}
	return viewOf(p, level), nil
}

func programLink(id uuid.UUID) string { return "/pdfcp/" + id.String() }
