package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/notify"
	"github.com/anef-maroc/pdfcp-backend/internal/pdfcp/workflow"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

const NotificationUnlockRequestResolved = "UNLOCK_REQUEST_RESOLVED"

type UnlockRequestService interface {
	Request(dbc dbctx.Context, pdfcpID uuid.UUID, reason string) (*types.UnlockRequest, error)
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.UnlockRequest, error)
	// List is the admin queue, optionally restricted to one status.
	List(dbc dbctx.Context, status string) ([]*types.UnlockRequest, error)
	Approve(dbc dbctx.Context, id uuid.UUID, comment string) (*types.UnlockRequest, error)
	Reject(dbc dbctx.Context, id uuid.UUID, comment string) (*types.UnlockRequest, error)
}

type unlockRequestService struct {
	db            *gorm.DB
	log           *logger.Logger
	tx            repos.TxRunner
	repo          repos.UnlockRequestRepo
	users         repos.UserRepo
	validation    ValidationService
	notifications NotificationService
	guard         programGuard
}

func NewUnlockRequestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	tx repos.TxRunner,
	repo repos.UnlockRequestRepo,
	programs repos.ProgramRepo,
	users repos.UserRepo,
	territory TerritoryService,
	validation ValidationService,
	notifications NotificationService,
) UnlockRequestService {
	return &unlockRequestService{
		db:            db,
		log:           baseLog.With("service", "UnlockRequestService"),
		tx:            tx,
		repo:          repo,
		users:         users,
		validation:    validation,
		notifications: notifications,
		guard:         programGuard{programs: programs, territory: territory},
	}
}

func (s *unlockRequestService) Request(dbc dbctx.Context, pdfcpID uuid.UUID, reason string) (*types.UnlockRequest, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if rd.Scope.IsAdmin() {
		return nil, invalid("invalid_request", "administrators unlock programs directly")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason_required", "an unlock reason is required")
	}
	var row *types.UnlockRequest
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		p, err := s.guard.load(inner, rd.Scope, pdfcpID, true)
		if err != nil {
			return err
		}
		if workflow.Normalize(p.ValidationStatus) != types.StatusVerrouille {
			return apierr.Conflict("invalid_transition", fmt.Errorf("program is not locked: %w", workflow.ErrInvalidTransition))
		}
		pending, err := s.repo.HasPending(inner, p.ID)
		if err != nil {
			return fmt.Errorf("check pending unlock requests: %w", err)
		}
		if pending {
			return apierr.Conflict("unlock_request_pending", fmt.Errorf("an unlock request is already %w", pkgerrors.ErrConflict))
		}
		row = &types.UnlockRequest{
			PdfcpID:        p.ID,
			RequestedBy:    rd.UserID,
			RequesterName:  rd.FullName,
			RequesterScope: string(rd.Scope.Level),
			Reason:         reason,
			Status:         types.UnlockPending,
		}
		if err := s.repo.Create(inner, row); err != nil {
			return fmt.Errorf("create unlock request: %w", err)
		}

		admins, err := s.users.ListByRole(inner, "admin")
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(admins))
		for _, a := range admins {
			ids = append(ids, a.ID)
		}
		_, err = s.notifications.Notify(inner, NotificationDraft{
			Recipients: ids,
			Type:       notify.TypeUnlockRequest,
			Severity:   notify.SeverityWarning,
			Title:      "Demande de déverrouillage",
			Message:    fmt.Sprintf("%s demande le déverrouillage du PDFCP %s. Motif: %s", rd.FullName, p.Code, reason),
			Link:       "/admin/unlock-requests",
			EntityType: "pdfcp_unlock_request",
			EntityID:   &row.ID,
			Metadata:   map[string]any{"pdfcp_id": p.ID, "reason": reason},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("unlock requested", "pdfcp_id", pdfcpID, "request_id", row.ID, "by", rd.UserID)
	return row, nil
}

func (s *unlockRequestService) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.UnlockRequest, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.load(dbc, rd.Scope, pdfcpID, false); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProgram(dbc, pdfcpID)
	if err != nil {
		return nil, fmt.Errorf("list unlock requests: %w", err)
	}
	return rows, nil
}

func (s *unlockRequestService) List(dbc dbctx.Context, status string) ([]*types.UnlockRequest, error) {
	if _, err := requireAdmin(dbc); err != nil {
		return nil, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if err := checkEnum("invalid_status", "status", status, []string{types.UnlockPending, types.UnlockApproved, types.UnlockRejected}); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStatus(dbc, status)
	if err != nil {
		return nil, fmt.Errorf("list unlock requests: %w", err)
	}
	return rows, nil
}

func (s *unlockRequestService) Approve(dbc dbctx.Context, id uuid.UUID, comment string) (*types.UnlockRequest, error) {
	return s.resolve(dbc, id, types.UnlockApproved, strings.TrimSpace(comment))
}

func (s *unlockRequestService) Reject(dbc dbctx.Context, id uuid.UUID, comment string) (*types.UnlockRequest, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, invalid("reason_required", "a comment is required to reject a request")
	}
	return s.resolve(dbc, id, types.UnlockRejected, comment)
}

func (s *unlockRequestService) resolve(dbc dbctx.Context, id uuid.UUID, status, comment string) (*types.UnlockRequest, error) {
	rd, err := requireAdmin(dbc)
	if err != nil {
		return nil, err
	}
	var out *types.UnlockRequest
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		req, err := s.repo.GetByID(inner, id)
		if err != nil {
			return fmt.Errorf("load unlock request: %w", err)
		}
		if req == nil {
			return notFound("unlock request")
		}
		if req.Status != types.UnlockPending {
			return apierr.Conflict("unlock_request_resolved", fmt.Errorf("unlock request is %s: %w", strings.ToLower(req.Status), pkgerrors.ErrConflict))
		}
		if status == types.UnlockApproved {
			if _, err := s.validation.Unlock(inner, req.PdfcpID, req.Reason); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		ok, err := s.repo.Resolve(inner, req.ID, status, map[string]any{
			"handled_by_admin": rd.UserID,
			"admin_comment":    comment,
			"handled_at":       now,
		})
		if err != nil {
			return fmt.Errorf("resolve unlock request: %w", err)
		}
		if !ok {
			return apierr.Conflict("unlock_request_resolved", fmt.Errorf("unlock request %w", pkgerrors.ErrConflict))
		}
		req.Status = status
		req.HandledByAdmin = &rd.UserID
		req.AdminComment = comment
		req.HandledAt = &now
		out = req

		title, severity := "Demande de déverrouillage acceptée", notify.SeverityInfo
		if status == types.UnlockRejected {
			title, severity = "Demande de déverrouillage refusée", notify.SeverityWarning
		}
		msg := title + "."
		if comment != "" {
			msg += " Commentaire: " + comment
		}
		_, err = s.notifications.Notify(inner, NotificationDraft{
			Recipients: dedupe([]uuid.UUID{req.RequestedBy}, rd.UserID),
			Type:       NotificationUnlockRequestResolved,
			Severity:   severity,
			Title:      title,
			Message:    msg,
			Link:       programLink(req.PdfcpID),
			EntityType: "pdfcp_unlock_request",
			EntityID:   &req.ID,
			Metadata:   map[string]any{"pdfcp_id": req.PdfcpID, "status": status, "admin_comment": comment},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
