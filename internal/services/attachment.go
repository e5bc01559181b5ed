package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type AttachmentInput struct {
	FileName      string `json:"file_name"`
	FileURL       string `json:"file_url"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Description   string `json:"description"`
	Category      string `json:"category"`
}

// AttachmentService keeps file metadata only; the files live in external storage.
type AttachmentService interface {
	List(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.Attachment, error)
	Create(dbc dbctx.Context, pdfcpID uuid.UUID, in AttachmentInput) (*types.Attachment, error)
	Delete(dbc dbctx.Context, pdfcpID, attachmentID uuid.UUID) error
}

type attachmentService struct {
	db    *gorm.DB
	log   *logger.Logger
	repo  repos.AttachmentRepo
	guard programGuard
}

func NewAttachmentService(db *gorm.DB, baseLog *logger.Logger, repo repos.AttachmentRepo, programs repos.ProgramRepo, territory TerritoryService) AttachmentService {
	return &attachmentService{
		db:    db,
		log:   baseLog.With("service", "AttachmentService"),
		repo:  repo,
		guard: programGuard{programs: programs, territory: territory},
	}
}

func (s *attachmentService) List(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.Attachment, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.load(dbc, rd.Scope, pdfcpID, false); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProgram(dbc, pdfcpID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return rows, nil
}

func (s *attachmentService) Create(dbc dbctx.Context, pdfcpID uuid.UUID, in AttachmentInput) (*types.Attachment, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.FileName)
	url := strings.TrimSpace(in.FileURL)
	if name == "" || url == "" {
		return nil, invalid("invalid_request", "file_name and file_url are required")
	}
	if in.FileSizeBytes < 0 {
		return nil, invalid("invalid_request", "file_size_bytes cannot be negative")
	}
	p, err := s.guard.editable(dbc, rd.Scope, pdfcpID)
	if err != nil {
		return nil, err
	}
	row := &types.Attachment{
		PdfcpID:       p.ID,
		FileName:      name,
		FileURL:       url,
		FileType:      strings.TrimSpace(in.FileType),
		FileSizeBytes: in.FileSizeBytes,
		Description:   strings.TrimSpace(in.Description),
		Category:      strings.TrimSpace(in.Category),
		UploadedBy:    &rd.UserID,
	}
	if err := s.repo.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	return row, nil
}

func (s *attachmentService) Delete(dbc dbctx.Context, pdfcpID, attachmentID uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	p, err := s.guard.editable(dbc, rd.Scope, pdfcpID)
	if err != nil {
		return err
	}
	row, err := s.repo.GetByID(dbc, attachmentID)
	if err != nil {
		return fmt.Errorf("load attachment: %w", err)
	}
	if row == nil || row.PdfcpID != p.ID {
		return notFound("attachment")
	}
	if err := s.repo.Delete(dbc, row.ID); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	s.log.Info("attachment deleted", "pdfcp_id", p.ID, "attachment_id", row.ID, "by", rd.UserID)
	return nil
}
