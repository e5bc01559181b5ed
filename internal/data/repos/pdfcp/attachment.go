package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type AttachmentRepo interface {
	Create(dbc dbctx.Context, row *types.Attachment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error)
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.Attachment, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type attachmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	return &attachmentRepo{db: db, log: baseLog.With("repo", "AttachmentRepo")}
}

func (r *attachmentRepo) Create(dbc dbctx.Context, row *types.Attachment) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *attachmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Attachment
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *attachmentRepo) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.Attachment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Attachment
	if pdfcpID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("pdfcp_id = ?", pdfcpID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attachmentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Attachment{}).Error
}
