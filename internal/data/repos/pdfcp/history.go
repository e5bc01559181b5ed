package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ValidationHistoryRepo interface {
	Create(dbc dbctx.Context, row *types.ValidationHistory) error
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ValidationHistory, error)
}

type validationHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ValidationHistoryRepo {
	return &validationHistoryRepo{db: db, log: baseLog.With("repo", "ValidationHistoryRepo")}
}

func (r *validationHistoryRepo) Create(dbc dbctx.Context, row *types.ValidationHistory) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

// ListByProgram returns the trail newest first.
func (r *validationHistoryRepo) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ValidationHistory, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ValidationHistory
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
