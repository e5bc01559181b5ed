package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type UnlockRequestRepo interface {
	Create(dbc dbctx.Context, row *types.UnlockRequest) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UnlockRequest, error)
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.UnlockRequest, error)
	ListByStatus(dbc dbctx.Context, status string) ([]*types.UnlockRequest, error)
	HasPending(dbc dbctx.Context, pdfcpID uuid.UUID) (bool, error)
	// Resolve moves a PENDING request to status; it reports false when the
	// request was no longer pending.
	Resolve(dbc dbctx.Context, id uuid.UUID, status string, updates map[string]any) (bool, error)
}

type unlockRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnlockRequestRepo(db *gorm.DB, baseLog *logger.Logger) UnlockRequestRepo {
	return &unlockRequestRepo{db: db, log: baseLog.With("repo", "UnlockRequestRepo")}
}

func (r *unlockRequestRepo) Create(dbc dbctx.Context, row *types.UnlockRequest) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *unlockRequestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UnlockRequest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.UnlockRequest
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *unlockRequestRepo) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.UnlockRequest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UnlockRequest
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

func (r *unlockRequestRepo) ListByStatus(dbc dbctx.Context, status string) ([]*types.UnlockRequest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.UnlockRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *unlockRequestRepo) HasPending(dbc dbctx.Context, pdfcpID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.UnlockRequest{}).
		Where("pdfcp_id = ? AND status = ?", pdfcpID, types.UnlockPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *unlockRequestRepo) Resolve(dbc dbctx.Context, id uuid.UUID, status string, updates map[string]any) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	fields := map[string]any{"status": status}
	for k, v := range updates {
		fields[k] = v
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UnlockRequest{}).
		Where("id = ? AND status = ?", id, types.UnlockPending).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
