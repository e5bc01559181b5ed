package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type AdpAgentRepo interface {
	Create(dbc dbctx.Context, row *types.AdpAgent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AdpAgent, error)
	List(dbc dbctx.Context) ([]*types.AdpAgent, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type adpAgentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdpAgentRepo(db *gorm.DB, baseLog *logger.Logger) AdpAgentRepo {
	return &adpAgentRepo{db: db, log: baseLog.With("repo", "AdpAgentRepo")}
}

func (r *adpAgentRepo) Create(dbc dbctx.Context, row *types.AdpAgent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *adpAgentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AdpAgent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AdpAgent
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *adpAgentRepo) List(dbc dbctx.Context) ([]*types.AdpAgent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AdpAgent
	if err := transaction.WithContext(dbc.Ctx).Order("full_name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *adpAgentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AdpAgent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *adpAgentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.AdpAgent{}).Error
}
