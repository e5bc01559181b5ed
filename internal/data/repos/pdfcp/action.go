package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ActionFilter struct {
	Etat types.Etat
	Year *int
}

type ActionRepo interface {
	Create(dbc dbctx.Context, row *types.Action) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Action, error)
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID, f ActionFilter) ([]*types.Action, error)
	ListByPrograms(dbc dbctx.Context, pdfcpIDs []uuid.UUID) ([]*types.Action, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	SetLockedForProgram(dbc dbctx.Context, pdfcpID uuid.UUID, locked bool) (int64, error)
}

type actionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionRepo(db *gorm.DB, baseLog *logger.Logger) ActionRepo {
	return &actionRepo{db: db, log: baseLog.With("repo", "ActionRepo")}
}

func (r *actionRepo) Create(dbc dbctx.Context, row *types.Action) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *actionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Action, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Action
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *actionRepo) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID, f ActionFilter) ([]*types.Action, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Action
	if pdfcpID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("pdfcp_id = ?", pdfcpID).
		Order("year ASC").Order("action_key ASC").Order("etat ASC")
	if f.Etat != "" {
		q = q.Where("etat = ?", f.Etat)
	}
	if f.Year != nil {
		q = q.Where("year = ?", *f.Year)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *actionRepo) ListByPrograms(dbc dbctx.Context, pdfcpIDs []uuid.UUID) ([]*types.Action, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Action
	if len(pdfcpIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("pdfcp_id IN ?", pdfcpIDs).
		Order("pdfcp_id ASC").Order("year ASC").Order("action_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *actionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Action{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *actionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.Action{}).Error
}

func (r *actionRepo) SetLockedForProgram(dbc dbctx.Context, pdfcpID uuid.UUID, locked bool) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if pdfcpID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Action{}).
		Where("pdfcp_id = ?", pdfcpID).
		Update("locked", locked)
	return res.RowsAffected, res.Error
}
