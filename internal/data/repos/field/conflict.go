package field

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ConflictRepo interface {
	Create(dbc dbctx.Context, row *types.Conflict) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conflict, error)
	List(dbc dbctx.Context, f Filter) ([]*types.Conflict, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type conflictRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConflictRepo(db *gorm.DB, baseLog *logger.Logger) ConflictRepo {
	return &conflictRepo{db: db, log: baseLog.With("repo", "ConflictRepo")}
}

func (r *conflictRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *conflictRepo) Create(dbc dbctx.Context, row *types.Conflict) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

func (r *conflictRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conflict, error) {
	return getByID(r.tx(dbc), id, func(row *types.Conflict) uuid.UUID { return row.ID })
}

func (r *conflictRepo) List(dbc dbctx.Context, f Filter) ([]*types.Conflict, error) {
	var out []*types.Conflict
	if err := f.apply(r.tx(dbc)).Order("date_reported DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conflictRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return updateFields[types.Conflict](r.tx(dbc), id, updates)
}

func (r *conflictRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return deleteByID[types.Conflict](r.tx(dbc), id)
}
