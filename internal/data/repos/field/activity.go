package field

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ActivityRepo interface {
	Create(dbc dbctx.Context, row *types.Activity) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error)
	List(dbc dbctx.Context, f Filter) ([]*types.Activity, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *activityRepo) Create(dbc dbctx.Context, row *types.Activity) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	return getByID(r.tx(dbc), id, func(row *types.Activity) uuid.UUID { return row.ID })
}

func (r *activityRepo) List(dbc dbctx.Context, f Filter) ([]*types.Activity, error) {
	var out []*types.Activity
	if err := f.apply(r.tx(dbc)).Order("activity_date DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return updateFields[types.Activity](r.tx(dbc), id, updates)
}

func (r *activityRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return deleteByID[types.Activity](r.tx(dbc), id)
}
