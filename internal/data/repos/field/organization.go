package field

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(dbc dbctx.Context, row *types.Organization) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Organization, error)
	List(dbc dbctx.Context, f Filter) ([]*types.Organization, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *organizationRepo) Create(dbc dbctx.Context, row *types.Organization) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

func (r *organizationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Organization, error) {
	return getByID(r.tx(dbc), id, func(row *types.Organization) uuid.UUID { return row.ID })
}

// List ignores f.PdfcpID; organizations are not attached to a program.
func (r *organizationRepo) List(dbc dbctx.Context, f Filter) ([]*types.Organization, error) {
	f.PdfcpID = nil
	var out []*types.Organization
	if err := f.apply(r.tx(dbc)).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *organizationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return updateFields[types.Organization](r.tx(dbc), id, updates)
}

func (r *organizationRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return deleteByID[types.Organization](r.tx(dbc), id)
}
