package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ProgramFilter struct {
	DranefID         *uuid.UUID
	DpanefID         *uuid.UUID
	CommuneID        *uuid.UUID
	Year             *int
	ValidationStatus string
}

type ProgramRepo interface {
	Create(dbc dbctx.Context, row *types.Program) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Program, error)
	// GetForUpdate row-locks the program inside dbc.Tx where the dialect supports it.
	GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Program, error)
	List(dbc dbctx.Context, f ProgramFilter) ([]*types.Program, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
}

type programRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgramRepo(db *gorm.DB, baseLog *logger.Logger) ProgramRepo {
	return &programRepo{db: db, log: baseLog.With("repo", "ProgramRepo")}
}

func (r *programRepo) Create(dbc dbctx.Context, row *types.Program) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *programRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return r.get(transaction.WithContext(dbc.Ctx), id)
}

func (r *programRepo) GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r *programRepo) get(q *gorm.DB, id uuid.UUID) (*types.Program, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Program
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *programRepo) List(dbc dbctx.Context, f ProgramFilter) ([]*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC")
	if f.DranefID != nil {
		q = q.Where("dranef_id = ?", *f.DranefID)
	}
	if f.DpanefID != nil {
		q = q.Where("dpanef_id = ?", *f.DpanefID)
	}
	if f.CommuneID != nil {
		q = q.Where("commune_id = ?", *f.CommuneID)
	}
	if f.Year != nil {
		q = q.Where("start_year <= ? AND end_year >= ?", *f.Year, *f.Year)
	}
	if f.ValidationStatus != "" {
		q = q.Where("validation_status = ?", f.ValidationStatus)
	}
	var out []*types.Program
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *programRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Program{}).
		Where("id = ?", id).
		Updates(updates).Error
}
