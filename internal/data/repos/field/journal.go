package field

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type JournalEntryRepo interface {
	Create(dbc dbctx.Context, row *types.JournalEntry) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JournalEntry, error)
	List(dbc dbctx.Context, f Filter) ([]*types.JournalEntry, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type journalEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJournalEntryRepo(db *gorm.DB, baseLog *logger.Logger) JournalEntryRepo {
	return &journalEntryRepo{db: db, log: baseLog.With("repo", "JournalEntryRepo")}
}

func (r *journalEntryRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *journalEntryRepo) Create(dbc dbctx.Context, row *types.JournalEntry) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

func (r *journalEntryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JournalEntry, error) {
	return getByID(r.tx(dbc), id, func(row *types.JournalEntry) uuid.UUID { return row.ID })
}

func (r *journalEntryRepo) List(dbc dbctx.Context, f Filter) ([]*types.JournalEntry, error) {
	var out []*types.JournalEntry
	if err := f.apply(r.tx(dbc)).Order("entry_date DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *journalEntryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return updateFields[types.JournalEntry](r.tx(dbc), id, updates)
}

func (r *journalEntryRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return deleteByID[types.JournalEntry](r.tx(dbc), id)
}
