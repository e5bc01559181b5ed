package territory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type TerritoryRepo interface {
	ListRegions(dbc dbctx.Context) ([]*types.Region, error)
	ListDranef(dbc dbctx.Context, regionID *uuid.UUID) ([]*types.Dranef, error)
	ListDpanef(dbc dbctx.Context, dranefID *uuid.UUID) ([]*types.Dpanef, error)
	ListCommunes(dbc dbctx.Context, dpanefID *uuid.UUID) ([]*types.Commune, error)
	GetCommune(dbc dbctx.Context, id uuid.UUID) (*types.Commune, error)
	GetDpanef(dbc dbctx.Context, id uuid.UUID) (*types.Dpanef, error)

	UpsertRegion(dbc dbctx.Context, row *types.Region) error
	UpsertDranef(dbc dbctx.Context, row *types.Dranef) error
	UpsertDpanef(dbc dbctx.Context, row *types.Dpanef) error
	UpsertCommune(dbc dbctx.Context, row *types.Commune) error
}

type territoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTerritoryRepo(db *gorm.DB, baseLog *logger.Logger) TerritoryRepo {
	return &territoryRepo{db: db, log: baseLog.With("repo", "TerritoryRepo")}
}

func (r *territoryRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *territoryRepo) ListRegions(dbc dbctx.Context) ([]*types.Region, error) {
	var out []*types.Region
	if err := r.tx(dbc).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *territoryRepo) ListDranef(dbc dbctx.Context, regionID *uuid.UUID) ([]*types.Dranef, error) {
	q := r.tx(dbc).Order("name ASC")
	if regionID != nil {
		q = q.Where("region_id = ?", *regionID)
	}
	var out []*types.Dranef
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *territoryRepo) ListDpanef(dbc dbctx.Context, dranefID *uuid.UUID) ([]*types.Dpanef, error) {
	q := r.tx(dbc).Order("name ASC")
	if dranefID != nil {
		q = q.Where("dranef_id = ?", *dranefID)
	}
	var out []*types.Dpanef
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *territoryRepo) ListCommunes(dbc dbctx.Context, dpanefID *uuid.UUID) ([]*types.Commune, error) {
	q := r.tx(dbc).Order("name ASC")
	if dpanefID != nil {
		q = q.Where("dpanef_id = ?", *dpanefID)
	}
	var out []*types.Commune
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *territoryRepo) GetCommune(dbc dbctx.Context, id uuid.UUID) (*types.Commune, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Commune
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *territoryRepo) GetDpanef(dbc dbctx.Context, id uuid.UUID) (*types.Dpanef, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Dpanef
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// upsertByCode inserts or updates on the code key. The caller reloads the
// stored id since a conflicting insert keeps the existing row's id.
func upsertByCode(t *gorm.DB, row any, cols []string) error {
	return t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns(append(cols, "updated_at")),
	}).Create(row).Error
}

func storedID[T any](t *gorm.DB, code string) (uuid.UUID, error) {
	var ids []uuid.UUID
	var model T
	if err := t.Model(&model).Where("code = ?", code).Limit(1).Pluck("id", &ids).Error; err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}

func (r *territoryRepo) UpsertRegion(dbc dbctx.Context, row *types.Region) error {
	if row == nil || row.Code == "" {
		return nil
	}
	t := r.tx(dbc)
	if err := upsertByCode(t, row, []string{"name"}); err != nil {
		return err
	}
	id, err := storedID[types.Region](t, row.Code)
	row.ID = id
	return err
}

func (r *territoryRepo) UpsertDranef(dbc dbctx.Context, row *types.Dranef) error {
	if row == nil || row.Code == "" {
		return nil
	}
	t := r.tx(dbc)
	if err := upsertByCode(t, row, []string{"name", "region_id"}); err != nil {
		return err
	}
	id, err := storedID[types.Dranef](t, row.Code)
	row.ID = id
	return err
}

func (r *territoryRepo) UpsertDpanef(dbc dbctx.Context, row *types.Dpanef) error {
	if row == nil || row.Code == "" {
		return nil
	}
	t := r.tx(dbc)
	if err := upsertByCode(t, row, []string{"name", "dranef_id"}); err != nil {
		return err
	}
	id, err := storedID[types.Dpanef](t, row.Code)
	row.ID = id
	return err
}

func (r *territoryRepo) UpsertCommune(dbc dbctx.Context, row *types.Commune) error {
	if row == nil || row.Code == "" {
		return nil
	}
	t := r.tx(dbc)
	cols := []string{"name", "name_ar", "dpanef_id", "population", "area_km2", "latitude", "longitude"}
	if err := upsertByCode(t, row, cols); err != nil {
		return err
	}
	id, err := storedID[types.Commune](t, row.Code)
	row.ID = id
	return err
}
