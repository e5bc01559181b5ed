package pdfcp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type ActionGeoRepo interface {
	Upsert(dbc dbctx.Context, row *types.ActionGeo) error
	GetByAction(dbc dbctx.Context, actionID uuid.UUID) (*types.ActionGeo, error)
	ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ActionGeo, error)
	DeleteByAction(dbc dbctx.Context, actionID uuid.UUID) error
}

type actionGeoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionGeoRepo(db *gorm.DB, baseLog *logger.Logger) ActionGeoRepo {
	return &actionGeoRepo{db: db, log: baseLog.With("repo", "ActionGeoRepo")}
}

func (r *actionGeoRepo) Upsert(dbc dbctx.Context, row *types.ActionGeo) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.PlannedActionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "planned_action_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"geometry_type", "geometry", "centroid_lat", "centroid_lng",
				"surface_realisee_ha", "longueur_realisee_km", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *actionGeoRepo) GetByAction(dbc dbctx.Context, actionID uuid.UUID) (*types.ActionGeo, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if actionID == uuid.Nil {
		return nil, nil
	}
	var row types.ActionGeo
	if err := transaction.WithContext(dbc.Ctx).
		Where("planned_action_id = ?", actionID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *actionGeoRepo) ListByProgram(dbc dbctx.Context, pdfcpID uuid.UUID) ([]*types.ActionGeo, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActionGeo
	if pdfcpID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("pdfcp_id = ?", pdfcpID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *actionGeoRepo) DeleteByAction(dbc dbctx.Context, actionID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if actionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("planned_action_id = ?", actionID).
		Delete(&types.ActionGeo{}).Error
}
