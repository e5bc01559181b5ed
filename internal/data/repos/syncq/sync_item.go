package syncq

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type SyncItemRepo interface {
	// Enqueue inserts items, skipping those whose (user_id, offline_id) already exists.
	// It returns the number of rows actually inserted.
	Enqueue(dbc dbctx.Context, items []*types.SyncItem) (int64, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncItem, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncItem, error)
	CountByStatus(dbc dbctx.Context, userID *uuid.UUID) (map[string]int64, error)
	ListPending(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SyncItem, error)
	// ClaimNext marks the oldest claimable item across all users as processing
	// and returns it, or nil when the queue is empty.
	ClaimNext(dbc dbctx.Context) (*types.SyncItem, error)
	// Claim marks one item as processing. It reports false when the item is
	// no longer pending or another replayer holds a live claim on it.
	Claim(dbc dbctx.Context, id uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	DeleteSynced(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type syncItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncItemRepo(db *gorm.DB, baseLog *logger.Logger) SyncItemRepo {
	return &syncItemRepo{db: db, log: baseLog.With("repo", "SyncItemRepo")}
}

func (r *syncItemRepo) Enqueue(dbc dbctx.Context, items []*types.SyncItem) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "offline_id"}},
			DoNothing: true,
		}).
		Create(&items)
	return res.RowsAffected, res.Error
}

func (r *syncItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyncItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.SyncItem
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *syncItemRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SyncItem
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus counts items per sync_status; a nil userID counts the whole queue.
func (r *syncItemRepo) CountByStatus(dbc dbctx.Context, userID *uuid.UUID) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		SyncStatus string
		N          int64
	}
	var rows []row
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.SyncItem{}).
		Select("sync_status, COUNT(*) AS n").
		Group("sync_status")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{
		types.SyncPending:    0,
		types.SyncProcessing: 0,
		types.SyncSynced:     0,
		types.SyncError:      0,
		types.SyncConflict:   0,
	}
	for _, r := range rows {
		out[r.SyncStatus] = r.N
	}
	return out, nil
}

func (r *syncItemRepo) ListPending(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SyncItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SyncItem
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_status = ?", userID, types.SyncPending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// claimable matches pending items and processing items whose claim expired.
func claimable(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("(sync_status = ? OR (sync_status = ? AND last_attempt_at < ?))",
		types.SyncPending, types.SyncProcessing, now.Add(-types.SyncClaimLease))
}

func claimUpdates(now time.Time) map[string]any {
	return map[string]any{"sync_status": types.SyncProcessing, "last_attempt_at": now, "updated_at": now}
}

func (r *syncItemRepo) ClaimNext(dbc dbctx.Context) (*types.SyncItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	var claimed *types.SyncItem
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		q := txx
		if txx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var item types.SyncItem
		qErr := claimable(q, now).
			Order("created_at ASC").
			First(&item).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		res := claimable(txx.Model(&types.SyncItem{}).Where("id = ?", item.ID), now).Updates(claimUpdates(now))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		item.SyncStatus = types.SyncProcessing
		item.LastAttemptAt = &now
		claimed = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *syncItemRepo) Claim(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	res := claimable(transaction.WithContext(dbc.Ctx).Model(&types.SyncItem{}).Where("id = ?", id), now).
		Updates(claimUpdates(now))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *syncItemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SyncItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *syncItemRepo) DeleteSynced(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_status = ?", userID, types.SyncSynced).
		Delete(&types.SyncItem{})
	return res.RowsAffected, res.Error
}
