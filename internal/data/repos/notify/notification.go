package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Notification) ([]*types.Notification, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error)
	CountUnread(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	MarkRead(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(dbc dbctx.Context, rows []*types.Notification) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Notification{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *notificationRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Notification
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("recipient_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) CountUnread(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead only touches rows owned by userID; false means no such notification.
func (r *notificationRepo) MarkRead(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Notification
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND recipient_user_id = ?", id, userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return false, err
	}
	if row.ID == uuid.Nil {
		return false, nil
	}
	if row.IsRead {
		return true, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()}).Error
	return err == nil, err
}

func (r *notificationRepo) MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("recipient_user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
