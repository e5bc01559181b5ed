package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

const defaultNotificationLimit = 100

// NotificationDraft is one message to deliver to several recipients.
type NotificationDraft struct {
	Recipients []uuid.UUID
	Type       string
	Severity   string
	Title      string
	Message    string
	Link       string
	EntityType string
	EntityID   *uuid.UUID
	Metadata   map[string]any
}

type NotificationService interface {
	// Notify persists one row per distinct recipient and publishes each of them
	// once the surrounding transaction, if any, commits.
	Notify(dbc dbctx.Context, d NotificationDraft) ([]*types.Notification, error)
	// Publish pushes persisted rows to their recipients' channels.
	Publish(dbc dbctx.Context, rows []*types.Notification)
	List(dbc dbctx.Context, unreadOnly bool, limit int) ([]*types.Notification, error)
	UnreadCount(dbc dbctx.Context) (int64, error)
	MarkRead(dbc dbctx.Context, id uuid.UUID) error
	MarkAllRead(dbc dbctx.Context) (int64, error)
}

type notificationService struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    repos.NotificationRepo
	emitter SSEEmitter
	metrics *observability.Metrics
}

func NewNotificationService(db *gorm.DB, baseLog *logger.Logger, repo repos.NotificationRepo, emitter SSEEmitter, metrics *observability.Metrics) NotificationService {
	return &notificationService{
		db:      db,
		log:     baseLog.With("service", "NotificationService"),
		repo:    repo,
		emitter: emitter,
		metrics: metrics,
	}
}

func dedupe(ids []uuid.UUID, exclude ...uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{uuid.Nil: true}
	for _, e := range exclude {
		seen[e] = true
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *notificationService) build(d NotificationDraft) ([]*types.Notification, error) {
	var meta datatypes.JSON
	if len(d.Metadata) > 0 {
		raw, err := json.Marshal(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal notification metadata: %w", err)
		}
		meta = raw
	}
	severity := strings.TrimSpace(d.Severity)
	if severity == "" {
		severity = "info"
	}
	var rows []*types.Notification
	for _, r := range dedupe(d.Recipients) {
		rows = append(rows, &types.Notification{
			RecipientUserID: r,
			Type:            d.Type,
			Severity:        severity,
			Title:           d.Title,
			Message:         d.Message,
			Link:            d.Link,
			EntityType:      d.EntityType,
			EntityID:        d.EntityID,
			Metadata:        meta,
		})
	}
	return rows, nil
}

func (s *notificationService) Notify(dbc dbctx.Context, d NotificationDraft) ([]*types.Notification, error) {
	rows, err := s.build(d)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	created, err := s.repo.Create(dbc, rows)
	if err != nil {
		return nil, fmt.Errorf("create notifications: %w", err)
	}
	afterCommit(dbc, func() { s.Publish(dbc, created) })
	return created, nil
}

func (s *notificationService) Publish(dbc dbctx.Context, rows []*types.Notification) {
	for _, n := range rows {
		s.metrics.IncNotification(n.Type)
		if s.emitter == nil {
			continue
		}
		s.emitter.Emit(dbc.Ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(n.RecipientUserID),
			Event:   realtime.SSEEventNotificationCreated,
			Data:    n,
		})
	}
}

func (s *notificationService) List(dbc dbctx.Context, unreadOnly bool, limit int) ([]*types.Notification, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultNotificationLimit
	}
	rows, err := s.repo.ListForUser(dbc, rd.UserID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

func (s *notificationService) UnreadCount(dbc dbctx.Context) (int64, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.CountUnread(dbc, rd.UserID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(dbc dbctx.Context, id uuid.UUID) error {
	rd, err := requireActor(dbc)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(dbc, rd.UserID, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return notFound("notification")
	}
	if s.emitter != nil {
		s.emitter.Emit(dbc.Ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(rd.UserID),
			Event:   realtime.SSEEventNotificationRead,
			Data:    map[string]any{"id": id},
		})
	}
	return nil
}

func (s *notificationService) MarkAllRead(dbc dbctx.Context) (int64, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(dbc, rd.UserID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	if n > 0 && s.emitter != nil {
		s.emitter.Emit(dbc.Ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(rd.UserID),
			Event:   realtime.SSEEventNotificationRead,
			Data:    map[string]any{"all": true},
		})
	}
	return n, nil
}
