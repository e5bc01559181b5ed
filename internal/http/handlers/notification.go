package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type NotificationHandler struct {
	log           *logger.Logger
	notifications services.NotificationService
}

func NewNotificationHandler(log *logger.Logger, notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{log: log.With("handler", "NotificationHandler"), notifications: notifications}
}

// GET /api/notifications?unread=true&limit=
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	rows, err := h.notifications.List(dbcOf(c), unreadOnly, n)
	if err != nil {
		fail(c, h.log, "ListNotifications", err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": rows})
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(dbcOf(c))
	if err != nil {
		fail(c, h.log, "UnreadCount", err)
		return
	}
	response.RespondOK(c, gin.H{"unread": n})
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(dbcOf(c), id); err != nil {
		fail(c, h.log, "MarkRead", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(dbcOf(c))
	if err != nil {
		fail(c, h.log, "MarkAllRead", err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
