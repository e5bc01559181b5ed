package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type SyncHandler struct {
	log  *logger.Logger
	sync services.SyncService
}

func NewSyncHandler(log *logger.Logger, sync services.SyncService) *SyncHandler {
	return &SyncHandler{log: log.With("handler", "SyncHandler"), sync: sync}
}

// POST /api/sync/queue {"items":[...]}
func (h *SyncHandler) Enqueue(c *gin.Context) {
	var req struct {
		Items []services.SyncItemInput `json:"items"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.sync.Enqueue(dbcOf(c), req.Items)
	if err != nil {
		fail(c, h.log, "Enqueue", err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/sync/queue
func (h *SyncHandler) List(c *gin.Context) {
	view, err := h.sync.List(dbcOf(c))
	if err != nil {
		fail(c, h.log, "ListQueue", err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/sync/replay
func (h *SyncHandler) Replay(c *gin.Context) {
	res, err := h.sync.Replay(dbcOf(c))
	if err != nil {
		fail(c, h.log, "Replay", err)
		return
	}
	response.RespondOK(c, res)
}

// DELETE /api/sync/queue/synced
func (h *SyncHandler) ClearSynced(c *gin.Context) {
	n, err := h.sync.ClearSynced(dbcOf(c))
	if err != nil {
		fail(c, h.log, "ClearSynced", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": n})
}
