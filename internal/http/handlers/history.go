package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type HistoryHandler struct {
	log     *logger.Logger
	history services.HistoryService
}

func NewHistoryHandler(log *logger.Logger, history services.HistoryService) *HistoryHandler {
	return &HistoryHandler{log: log.With("handler", "HistoryHandler"), history: history}
}

// GET /api/pdfcp/programs/:id/history
func (h *HistoryHandler) List(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	rows, err := h.history.List(dbcOf(c), pdfcpID)
	if err != nil {
		fail(c, h.log, "ListHistory", err)
		return
	}
	response.RespondOK(c, gin.H{"history": rows})
}

// POST /api/pdfcp/programs/:id/history
func (h *HistoryHandler) AddNote(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.history.AddNote(dbcOf(c), pdfcpID, req.Note)
	if err != nil {
		fail(c, h.log, "AddHistoryNote", err)
		return
	}
	response.RespondCreated(c, gin.H{"entry": row})
}
