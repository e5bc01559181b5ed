package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type AttachmentHandler struct {
	log         *logger.Logger
	attachments services.AttachmentService
}

func NewAttachmentHandler(log *logger.Logger, attachments services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{log: log.With("handler", "AttachmentHandler"), attachments: attachments}
}

// GET /api/pdfcp/programs/:id/attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	rows, err := h.attachments.List(dbcOf(c), pdfcpID)
	if err != nil {
		fail(c, h.log, "ListAttachments", err)
		return
	}
	response.RespondOK(c, gin.H{"attachments": rows})
}

// POST /api/pdfcp/programs/:id/attachments
func (h *AttachmentHandler) Create(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var in services.AttachmentInput
	if !bindJSON(c, &in) {
		return
	}
	row, err := h.attachments.Create(dbcOf(c), pdfcpID, in)
	if err != nil {
		fail(c, h.log, "CreateAttachment", err)
		return
	}
	response.RespondCreated(c, gin.H{"attachment": row})
}

// DELETE /api/pdfcp/programs/:id/attachments/:attachmentId
func (h *AttachmentHandler) Delete(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	attachmentID, ok := pathID(c, "attachmentId", "invalid_id")
	if !ok {
		return
	}
	if err := h.attachments.Delete(dbcOf(c), pdfcpID, attachmentID); err != nil {
		fail(c, h.log, "DeleteAttachment", err)
		return
	}
	response.RespondNoContent(c)
}
