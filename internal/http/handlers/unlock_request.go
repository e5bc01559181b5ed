package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type UnlockRequestHandler struct {
	log      *logger.Logger
	requests services.UnlockRequestService
}

func NewUnlockRequestHandler(log *logger.Logger, requests services.UnlockRequestService) *UnlockRequestHandler {
	return &UnlockRequestHandler{log: log.With("handler", "UnlockRequestHandler"), requests: requests}
}

// GET /api/pdfcp/programs/:id/unlock-requests
func (h *UnlockRequestHandler) ListForProgram(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	rows, err := h.requests.ListByProgram(dbcOf(c), pdfcpID)
	if err != nil {
		fail(c, h.log, "ListUnlockRequests", err)
		return
	}
	response.RespondOK(c, gin.H{"unlock_requests": rows})
}

// POST /api/pdfcp/programs/:id/unlock-requests
func (h *UnlockRequestHandler) Request(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.requests.Request(dbcOf(c), pdfcpID, req.Reason)
	if err != nil {
		fail(c, h.log, "RequestUnlock", err)
		return
	}
	response.RespondCreated(c, gin.H{"unlock_request": row})
}

// GET /api/pdfcp/unlock-requests?status=
func (h *UnlockRequestHandler) List(c *gin.Context) {
	rows, err := h.requests.List(dbcOf(c), c.Query("status"))
	if err != nil {
		fail(c, h.log, "ListUnlockQueue", err)
		return
	}
	response.RespondOK(c, gin.H{"unlock_requests": rows})
}

// POST /api/pdfcp/unlock-requests/:id/approve
func (h *UnlockRequestHandler) Approve(c *gin.Context) {
	h.decide(c, "ApproveUnlock", h.requests.Approve)
}

// POST /api/pdfcp/unlock-requests/:id/reject
func (h *UnlockRequestHandler) Reject(c *gin.Context) {
	h.decide(c, "RejectUnlock", h.requests.Reject)
}

type decision func(dbc dbctx.Context, id uuid.UUID, comment string) (*types.UnlockRequest, error)

func (h *UnlockRequestHandler) decide(c *gin.Context, op string, fn decision) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	// the comment is optional, so an empty body is fine
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	row, err := fn(dbcOf(c), id, req.Comment)
	if err != nil {
		fail(c, h.log, op, err)
		return
	}
	response.RespondOK(c, gin.H{"unlock_request": row})
}
