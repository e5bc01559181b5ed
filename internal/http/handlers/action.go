package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type ActionHandler struct {
	log     *logger.Logger
	actions services.ActionService
}

func NewActionHandler(log *logger.Logger, actions services.ActionService) *ActionHandler {
	return &ActionHandler{log: log.With("handler", "ActionHandler"), actions: actions}
}

// GET /api/pdfcp/programs/:id/actions?etat=&year=
func (h *ActionHandler) List(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	f := repos.ActionFilter{Etat: types.Etat(strings.TrimSpace(c.Query("etat"))), Year: year}
	rows, err := h.actions.List(dbcOf(c), pdfcpID, f)
	if err != nil {
		fail(c, h.log, "ListActions", err)
		return
	}
	response.RespondOK(c, gin.H{"actions": rows})
}

// POST /api/pdfcp/programs/:id/actions
func (h *ActionHandler) Create(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var in services.ActionInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.actions.Create(dbcOf(c), pdfcpID, in)
	if err != nil {
		fail(c, h.log, "CreateAction", err)
		return
	}
	response.RespondCreated(c, gin.H{"action": res})
}

// PATCH /api/pdfcp/programs/:id/actions/:actionId
func (h *ActionHandler) Patch(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	actionID, ok := pathID(c, "actionId", "invalid_id")
	if !ok {
		return
	}
	var patch services.ActionPatch
	if !bindJSON(c, &patch) {
		return
	}
	res, err := h.actions.Patch(dbcOf(c), pdfcpID, actionID, patch)
	if err != nil {
		fail(c, h.log, "PatchAction", err)
		return
	}
	response.RespondOK(c, gin.H{"action": res})
}

// DELETE /api/pdfcp/programs/:id/actions/:actionId
func (h *ActionHandler) Delete(c *gin.Context) {
	pdfcpID, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	actionID, ok := pathID(c, "actionId", "invalid_id")
	if !ok {
		return
	}
	if err := h.actions.Delete(dbcOf(c), pdfcpID, actionID); err != nil {
		fail(c, h.log, "DeleteAction", err)
		return
	}
	response.RespondNoContent(c)
}
