package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type UserAdminHandler struct {
	log   *logger.Logger
	users services.UserAdminService
}

func NewUserAdminHandler(log *logger.Logger, users services.UserAdminService) *UserAdminHandler {
	return &UserAdminHandler{log: log.With("handler", "UserAdminHandler"), users: users}
}

// GET /api/admin/users
func (h *UserAdminHandler) List(c *gin.Context) {
	rows, err := h.users.List(dbcOf(c))
	if err != nil {
		fail(c, h.log, "ListUsers", err)
		return
	}
	response.RespondOK(c, gin.H{"users": rows})
}

// POST /api/admin/users
func (h *UserAdminHandler) Create(c *gin.Context) {
	var in services.UserInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.users.Create(dbcOf(c), in)
	if err != nil {
		fail(c, h.log, "CreateUser", err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// PATCH /api/admin/users/:id
func (h *UserAdminHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	var patch services.UserPatch
	if !bindJSON(c, &patch) {
		return
	}
	u, err := h.users.Patch(dbcOf(c), id, patch)
	if err != nil {
		fail(c, h.log, "PatchUser", err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

type AdpAgentHandler struct {
	log    *logger.Logger
	agents services.AdpAgentService
}

func NewAdpAgentHandler(log *logger.Logger, agents services.AdpAgentService) *AdpAgentHandler {
	return &AdpAgentHandler{log: log.With("handler", "AdpAgentHandler"), agents: agents}
}

// GET /api/adp-agents
func (h *AdpAgentHandler) List(c *gin.Context) {
	rows, err := h.agents.List(dbcOf(c))
	if err != nil {
		fail(c, h.log, "ListAgents", err)
		return
	}
	response.RespondOK(c, gin.H{"agents": rows})
}

// POST /api/adp-agents
func (h *AdpAgentHandler) Create(c *gin.Context) {
	var in services.AdpAgentInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.agents.Create(dbcOf(c), in)
	if err != nil {
		fail(c, h.log, "CreateAgent", err)
		return
	}
	response.RespondCreated(c, gin.H{"agent": a})
}

// PATCH /api/adp-agents/:id
func (h *AdpAgentHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	var patch services.AdpAgentPatch
	if !bindJSON(c, &patch) {
		return
	}
	a, err := h.agents.Patch(dbcOf(c), id, patch)
	if err != nil {
		fail(c, h.log, "PatchAgent", err)
		return
	}
	response.RespondOK(c, gin.H{"agent": a})
}

// DELETE /api/adp-agents/:id
func (h *AdpAgentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_id")
	if !ok {
		return
	}
	if err := h.agents.Delete(dbcOf(c), id); err != nil {
		fail(c, h.log, "DeleteAgent", err)
		return
	}
	response.RespondNoContent(c)
}
