package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type ProgramHandler struct {
	log        *logger.Logger
	programs   services.ProgramService
	validation services.ValidationService
	reporting  services.ReportingService
}

func NewProgramHandler(
	log *logger.Logger,
	programs services.ProgramService,
	validation services.ValidationService,
	reporting services.ReportingService,
) *ProgramHandler {
	return &ProgramHandler{
		log:        log.With("handler", "ProgramHandler"),
		programs:   programs,
		validation: validation,
		reporting:  reporting,
	}
}

func programQuery(c *gin.Context) (services.ProgramQuery, bool) {
	ids, ok := queryUUIDs(c, "dranef_id", "dpanef_id", "commune_id")
	if !ok {
		return services.ProgramQuery{}, false
	}
	year, ok := queryInt(c, "year")
	if !ok {
		return services.ProgramQuery{}, false
	}
	return services.ProgramQuery{
		DranefID:         ids[0],
		DpanefID:         ids[1],
		CommuneID:        ids[2],
		Year:             year,
		ValidationStatus: c.Query("validation_status"),
	}, true
}

// GET /api/pdfcp/programs
func (h *ProgramHandler) List(c *gin.Context) {
	q, ok := programQuery(c)
	if !ok {
		return
	}
	rows, err := h.programs.List(dbcOf(c), q)
	if err != nil {
		fail(c, h.log, "ListPrograms", err)
		return
	}
	response.RespondOK(c, gin.H{"programs": rows})
}

// GET /api/pdfcp/programs/:id
func (h *ProgramHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	view, err := h.programs.Get(dbcOf(c), id)
	if err != nil {
		fail(c, h.log, "GetProgram", err)
		return
	}
	response.RespondOK(c, gin.H{"program": view})
}

// POST /api/pdfcp/programs
func (h *ProgramHandler) Create(c *gin.Context) {
	var in services.ProgramInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.programs.Create(dbcOf(c), in)
	if err != nil {
		fail(c, h.log, "CreateProgram", err)
		return
	}
	response.RespondCreated(c, gin.H{"program": p})
}

// PATCH /api/pdfcp/programs/:id
func (h *ProgramHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var patch services.ProgramPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.programs.Patch(dbcOf(c), id, patch)
	if err != nil {
		fail(c, h.log, "PatchProgram", err)
		return
	}
	response.RespondOK(c, gin.H{"program": p})
}

// POST /api/pdfcp/programs/:id/transition
func (h *ProgramHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var req struct {
		Target string `json:"target"`
		Note   string `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.validation.Transition(dbcOf(c), id, req.Target, req.Note)
	if err != nil {
		fail(c, h.log, "Transition", err)
		return
	}
	response.RespondOK(c, gin.H{"program": view})
}

// POST /api/pdfcp/programs/:id/cancel
func (h *ProgramHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.validation.Cancel(dbcOf(c), id, req.Reason)
	if err != nil {
		fail(c, h.log, "Cancel", err)
		return
	}
	response.RespondOK(c, gin.H{"program": view})
}

// POST /api/pdfcp/programs/:id/unlock
func (h *ProgramHandler) Unlock(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	var req struct {
		Motif string `json:"motif"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.validation.Unlock(dbcOf(c), id, req.Motif)
	if err != nil {
		fail(c, h.log, "Unlock", err)
		return
	}
	response.RespondOK(c, gin.H{"program": view})
}

// GET /api/pdfcp/programs/:id/comparatif
func (h *ProgramHandler) Comparatif(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_pdfcp_id")
	if !ok {
		return
	}
	view, err := h.reporting.Comparatif(dbcOf(c), id)
	if err != nil {
		fail(c, h.log, "Comparatif", err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/pdfcp/alerts
func (h *ProgramHandler) Alerts(c *gin.Context) {
	ids, ok := queryUUIDs(c, "pdfcp_id", "dranef_id", "dpanef_id", "commune_id")
	if !ok {
		return
	}
	view, err := h.reporting.Alerts(dbcOf(c), services.AlertQuery{
		PdfcpID:   ids[0],
		DranefID:  ids[1],
		DpanefID:  ids[2],
		CommuneID: ids[3],
		Type:      c.Query("type"),
		Severity:  c.Query("severity"),
	})
	if err != nil {
		fail(c, h.log, "Alerts", err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/pdfcp/kpis
func (h *ProgramHandler) KPIs(c *gin.Context) {
	q, ok := programQuery(c)
	if !ok {
		return
	}
	kpis, err := h.reporting.KPIs(dbcOf(c), q)
	if err != nil {
		fail(c, h.log, "KPIs", err)
		return
	}
	response.RespondOK(c, gin.H{"kpis": kpis})
}
