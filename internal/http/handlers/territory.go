package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

// TerritoryHandler serves the referential; it is not scope-filtered.
type TerritoryHandler struct {
	log       *logger.Logger
	territory services.TerritoryService
}

func NewTerritoryHandler(log *logger.Logger, territory services.TerritoryService) *TerritoryHandler {
	return &TerritoryHandler{log: log.With("handler", "TerritoryHandler"), territory: territory}
}

// GET /api/regions
func (h *TerritoryHandler) Tree(c *gin.Context) {
	tree, err := h.territory.Tree(dbcOf(c))
	if err != nil {
		fail(c, h.log, "Tree", err)
		return
	}
	response.RespondOK(c, gin.H{"regions": tree})
}

// GET /api/regions/dranef?region_id=
func (h *TerritoryHandler) Dranef(c *gin.Context) {
	regionID, ok := queryUUID(c, "region_id")
	if !ok {
		return
	}
	rows, err := h.territory.ListDranef(dbcOf(c), regionID)
	if err != nil {
		fail(c, h.log, "ListDranef", err)
		return
	}
	response.RespondOK(c, gin.H{"dranef": rows})
}

// GET /api/regions/dpanef?dranef_id=
func (h *TerritoryHandler) Dpanef(c *gin.Context) {
	dranefID, ok := queryUUID(c, "dranef_id")
	if !ok {
		return
	}
	rows, err := h.territory.ListDpanef(dbcOf(c), dranefID)
	if err != nil {
		fail(c, h.log, "ListDpanef", err)
		return
	}
	response.RespondOK(c, gin.H{"dpanef": rows})
}

// GET /api/regions/communes?dpanef_id=
func (h *TerritoryHandler) Communes(c *gin.Context) {
	dpanefID, ok := queryUUID(c, "dpanef_id")
	if !ok {
		return
	}
	rows, err := h.territory.ListCommunes(dbcOf(c), dpanefID)
	if err != nil {
		fail(c, h.log, "ListCommunes", err)
		return
	}
	response.RespondOK(c, gin.H{"communes": rows})
}
