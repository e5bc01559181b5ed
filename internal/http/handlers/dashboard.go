package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
	"github.com/anef-maroc/pdfcp-backend/internal/stats"
)

type DashboardHandler struct {
	log       *logger.Logger
	dashboard services.DashboardService
}

func NewDashboardHandler(log *logger.Logger, dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{log: log.With("handler", "DashboardHandler"), dashboard: dashboard}
}

// GET /api/dashboard/stats?dranef_id=&dpanef_id=&commune_id=&year=
func (h *DashboardHandler) Stats(c *gin.Context) {
	ids, ok := queryUUIDs(c, "dranef_id", "dpanef_id", "commune_id")
	if !ok {
		return
	}
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	out, err := h.dashboard.Stats(dbcOf(c), stats.Filters{
		DranefID:  ids[0],
		DpanefID:  ids[1],
		CommuneID: ids[2],
		Year:      year,
	})
	if err != nil {
		fail(c, h.log, "DashboardStats", err)
		return
	}
	response.RespondOK(c, out)
}
