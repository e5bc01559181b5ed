package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler { return &HealthHandler{db: db} }

// GET /health, /api/health, /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := h.pingDB(c.Request.Context())
	status, code := "ok", http.StatusOK
	if dbStatus != "up" {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"db":     dbStatus,
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) string {
	if h.db == nil {
		return "unconfigured"
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return "down"
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return "down"
	}
	return "up"
}
