package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/anef-maroc/pdfcp-backend/internal/http/handlers"
	httpMW "github.com/anef-maroc/pdfcp-backend/internal/http/middleware"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	TracingEnabled bool
	ServiceName    string
	CORSOrigins    []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler        *httpH.HealthHandler
	AuthHandler          *httpH.AuthHandler
	TerritoryHandler     *httpH.TerritoryHandler
	ProgramHandler       *httpH.ProgramHandler
	ActionHandler        *httpH.ActionHandler
	AttachmentHandler    *httpH.AttachmentHandler
	HistoryHandler       *httpH.HistoryHandler
	UnlockRequestHandler *httpH.UnlockRequestHandler
	ActivityHandler      *httpH.ActivityHandler
	OrganizationHandler  *httpH.OrganizationHandler
	ConflictHandler      *httpH.ConflictHandler
	JournalHandler       *httpH.JournalHandler
	DashboardHandler     *httpH.DashboardHandler
	NotificationHandler  *httpH.NotificationHandler
	RealtimeHandler      *httpH.RealtimeHandler
	SyncHandler          *httpH.SyncHandler
	UserAdminHandler     *httpH.UserAdminHandler
	AdpAgentHandler      *httpH.AdpAgentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/api/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.GET("/auth/me", cfg.AuthHandler.Me)
		}

		// Territorial referential
		if cfg.TerritoryHandler != nil {
			protected.GET("/regions", cfg.TerritoryHandler.Tree)
			protected.GET("/regions/dranef", cfg.TerritoryHandler.Dranef)
			protected.GET("/regions/dpanef", cfg.TerritoryHandler.Dpanef)
			protected.GET("/regions/communes", cfg.TerritoryHandler.Communes)
		}

		pdfcp := protected.Group("/pdfcp")
		if cfg.ProgramHandler != nil {
			pdfcp.GET("/programs", cfg.ProgramHandler.List)
			pdfcp.POST("/programs", cfg.ProgramHandler.Create)
			pdfcp.GET("/programs/:id", cfg.ProgramHandler.Get)
			pdfcp.PATCH("/programs/:id", cfg.ProgramHandler.Patch)
			pdfcp.POST("/programs/:id/transition", cfg.ProgramHandler.Transition)
			pdfcp.POST("/programs/:id/cancel", cfg.ProgramHandler.Cancel)
			pdfcp.POST("/programs/:id/unlock", cfg.ProgramHandler.Unlock)
			pdfcp.GET("/programs/:id/comparatif", cfg.ProgramHandler.Comparatif)
			pdfcp.GET("/alerts", cfg.ProgramHandler.Alerts)
			pdfcp.GET("/kpis", cfg.ProgramHandler.KPIs)
		}
		if cfg.ActionHandler != nil {
			pdfcp.GET("/programs/:id/actions", cfg.ActionHandler.List)
			pdfcp.POST("/programs/:id/actions", cfg.ActionHandler.Create)
			pdfcp.PATCH("/programs/:id/actions/:actionId", cfg.ActionHandler.Patch)
			pdfcp.DELETE("/programs/:id/actions/:actionId", cfg.ActionHandler.Delete)
		}
		if cfg.AttachmentHandler != nil {
			pdfcp.GET("/programs/:id/attachments", cfg.AttachmentHandler.List)
			pdfcp.POST("/programs/:id/attachments", cfg.AttachmentHandler.Create)
			pdfcp.DELETE("/programs/:id/attachments/:attachmentId", cfg.AttachmentHandler.Delete)
		}
		if cfg.HistoryHandler != nil {
			pdfcp.GET("/programs/:id/history", cfg.HistoryHandler.List)
			pdfcp.POST("/programs/:id/history", cfg.HistoryHandler.AddNote)
		}
		if cfg.UnlockRequestHandler != nil {
			pdfcp.GET("/programs/:id/unlock-requests", cfg.UnlockRequestHandler.ListForProgram)
			pdfcp.POST("/programs/:id/unlock-requests", cfg.UnlockRequestHandler.Request)
			pdfcp.GET("/unlock-requests", cfg.UnlockRequestHandler.List)
			pdfcp.POST("/unlock-requests/:id/approve", adminOnly(cfg, cfg.UnlockRequestHandler.Approve)...)
			pdfcp.POST("/unlock-requests/:id/reject", adminOnly(cfg, cfg.UnlockRequestHandler.Reject)...)
		}

		// Field records
		if cfg.ActivityHandler != nil {
			protected.GET("/activities", cfg.ActivityHandler.List)
			protected.POST("/activities", cfg.ActivityHandler.Create)
			protected.GET("/activities/:id", cfg.ActivityHandler.Get)
			protected.PATCH("/activities/:id", cfg.ActivityHandler.Patch)
			protected.DELETE("/activities/:id", cfg.ActivityHandler.Delete)
		}
		if cfg.OrganizationHandler != nil {
			protected.GET("/organizations", cfg.OrganizationHandler.List)
			protected.POST("/organizations", cfg.OrganizationHandler.Create)
			protected.GET("/organizations/:id", cfg.OrganizationHandler.Get)
			protected.PATCH("/organizations/:id", cfg.OrganizationHandler.Patch)
			protected.DELETE("/organizations/:id", cfg.OrganizationHandler.Delete)
		}
		if cfg.ConflictHandler != nil {
			protected.GET("/conflicts", cfg.ConflictHandler.List)
			protected.POST("/conflicts", cfg.ConflictHandler.Create)
			protected.GET("/conflicts/metrics", cfg.ConflictHandler.Metrics)
			protected.GET("/conflicts/:id", cfg.ConflictHandler.Get)
			protected.PATCH("/conflicts/:id", cfg.ConflictHandler.Patch)
			protected.DELETE("/conflicts/:id", cfg.ConflictHandler.Delete)
		}
		if cfg.JournalHandler != nil {
			protected.GET("/cahier-journal-entries", cfg.JournalHandler.List)
			protected.POST("/cahier-journal-entries", cfg.JournalHandler.Create)
			protected.PATCH("/cahier-journal-entries/:id", cfg.JournalHandler.Patch)
			protected.DELETE("/cahier-journal-entries/:id", cfg.JournalHandler.Delete)
		}

		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard/stats", cfg.DashboardHandler.Stats)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/notifications", cfg.NotificationHandler.List)
			protected.GET("/notifications/unread-count", cfg.NotificationHandler.UnreadCount)
			protected.POST("/notifications/read-all", cfg.NotificationHandler.MarkAllRead)
			protected.POST("/notifications/:id/read", cfg.NotificationHandler.MarkRead)
		}
		if cfg.RealtimeHandler != nil {
			protected.GET("/notifications/stream", cfg.RealtimeHandler.Stream)
		}

		// Offline sync
		if cfg.SyncHandler != nil {
			protected.POST("/sync/queue", cfg.SyncHandler.Enqueue)
			protected.GET("/sync/queue", cfg.SyncHandler.List)
			protected.DELETE("/sync/queue/synced", cfg.SyncHandler.ClearSynced)
			protected.POST("/sync/replay", cfg.SyncHandler.Replay)
		}

		// Admin
		if cfg.UserAdminHandler != nil {
			protected.GET("/admin/users", cfg.UserAdminHandler.List)
			protected.POST("/admin/users", cfg.UserAdminHandler.Create)
			protected.PATCH("/admin/users/:id", cfg.UserAdminHandler.Patch)
		}
		if cfg.AdpAgentHandler != nil {
			protected.GET("/adp-agents", cfg.AdpAgentHandler.List)
			protected.POST("/adp-agents", cfg.AdpAgentHandler.Create)
			protected.PATCH("/adp-agents/:id", cfg.AdpAgentHandler.Patch)
			protected.DELETE("/adp-agents/:id", cfg.AdpAgentHandler.Delete)
		}
	}

	return r
}

func adminOnly(cfg RouterConfig, h gin.HandlerFunc) []gin.HandlerFunc {
	if cfg.AuthMiddleware == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{cfg.AuthMiddleware.RequireAdmin(), h}
}
