package app

import (
	"github.com/anef-maroc/pdfcp-backend/internal/http"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

func routerConfig(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics, tracing bool) http.RouterConfig {
	return http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		TracingEnabled: tracing,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,

		AuthMiddleware: mw.Auth,

		HealthHandler:        h.Health,
		AuthHandler:          h.Auth,
		TerritoryHandler:     h.Territory,
		ProgramHandler:       h.Program,
		ActionHandler:        h.Action,
		AttachmentHandler:    h.Attachment,
		HistoryHandler:       h.History,
		UnlockRequestHandler: h.UnlockRequest,
		ActivityHandler:      h.Activity,
		OrganizationHandler:  h.Organization,
		ConflictHandler:      h.Conflict,
		JournalHandler:       h.Journal,
		DashboardHandler:     h.Dashboard,
		NotificationHandler:  h.Notification,
		RealtimeHandler:      h.Realtime,
		SyncHandler:          h.Sync,
		UserAdminHandler:     h.UserAdmin,
		AdpAgentHandler:      h.AdpAgent,
	}
}
