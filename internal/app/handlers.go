package app

import (
	"gorm.io/gorm"

	httpH "github.com/anef-maroc/pdfcp-backend/internal/http/handlers"
	httpMW "github.com/anef-maroc/pdfcp-backend/internal/http/middleware"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health        *httpH.HealthHandler
	Auth          *httpH.AuthHandler
	Territory     *httpH.TerritoryHandler
	Program       *httpH.ProgramHandler
	Action        *httpH.ActionHandler
	Attachment    *httpH.AttachmentHandler
	History       *httpH.HistoryHandler
	UnlockRequest *httpH.UnlockRequestHandler
	Activity      *httpH.ActivityHandler
	Organization  *httpH.OrganizationHandler
	Conflict      *httpH.ConflictHandler
	Journal       *httpH.JournalHandler
	Dashboard     *httpH.DashboardHandler
	Notification  *httpH.NotificationHandler
	Realtime      *httpH.RealtimeHandler
	Sync          *httpH.SyncHandler
	UserAdmin     *httpH.UserAdminHandler
	AdpAgent      *httpH.AdpAgentHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:        httpH.NewHealthHandler(db),
		Auth:          httpH.NewAuthHandler(log, s.Auth),
		Territory:     httpH.NewTerritoryHandler(log, s.Territory),
		Program:       httpH.NewProgramHandler(log, s.Program, s.Validation, s.Reporting),
		Action:        httpH.NewActionHandler(log, s.Action),
		Attachment:    httpH.NewAttachmentHandler(log, s.Attachment),
		History:       httpH.NewHistoryHandler(log, s.History),
		UnlockRequest: httpH.NewUnlockRequestHandler(log, s.UnlockRequest),
		Activity:      httpH.NewActivityHandler(log, s.Activity),
		Organization:  httpH.NewOrganizationHandler(log, s.Organization),
		Conflict:      httpH.NewConflictHandler(log, s.Conflict),
		Journal:       httpH.NewJournalHandler(log, s.Journal),
		Dashboard:     httpH.NewDashboardHandler(log, s.Dashboard),
		Notification:  httpH.NewNotificationHandler(log, s.Notification),
		Realtime:      httpH.NewRealtimeHandler(log, hub),
		Sync:          httpH.NewSyncHandler(log, s.Sync),
		UserAdmin:     httpH.NewUserAdminHandler(log, s.UserAdmin),
		AdpAgent:      httpH.NewAdpAgentHandler(log, s.AdpAgent),
	}
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, s.Auth),
	}
}
