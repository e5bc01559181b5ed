package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/jobs/worker"
	"github.com/anef-maroc/pdfcp-backend/internal/observability"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type Services struct {
	Territory services.TerritoryService
	Auth      services.AuthService
	UserAdmin services.UserAdminService
	AdpAgent  services.AdpAgentService

	// Programs and their sub-resources
	Program       services.ProgramService
	Validation    services.ValidationService
	Action        services.ActionService
	Attachment    services.AttachmentService
	History       services.HistoryService
	UnlockRequest services.UnlockRequestService
	Reporting     services.ReportingService

	// Field records
	Activity     services.ActivityService
	Organization services.OrganizationService
	Conflict     services.ConflictService
	Journal      services.JournalService
	Dashboard    services.DashboardService

	Notification services.NotificationService
	Sync         services.SyncService
	SyncWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, emitter services.SSEEmitter, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	territory := services.NewTerritoryService(db, log, r.Territory, cfg.TerritoryCacheTTL)
	notifications := services.NewNotificationService(db, log, r.Notification, emitter, metrics)

	validation := services.NewValidationService(db, log, r.Tx,
		r.Program,
		r.Action,
		r.History,
		r.User,
		territory,
		notifications,
		emitter,
		metrics,
	)
	actions := services.NewActionService(db, log, r.Tx, r.Program, r.Action, r.ActionGeo, territory)

	activities := services.NewActivityService(db, log, r.Activity, r.Program, territory)
	organizations := services.NewOrganizationService(db, log, r.Organization, territory)
	conflicts := services.NewConflictService(db, log, r.Conflict, r.Program, territory)
	journal := services.NewJournalService(db, log, r.Journal, r.Program, territory)

	registry, err := services.NewApplierRegistry(
		services.ActivityApplier(activities),
		services.OrganizationApplier(organizations),
		services.ConflictApplier(conflicts),
		services.JournalApplier(journal),
		services.ActionApplier(actions),
	)
	if err != nil {
		return Services{}, fmt.Errorf("init sync appliers: %w", err)
	}
	syncService := services.NewSyncService(db, log, r.SyncItem, r.User, registry, emitter, metrics, cfg.SyncReplayDelay)

	var syncWorker *worker.Worker
	if cfg.SyncWorkerEnabled {
		syncWorker = worker.NewWorker(log, syncService, cfg.SyncReplayDelay, cfg.SyncIdlePoll)
	}

	return Services{
		Territory: territory,
		Auth:      services.NewAuthService(db, log, r.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		UserAdmin: services.NewUserAdminService(db, log, r.Tx, r.User, territory),
		AdpAgent:  services.NewAdpAgentService(db, log, r.Tx, r.AdpAgent, territory),

		Program:       services.NewProgramService(db, log, r.Tx, r.Program, r.History, territory),
		Validation:    validation,
		Action:        actions,
		Attachment:    services.NewAttachmentService(db, log, r.Attachment, r.Program, territory),
		History:       services.NewHistoryService(db, log, r.History, r.Program, territory),
		UnlockRequest: services.NewUnlockRequestService(db, log, r.Tx,
			r.UnlockRequest,
			r.Program,
			r.User,
			territory,
			validation,
			notifications,
		),
		Reporting: services.NewReportingService(db, log, r.Program, r.Action, territory),

		Activity:     activities,
		Organization: organizations,
		Conflict:     conflicts,
		Journal:      journal,
		Dashboard:    services.NewDashboardService(db, log,
			r.AdpAgent,
			r.Program,
			r.Activity,
			r.Organization,
			r.Conflict,
			territory,
		),

		Notification: notifications,
		Sync:         syncService,
		SyncWorker:   syncWorker,
	}, nil
}
