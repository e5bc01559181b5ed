package app

import (
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type Repos struct {
	Tx repos.TxRunner

	Territory repos.TerritoryRepo
	User      repos.UserRepo
	AdpAgent  repos.AdpAgentRepo

	Program       repos.ProgramRepo
	Action        repos.ActionRepo
	ActionGeo     repos.ActionGeoRepo
	Attachment    repos.AttachmentRepo
	History       repos.ValidationHistoryRepo
	UnlockRequest repos.UnlockRequestRepo

	Activity     repos.ActivityRepo
	Organization repos.OrganizationRepo
	Conflict     repos.ConflictRepo
	Journal      repos.JournalEntryRepo

	Notification repos.NotificationRepo
	SyncItem     repos.SyncItemRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tx: repos.NewGormTxRunner(db),

		Territory: repos.NewTerritoryRepo(db, log),
		User:      repos.NewUserRepo(db, log),
		AdpAgent:  repos.NewAdpAgentRepo(db, log),

		Program:       repos.NewProgramRepo(db, log),
		Action:        repos.NewActionRepo(db, log),
		ActionGeo:     repos.NewActionGeoRepo(db, log),
		Attachment:    repos.NewAttachmentRepo(db, log),
		History:       repos.NewValidationHistoryRepo(db, log),
		UnlockRequest: repos.NewUnlockRequestRepo(db, log),

		Activity:     repos.NewActivityRepo(db, log),
		Organization: repos.NewOrganizationRepo(db, log),
		Conflict:     repos.NewConflictRepo(db, log),
		Journal:      repos.NewJournalEntryRepo(db, log),

		Notification: repos.NewNotificationRepo(db, log),
		SyncItem:     repos.NewSyncItemRepo(db, log),
	}
}
