package repos

import (
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/field"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/notify"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/syncq"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/territory"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/user"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type TerritoryRepo = territory.TerritoryRepo

type UserRepo = user.UserRepo
type AdpAgentRepo = user.AdpAgentRepo

type ProgramRepo = pdfcp.ProgramRepo
type ProgramFilter = pdfcp.ProgramFilter
type ActionRepo = pdfcp.ActionRepo
type ActionFilter = pdfcp.ActionFilter
type ActionGeoRepo = pdfcp.ActionGeoRepo
type AttachmentRepo = pdfcp.AttachmentRepo
type ValidationHistoryRepo = pdfcp.ValidationHistoryRepo
type UnlockRequestRepo = pdfcp.UnlockRequestRepo

type FieldFilter = field.Filter
type ActivityRepo = field.ActivityRepo
type OrganizationRepo = field.OrganizationRepo
type ConflictRepo = field.ConflictRepo
type JournalEntryRepo = field.JournalEntryRepo

type NotificationRepo = notify.NotificationRepo

type SyncItemRepo = syncq.SyncItemRepo

func NewTerritoryRepo(db *gorm.DB, baseLog *logger.Logger) TerritoryRepo {
	return territory.NewTerritoryRepo(db, baseLog)
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewAdpAgentRepo(db *gorm.DB, baseLog *logger.Logger) AdpAgentRepo {
	return user.NewAdpAgentRepo(db, baseLog)
}

func NewProgramRepo(db *gorm.DB, baseLog *logger.Logger) ProgramRepo {
	return pdfcp.NewProgramRepo(db, baseLog)
}
func NewActionRepo(db *gorm.DB, baseLog *logger.Logger) ActionRepo {
	return pdfcp.NewActionRepo(db, baseLog)
}
func NewActionGeoRepo(db *gorm.DB, baseLog *logger.Logger) ActionGeoRepo {
	return pdfcp.NewActionGeoRepo(db, baseLog)
}
func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	return pdfcp.NewAttachmentRepo(db, baseLog)
}
func NewValidationHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ValidationHistoryRepo {
	return pdfcp.NewValidationHistoryRepo(db, baseLog)
}
func NewUnlockRequestRepo(db *gorm.DB, baseLog *logger.Logger) UnlockRequestRepo {
	return pdfcp.NewUnlockRequestRepo(db, baseLog)
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return field.NewActivityRepo(db, baseLog)
}
func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return field.NewOrganizationRepo(db, baseLog)
}
func NewConflictRepo(db *gorm.DB, baseLog *logger.Logger) ConflictRepo {
	return field.NewConflictRepo(db, baseLog)
}
func NewJournalEntryRepo(db *gorm.DB, baseLog *logger.Logger) JournalEntryRepo {
	return field.NewJournalEntryRepo(db, baseLog)
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notify.NewNotificationRepo(db, baseLog)
}

func NewSyncItemRepo(db *gorm.DB, baseLog *logger.Logger) SyncItemRepo {
	return syncq.NewSyncItemRepo(db, baseLog)
}
