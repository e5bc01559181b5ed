package domain

import (
	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/notify"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/syncq"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/territory"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/user"
)

type Region = territory.Region
type Dranef = territory.Dranef
type Dpanef = territory.Dpanef
type Commune = territory.Commune

type User = user.User
type UserRole = user.UserRole
type AdpAgent = user.AdpAgent

const (
	AgentStatusActive   = user.AgentStatusActive
	AgentStatusInactive = user.AgentStatusInactive
)

type ValidationStatus = pdfcp.ValidationStatus
type Etat = pdfcp.Etat
type Program = pdfcp.Program
type Action = pdfcp.Action
type ActionGeo = pdfcp.ActionGeo
type Proof = pdfcp.Proof
type Attachment = pdfcp.Attachment
type ValidationHistory = pdfcp.ValidationHistory
type UnlockRequest = pdfcp.UnlockRequest

const (
	StatusBrouillon     = pdfcp.StatusBrouillon
	StatusConcerteADP   = pdfcp.StatusConcerteADP
	StatusValideDPANEF  = pdfcp.StatusValideDPANEF
	StatusValideCentral = pdfcp.StatusValideCentral
	StatusVerrouille    = pdfcp.StatusVerrouille

	EtatConcerte = pdfcp.EtatConcerte
	EtatCP       = pdfcp.EtatCP
	EtatExecute  = pdfcp.EtatExecute

	UnlockPending  = pdfcp.UnlockPending
	UnlockApproved = pdfcp.UnlockApproved
	UnlockRejected = pdfcp.UnlockRejected
)

type Anchored = field.Anchored
type Activity = field.Activity
type Organization = field.Organization
type Conflict = field.Conflict
type JournalEntry = field.JournalEntry

type Notification = notify.Notification

type SyncItem = syncq.Item

const (
	SyncPending    = syncq.StatusPending
	SyncProcessing = syncq.StatusProcessing
	SyncSynced     = syncq.StatusSynced
	SyncError      = syncq.StatusError
	SyncConflict   = syncq.StatusConflict

	SyncClaimLease = syncq.ClaimLease
)

// Models lists every table managed by AutoMigrate, parents first.
func Models() []any {
	return []any{
		&Region{}, &Dranef{}, &Dpanef{}, &Commune{},
		&User{}, &UserRole{}, &AdpAgent{},
		&Program{}, &Action{}, &ActionGeo{}, &Attachment{}, &ValidationHistory{}, &UnlockRequest{},
		&Activity{}, &Organization{}, &Conflict{}, &JournalEntry{},
		&Notification{},
		&SyncItem{},
	}
}
