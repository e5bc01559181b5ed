package pdfcp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type ValidationStatus string

const (
	StatusBrouillon     ValidationStatus = "BROUILLON"
	StatusConcerteADP   ValidationStatus = "CONCERTE_ADP"
	StatusValideDPANEF  ValidationStatus = "VALIDE_DPANEF"
	StatusValideCentral ValidationStatus = "VALIDE_CENTRAL"
	StatusVerrouille    ValidationStatus = "VERROUILLE"
)

// Program is a multi-year development plan (PDFCP) for a commune.
type Program struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(64);uniqueIndex;not null;column:code" json:"code"`
	Title       string    `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Description string    `gorm:"type:text;column:description" json:"description,omitempty"`
	StartYear   int       `gorm:"not null;column:start_year" json:"start_year"`
	EndYear     int       `gorm:"not null;column:end_year" json:"end_year"`

	RegionID  *uuid.UUID `gorm:"type:char(36);index;column:region_id" json:"region_id,omitempty"`
	DranefID  *uuid.UUID `gorm:"type:char(36);index;column:dranef_id" json:"dranef_id,omitempty"`
	DpanefID  *uuid.UUID `gorm:"type:char(36);index;column:dpanef_id" json:"dpanef_id,omitempty"`
	CommuneID *uuid.UUID `gorm:"type:char(36);index;column:commune_id" json:"commune_id,omitempty"`
	AdpUserID *uuid.UUID `gorm:"type:char(36);index;column:adp_user_id" json:"adp_user_id,omitempty"`

	TotalBudgetDH    float64          `gorm:"not null;default:0;column:total_budget_dh" json:"total_budget_dh"`
	ValidationStatus ValidationStatus `gorm:"type:varchar(32);not null;default:'BROUILLON';index;column:validation_status" json:"validation_status"`
	Locked           bool             `gorm:"not null;default:false;column:locked" json:"locked"`

	ValidatedAdpBy    *uuid.UUID `gorm:"type:char(36);column:validated_adp_by" json:"validated_adp_by,omitempty"`
	ValidatedAdpAt    *time.Time `gorm:"column:validated_adp_at" json:"validated_adp_at,omitempty"`
	ValidatedDpanefBy *uuid.UUID `gorm:"type:char(36);column:validated_dpanef_by" json:"validated_dpanef_by,omitempty"`
	ValidatedDpanefAt *time.Time `gorm:"column:validated_dpanef_at" json:"validated_dpanef_at,omitempty"`
	VisaDranefBy      *uuid.UUID `gorm:"type:char(36);column:visa_dranef_by" json:"visa_dranef_by,omitempty"`
	VisaDranefAt      *time.Time `gorm:"column:visa_dranef_at" json:"visa_dranef_at,omitempty"`
	ValidationNote    string     `gorm:"type:text;column:validation_note" json:"validation_note,omitempty"`

	UnlockMotif     string     `gorm:"type:text;column:unlock_motif" json:"unlock_motif,omitempty"`
	UnlockAt        *time.Time `gorm:"column:unlock_at" json:"unlock_at,omitempty"`
	UnlockBy        *uuid.UUID `gorm:"type:char(36);column:unlock_by" json:"unlock_by,omitempty"`
	AnnulationMotif string     `gorm:"type:text;column:annulation_motif" json:"annulation_motif,omitempty"`
	AnnulationDate  *time.Time `gorm:"column:annulation_date" json:"annulation_date,omitempty"`
	AnnulationPar   *uuid.UUID `gorm:"type:char(36);column:annulation_par" json:"annulation_par,omitempty"`

	CreatedBy *uuid.UUID     `gorm:"type:char(36);column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Program) TableName() string { return "pdfcp_programs" }

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ValidationStatus == "" {
		p.ValidationStatus = StatusBrouillon
	}
	return nil
}

func (p Program) ScopeAnchors() rbac.Anchors {
	a := rbac.Anchors{DranefID: p.DranefID, DpanefID: p.DpanefID, CommuneID: p.CommuneID}
	if p.AdpUserID != nil {
		a.Owners = append(a.Owners, *p.AdpUserID)
	}
	if p.CreatedBy != nil {
		a.Owners = append(a.Owners, *p.CreatedBy)
	}
	return a
}

// CoversYear reports start_year <= y <= end_year.
func (p Program) CoversYear(y int) bool { return p.StartYear <= y && y <= p.EndYear }
