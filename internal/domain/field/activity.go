package field

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

var ActivityTypes = []string{
	"sensibilisation", "formation", "reunion", "visite_terrain", "distribution", "suivi_projet", "mediation",
}

var ActivityStatuses = []string{"draft", "submitted", "validated", "archived"}

// Anchored is the territorial placement shared by every field record.
type Anchored struct {
	CommuneID *uuid.UUID `gorm:"type:char(36);index;column:commune_id" json:"commune_id,omitempty"`
	DpanefID  *uuid.UUID `gorm:"type:char(36);index;column:dpanef_id" json:"dpanef_id,omitempty"`
	DranefID  *uuid.UUID `gorm:"type:char(36);index;column:dranef_id" json:"dranef_id,omitempty"`
	AdpUserID *uuid.UUID `gorm:"type:char(36);index;column:adp_user_id" json:"adp_user_id,omitempty"`
}

func (a Anchored) anchors(extraOwners ...*uuid.UUID) rbac.Anchors {
	out := rbac.Anchors{DranefID: a.DranefID, DpanefID: a.DpanefID, CommuneID: a.CommuneID}
	for _, o := range append([]*uuid.UUID{a.AdpUserID}, extraOwners...) {
		if o != nil && *o != uuid.Nil {
			out.Owners = append(out.Owners, *o)
		}
	}
	return out
}

type Activity struct {
	ID                 uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ActivityType       string     `gorm:"type:varchar(32);not null;index;column:activity_type" json:"activity_type"`
	ActivityDate       time.Time  `gorm:"not null;index;column:activity_date" json:"activity_date"`
	Title              string     `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Description        string     `gorm:"type:text;column:description" json:"description,omitempty"`
	Location           string     `gorm:"type:varchar(255);column:location" json:"location,omitempty"`
	ParticipantsCount  int        `gorm:"not null;default:0;column:participants_count" json:"participants_count"`
	BeneficiariesCount int        `gorm:"not null;default:0;column:beneficiaries_count" json:"beneficiaries_count"`
	PdfcpID            *uuid.UUID `gorm:"type:char(36);index;column:pdfcp_id" json:"pdfcp_id,omitempty"`
	ValidationStatus   string     `gorm:"type:varchar(16);not null;default:'draft';column:validation_status" json:"validation_status"`
	Anchored

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Activity) TableName() string { return "field_activities" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ValidationStatus == "" {
		a.ValidationStatus = "draft"
	}
	return nil
}

func (a Activity) ScopeAnchors() rbac.Anchors { return a.Anchored.anchors() }

var OrganizationTypes = []string{"ODF", "cooperative", "association", "AGS"}
var OrganizationStatuses = []string{"active", "inactive", "en_creation", "dissoute"}

type Organization struct {
	ID                 uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Name               string     `gorm:"type:varchar(255);not null;column:name" json:"name"`
	OrganizationType   string     `gorm:"type:varchar(32);not null;index;column:organization_type" json:"organization_type"`
	OrganizationStatus string     `gorm:"type:varchar(16);not null;default:'active';column:organization_status" json:"organization_status"`
	MembersCount       int        `gorm:"not null;default:0;column:members_count" json:"members_count"`
	PresidentName      string     `gorm:"type:varchar(255);column:president_name" json:"president_name,omitempty"`
	CreationDate       *time.Time `gorm:"column:creation_date" json:"creation_date,omitempty"`
	Anchored

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Organization) TableName() string { return "organizations" }

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrganizationStatus == "" {
		o.OrganizationStatus = "active"
	}
	return nil
}

func (o Organization) ScopeAnchors() rbac.Anchors { return o.Anchored.anchors() }
