package field

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

const (
	ConflictTypeConflit    = "conflit"
	ConflictTypeOpposition = "opposition"
)

var ConflictStatuses = []string{"ouvert", "en_cours", "resolu", "escalade"}
var ConflictSeverities = []string{"faible", "moyenne", "elevee", "critique"}

type Conflict struct {
	ID                  uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	ConflictType        string         `gorm:"type:varchar(16);column:conflict_type" json:"conflict_type,omitempty"`
	Nature              string         `gorm:"type:varchar(255);column:nature" json:"nature,omitempty"`
	Description         string         `gorm:"type:text;column:description" json:"description,omitempty"`
	Status              string         `gorm:"type:varchar(16);not null;default:'ouvert';index;column:status" json:"status"`
	Severity            string         `gorm:"type:varchar(16);not null;default:'moyenne';column:severity" json:"severity"`
	PartiesInvolved     datatypes.JSON `gorm:"column:parties_involved" json:"parties_involved,omitempty"`
	SuperficieOpposeeHa *float64       `gorm:"column:superficie_opposee_ha" json:"superficie_opposee_ha,omitempty"`
	SuperficieLeveeHa   *float64       `gorm:"column:superficie_levee_ha" json:"superficie_levee_ha,omitempty"`
	DateReported        time.Time      `gorm:"not null;index;column:date_reported" json:"date_reported"`
	ResolutionDate      *time.Time     `gorm:"column:resolution_date" json:"resolution_date,omitempty"`
	ResolutionNotes     string         `gorm:"type:text;column:resolution_notes" json:"resolution_notes,omitempty"`
	PdfcpID             *uuid.UUID     `gorm:"type:char(36);index;column:pdfcp_id" json:"pdfcp_id,omitempty"`
	HandledBy           *uuid.UUID     `gorm:"type:char(36);column:handled_by" json:"handled_by,omitempty"`
	Anchored

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Conflict) TableName() string { return "conflicts" }

func (c *Conflict) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "ouvert"
	}
	if c.Severity == "" {
		c.Severity = "moyenne"
	}
	return nil
}

func (c Conflict) ScopeAnchors() rbac.Anchors { return c.Anchored.anchors(c.HandledBy) }
