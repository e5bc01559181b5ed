package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritique = "critique"
	SeverityCritical = "critical"
)

const TypeUnlockRequest = "UNLOCK_REQUEST"

type Notification struct {
	ID              uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	RecipientUserID uuid.UUID      `gorm:"type:char(36);not null;index:idx_notifications_recipient_read,priority:1;column:recipient_user_id" json:"recipient_user_id"`
	Type            string         `gorm:"type:varchar(64);not null;column:type" json:"type"`
	Severity        string         `gorm:"type:varchar(16);not null;default:'info';column:severity" json:"severity"`
	Title           string         `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Message         string         `gorm:"type:text;column:message" json:"message"`
	Link            string         `gorm:"type:varchar(512);column:link" json:"link,omitempty"`
	EntityType      string         `gorm:"type:varchar(64);column:entity_type" json:"entity_type,omitempty"`
	EntityID        *uuid.UUID     `gorm:"type:char(36);column:entity_id" json:"entity_id,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	IsRead          bool           `gorm:"not null;default:false;index:idx_notifications_recipient_read,priority:2;column:is_read" json:"is_read"`
	ReadAt          *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	return nil
}
