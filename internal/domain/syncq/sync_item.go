package syncq

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSynced     = "synced"
	StatusError      = "error"
	StatusConflict   = "conflict"
)

// ClaimLease is how long a processing item stays claimed before another
// replayer may take it over.
const ClaimLease = 5 * time.Minute

// MaxRetries is the number of failed replays before an item is parked as error.
const MaxRetries = 3

// Item is an offline write waiting to be replayed through the services.
type Item struct {
	ID            uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:char(36);not null;index;uniqueIndex:idx_sync_queue_user_offline,priority:1;column:user_id" json:"user_id"`
	Operation     string         `gorm:"type:varchar(8);not null;column:operation" json:"operation"`
	Table         string         `gorm:"type:varchar(64);not null;column:table_name" json:"table_name"`
	RecordID      *uuid.UUID     `gorm:"type:char(36);column:record_id" json:"record_id,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload"`
	SyncStatus    string         `gorm:"type:varchar(16);not null;default:'pending';index;column:sync_status" json:"sync_status"`
	RetryCount    int            `gorm:"not null;default:0;column:retry_count" json:"retry_count"`
	LastError     string         `gorm:"type:text;column:last_error" json:"last_error,omitempty"`
	LastAttemptAt *time.Time     `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	OfflineID     string         `gorm:"type:varchar(128);uniqueIndex:idx_sync_queue_user_offline,priority:2;column:offline_id" json:"offline_id"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "sync_queue" }

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.SyncStatus == "" {
		i.SyncStatus = StatusPending
	}
	if i.OfflineID == "" {
		i.OfflineID = i.ID.String()
	}
	return nil
}
