package pdfcp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Attachment struct {
	ID            uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	PdfcpID       uuid.UUID  `gorm:"type:char(36);index;not null;column:pdfcp_id" json:"pdfcp_id"`
	FileName      string     `gorm:"type:varchar(255);not null;column:file_name" json:"file_name"`
	FileURL       string     `gorm:"type:text;not null;column:file_url" json:"file_url"`
	FileType      string     `gorm:"type:varchar(128);column:file_type" json:"file_type,omitempty"`
	FileSizeBytes int64      `gorm:"column:file_size_bytes" json:"file_size_bytes"`
	Description   string     `gorm:"type:text;column:description" json:"description,omitempty"`
	Category      string     `gorm:"type:varchar(64);not null;default:'general';column:category" json:"category"`
	UploadedBy    *uuid.UUID `gorm:"type:char(36);column:uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

func (Attachment) TableName() string { return "pdfcp_attachments" }

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Category == "" {
		a.Category = "general"
	}
	return nil
}

// ValidationHistory is an append-only trail of workflow moves and notes.
type ValidationHistory struct {
	ID              uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	PdfcpID         uuid.UUID      `gorm:"type:char(36);index;not null;column:pdfcp_id" json:"pdfcp_id"`
	Action          string         `gorm:"type:varchar(64);not null;column:action" json:"action"`
	FromStatus      string         `gorm:"type:varchar(32);column:from_status" json:"from_status,omitempty"`
	ToStatus        string         `gorm:"type:varchar(32);column:to_status" json:"to_status,omitempty"`
	Note            string         `gorm:"type:text;column:note" json:"note,omitempty"`
	PerformedBy     *uuid.UUID     `gorm:"type:char(36);column:performed_by" json:"performed_by,omitempty"`
	PerformedByName string         `gorm:"type:varchar(255);column:performed_by_name" json:"performed_by_name,omitempty"`
	PerformedByRole string         `gorm:"type:varchar(64);column:performed_by_role" json:"performed_by_role,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ValidationHistory) TableName() string { return "pdfcp_validation_history" }

func (h *ValidationHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

const (
	UnlockPending  = "PENDING"
	UnlockApproved = "APPROVED"
	UnlockRejected = "REJECTED"
)

type UnlockRequest struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	PdfcpID        uuid.UUID  `gorm:"type:char(36);index;not null;column:pdfcp_id" json:"pdfcp_id"`
	RequestedBy    uuid.UUID  `gorm:"type:char(36);index;not null;column:requested_by" json:"requested_by"`
	RequesterName  string     `gorm:"type:varchar(255);column:requester_name" json:"requester_name,omitempty"`
	RequesterScope string     `gorm:"type:varchar(16);column:requester_scope" json:"requester_scope,omitempty"`
	Reason         string     `gorm:"type:text;not null;column:reason" json:"reason"`
	Status         string     `gorm:"type:varchar(16);not null;default:'PENDING';index;column:status" json:"status"`
	HandledByAdmin *uuid.UUID `gorm:"type:char(36);column:handled_by_admin" json:"handled_by_admin,omitempty"`
	AdminComment   string     `gorm:"type:text;column:admin_comment" json:"admin_comment,omitempty"`
	HandledAt      *time.Time `gorm:"column:handled_at" json:"handled_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (UnlockRequest) TableName() string { return "pdfcp_unlock_requests" }

func (r *UnlockRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = UnlockPending
	}
	return nil
}
