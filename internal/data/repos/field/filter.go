package field

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows field-record lists on their anchor columns. Nil fields are ignored.
type Filter struct {
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	AdpUserID *uuid.UUID
	PdfcpID   *uuid.UUID
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.DranefID != nil {
		q = q.Where("dranef_id = ?", *f.DranefID)
	}
	if f.DpanefID != nil {
		q = q.Where("dpanef_id = ?", *f.DpanefID)
	}
	if f.CommuneID != nil {
		q = q.Where("commune_id = ?", *f.CommuneID)
	}
	if f.AdpUserID != nil {
		q = q.Where("adp_user_id = ?", *f.AdpUserID)
	}
	if f.PdfcpID != nil {
		q = q.Where("pdfcp_id = ?", *f.PdfcpID)
	}
	return q
}

func getByID[T any](q *gorm.DB, id uuid.UUID, idOf func(*T) uuid.UUID) (*T, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row T
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if idOf(&row) == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func updateFields[T any](q *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	var model T
	return q.Model(&model).Where("id = ?", id).Updates(updates).Error
}

func deleteByID[T any](q *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	var model T
	return q.Where("id = ?", id).Delete(&model).Error
}
