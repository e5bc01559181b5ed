package territory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Region struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null;column:code" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null;column:name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Region) TableName() string { return "regions" }

func (r *Region) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Dranef is a regional directorate.
type Dranef struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	RegionID  *uuid.UUID `gorm:"type:char(36);index;column:region_id" json:"region_id,omitempty"`
	Code      string     `gorm:"type:varchar(32);uniqueIndex;not null;column:code" json:"code"`
	Name      string     `gorm:"type:varchar(255);not null;column:name" json:"name"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Dranef) TableName() string { return "dranef" }

func (d *Dranef) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Dpanef is a provincial directorate, always attached to one Dranef.
type Dpanef struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	DranefID  uuid.UUID `gorm:"type:char(36);index;not null;column:dranef_id" json:"dranef_id"`
	Code      string    `gorm:"type:varchar(32);uniqueIndex;not null;column:code" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null;column:name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Dpanef) TableName() string { return "dpanef" }

func (d *Dpanef) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type Commune struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	DpanefID   uuid.UUID `gorm:"type:char(36);index;not null;column:dpanef_id" json:"dpanef_id"`
	Code       string    `gorm:"type:varchar(32);uniqueIndex;not null;column:code" json:"code"`
	Name       string    `gorm:"type:varchar(255);not null;column:name" json:"name"`
	NameAr     string    `gorm:"type:varchar(255);column:name_ar" json:"name_ar,omitempty"`
	Population *int      `gorm:"column:population" json:"population,omitempty"`
	AreaKm2    *float64  `gorm:"column:area_km2" json:"area_km2,omitempty"`
	Latitude   *float64  `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude  *float64  `gorm:"column:longitude" json:"longitude,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Commune) TableName() string { return "communes" }

func (c *Commune) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
