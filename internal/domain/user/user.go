package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type User struct {
	ID           uuid.UUID                      `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string                         `gorm:"type:varchar(255);uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string                         `gorm:"type:varchar(255);not null;column:password_hash" json:"-"`
	FullName     string                         `gorm:"type:varchar(255);not null;column:full_name" json:"full_name"`
	Role         string                         `gorm:"type:varchar(64);not null;default:'adp';column:role" json:"role"`
	RoleLabel    string                         `gorm:"type:varchar(128);column:role_label" json:"role_label,omitempty"`
	Phone        string                         `gorm:"type:varchar(32);column:phone" json:"phone,omitempty"`
	DranefID     *uuid.UUID                     `gorm:"type:char(36);index;column:dranef_id" json:"dranef_id,omitempty"`
	DpanefID     *uuid.UUID                     `gorm:"type:char(36);index;column:dpanef_id" json:"dpanef_id,omitempty"`
	CommuneIDs   datatypes.JSONSlice[uuid.UUID] `gorm:"column:commune_ids" json:"commune_ids"`
	IsActive     bool                           `gorm:"not null;default:true;column:is_active" json:"is_active"`

	Roles []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleNames lists the primary role, its label and every user_roles row.
func (u *User) RoleNames() []string {
	out := []string{u.Role}
	if u.RoleLabel != "" {
		out = append(out, u.RoleLabel)
	}
	for _, r := range u.Roles {
		out = append(out, r.Role)
	}
	return out
}

// Scope derives the user's scope level and anchors. The label decides first,
// then the strongest role held.
func (u *User) Scope() rbac.UserScope {
	level := rbac.DeriveScopeLevel(u.Role, u.RoleLabel)
	if best := rbac.HighestScope(u.RoleNames()...); best.Priority() > level.Priority() {
		level = best
	}
	communes := make([]uuid.UUID, 0, len(u.CommuneIDs))
	communes = append(communes, u.CommuneIDs...)
	return rbac.UserScope{
		Level:      level,
		UserID:     u.ID,
		DranefID:   u.DranefID,
		DpanefID:   u.DpanefID,
		CommuneIDs: communes,
	}
}

type UserRole struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_user_roles_user_role,priority:1;column:user_id" json:"user_id"`
	Role      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_roles_user_role,priority:2;column:role" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (UserRole) TableName() string { return "user_roles" }

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

const (
	AgentStatusActive   = "Actif"
	AgentStatusInactive = "Inactif"
)

// AdpAgent is the field-agent registry entry, optionally linked to a login.
type AdpAgent struct {
	ID         uuid.UUID                      `gorm:"type:char(36);primaryKey" json:"id"`
	Matricule  string                         `gorm:"type:varchar(64);uniqueIndex;not null;column:matricule" json:"matricule"`
	FullName   string                         `gorm:"type:varchar(255);not null;column:full_name" json:"full_name"`
	UserID     *uuid.UUID                     `gorm:"type:char(36);index;column:user_id" json:"user_id,omitempty"`
	Email      string                         `gorm:"type:varchar(255);column:email" json:"email,omitempty"`
	Phone      string                         `gorm:"type:varchar(32);column:phone" json:"phone,omitempty"`
	CommuneIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:commune_ids" json:"commune_ids"`
	DpanefID   *uuid.UUID                     `gorm:"type:char(36);index;column:dpanef_id" json:"dpanef_id,omitempty"`
	DranefID   *uuid.UUID                     `gorm:"type:char(36);index;column:dranef_id" json:"dranef_id,omitempty"`
	Status     string                         `gorm:"type:varchar(16);not null;default:'Actif';column:status" json:"status"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdpAgent) TableName() string { return "adp_agents" }

func (a *AdpAgent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AgentStatusActive
	}
	return nil
}

// ScopeAnchors places the agent on its first commune. A LOCAL scope matches
// any assigned commune, and the linked login is the owner.
func (a AdpAgent) ScopeAnchors() rbac.Anchors {
	out := rbac.Anchors{DranefID: a.DranefID, DpanefID: a.DpanefID}
	if len(a.CommuneIDs) > 0 {
		c := a.CommuneIDs[0]
		out.CommuneID = &c
		out.Communes = append([]uuid.UUID(nil), a.CommuneIDs[1:]...)
	}
	if a.UserID != nil {
		out.Owners = []uuid.UUID{*a.UserID}
	}
	return out
}

func (a AdpAgent) IsActive() bool { return a.Status == AgentStatusActive }
