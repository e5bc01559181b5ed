package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

const minPasswordLen = 8

type UserInput struct {
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	FullName   string      `json:"full_name"`
	Role       string      `json:"role"`
	RoleLabel  string      `json:"role_label"`
	Phone      string      `json:"phone"`
	DranefID   *uuid.UUID  `json:"dranef_id"`
	DpanefID   *uuid.UUID  `json:"dpanef_id"`
	CommuneIDs []uuid.UUID `json:"commune_ids"`
	Roles      []string    `json:"roles"`
	IsActive   *bool       `json:"is_active"`
}

type UserPatch struct {
	FullName   OptionalString `json:"full_name"`
	Role       OptionalString `json:"role"`
	RoleLabel  OptionalString `json:"role_label"`
	Phone      OptionalString `json:"phone"`
	Password   OptionalString `json:"password"`
	DranefID   OptionalUUID   `json:"dranef_id"`
	DpanefID   OptionalUUID   `json:"dpanef_id"`
	CommuneIDs *[]uuid.UUID   `json:"commune_ids"`
	Roles      *[]string      `json:"roles"`
	IsActive   OptionalBool   `json:"is_active"`
}

// UserAdminService manages logins. NATIONAL may read the directory; only ADMIN writes.
type UserAdminService interface {
	List(dbc dbctx.Context) ([]*types.User, error)
	Create(dbc dbctx.Context, in UserInput) (*types.User, error)
	Patch(dbc dbctx.Context, id uuid.UUID, patch UserPatch) (*types.User, error)
}

type userAdminService struct {
	db        *gorm.DB
	log       *logger.Logger
	tx        repos.TxRunner
	users     repos.UserRepo
	territory TerritoryService
}

func NewUserAdminService(db *gorm.DB, baseLog *logger.Logger, tx repos.TxRunner, users repos.UserRepo, territory TerritoryService) UserAdminService {
	return &userAdminService{
		db:        db,
		log:       baseLog.With("service", "UserAdminService"),
		tx:        tx,
		users:     users,
		territory: territory,
	}
}

func (s *userAdminService) List(dbc dbctx.Context) ([]*types.User, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccess(rd.Scope.Level, rbac.MenuAdminUsers) {
		return nil, apierr.Forbidden("forbidden", fmt.Errorf("%w: user directory", pkgerrors.ErrForbidden))
	}
	rows, err := s.users.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}

func (s *userAdminService) Create(dbc dbctx.Context, in UserInput) (*types.User, error) {
	rd, err := requireAdmin(dbc)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("invalid_request", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, invalid("invalid_request", "password must be at least %d characters", minPasswordLen)
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, invalid("invalid_request", "full_name is required")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &types.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     name,
		Role:         strings.TrimSpace(in.Role),
		RoleLabel:    strings.TrimSpace(in.RoleLabel),
		Phone:        strings.TrimSpace(in.Phone),
		DranefID:     in.DranefID,
		DpanefID:     in.DpanefID,
		CommuneIDs:   datatypes.JSONSlice[uuid.UUID](in.CommuneIDs),
		IsActive:     true,
	}
	if u.Role == "" {
		u.Role = "adp"
	}
	if u.CommuneIDs == nil {
		u.CommuneIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	if err := s.anchor(dbc, u); err != nil {
		return nil, err
	}

	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		taken, err := s.users.EmailExists(inner, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return apierr.Conflict("email_taken", fmt.Errorf("%w: email already registered", pkgerrors.ErrConflict))
		}
		if _, err := s.users.Create(inner, []*types.User{u}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		// is_active defaults to true in the schema, so false needs its own write.
		if in.IsActive != nil && !*in.IsActive {
			if err := s.users.UpdateFields(inner, u.ID, map[string]any{"is_active": false}); err != nil {
				return fmt.Errorf("deactivate user: %w", err)
			}
		}
		if len(in.Roles) > 0 {
			if err := s.users.ReplaceRoles(inner, u.ID, in.Roles); err != nil {
				return fmt.Errorf("set roles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", u.ID, "role", u.Role, "by", rd.UserID)
	return s.reload(dbc, u.ID)
}

func (s *userAdminService) Patch(dbc dbctx.Context, id uuid.UUID, patch UserPatch) (*types.User, error) {
	rd, err := requireAdmin(dbc)
	if err != nil {
		return nil, err
	}
	err = runInTx(dbc, s.tx, func(inner dbctx.Context) error {
		u, err := s.users.GetByID(inner, id)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if u == nil {
			return notFound("user")
		}
		updates := patchSet{}
		if patch.FullName.Set {
			if patch.FullName.Value == nil {
				return invalid("invalid_request", "full_name cannot be empty")
			}
			updates["full_name"] = *patch.FullName.Value
		}
		if patch.Role.Set {
			u.Role = patch.Role.Or("adp")
			updates["role"] = u.Role
		}
		stringField(updates, "role_label", patch.RoleLabel, &u.RoleLabel)
		stringField(updates, "phone", patch.Phone, &u.Phone)
		if patch.Password.Set {
			pw := patch.Password.Or("")
			if len(pw) < minPasswordLen {
				return invalid("invalid_request", "password must be at least %d characters", minPasswordLen)
			}
			hash, err := HashPassword(pw)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if patch.DranefID.Set {
			u.DranefID = patch.DranefID.Value
		}
		if patch.DpanefID.Set {
			u.DpanefID = patch.DpanefID.Value
			if !patch.DranefID.Set {
				u.DranefID = nil
			}
		}
		if patch.CommuneIDs != nil {
			u.CommuneIDs = datatypes.JSONSlice[uuid.UUID](*patch.CommuneIDs)
			if u.CommuneIDs == nil {
				u.CommuneIDs = datatypes.JSONSlice[uuid.UUID]{}
			}
			updates["commune_ids"] = u.CommuneIDs
		}
		if patch.DranefID.Set || patch.DpanefID.Set || patch.CommuneIDs != nil {
			if err := s.anchor(inner, u); err != nil {
				return err
			}
			updates["dranef_id"] = u.DranefID
			updates["dpanef_id"] = u.DpanefID
		}
		if patch.IsActive.Set {
			if u.ID == rd.UserID && patch.IsActive.Value != nil && !*patch.IsActive.Value {
				return invalid("invalid_request", "you cannot deactivate yourself")
			}
			updates["is_active"] = patch.IsActive.Value != nil && *patch.IsActive.Value
		}
		if len(updates) > 0 {
			if err := s.users.UpdateFields(inner, u.ID, updates); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}
		if patch.Roles != nil {
			if err := s.users.ReplaceRoles(inner, u.ID, *patch.Roles); err != nil {
				return fmt.Errorf("set roles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user updated", "user_id", id, "by", rd.UserID)
	return s.reload(dbc, id)
}

// anchor checks the user's territorial anchors and fills the DRANEF from the DPANEF.
func (s *userAdminService) anchor(dbc dbctx.Context, u *types.User) error {
	h, err := s.territory.Hierarchy(dbc)
	if err != nil {
		return err
	}
	if u.DpanefID != nil {
		dr, ok := h.DranefOfDpanef(*u.DpanefID)
		if !ok {
			return invalid("invalid_dpanef", "unknown dpanef %s", *u.DpanefID)
		}
		if u.DranefID == nil {
			u.DranefID = &dr
		} else if *u.DranefID != dr {
			return invalid("invalid_request", "dpanef %s is not part of dranef %s", *u.DpanefID, *u.DranefID)
		}
	}
	if u.DranefID != nil && h.Name(*u.DranefID) == "" {
		return invalid("invalid_dranef", "unknown dranef %s", *u.DranefID)
	}
	for _, c := range u.CommuneIDs {
		if !h.HasCommune(c) {
			return invalid("invalid_commune", "unknown commune %s", c)
		}
	}
	return nil
}

func (s *userAdminService) reload(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	u, err := s.users.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	if u == nil {
		return nil, notFound("user")
	}
	return u, nil
}
