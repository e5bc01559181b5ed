package user

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	List(dbc dbctx.Context) ([]*types.User, error)
	ListByRole(dbc dbctx.Context, role string) ([]*types.User, error)
	ListByTerritory(dbc dbctx.Context, dpanefID, dranefID *uuid.UUID) ([]*types.User, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	ReplaceRoles(dbc dbctx.Context, userID uuid.UUID, roles []string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(users) == 0 {
		return []*types.User{}, nil
	}
	for _, u := range users {
		u.Email = normalizeEmail(u.Email)
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.User
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Roles").
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.User

	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Roles").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var row types.User
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Roles").
		Where("email = ?", email).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (ur *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}

	var count int64

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) List(dbc dbctx.Context) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var out []*types.User
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Roles").
		Order("full_name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByRole matches the primary role or any user_roles row, case-insensitively.
func (ur *userRepo) ListByRole(dbc dbctx.Context, role string) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	role = strings.ToLower(strings.TrimSpace(role))
	var out []*types.User
	if role == "" {
		return out, nil
	}
	sub := transaction.WithContext(dbc.Ctx).
		Model(&types.UserRole{}).
		Select("user_id").
		Where("LOWER(role) = ?", role)
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Roles").
		Where("is_active = ?", true).
		Where("LOWER(role) = ? OR id IN (?)", role, sub).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByTerritory returns active users anchored on the given dpanef or dranef.
func (ur *userRepo) ListByTerritory(dbc dbctx.Context, dpanefID, dranefID *uuid.UUID) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var out []*types.User
	if dpanefID == nil && dranefID == nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Preload("Roles").Where("is_active = ?", true)
	switch {
	case dpanefID != nil && dranefID != nil:
		q = q.Where("dpanef_id = ? OR dranef_id = ?", *dpanefID, *dranefID)
	case dpanefID != nil:
		q = q.Where("dpanef_id = ?", *dpanefID)
	default:
		q = q.Where("dranef_id = ?", *dranefID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (ur *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (ur *userRepo) ReplaceRoles(dbc dbctx.Context, userID uuid.UUID, roles []string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if userID == uuid.Nil {
		return nil
	}
	t := transaction.WithContext(dbc.Ctx)
	if err := t.Where("user_id = ?", userID).Delete(&types.UserRole{}).Error; err != nil {
		return err
	}
	seen := map[string]bool{}
	rows := make([]*types.UserRole, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		rows = append(rows, &types.UserRole{UserID: userID, Role: r})
	}
	if len(rows) == 0 {
		return nil
	}
	return t.Create(&rows).Error
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
