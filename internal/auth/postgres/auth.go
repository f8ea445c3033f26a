package postgres

import (
	"context"
	"errors"

	"github.com/safebank/banking/internal/auth"
	userDatamodel "github.com/safebank/banking/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// Repository loads credential rows with their resolved role and
// permission sets.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*auth.StoredUser, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Where("email = ?", email).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return toStoredUser(&row), nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, u *auth.StoredUser, roleName string) (int64, error) {
	row := &userDatamodel.User{
		Email:              u.Email,
		FullName:           u.FullName,
		Phone:              u.Phone,
		PasswordHash:       u.PasswordHash,
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if roleName == "" {
			return nil
		}
		var role userDatamodel.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Model(row).Association("Roles").Append(&role)
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID int64, passwordHash string, mustChange bool) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash":        passwordHash,
			"must_change_password": mustChange,
		}).Error
}

// toStoredUser flattens the role/permission join into the sets the
// token service embeds at issuance.
func toStoredUser(row *userDatamodel.User) *auth.StoredUser {
	stored := &auth.StoredUser{
		ID:                 row.ID,
		Email:              row.Email,
		FullName:           row.FullName,
		Phone:              row.Phone,
		PasswordHash:       row.PasswordHash,
		IsActive:           row.IsActive,
		MustChangePassword: row.MustChangePassword,
	}

	seen := make(map[string]struct{})
	for _, role := range row.Roles {
		stored.Roles = append(stored.Roles, role.Name)
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Code]; ok {
				continue
			}
			seen[perm.Code] = struct{}{}
			stored.Permissions = append(stored.Permissions, perm.Code)
		}
	}
	return stored
}
