package postgres

import (
	"context"
	"errors"

	userDatamodel "github.com/safebank/banking/internal/core/datamodel/user"
	"github.com/safebank/banking/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.Profile, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return toProfile(&row), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*user.Profile, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Roles.Permissions").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*user.Profile, len(rows))
	for i, row := range rows {
		out[i] = toProfile(row)
	}
	return out, nil
}

func (r *UserRepository) UpdateRoles(ctx context.Context, userID int64, add, remove []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userDatamodel.User
		if err := tx.First(&row, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return user.ErrNotFound
			}
			return err
		}

		if len(add) > 0 {
			var roles []userDatamodel.Role
			if err := tx.Where("name IN ?", add).Find(&roles).Error; err != nil {
				return err
			}
			if len(roles) != len(add) {
				return user.ErrUnknownRole
			}
			if err := tx.Model(&row).Association("Roles").Append(&roles); err != nil {
				return err
			}
		}

		if len(remove) > 0 {
			var roles []userDatamodel.Role
			if err := tx.Where("name IN ?", remove).Find(&roles).Error; err != nil {
				return err
			}
			if err := tx.Model(&row).Association("Roles").Delete(&roles); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *UserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, fullName, phone *string) error {
	updates := map[string]interface{}{}
	if fullName != nil {
		updates["full_name"] = *fullName
	}
	if phone != nil {
		updates["phone"] = *phone
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func toProfile(row *userDatamodel.User) *user.Profile {
	roles := make([]string, 0, len(row.Roles))
	seen := make(map[string]bool)
	var permissions []string
	for _, role := range row.Roles {
		roles = append(roles, role.Name)
		for _, perm := range role.Permissions {
			if !seen[perm.Code] {
				seen[perm.Code] = true
				permissions = append(permissions, perm.Code)
			}
		}
	}
	return &user.Profile{
		ID:                 row.ID,
		Email:              row.Email,
		FullName:           row.FullName,
		Phone:              row.Phone,
		IsActive:           row.IsActive,
		MustChangePassword: row.MustChangePassword,
		Roles:              roles,
		Permissions:        permissions,
		CreatedAt:          row.CreatedAt,
	}
}
