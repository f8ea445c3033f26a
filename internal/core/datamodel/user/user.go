package user

import "time"

type User struct {
	ID                 int64     `gorm:"primaryKey"`
	Email              string    `gorm:"column:email;uniqueIndex;not null"`
	FullName           string    `gorm:"column:full_name;not null"`
	Phone              string    `gorm:"column:phone"`
	PasswordHash       string    `gorm:"column:password_hash;not null"`
	IsActive           bool      `gorm:"column:is_active;default:true"`
	MustChangePassword bool      `gorm:"column:must_change_password;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Roles []Role `gorm:"many2many:user_roles;"`
}

func (User) TableName() string {
	return "users"
}

type Role struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"column:name;uniqueIndex;not null"`
	Description string `gorm:"column:description"`

	Permissions []Permission `gorm:"many2many:role_permissions;"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID          int64  `gorm:"primaryKey"`
	Code        string `gorm:"column:code;uniqueIndex;not null"`
	Description string `gorm:"column:description"`
}

func (Permission) TableName() string {
	return "permissions"
}
