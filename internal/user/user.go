package user

import (
	"context"
	"errors"
	"time"
)

// Profile is the database-backed view of a user, as opposed to the
// token-backed caller identity: role edits show up here immediately but
// only reach tokens on re-issue.
type Profile struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	Phone              string    `json:"phone,omitempty"`
	IsActive           bool      `json:"is_active"`
	MustChangePassword bool      `json:"must_change_password"`
	Roles              []string  `json:"roles"`
	Permissions        []string  `json:"permissions"`
	CreatedAt          time.Time `json:"created_at"`
}

var (
	ErrNotFound    = errors.New("user not found")
	ErrUnknownRole = errors.New("unknown role")
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]*Profile, error)
	UpdateRoles(ctx context.Context, userID int64, add, remove []string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	UpdateProfile(ctx context.Context, userID int64, fullName, phone *string) error
}
