package user

import "github.com/safebank/banking/internal/auth"

// EditUserDTO applies a partial admin edit. Role changes only reach
// issued tokens when the user logs in again.
type EditUserDTO struct {
	UserID        int64    `json:"user_id"`
	RolesToAdd    []string `json:"roles_to_add,omitempty"`
	RolesToRemove []string `json:"roles_to_remove,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
	FullName      *string  `json:"full_name,omitempty"`
	Phone         *string  `json:"phone,omitempty"`
}

type CreateSupportAgentDTO struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d EditUserDTO) Validate() error {
	if d.UserID <= 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if len(d.RolesToAdd) == 0 && len(d.RolesToRemove) == 0 &&
		d.IsActive == nil && d.FullName == nil && d.Phone == nil {
		return ValidationError{Msg: "nothing to change"}
	}
	for _, role := range append(append([]string{}, d.RolesToAdd...), d.RolesToRemove...) {
		if _, ok := auth.RolePermissionMap[role]; !ok {
			return ErrUnknownRole
		}
	}
	return nil
}

func (d CreateSupportAgentDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.FullName == "" {
		return ValidationError{Msg: "full_name is required"}
	}
	return nil
}
