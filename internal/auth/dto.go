package auth

import (
	"strings"
	"unicode"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterDTO struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// ForcePasswordChangeDTO is the only request shape accepted without a
// token, and only while the account's must-change flag is set.
type ForcePasswordChangeDTO struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d LoginDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.Password == "" {
		return ValidationError{Msg: "password is required"}
	}
	return nil
}

func (d RegisterDTO) Validate() error {
	if d.Email == "" || !looksLikeEmail(d.Email) {
		return ValidationError{Msg: "a valid email is required"}
	}
	if d.FullName == "" {
		return ValidationError{Msg: "full_name is required"}
	}
	if err := CheckPasswordPolicy(d.Password); err != nil {
		return err
	}
	return nil
}

func (d ForcePasswordChangeDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if d.CurrentPassword == "" {
		return ValidationError{Msg: "current_password is required"}
	}
	if err := CheckPasswordPolicy(d.NewPassword); err != nil {
		return err
	}
	return nil
}

// CheckPasswordPolicy enforces the credential complexity floor: at
// least 8 characters with upper, lower, digit and special classes.
func CheckPasswordPolicy(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}
	return nil
}

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}
