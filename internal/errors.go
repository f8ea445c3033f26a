package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodePasswordChangeRequired ErrorCode = "PASSWORD_CHANGE_REQUIRED"
	ErrCodeUserInactive           ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"
	ErrCodeWeakPassword           ErrorCode = "WEAK_PASSWORD"
	ErrCodeEmailTaken             ErrorCode = "EMAIL_TAKEN"

	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountNotActive    ErrorCode = "ACCOUNT_NOT_ACTIVE"
	ErrCodeSameAccountTransfer ErrorCode = "SAME_ACCOUNT_TRANSFER"
	ErrCodeOwnershipMismatch   ErrorCode = "OWNERSHIP_MISMATCH"
	ErrCodeInvalidAccountType  ErrorCode = "INVALID_ACCOUNT_TYPE"

	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeTicketNotFound ErrorCode = "TICKET_NOT_FOUND"

	ErrCodeSecurityEventNotFound ErrorCode = "SECURITY_EVENT_NOT_FOUND"
	ErrCodeAlreadyInvestigated   ErrorCode = "ALREADY_INVESTIGATED"

	ErrCodeStorageUnavailable    ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeConflictRetryExceeded ErrorCode = "CONFLICT_RETRY_EXHAUSTED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewBusinessRuleError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeBusinessRule,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Authentication failures share one outward message so responses cannot
// be used to probe which factor failed; the audit trail keeps the kind.
var (
	ErrInvalidCredentials     = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrPasswordChangeRequired = NewForbiddenError("Password change required before login", ErrCodePasswordChangeRequired)
	ErrUserInactive           = NewUnauthorizedError("Invalid email or password", ErrCodeUserInactive)
	ErrInvalidToken           = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired           = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrPermissionDenied = NewForbiddenError("Insufficient permissions", ErrCodePermissionDenied)

	ErrInvalidAmount       = NewValidationError("Amount must be positive with at most 2 decimal places", ErrCodeInvalidAmount)
	ErrAccountNotFound     = NewNotFoundError("Account not found", ErrCodeAccountNotFound)
	ErrAccountNotActive    = NewValidationError("Account is not active", ErrCodeAccountNotActive)
	ErrSameAccountTransfer = NewValidationError("Source and destination accounts must differ", ErrCodeSameAccountTransfer)
	ErrOwnershipMismatch   = NewForbiddenError("Account does not belong to caller", ErrCodeOwnershipMismatch)

	ErrInsufficientFunds = NewBusinessRuleError("Insufficient funds", ErrCodeInsufficientFunds)

	ErrSecurityEventNotFound    = NewNotFoundError("Security event not found", ErrCodeSecurityEventNotFound)
	ErrEventAlreadyInvestigated = NewValidationError("Event already marked as investigated", ErrCodeAlreadyInvestigated)

	ErrStorageUnavailable = &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeStorageUnavailable,
		Message:    "Service temporarily unavailable, try again later",
		StatusCode: http.StatusServiceUnavailable,
	}
	ErrConflictRetryExhausted = &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeConflictRetryExceeded,
		Message:    "Service temporarily unavailable, try again later",
		StatusCode: http.StatusServiceUnavailable,
	}
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
