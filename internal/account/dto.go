package account

// CreateAccountDTO opens an account for the caller.
type CreateAccountDTO struct {
	Type string `json:"type"`
}

// AdminCreateAccountDTO opens an account on behalf of any user.
type AdminCreateAccountDTO struct {
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
}

// FreezeStatusDTO flips an account between Active and Frozen.
type FreezeStatusDTO struct {
	AccountID int64 `json:"account_id"`
	Freeze    bool  `json:"freeze"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d CreateAccountDTO) Validate() error {
	if !ValidType(d.Type) {
		return ValidationError{Msg: "type must be checking or savings"}
	}
	return nil
}

func (d AdminCreateAccountDTO) Validate() error {
	if d.UserID <= 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	if !ValidType(d.Type) {
		return ValidationError{Msg: "type must be checking or savings"}
	}
	return nil
}

func (d FreezeStatusDTO) Validate() error {
	if d.AccountID <= 0 {
		return ValidationError{Msg: "account_id is required"}
	}
	return nil
}
