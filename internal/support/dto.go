package support

type CreateTicketDTO struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UpdateTicketDTO is the agent-side patch: status moves, assignment,
// and an optional note appended to the thread.
type UpdateTicketDTO struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *int64  `json:"assigned_to,omitempty"`
	Note       *string `json:"note,omitempty"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d CreateTicketDTO) Validate() error {
	if d.Subject == "" {
		return ValidationError{Msg: "subject is required"}
	}
	if d.Description == "" {
		return ValidationError{Msg: "description is required"}
	}
	if d.Priority != "" && !ValidPriority(d.Priority) {
		return ValidationError{Msg: "priority must be Low, Medium or High"}
	}
	return nil
}

func (d UpdateTicketDTO) Validate() error {
	if d.Status == nil && d.AssignedTo == nil && d.Note == nil {
		return ValidationError{Msg: "nothing to change"}
	}
	if d.Status != nil && !ValidStatus(*d.Status) {
		return ErrInvalidStatus
	}
	if d.Note != nil && *d.Note == "" {
		return ValidationError{Msg: "note must not be empty"}
	}
	return nil
}
