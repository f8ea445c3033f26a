package support

import (
	"context"
	"errors"
	"time"

	ticketDatamodel "github.com/safebank/banking/internal/core/datamodel/ticket"
)

const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

type Ticket struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	Notes       []Note     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

type Note struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound      = errors.New("ticket not found")
	ErrInvalidStatus = errors.New("invalid ticket status")
)

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	GetByUserID(ctx context.Context, userID int64) ([]*Ticket, error)
	ListAll(ctx context.Context, status string) ([]*Ticket, error)
	Update(ctx context.Context, t *Ticket) error
	AddNote(ctx context.Context, note *Note) error
}

func FromDataModel(row *ticketDatamodel.Ticket, notes []ticketDatamodel.TicketNote) *Ticket {
	t := &Ticket{
		ID:          row.ID,
		UserID:      row.UserID,
		Subject:     row.Subject,
		Description: row.Description,
		Status:      row.Status,
		Priority:    row.Priority,
		AssignedTo:  row.AssignedTo,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		ResolvedAt:  row.ResolvedAt,
	}
	for _, n := range notes {
		t.Notes = append(t.Notes, Note{
			ID:        n.ID,
			TicketID:  n.TicketID,
			AuthorID:  n.AuthorID,
			Note:      n.Note,
			CreatedAt: n.CreatedAt,
		})
	}
	return t
}
