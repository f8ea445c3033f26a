package support

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/safebank/banking/internal/audit"
	"github.com/safebank/banking/internal/auth"
)

type Service struct {
	repo     Repository
	engine   *auth.Engine
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewService(repo Repository, engine *auth.Engine, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *Service) Create(ctx context.Context, caller *auth.User, dto CreateTicketDTO) (*Ticket, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsCreateOwn) {
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	priority := dto.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	ticket := &Ticket{
		UserID:      caller.ID,
		Subject:     dto.Subject,
		Description: dto.Description,
		Status:      StatusOpen,
		Priority:    priority,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		s.record(caller, "create_ticket", "", audit.StatusError, err.Error())
		return nil, err
	}

	s.record(caller, "create_ticket", strconv.FormatInt(ticket.ID, 10), audit.StatusSuccess, "")
	return ticket, nil
}

func (s *Service) ListOwn(ctx context.Context, caller *auth.User) ([]*Ticket, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}
	return s.repo.GetByUserID(ctx, caller.ID)
}

func (s *Service) ListAll(ctx context.Context, caller *auth.User, status string) ([]*Ticket, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsViewAny) {
		return nil, auth.ErrPermissionDenied
	}
	if status != "" && !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListAll(ctx, status)
}

func (s *Service) Get(ctx context.Context, caller *auth.User, ticketID int64) (*Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != caller.ID {
		if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsViewAny) {
			return nil, auth.ErrPermissionDenied
		}
	} else if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}
	return ticket, nil
}

// Update is the agent surface: status transitions, assignment, notes.
func (s *Service) Update(ctx context.Context, caller *auth.User, ticketID int64, dto UpdateTicketDTO) (*Ticket, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTicketsUpdateAny) {
		s.record(caller, "update_ticket", strconv.FormatInt(ticketID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if dto.Status != nil {
		ticket.Status = *dto.Status
		if *dto.Status == StatusResolved || *dto.Status == StatusClosed {
			now := time.Now()
			ticket.ResolvedAt = &now
		}
	}
	if dto.AssignedTo != nil {
		ticket.AssignedTo = dto.AssignedTo
	}
	if err := s.repo.Update(ctx, ticket); err != nil {
		s.record(caller, "update_ticket", strconv.FormatInt(ticketID, 10), audit.StatusError, err.Error())
		return nil, err
	}

	if dto.Note != nil {
		note := &Note{
			TicketID: ticketID,
			AuthorID: caller.ID,
			Note:     *dto.Note,
		}
		if err := s.repo.AddNote(ctx, note); err != nil {
			s.record(caller, "update_ticket", strconv.FormatInt(ticketID, 10), audit.StatusError, err.Error())
			return nil, err
		}
		ticket.Notes = append(ticket.Notes, *note)
	}

	s.record(caller, "update_ticket", strconv.FormatInt(ticketID, 10), audit.StatusSuccess, "")
	return ticket, nil
}

func (s *Service) record(caller *auth.User, action, resourceID, status, detail string) {
	entry := audit.Entry{
		Service:      audit.ServiceSupport,
		Action:       action,
		ResourceType: "ticket",
		ResourceID:   resourceID,
		Status:       status,
		Details:      detail,
		Timestamp:    time.Now(),
	}
	if caller != nil {
		id := caller.ID
		entry.UserID = &id
		entry.UserEmail = caller.Email
		if len(caller.Roles) > 0 {
			entry.UserRole = caller.Roles[0]
		}
	}
	s.recorder.Record(entry)
}
