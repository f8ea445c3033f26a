package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/safebank/banking/internal"
	"github.com/safebank/banking/internal/core/events"
	"github.com/shopspring/decimal"
)

const alertsLimit = 50

// SecurityService maintains the security-event backlog. Besides the
// direct recording API it listens on the bus: committed transactions
// at or above the alert threshold become suspicious_transaction
// events, and failed logins from the audit stream become failed_login
// events. Analysts work the backlog through List/Alerts and close
// items with Investigate.
type SecurityService struct {
	repo           SecurityRepository
	alertThreshold decimal.Decimal
	logger         *slog.Logger
}

func NewSecurityService(repo SecurityRepository, bus *events.EventBus, alertThreshold decimal.Decimal, logger *slog.Logger) *SecurityService {
	s := &SecurityService{
		repo:           repo,
		alertThreshold: alertThreshold,
		logger:         logger,
	}
	if bus != nil {
		bus.Subscribe(events.EventTypeTransactionCommitted, s.handleTransactionCommitted)
		bus.Subscribe(events.EventTypeAuditEntry, s.handleAuditEntry)
	}
	return s
}

// RecordEvent validates and persists one event. Severity defaults to
// medium when the caller does not set it.
func (s *SecurityService) RecordEvent(event *SecurityEvent) error {
	if event.EventType == "" {
		return apperrors.NewValidationError("event_type is required", apperrors.ErrCodeValidationFailed)
	}
	if event.Description == "" {
		return apperrors.NewValidationError("description is required", apperrors.ErrCodeValidationFailed)
	}
	if event.Severity == "" {
		event.Severity = SeverityMedium
	}
	if !ValidSeverity(event.Severity) {
		return apperrors.NewValidationError("severity must be one of: low, medium, high, critical", apperrors.ErrCodeValidationFailed)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return s.repo.CreateEvent(event)
}

func (s *SecurityService) List(filter SecurityFilter) ([]*SecurityEvent, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListEvents(filter)
}

func (s *SecurityService) Get(id int64) (*SecurityEvent, error) {
	return s.repo.GetEvent(id)
}

// Investigate closes an event. Resolution notes are mandatory and an
// event can only be closed once.
func (s *SecurityService) Investigate(investigatorID, eventID int64, resolutionNotes string) (*SecurityEvent, error) {
	if resolutionNotes == "" {
		return nil, apperrors.NewValidationError("resolution_notes is required", apperrors.ErrCodeValidationFailed)
	}
	event, err := s.repo.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event.Investigated {
		return nil, apperrors.ErrEventAlreadyInvestigated
	}

	now := time.Now()
	event.Investigated = true
	event.InvestigatedBy = &investigatorID
	event.InvestigatedAt = &now
	event.ResolutionNotes = resolutionNotes
	if err := s.repo.UpdateEvent(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Alerts returns the uninvestigated high and critical events, newest
// first.
func (s *SecurityService) Alerts() ([]*SecurityEvent, error) {
	return s.repo.Alerts(alertsLimit)
}

func (s *SecurityService) Stats() (*SecurityStats, error) {
	return s.repo.Stats()
}

// AlertThreshold reports the amount at which a committed transaction
// is flagged for review.
func (s *SecurityService) AlertThreshold() decimal.Decimal {
	return s.alertThreshold
}

func (s *SecurityService) handleTransactionCommitted(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.TransactionCommittedEvent)
	if !ok {
		s.logger.Error("security handler received unexpected event", "event_type", event.EventType())
		return nil
	}
	amount, err := decimal.NewFromString(ev.Amount)
	if err != nil {
		s.logger.Error("committed event carried unparseable amount", "event_id", ev.EventID(), "amount", ev.Amount)
		return nil
	}
	if amount.LessThan(s.alertThreshold) {
		return nil
	}

	flagged := &SecurityEvent{
		Timestamp:   ev.OccurredAt(),
		EventType:   EventSuspiciousTransaction,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("transaction %d (%s) of %s meets the review threshold %s", ev.TransactionID, ev.TransactionType, ev.Amount, s.alertThreshold.String()),
		Details: fmt.Sprintf(`{"transaction_id":%d,"transaction_type":%q,"sender_account_id":%d,"receiver_account_id":%d,"amount":%q}`,
			ev.TransactionID, ev.TransactionType, ev.SenderID, ev.ReceiverID, ev.Amount),
	}
	if err := s.RecordEvent(flagged); err != nil {
		s.logger.Error("recording suspicious transaction failed", "transaction_id", ev.TransactionID, "error", err)
	}
	return nil
}

// handleAuditEntry derives failed_login events from the audit stream
// so the auth service does not need a second recording dependency.
func (s *SecurityService) handleAuditEntry(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.AuditEntryEvent)
	if !ok {
		return nil
	}
	entry, ok := ev.Entry.(Entry)
	if !ok {
		return nil
	}
	if entry.Service != ServiceAuth || entry.Action != "login" || entry.Status != StatusFailure {
		return nil
	}

	failed := &SecurityEvent{
		Timestamp:   entry.Timestamp,
		EventType:   EventFailedLogin,
		Severity:    SeverityMedium,
		UserID:      entry.UserID,
		UserEmail:   entry.UserEmail,
		Description: "failed login attempt",
		Details:     entry.Details,
		IPAddress:   entry.IPAddress,
	}
	if err := s.RecordEvent(failed); err != nil {
		s.logger.Error("recording failed login failed", "email", entry.UserEmail, "error", err)
	}
	return nil
}
