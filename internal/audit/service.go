package audit

import (
	"context"
	"log/slog"

	"github.com/safebank/banking/internal/core/events"
)

// Service is the audit recorder. Writes go through the event bus so the
// recording path never blocks the operation being recorded; a failed
// persist is logged and dropped rather than escalated.
type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	s := &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
	bus.Subscribe(events.EventTypeAuditEntry, s.handleEntry)
	return s
}

// Record implements Recorder. It only hands the entry to the bus; the
// caller's result is already decided by the time this runs.
func (s *Service) Record(entry Entry) {
	if err := s.bus.Publish(context.Background(), events.NewAuditEntryEvent(entry)); err != nil {
		s.logger.Error("audit publish failed", "action", entry.Action, "error", err)
	}
}

func (s *Service) handleEntry(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.AuditEntryEvent)
	if !ok {
		s.logger.Error("audit handler received unexpected event", "event_type", event.EventType())
		return nil
	}
	entry, ok := ev.Entry.(Entry)
	if !ok {
		s.logger.Error("audit handler received unexpected payload", "event_id", event.EventID())
		return nil
	}

	record := &Record{
		Timestamp:    entry.Timestamp,
		UserID:       entry.UserID,
		UserEmail:    entry.UserEmail,
		UserRole:     entry.UserRole,
		Service:      entry.Service,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Status:       entry.Status,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
	}
	if err := s.repo.Create(record); err != nil {
		// Best effort only: the primary operation already returned.
		s.logger.Error("audit write failed",
			"service", entry.Service,
			"action", entry.Action,
			"status", entry.Status,
			"error", err)
	}
	return nil
}

// List returns audit records for callers holding audit:view.
func (s *Service) List(filter Filter) ([]*Record, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(filter)
}

// NopRecorder discards everything; used where auditing is not wired.
type NopRecorder struct{}

func (NopRecorder) Record(Entry) {}
