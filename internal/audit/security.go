package audit

import (
	"time"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	EventFailedLogin           = "failed_login"
	EventAccountLockout        = "account_lockout"
	EventSuspiciousTransaction = "suspicious_transaction"
	EventPermissionDenied      = "permission_denied"
)

// SecurityEvent is a flagged occurrence that may need a human to look
// at it. Unlike the audit trail, events carry an investigation
// lifecycle: an analyst claims one, resolves it, and writes down what
// they found.
type SecurityEvent struct {
	ID              int64      `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	EventType       string     `json:"event_type"`
	Severity        string     `json:"severity"`
	UserID          *int64     `json:"user_id,omitempty"`
	UserEmail       string     `json:"user_email,omitempty"`
	Description     string     `json:"description"`
	Details         string     `json:"details,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
	UserAgent       string     `json:"user_agent,omitempty"`
	Investigated    bool       `json:"investigated"`
	InvestigatedBy  *int64     `json:"investigated_by,omitempty"`
	InvestigatedAt  *time.Time `json:"investigated_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// SecurityFilter narrows event queries.
type SecurityFilter struct {
	EventType    string
	Severity     string
	UserID       *int64
	Investigated *bool
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// EventTypeCount is one row of the per-type breakdown in SecurityStats.
type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// SecurityStats summarizes the event backlog for the dashboard.
type SecurityStats struct {
	Total          int64            `json:"total_events"`
	Uninvestigated int64            `json:"uninvestigated"`
	BySeverity     map[string]int64 `json:"by_severity"`
	TopEventTypes  []EventTypeCount `json:"top_event_types"`
}

type SecurityRepository interface {
	CreateEvent(event *SecurityEvent) error
	ListEvents(filter SecurityFilter) ([]*SecurityEvent, int64, error)
	GetEvent(id int64) (*SecurityEvent, error)
	UpdateEvent(event *SecurityEvent) error
	Alerts(limit int) ([]*SecurityEvent, error)
	Stats() (*SecurityStats, error)
}

func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}
