package audit

import (
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

const (
	ServiceAuth         = "auth"
	ServiceAccounts     = "accounts"
	ServiceTransactions = "transactions"
	ServiceAdmin        = "admin"
	ServiceSupport      = "support"
)

// Entry describes one authorization decision or mutation outcome.
// Entries are append-only; nothing in the system updates them.
type Entry struct {
	UserID       *int64    `json:"user_id,omitempty"`
	UserEmail    string    `json:"user_email,omitempty"`
	UserRole     string    `json:"user_role,omitempty"`
	Service      string    `json:"service"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Status       string    `json:"status"`
	Details      string    `json:"details,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Record is the stored form returned by queries.
type Record struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       *int64    `json:"user_id,omitempty"`
	UserEmail    string    `json:"user_email,omitempty"`
	UserRole     string    `json:"user_role,omitempty"`
	Service      string    `json:"service"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Status       string    `json:"status"`
	Details      string    `json:"details,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// Recorder is the write-only sink every privileged or mutating
// operation reports to. Implementations must never fail or block the
// operation being recorded.
type Recorder interface {
	Record(entry Entry)
}

// Filter narrows queries over the trail.
type Filter struct {
	Service      string
	Action       string
	UserID       *int64
	Status       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

type Repository interface {
	Create(record *Record) error
	List(filter Filter) ([]*Record, error)
}
