package audit

import "time"

type AuditLog struct {
	ID           int64     `gorm:"primaryKey"`
	Timestamp    time.Time `gorm:"column:timestamp;index;autoCreateTime"`
	UserID       *int64    `gorm:"column:user_id;index"`
	UserEmail    string    `gorm:"column:user_email"`
	UserRole     string    `gorm:"column:user_role"`
	Service      string    `gorm:"column:service;index;not null"`
	Action       string    `gorm:"column:action;index;not null"`
	ResourceType string    `gorm:"column:resource_type"`
	ResourceID   string    `gorm:"column:resource_id;index"`
	Status       string    `gorm:"column:status;not null"`
	Details      string    `gorm:"column:details;type:text"`
	IPAddress    string    `gorm:"column:ip_address"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type SecurityEvent struct {
	ID              int64      `gorm:"primaryKey"`
	Timestamp       time.Time  `gorm:"column:timestamp;index;autoCreateTime"`
	EventType       string     `gorm:"column:event_type;index;not null"`
	Severity        string     `gorm:"column:severity;index;not null;default:medium"`
	UserID          *int64     `gorm:"column:user_id;index"`
	UserEmail       string     `gorm:"column:user_email"`
	Description     string     `gorm:"column:description;type:text;not null"`
	Details         string     `gorm:"column:details;type:text"`
	IPAddress       string     `gorm:"column:ip_address"`
	UserAgent       string     `gorm:"column:user_agent"`
	Investigated    bool       `gorm:"column:investigated;index;not null;default:false"`
	InvestigatedBy  *int64     `gorm:"column:investigated_by"`
	InvestigatedAt  *time.Time `gorm:"column:investigated_at"`
	ResolutionNotes string     `gorm:"column:resolution_notes;type:text"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
