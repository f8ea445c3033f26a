package ticket

import "time"

type Ticket struct {
	ID          int64      `gorm:"primaryKey"`
	UserID      int64      `gorm:"column:user_id;index;not null"`
	Subject     string     `gorm:"column:subject;not null"`
	Description string     `gorm:"column:description;type:text;not null"`
	Status      string     `gorm:"column:status;not null;default:Open"`
	Priority    string     `gorm:"column:priority;not null;default:Medium"`
	AssignedTo  *int64     `gorm:"column:assigned_to"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type TicketNote struct {
	ID        int64     `gorm:"primaryKey"`
	TicketID  int64     `gorm:"column:ticket_id;index;not null"`
	AuthorID  int64     `gorm:"column:author_id;not null"`
	Note      string    `gorm:"column:note;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TicketNote) TableName() string {
	return "ticket_notes"
}
