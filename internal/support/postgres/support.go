package postgres

import (
	"context"
	"errors"

	ticketDatamodel "github.com/safebank/banking/internal/core/datamodel/ticket"
	"github.com/safebank/banking/internal/support"
	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) support.Repository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, t *support.Ticket) error {
	row := ticketDatamodel.Ticket{
		UserID:      t.UserID,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	t.ID = row.ID
	t.CreatedAt = row.CreatedAt
	t.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*support.Ticket, error) {
	var row ticketDatamodel.Ticket
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, support.ErrNotFound
		}
		return nil, err
	}

	var notes []ticketDatamodel.TicketNote
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", id).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return support.FromDataModel(&row, notes), nil
}

func (r *TicketRepository) GetByUserID(ctx context.Context, userID int64) ([]*support.Ticket, error) {
	var rows []*ticketDatamodel.Ticket
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTickets(rows), nil
}

func (r *TicketRepository) ListAll(ctx context.Context, status string) ([]*support.Ticket, error) {
	q := r.db.WithContext(ctx).Model(&ticketDatamodel.Ticket{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []*ticketDatamodel.Ticket
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTickets(rows), nil
}

func (r *TicketRepository) Update(ctx context.Context, t *support.Ticket) error {
	res := r.db.WithContext(ctx).
		Model(&ticketDatamodel.Ticket{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"status":      t.Status,
			"assigned_to": t.AssignedTo,
			"resolved_at": t.ResolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return support.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) AddNote(ctx context.Context, note *support.Note) error {
	row := ticketDatamodel.TicketNote{
		TicketID: note.TicketID,
		AuthorID: note.AuthorID,
		Note:     note.Note,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	note.ID = row.ID
	note.CreatedAt = row.CreatedAt
	return nil
}

func toTickets(rows []*ticketDatamodel.Ticket) []*support.Ticket {
	out := make([]*support.Ticket, len(rows))
	for i, row := range rows {
		out[i] = support.FromDataModel(row, nil)
	}
	return out
}
