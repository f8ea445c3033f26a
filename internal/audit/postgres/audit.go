package postgres

import (
	"github.com/safebank/banking/internal/audit"
	auditDatamodel "github.com/safebank/banking/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(record *audit.Record) error {
	row := toDataModel(record)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	record.ID = row.ID
	record.Timestamp = row.Timestamp
	return nil
}

func (r *AuditRepository) List(filter audit.Filter) ([]*audit.Record, error) {
	q := r.db.Model(&auditDatamodel.AuditLog{})

	if filter.Service != "" {
		q = q.Where("service = ?", filter.Service)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}

	var rows []*auditDatamodel.AuditLog
	err := q.Order("timestamp DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*audit.Record, len(rows))
	for i, row := range rows {
		records[i] = fromDataModel(row)
	}
	return records, nil
}

func toDataModel(r *audit.Record) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		Timestamp:    r.Timestamp,
		UserID:       r.UserID,
		UserEmail:    r.UserEmail,
		UserRole:     r.UserRole,
		Service:      r.Service,
		Action:       r.Action,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Status:       r.Status,
		Details:      r.Details,
		IPAddress:    r.IPAddress,
	}
}

func fromDataModel(row *auditDatamodel.AuditLog) *audit.Record {
	return &audit.Record{
		ID:           row.ID,
		Timestamp:    row.Timestamp,
		UserID:       row.UserID,
		UserEmail:    row.UserEmail,
		UserRole:     row.UserRole,
		Service:      row.Service,
		Action:       row.Action,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		Status:       row.Status,
		Details:      row.Details,
		IPAddress:    row.IPAddress,
	}
}
