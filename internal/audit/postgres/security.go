package postgres

import (
	"errors"

	apperrors "github.com/safebank/banking/internal"
	"github.com/safebank/banking/internal/audit"
	auditDatamodel "github.com/safebank/banking/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type SecurityRepository struct {
	db *gorm.DB
}

func NewSecurityRepository(db *gorm.DB) audit.SecurityRepository {
	return &SecurityRepository{db: db}
}

func (r *SecurityRepository) CreateEvent(event *audit.SecurityEvent) error {
	row := toSecurityDataModel(event)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	event.ID = row.ID
	event.Timestamp = row.Timestamp
	return nil
}

func (r *SecurityRepository) ListEvents(filter audit.SecurityFilter) ([]*audit.SecurityEvent, int64, error) {
	q := r.db.Model(&auditDatamodel.SecurityEvent{})

	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Investigated != nil {
		q = q.Where("investigated = ?", *filter.Investigated)
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*auditDatamodel.SecurityEvent
	err := q.Order("timestamp DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	events := make([]*audit.SecurityEvent, len(rows))
	for i, row := range rows {
		events[i] = fromSecurityDataModel(row)
	}
	return events, total, nil
}

func (r *SecurityRepository) GetEvent(id int64) (*audit.SecurityEvent, error) {
	var row auditDatamodel.SecurityEvent
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSecurityEventNotFound
		}
		return nil, err
	}
	return fromSecurityDataModel(&row), nil
}

func (r *SecurityRepository) UpdateEvent(event *audit.SecurityEvent) error {
	return r.db.Save(toSecurityDataModel(event)).Error
}

func (r *SecurityRepository) Alerts(limit int) ([]*audit.SecurityEvent, error) {
	var rows []*auditDatamodel.SecurityEvent
	err := r.db.Where("investigated = ?", false).
		Where("severity IN ?", []string{audit.SeverityHigh, audit.SeverityCritical}).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	events := make([]*audit.SecurityEvent, len(rows))
	for i, row := range rows {
		events[i] = fromSecurityDataModel(row)
	}
	return events, nil
}

func (r *SecurityRepository) Stats() (*audit.SecurityStats, error) {
	stats := &audit.SecurityStats{BySeverity: map[string]int64{}}

	model := func() *gorm.DB { return r.db.Model(&auditDatamodel.SecurityEvent{}) }
	if err := model().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := model().Where("investigated = ?", false).Count(&stats.Uninvestigated).Error; err != nil {
		return nil, err
	}

	type severityRow struct {
		Severity string
		Count    int64
	}
	var bySeverity []severityRow
	err := model().Select("severity, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error
	if err != nil {
		return nil, err
	}
	for _, row := range bySeverity {
		stats.BySeverity[row.Severity] = row.Count
	}

	err = model().Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Order("count DESC").
		Limit(10).
		Scan(&stats.TopEventTypes).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func toSecurityDataModel(e *audit.SecurityEvent) *auditDatamodel.SecurityEvent {
	return &auditDatamodel.SecurityEvent{
		ID:              e.ID,
		Timestamp:       e.Timestamp,
		EventType:       e.EventType,
		Severity:        e.Severity,
		UserID:          e.UserID,
		UserEmail:       e.UserEmail,
		Description:     e.Description,
		Details:         e.Details,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		Investigated:    e.Investigated,
		InvestigatedBy:  e.InvestigatedBy,
		InvestigatedAt:  e.InvestigatedAt,
		ResolutionNotes: e.ResolutionNotes,
	}
}

func fromSecurityDataModel(row *auditDatamodel.SecurityEvent) *audit.SecurityEvent {
	return &audit.SecurityEvent{
		ID:              row.ID,
		Timestamp:       row.Timestamp,
		EventType:       row.EventType,
		Severity:        row.Severity,
		UserID:          row.UserID,
		UserEmail:       row.UserEmail,
		Description:     row.Description,
		Details:         row.Details,
		IPAddress:       row.IPAddress,
		UserAgent:       row.UserAgent,
		Investigated:    row.Investigated,
		InvestigatedBy:  row.InvestigatedBy,
		InvestigatedAt:  row.InvestigatedAt,
		ResolutionNotes: row.ResolutionNotes,
	}
}
