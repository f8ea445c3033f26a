package postgres

import (
	"context"

	transactionDatamodel "github.com/safebank/banking/internal/core/datamodel/transaction"
	"github.com/safebank/banking/internal/transaction"
	"gorm.io/gorm"
)

// TransactionRepository is append-only; there are no update or delete
// paths.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transaction.Repository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	row := transactionDatamodel.Transaction{
		SenderAccountID:   tx.SenderAccountID,
		ReceiverAccountID: tx.ReceiverAccountID,
		Amount:            tx.Amount,
		Type:              tx.Type,
		Description:       tx.Description,
		Timestamp:         tx.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	tx.ID = row.ID
	return nil
}

func (r *TransactionRepository) ListByAccountIDs(ctx context.Context, accountIDs []int64, filter transaction.Filter) ([]*transaction.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&transactionDatamodel.Transaction{}).
		Where("sender_account_id IN ? OR receiver_account_id IN ?", accountIDs, accountIDs)
	return r.list(applyFilter(q, filter))
}

func (r *TransactionRepository) ListAll(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&transactionDatamodel.Transaction{})
	return r.list(applyFilter(q, filter))
}

func (r *TransactionRepository) TopByAmount(ctx context.Context, accountID int64, limit int) ([]*transaction.Transaction, error) {
	var rows []*transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Where("sender_account_id = ? OR receiver_account_id = ?", accountID, accountID).
		Order("amount DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return transaction.FromDataModelSlice(rows), nil
}

func (r *TransactionRepository) list(q *gorm.DB) ([]*transaction.Transaction, error) {
	var rows []*transactionDatamodel.Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return transaction.FromDataModelSlice(rows), nil
}

func applyFilter(q *gorm.DB, filter transaction.Filter) *gorm.DB {
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}
	if filter.MinAmount != nil {
		q = q.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("amount <= ?", *filter.MaxAmount)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	q = q.Order("timestamp DESC").Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q
}
