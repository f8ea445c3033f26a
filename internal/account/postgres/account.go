package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/safebank/banking/internal/account"
	accountDatamodel "github.com/safebank/banking/internal/core/datamodel/account"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRepository is the ledger store's account side. All balance
// writes go through ApplyMutation, a bounded compare-and-set loop on
// the row's version column.
type AccountRepository struct {
	db         *gorm.DB
	maxRetries int
}

func NewAccountRepository(db *gorm.DB, maxRetries int) account.Repository {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &AccountRepository{db: db, maxRetries: maxRetries}
}

// Create numbers the account from the owner's current count. A
// concurrent create for the same owner can land between the count and
// the insert; the unique index on account_number catches that, and the
// loop recounts and steps past the taken number.
func (r *AccountRepository) Create(ctx context.Context, ownerID int64, accountType string) (*account.Account, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var row accountDatamodel.Account
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&accountDatamodel.Account{}).
				Where("user_id = ?", ownerID).
				Count(&existing).Error; err != nil {
				return err
			}

			row = accountDatamodel.Account{
				AccountNumber: account.FormatNumber(ownerID, existing+1+int64(attempt)),
				UserID:        ownerID,
				Type:          accountType,
				Balance:       decimal.Zero,
				Status:        account.StatusActive,
			}
			return tx.Create(&row).Error
		})
		if err == nil {
			return account.FromDataModel(&row), nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	var row accountDatamodel.Account
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return account.FromDataModel(&row), nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	var row accountDatamodel.Account
	if err := r.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return account.FromDataModel(&row), nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	var rows []*accountDatamodel.Account
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return account.FromDataModelSlice(rows), nil
}

func (r *AccountRepository) ListAll(ctx context.Context) ([]*account.Account, error) {
	var rows []*accountDatamodel.Account
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return account.FromDataModelSlice(rows), nil
}

// ApplyMutation adds delta to the balance if, and only if, the account
// is in expectedStatus and the resulting balance is non-negative. The
// conditional update on the version column makes concurrent mutations
// serialize: a loser re-reads and retries, up to maxRetries times.
func (r *AccountRepository) ApplyMutation(ctx context.Context, accountID int64, delta decimal.Decimal, expectedStatus string) (*account.Account, error) {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var row accountDatamodel.Account
		if err := r.db.WithContext(ctx).First(&row, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, account.ErrNotFound
			}
			return nil, err
		}

		if row.Status != expectedStatus {
			return nil, account.ErrStatusMismatch
		}

		newBalance := row.Balance.Add(delta)
		if newBalance.IsNegative() {
			return nil, account.ErrInsufficientFunds
		}

		res := r.db.WithContext(ctx).Model(&accountDatamodel.Account{}).
			Where("id = ? AND version = ?", accountID, row.Version).
			Updates(map[string]interface{}{
				"balance": newBalance,
				"version": row.Version + 1,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			row.Balance = newBalance
			row.Version++
			return account.FromDataModel(&row), nil
		}
		// lost the race; re-read and try again
	}
	return nil, account.ErrRetryExhausted
}

func (r *AccountRepository) SetStatus(ctx context.Context, accountID int64, status string) (*account.Account, error) {
	var row accountDatamodel.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return account.ErrNotFound
			}
			return err
		}
		row.Status = status
		return tx.Model(&accountDatamodel.Account{}).
			Where("id = ?", accountID).
			Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return account.FromDataModel(&row), nil
}
