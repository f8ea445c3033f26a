package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountDatamodel "github.com/safebank/banking/internal/core/datamodel/account"
	"github.com/shopspring/decimal"
)

const (
	TypeChecking = "checking"
	TypeSavings  = "savings"
)

const (
	StatusActive = "Active"
	StatusFrozen = "Frozen"
	StatusClosed = "Closed"
)

type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	UserID        int64           `json:"user_id"`
	Type          string          `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

var (
	ErrNotFound          = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStatusMismatch    = errors.New("account status does not permit this operation")
	ErrRetryExhausted    = errors.New("balance mutation retries exhausted")
	ErrInvalidType       = errors.New("invalid account type")
)

// Repository is the ledger store's account side. ApplyMutation is the
// single place balance arithmetic happens; everything else reads.
type Repository interface {
	Create(ctx context.Context, ownerID int64, accountType string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*Account, error)
	GetByUserID(ctx context.Context, userID int64) ([]*Account, error)
	ListAll(ctx context.Context) ([]*Account, error)
	ApplyMutation(ctx context.Context, accountID int64, delta decimal.Decimal, expectedStatus string) (*Account, error)
	SetStatus(ctx context.Context, accountID int64, status string) (*Account, error)
}

func ValidType(t string) bool {
	return t == TypeChecking || t == TypeSavings
}

// FormatNumber renders the canonical ACCT-{owner}-{seq} account number.
func FormatNumber(ownerID, seq int64) string {
	return fmt.Sprintf("ACCT-%d-%d", ownerID, seq)
}

func FromDataModel(row *accountDatamodel.Account) *Account {
	return &Account{
		ID:            row.ID,
		AccountNumber: row.AccountNumber,
		UserID:        row.UserID,
		Type:          row.Type,
		Balance:       row.Balance,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
	}
}

func FromDataModelSlice(rows []*accountDatamodel.Account) []*Account {
	out := make([]*Account, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
	}
	return out
}
