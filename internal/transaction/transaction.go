package transaction

import (
	"context"
	"errors"
	"time"

	transactionDatamodel "github.com/safebank/banking/internal/core/datamodel/transaction"
	"github.com/shopspring/decimal"
)

const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeInternal   = "internal"
	TypeExternal   = "external"
)

// Transaction is an immutable ledger record. Deposits and withdrawals
// store the same account as both sender and receiver.
type Transaction struct {
	ID                int64           `json:"id"`
	SenderAccountID   int64           `json:"sender_account_id"`
	ReceiverAccountID int64           `json:"receiver_account_id"`
	Amount            decimal.Decimal `json:"amount"`
	Type              string          `json:"type"`
	Description       string          `json:"description,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Result is what a committed execution returns to the caller: the
// record plus the caller-side balance movement.
type Result struct {
	Transaction     *Transaction    `json:"transaction"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most 2 decimal places")
	ErrAmountExceedsLimit  = errors.New("amount exceeds the per-transaction limit")
	ErrSameAccountTransfer = errors.New("source and destination accounts are the same")
	ErrOwnershipMismatch   = errors.New("account does not belong to the caller")
	ErrAccountNotActive    = errors.New("account is not active")
)

// Filter narrows history queries. Zero values mean "no constraint".
type Filter struct {
	Type      string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Limit     int
	Offset    int
}

// Repository is append-only: records are inserted once and never
// updated or deleted.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	ListByAccountIDs(ctx context.Context, accountIDs []int64, filter Filter) ([]*Transaction, error)
	ListAll(ctx context.Context, filter Filter) ([]*Transaction, error)
	TopByAmount(ctx context.Context, accountID int64, limit int) ([]*Transaction, error)
}

func FromDataModel(row *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:                row.ID,
		SenderAccountID:   row.SenderAccountID,
		ReceiverAccountID: row.ReceiverAccountID,
		Amount:            row.Amount,
		Type:              row.Type,
		Description:       row.Description,
		Timestamp:         row.Timestamp,
	}
}

func FromDataModelSlice(rows []*transactionDatamodel.Transaction) []*Transaction {
	out := make([]*Transaction, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
	}
	return out
}
